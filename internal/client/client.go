// Package client is the staff-side HTTP client for the channeling store. It
// runs the same validation, lifecycle and permission checks as the store
// before any request leaves the process.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-channeling/internal/alias"
	"github.com/hackgods/hospital-channeling/internal/session"
)

const defaultTimeout = 10 * time.Second

// Kind classifies client errors. Only KindConflict is worth retrying;
// KindNotAllowed is a business rule refusal such as cancelling a past
// appointment.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindInvalidTransition Kind = "invalid_transition"
	KindPermissionDenied  Kind = "permission_denied"
	KindNotFound          Kind = "not_found"
	KindNetwork           Kind = "network"
	KindConflict          Kind = "conflict"
	KindNotAllowed        Kind = "not_allowed"
)

// Error is returned by every client call. Message is safe to show to staff.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Fields  map[string]string
	Status  int
	Code    string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or "" when err is not a client error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  zerolog.Logger

	userID string
	roles  []string
	token  string
	now    func() time.Time
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithIdentity sets the staff member the client acts for. The roles feed the
// local permission check and are sent to the store.
func WithIdentity(userID string, roles ...string) Option {
	return func(c *Client) {
		c.userID = userID
		c.roles = session.ParseRoles(strings.Join(roles, ","))
	}
}

// WithClock replaces time.Now for the local date checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func WithBearerToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: defaultTimeout,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) UserID() string  { return c.userID }
func (c *Client) Roles() []string { return c.roles }

type errorBody struct {
	Error   string            `json:"error"`
	Details string            `json:"details"`
	Fields  map[string]string `json:"fields"`
}

// do sends one request. out may be nil. Response objects are passed through
// the alias set before decoding.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any, set alias.Set) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindValidation, Op: op, Message: "request could not be encoded", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Message: "request could not be built", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID != "" {
		req.Header.Set(session.HeaderUserID, c.userID)
	}
	if len(c.roles) > 0 {
		req.Header.Set(session.HeaderRoles, strings.Join(c.roles, ","))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		msg := "the store could not be reached"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "the store did not answer in time"
		}
		c.logger.Warn().Err(err).Str("op", op).Dur("latency", time.Since(start)).Msg("request failed")
		return &Error{Kind: KindNetwork, Op: op, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Message: "response could not be read", Status: resp.StatusCode, Err: err}
	}

	c.logger.Debug().Str("op", op).Str("method", method).Str("path", path).
		Int("status", resp.StatusCode).Dur("latency", time.Since(start)).Msg("request")

	if resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if set != nil {
		if data, err = set.NormalizeJSON(data); err != nil {
			return &Error{Kind: KindNetwork, Op: op, Message: "response was not valid JSON", Status: resp.StatusCode, Err: err}
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindNetwork, Op: op, Message: "response had an unexpected shape", Status: resp.StatusCode, Err: err}
	}
	return nil
}

func statusError(op string, status int, data []byte) *Error {
	var body errorBody
	_ = json.Unmarshal(data, &body)

	e := &Error{Op: op, Status: status, Code: body.Error, Message: body.Details, Fields: body.Fields}
	switch {
	case status == http.StatusBadRequest:
		e.Kind = KindValidation
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		e.Kind = KindPermissionDenied
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusConflict && (body.Error == "invalid_status_transition" || body.Error == "not_cancellable"):
		e.Kind = KindInvalidTransition
	case status == http.StatusConflict && (body.Error == "past_appointment" || body.Error == "appointment_inactive"):
		e.Kind = KindNotAllowed
	case status == http.StatusConflict:
		e.Kind = KindConflict
	default:
		e.Kind = KindNetwork
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
