// Package session resolves who is calling. Identity comes from an ordered
// list of strategies; the first one that yields a user id wins.
package session

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const identityKey contextKey = "session_identity"

// Anonymous is the user id used when no strategy finds one.
const Anonymous = "anonymous"

const (
	HeaderUserID = "X-User-ID"
	HeaderRoles  = "X-User-Roles"
)

// CookieNames are tried in this order.
var CookieNames = []string{"userId", "user_id", "uid"}

type Identity struct {
	UserID string
	Roles  []string
	Source string
}

func (i Identity) Anonymous() bool {
	return i.UserID == Anonymous
}

// Strategy returns the identity it finds in r, or ok=false to defer to the
// next strategy.
type Strategy interface {
	Resolve(r *http.Request) (id Identity, ok bool)
}

type StrategyFunc func(r *http.Request) (Identity, bool)

func (f StrategyFunc) Resolve(r *http.Request) (Identity, bool) {
	return f(r)
}

type Chain []Strategy

// DefaultChain is bearer token, then cookies, then the user header. With a
// secret, roles come only from a verified token: cookie and header identities
// still name the user but carry no roles. An empty secret leaves bearer tokens
// out and trusts the roles header, which is only fit for local development.
func DefaultChain(jwtSecret string) Chain {
	if jwtSecret == "" {
		return Chain{CookieStrategy(CookieNames...), HeaderStrategy(HeaderUserID)}
	}
	return Chain{
		NewJWTStrategy([]byte(jwtSecret)),
		WithoutRoles(CookieStrategy(CookieNames...)),
		WithoutRoles(HeaderStrategy(HeaderUserID)),
	}
}

// WithoutRoles drops whatever roles s resolves.
func WithoutRoles(s Strategy) Strategy {
	return StrategyFunc(func(r *http.Request) (Identity, bool) {
		id, ok := s.Resolve(r)
		id.Roles = nil
		return id, ok
	})
}

func (c Chain) Resolve(r *http.Request) Identity {
	for _, s := range c {
		if id, ok := s.Resolve(r); ok {
			return id
		}
	}
	return Identity{UserID: Anonymous, Source: "default"}
}

// CookieStrategy reads the first non-empty cookie among names. Roles come
// from the roles header.
func CookieStrategy(names ...string) Strategy {
	return StrategyFunc(func(r *http.Request) (Identity, bool) {
		for _, name := range names {
			c, err := r.Cookie(name)
			if err != nil {
				continue
			}
			if v := strings.TrimSpace(c.Value); v != "" {
				return Identity{UserID: v, Roles: headerRoles(r), Source: "cookie:" + name}, true
			}
		}
		return Identity{}, false
	})
}

func HeaderStrategy(name string) Strategy {
	return StrategyFunc(func(r *http.Request) (Identity, bool) {
		v := strings.TrimSpace(r.Header.Get(name))
		if v == "" {
			return Identity{}, false
		}
		return Identity{UserID: v, Roles: headerRoles(r), Source: "header"}, true
	})
}

func headerRoles(r *http.Request) []string {
	return ParseRoles(r.Header.Get(HeaderRoles))
}

// ParseRoles splits a comma separated role list, upper-casing each entry.
func ParseRoles(raw string) []string {
	var roles []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored by the middleware, or the
// anonymous identity.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey).(Identity); ok {
		return id
	}
	return Identity{UserID: Anonymous, Source: "default"}
}

// Middleware resolves the identity once per request.
func Middleware(c Chain) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := c.Resolve(r)
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
