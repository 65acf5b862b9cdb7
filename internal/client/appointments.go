package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hackgods/hospital-channeling/internal/alias"
	"github.com/hackgods/hospital-channeling/internal/appointment"
)

// Appointment is the store's view of one booking.
type Appointment struct {
	ID              string    `json:"id"`
	DoctorID        string    `json:"doctorId"`
	AppointmentDate string    `json:"appointmentDate"`
	AppointmentTime string    `json:"appointmentTime,omitempty"`
	Duration        int       `json:"duration"`
	ChannelNo       int       `json:"channelNo"`
	PatientName     string    `json:"patientName"`
	PatientNIC      string    `json:"patientNIC"`
	PatientPhone    string    `json:"patientPhone"`
	PatientEmail    *string   `json:"patientEmail,omitempty"`
	PatientAge      *int      `json:"patientAge,omitempty"`
	PatientGender   *string   `json:"patientGender,omitempty"`
	PatientAddress  *string   `json:"patientAddress,omitempty"`
	Status          string    `json:"status"`
	ActiveStatus    bool      `json:"activeStatus"`
	CreatedBy       string    `json:"createdBy,omitempty"`
	UpdatedBy       string    `json:"updatedBy,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (a *Appointment) StatusValue() appointment.Status {
	return appointment.Status(a.Status)
}

type ListOptions struct {
	Date            string
	Status          appointment.Status
	IncludeInactive bool
	Sort            string
	Order           string
	Limit           int
	Offset          int
}

type Page struct {
	Items  []Appointment `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func validationError(op string, res appointment.Result) *Error {
	return &Error{
		Kind:    KindValidation,
		Op:      op,
		Message: strings.Join(res.Errors, "; "),
		Fields:  res.Fields,
		Err:     res.Err(),
	}
}

func (c *Client) ListDoctorAppointments(ctx context.Context, doctorID string, opts ListOptions) (*Page, error) {
	const op = "list doctor appointments"
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return nil, &Error{Kind: KindValidation, Op: op, Message: "doctor is required", Fields: map[string]string{"doctorId": "doctor is required"}}
	}

	q := url.Values{}
	if opts.Date != "" {
		d, err := appointment.NormalizeDate(opts.Date)
		if err != nil {
			return nil, &Error{Kind: KindValidation, Op: op, Message: "date must be YYYY-MM-DD", Err: err}
		}
		q.Set("date", d)
	}
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}
	if opts.IncludeInactive {
		q.Set("include_inactive", "true")
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Order != "" {
		q.Set("order", opts.Order)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	var raw struct {
		Items  []json.RawMessage `json:"items"`
		Total  int               `json:"total"`
		Limit  int               `json:"limit"`
		Offset int               `json:"offset"`
	}
	if err := c.do(ctx, op, http.MethodGet, "/doctors/"+url.PathEscape(doctorID)+"/appointments", q, nil, &raw, nil); err != nil {
		return nil, err
	}

	page := &Page{Items: make([]Appointment, 0, len(raw.Items)), Total: raw.Total, Limit: raw.Limit, Offset: raw.Offset}
	for _, item := range raw.Items {
		var a Appointment
		data, err := alias.Appointment.NormalizeJSON(item)
		if err == nil {
			err = json.Unmarshal(data, &a)
		}
		if err != nil {
			return nil, &Error{Kind: KindNetwork, Op: op, Message: "response had an unexpected shape", Err: err}
		}
		page.Items = append(page.Items, normalizeAppointment(a))
	}
	return page, nil
}

// GenerateChannelNo asks the store for the next channel number of a doctor on
// a day. The date is reduced to YYYY-MM-DD as written, without zone shifts.
func (c *Client) GenerateChannelNo(ctx context.Context, doctorID, date string) (int, error) {
	const op = "generate channel number"
	doctorID = strings.TrimSpace(doctorID)
	day, err := appointment.NormalizeDate(date)
	if doctorID == "" || err != nil {
		return 0, &Error{Kind: KindValidation, Op: op, Message: "doctor and date are required to allocate a channel"}
	}

	var resp struct {
		ChannelNo int `json:"channelNo"`
	}
	q := url.Values{"doctor_id": {doctorID}, "date": {day}}
	if err := c.do(ctx, op, http.MethodGet, "/appointments/channel-no", q, nil, &resp, alias.Appointment); err != nil {
		return 0, err
	}
	if resp.ChannelNo < 1 {
		return 0, &Error{Kind: KindNetwork, Op: op, Message: "the store returned no channel number"}
	}
	return resp.ChannelNo, nil
}

func (c *Client) CreateAppointment(ctx context.Context, in appointment.CreateInput) (*Appointment, error) {
	const op = "create appointment"
	if res := appointment.ValidateCreate(in); !res.Valid {
		return nil, validationError(op, res)
	}

	var out Appointment
	if err := c.do(ctx, op, http.MethodPost, "/appointments", nil, in, &out, alias.Appointment); err != nil {
		return nil, err
	}
	out = normalizeAppointment(out)
	return &out, nil
}

func (c *Client) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	var out Appointment
	if err := c.do(ctx, "get appointment", http.MethodGet, "/appointments/"+url.PathEscape(id), nil, nil, &out, alias.Appointment); err != nil {
		return nil, err
	}
	out = normalizeAppointment(out)
	return &out, nil
}

func (c *Client) UpdateAppointment(ctx context.Context, id string, in appointment.UpdateInput) (*Appointment, error) {
	const op = "update appointment"
	if res := appointment.ValidateUpdate(in); !res.Valid {
		return nil, validationError(op, res)
	}

	var out Appointment
	if err := c.do(ctx, op, http.MethodPut, "/appointments/"+url.PathEscape(id), nil, in, &out, alias.Appointment); err != nil {
		return nil, err
	}
	out = normalizeAppointment(out)
	return &out, nil
}

// UpdateStatus moves current to the next status. An edge outside the
// lifecycle table is rejected without contacting the store.
func (c *Client) UpdateStatus(ctx context.Context, current *Appointment, to appointment.Status) (*Appointment, error) {
	const op = "update appointment status"
	if !to.Valid() {
		return nil, &Error{Kind: KindValidation, Op: op, Message: "unknown status " + string(to)}
	}
	if err := appointment.CheckTransition(current.StatusValue(), to); err != nil {
		return nil, &Error{
			Kind:    KindInvalidTransition,
			Op:      op,
			Message: "cannot change status from " + current.StatusValue().DisplayName() + " to " + to.DisplayName(),
			Err:     err,
		}
	}

	var out Appointment
	body := map[string]string{"status": string(to)}
	if err := c.do(ctx, op, http.MethodPost, "/appointments/"+url.PathEscape(current.ID)+"/status", nil, body, &out, alias.Appointment); err != nil {
		return nil, err
	}
	out = normalizeAppointment(out)
	return &out, nil
}

// CanCancel runs the local cancellation checks for the client's identity.
func (c *Client) CanCancel(a *Appointment) appointment.Decision {
	if st := a.StatusValue(); st == appointment.StatusCompleted || st == appointment.StatusCancelled || !a.ActiveStatus {
		return appointment.Decision{Reason: "completed or cancelled appointments cannot be cancelled"}
	}
	if appointment.IsPastDate(a.AppointmentDate, c.now()) {
		return appointment.Decision{Reason: appointment.ErrPastAppointment.Error()}
	}
	return appointment.CanDelete(c.roles, a.DoctorID, c.userID)
}

// CancelAppointment soft cancels a. Permission, status and the past-date rule
// are checked locally first; the store checks them again.
func (c *Client) CancelAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	const op = "cancel appointment"
	if d := appointment.CanDelete(c.roles, a.DoctorID, c.userID); !d.CanDelete {
		return nil, &Error{Kind: KindPermissionDenied, Op: op, Message: d.Reason, Err: &appointment.PermissionError{Reason: d.Reason}}
	}
	if err := appointment.CheckTransition(a.StatusValue(), appointment.StatusCancelled); err != nil || !a.ActiveStatus {
		return nil, &Error{Kind: KindInvalidTransition, Op: op, Message: "completed or cancelled appointments cannot be cancelled", Err: err}
	}
	if appointment.IsPastDate(a.AppointmentDate, c.now()) {
		return nil, &Error{Kind: KindNotAllowed, Op: op, Message: appointment.ErrPastAppointment.Error(), Err: appointment.ErrPastAppointment}
	}

	var out Appointment
	if err := c.do(ctx, op, http.MethodDelete, "/appointments/"+url.PathEscape(a.ID), nil, nil, &out, alias.Appointment); err != nil {
		return nil, err
	}
	out = normalizeAppointment(out)
	return &out, nil
}

// normalizeAppointment reduces the date to its calendar day in case an
// upstream sent a timestamp.
func normalizeAppointment(a Appointment) Appointment {
	if d, err := appointment.NormalizeDate(a.AppointmentDate); err == nil {
		a.AppointmentDate = d
	}
	return a
}
