package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-channeling/internal/alias"
	"github.com/hackgods/hospital-channeling/internal/appointment"
	"github.com/hackgods/hospital-channeling/internal/session"
	"github.com/hackgods/hospital-channeling/internal/testimonial"
)

const maxBodyBytes = 1 << 20

type handlers struct {
	appointments AppointmentService
	doctors      DoctorService
	testimonials TestimonialService
	logger       zerolog.Logger
}

func actorFrom(r *http.Request) appointment.Actor {
	id := session.FromContext(r.Context())
	return appointment.Actor{UserID: id.UserID, Roles: id.Roles}
}

// decodeBody reads a JSON object, folds field aliases into their canonical
// names and decodes it into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, set alias.Set, dst any) bool {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not read request body")
		return false
	}
	data, err = set.NormalizeJSON(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func parseAppointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *handlers) createAppointment(w http.ResponseWriter, r *http.Request) {
	var in appointment.CreateInput
	if !decodeBody(w, r, alias.Appointment, &in) {
		return
	}

	appt, err := h.appointments.CreateAppointment(r.Context(), in, actorFrom(r))
	if err != nil {
		h.handleAppointmentError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAppointmentID(w, r)
	if !ok {
		return
	}

	appt, err := h.appointments.GetAppointment(r.Context(), id)
	if err != nil {
		h.handleAppointmentError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) listDoctorAppointments(w http.ResponseWriter, r *http.Request) {
	q := appointment.ListQuery{DoctorID: chi.URLParam(r, "doctorId")}
	params := r.URL.Query()
	fields := map[string]string{}

	if v := params.Get("date"); v != "" {
		d, err := appointment.ParseDate(v)
		if err != nil {
			fields["date"] = "date must be YYYY-MM-DD"
		} else {
			q.Date = &d
		}
	}
	if v := params.Get("status"); v != "" {
		st, err := appointment.ParseStatus(strings.ToUpper(v))
		if err != nil {
			fields["status"] = err.Error()
		} else {
			q.Status = &st
		}
	}
	for name, dst := range map[string]*int{"limit": &q.Limit, "offset": &q.Offset} {
		if v := params.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				fields[name] = name + " must be a non-negative integer"
				continue
			}
			*dst = n
		}
	}
	if v := params.Get("include_inactive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fields["include_inactive"] = "include_inactive must be true or false"
		}
		q.IncludeInactive = b
	}
	if len(fields) > 0 {
		writeErrorFields(w, http.StatusBadRequest, "validation_failed", "invalid query parameters", fields)
		return
	}
	q.Sort = params.Get("sort")
	q.Order = params.Get("order")

	page, err := h.appointments.ListDoctorAppointments(r.Context(), q)
	if err != nil {
		h.handleAppointmentError(w, r, err)
		return
	}

	resp := AppointmentPageResponse{
		Items:  make([]AppointmentResponse, 0, len(page.Items)),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for i := range page.Items {
		resp.Items = append(resp.Items, toAppointmentResponse(&page.Items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) nextChannelNo(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	doctorID := strings.TrimSpace(params.Get("doctor_id"))
	fields := map[string]string{}
	if doctorID == "" {
		fields["doctor_id"] = "doctor_id is required"
	}
	date, err := appointment.ParseDate(params.Get("date"))
	if err != nil {
		fields["date"] = "date must be YYYY-MM-DD"
	}
	if len(fields) > 0 {
		writeErrorFields(w, http.StatusBadRequest, "validation_failed", "invalid query parameters", fields)
		return
	}

	no, err := h.appointments.NextChannelNo(r.Context(), doctorID, date)
	if err != nil {
		h.handleAppointmentError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ChannelNoResponse{DoctorID: doctorID, Date: appointment.DateKey(date), ChannelNo: no})
}

func (h *handlers) updateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAppointmentID(w, r)
	if !ok {
		return
	}
	var in appointment.UpdateInput
	if !decodeBody(w, r, alias.Appointment, &in) {
		return
	}

	appt, err := h.appointments.UpdateAppointment(r.Context(), id, in, actorFrom(r))
	if err != nil {
		h.handleAppointmentError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) transitionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAppointmentID(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if !decodeBody(w, r, alias.Common, &req) {
		return
	}

	appt, err := h.appointments.TransitionStatus(r.Context(), id, appointment.Status(strings.ToUpper(strings.TrimSpace(req.Status))), actorFrom(r))
	if err != nil {
		h.handleAppointmentError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAppointmentID(w, r)
	if !ok {
		return
	}

	appt, err := h.appointments.CancelAppointment(r.Context(), id, actorFrom(r))
	if err != nil {
		h.handleAppointmentError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) listDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.doctors.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	resp := make([]DoctorResponse, 0, len(doctors))
	for _, d := range doctors {
		resp = append(resp, toDoctorResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) listTestimonials(w http.ResponseWriter, r *http.Request) {
	items, err := h.testimonials.List(r.Context(), r.URL.Query().Get("doctor_id"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	resp := make([]TestimonialResponse, 0, len(items))
	for _, t := range items {
		resp = append(resp, toTestimonialResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) createTestimonial(w http.ResponseWriter, r *http.Request) {
	var in testimonial.CreateInput
	if !decodeBody(w, r, alias.Testimonial, &in) {
		return
	}

	created, err := h.testimonials.Create(r.Context(), in)
	if err != nil {
		var verr *testimonial.ValidationError
		switch {
		case errors.As(err, &verr):
			writeErrorFields(w, http.StatusBadRequest, "validation_failed", "testimonial is invalid", verr.Fields)
		case errors.Is(err, testimonial.ErrDoctorNotFound):
			writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
		default:
			h.internalError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, toTestimonialResponse(*created))
}

func (h *handlers) handleAppointmentError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *appointment.ValidationError
	var perr *appointment.PermissionError

	switch {
	case errors.As(err, &verr):
		writeErrorFields(w, http.StatusBadRequest, "validation_failed", strings.Join(verr.Messages, "; "), verr.Fields)
	case errors.As(err, &perr):
		writeError(w, http.StatusForbidden, "permission_denied", perr.Reason)
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrChannelConflict):
		writeError(w, http.StatusConflict, "channel_conflict", err.Error())
	case errors.Is(err, appointment.ErrChannelBusy):
		writeError(w, http.StatusConflict, "channel_busy", "channel allocation in progress, please retry shortly")
	case errors.Is(err, appointment.ErrNotCancellable):
		writeError(w, http.StatusConflict, "not_cancellable", err.Error())
	case errors.Is(err, appointment.ErrPastAppointment):
		writeError(w, http.StatusConflict, "past_appointment", err.Error())
	case errors.Is(err, appointment.ErrAppointmentInactive):
		writeError(w, http.StatusConflict, "appointment_inactive", err.Error())
	case errors.Is(err, appointment.ErrConcurrentUpdate):
		writeError(w, http.StatusConflict, "concurrent_update", err.Error())
	default:
		h.internalError(w, r, err)
	}
}

func (h *handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error().Err(err).
		Str("request_id", GetRequestID(r.Context())).
		Str("path", r.URL.Path).
		Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func writeErrorFields(w http.ResponseWriter, status int, code, details string, fields map[string]string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details, Fields: fields})
}
