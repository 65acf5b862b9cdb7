package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/hackgods/hospital-channeling/internal/redis"
)

const (
	EventAppointmentCreated       = "APPOINTMENT_CREATED"
	EventAppointmentUpdated       = "APPOINTMENT_UPDATED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	EventAppointmentCancelled     = "APPOINTMENT_CANCELLED"
	EventAppointmentNoShow        = "APPOINTMENT_NO_SHOW"
)

const (
	defaultDuration = 15
	defaultLimit    = 20
	maxLimit        = 100
	systemActor     = "system"
)

var (
	ErrNotCancellable      = errors.New("completed or cancelled appointments cannot be cancelled")
	ErrPastAppointment     = errors.New("past appointments cannot be cancelled")
	ErrAppointmentInactive = errors.New("appointment is cancelled; reschedule it before editing")
	ErrConcurrentUpdate    = errors.New("appointment was changed by another request, reload and retry")
)

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		logger:   logger.With().Str("component", "appointment").Logger(),
		now:      time.Now,
	}
}

// CreateAppointment books a new SCHEDULED appointment. Channel allocation and
// the insert run under the doctor/day lock so two bookings cannot end up with
// the same number.
func (s *Service) CreateAppointment(ctx context.Context, in CreateInput, actor Actor) (*Appointment, error) {
	if err := ValidateCreate(in).Err(); err != nil {
		return nil, err
	}

	date, err := ParseDate(in.AppointmentDate)
	if err != nil {
		return nil, err
	}
	doctorID := strings.TrimSpace(in.DoctorID)

	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	appt := &Appointment{
		DoctorID:        doctorID,
		AppointmentDate: date,
		AppointmentTime: in.AppointmentTime,
		Duration:        in.Duration,
		PatientName:     strings.TrimSpace(in.PatientName),
		PatientNIC:      strings.ToUpper(in.PatientNIC),
		PatientPhone:    in.PatientPhone,
		PatientEmail:    optionalString(in.PatientEmail),
		PatientAge:      in.PatientAge,
		PatientAddress:  optionalString(in.PatientAddress),
		Status:          StatusScheduled,
		ActiveStatus:    true,
		CreatedBy:       actor.UserID,
		UpdatedBy:       actor.UserID,
	}
	if appt.Duration == 0 {
		appt.Duration = defaultDuration
	}
	if in.PatientGender != "" {
		g := Gender(in.PatientGender)
		appt.PatientGender = &g
	}

	var created *Appointment

	err = s.withChannelLock(ctx, doctorID, date, func(lockCtx context.Context) error {
		no, err := s.claimChannel(lockCtx, doctorID, date, in.ChannelNo, nil)
		if err != nil {
			return err
		}
		appt.ChannelNo = no

		created, err = s.repo.CreateAppointment(lockCtx, appt)
		if err != nil {
			if errors.Is(err, ErrChannelConflict) {
				return err
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		s.logEvent(lockCtx, created.ID, EventAppointmentCreated, map[string]any{
			"doctor_id":  doctorID,
			"date":       DateKey(date),
			"channel_no": created.ChannelNo,
			"created_by": actor.UserID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

type Page struct {
	Items  []Appointment
	Total  int
	Limit  int
	Offset int
}

var sortColumns = map[string]bool{
	"appointment_date": true,
	"channel_no":       true,
	"created_at":       true,
	"patient_name":     true,
}

// ListDoctorAppointments retrieves a page of a doctor's appointments.
func (s *Service) ListDoctorAppointments(ctx context.Context, q ListQuery) (Page, error) {
	if strings.TrimSpace(q.DoctorID) == "" {
		return Page{}, &ValidationError{
			Fields:   map[string]string{"doctorId": "doctor is required"},
			Messages: []string{"doctor is required"},
		}
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Sort == "" || !sortColumns[q.Sort] {
		q.Sort = "appointment_date"
	}
	if !strings.EqualFold(q.Order, "desc") {
		q.Order = "asc"
	} else {
		q.Order = "desc"
	}

	items, total, err := s.repo.ListByDoctor(ctx, q)
	if err != nil {
		return Page{}, fmt.Errorf("list appointments by doctor: %w", err)
	}
	return Page{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

// UpdateAppointment applies a partial edit. The channel number is kept unless
// the doctor or the day changes, or a different number is asked for.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, in UpdateInput, actor Actor) (*Appointment, error) {
	if err := ValidateUpdate(in).Err(); err != nil {
		return nil, err
	}

	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	next := *current
	next.UpdatedBy = actor.UserID

	if in.Status != nil && Status(*in.Status) != current.Status {
		to := Status(*in.Status)
		if err := CheckTransition(current.Status, to); err != nil {
			return nil, err
		}
		if to == StatusCancelled {
			if err := s.checkCancel(current, actor); err != nil {
				return nil, err
			}
			next.ActiveStatus = false
		}
		if to == StatusScheduled {
			next.ActiveStatus = true
		}
		next.Status = to
	} else if !current.ActiveStatus {
		return nil, ErrAppointmentInactive
	}

	if err := applyUpdate(&next, in); err != nil {
		return nil, err
	}

	if next.DoctorID != current.DoctorID {
		if err := s.ensureDoctor(ctx, next.DoctorID); err != nil {
			return nil, err
		}
	}

	scopeChanged := ChannelScopeChanged(current.DoctorID, current.DateKey(), next.DoctorID, next.DateKey())
	reactivated := next.ActiveStatus && !current.ActiveStatus
	requested := 0
	if in.ChannelNo != nil && *in.ChannelNo != current.ChannelNo {
		requested = *in.ChannelNo
	}

	var updated *Appointment
	write := func(ctx context.Context) error {
		updated, err = s.repo.UpdateAppointment(ctx, &next, current.Status)
		if err != nil {
			switch {
			case errors.Is(err, ErrAppointmentNotFound):
				return ErrConcurrentUpdate
			case errors.Is(err, ErrChannelConflict):
				return err
			}
			return fmt.Errorf("update appointment: %w", err)
		}
		return nil
	}

	if next.ActiveStatus && (scopeChanged || requested > 0 || reactivated) {
		err = s.withChannelLock(ctx, next.DoctorID, next.AppointmentDate, func(lockCtx context.Context) error {
			want := requested
			if want == 0 && !scopeChanged {
				// reactivation on the same day tries to keep the old number
				want = current.ChannelNo
			}
			no, err := s.claimChannel(lockCtx, next.DoctorID, next.AppointmentDate, want, current)
			if err != nil {
				return err
			}
			next.ChannelNo = no
			return write(lockCtx)
		})
	} else {
		err = write(ctx)
	}
	if err != nil {
		return nil, err
	}

	eventType := EventAppointmentUpdated
	if updated.Status != current.Status {
		eventType = EventAppointmentStatusChanged
	}
	s.logEvent(ctx, updated.ID, eventType, map[string]any{
		"from_status":  current.Status,
		"to_status":    updated.Status,
		"channel_no":   updated.ChannelNo,
		"updated_by":   actor.UserID,
		"scope_change": scopeChanged,
	})

	if updated.Status == StatusCancelled && current.Status != StatusCancelled {
		s.notifyCancelled(ctx, *updated)
	}

	return updated, nil
}

// TransitionStatus moves an appointment along one edge of the lifecycle.
// Staying on the same status is not a transition.
func (s *Service) TransitionStatus(ctx context.Context, id uuid.UUID, to Status, actor Actor) (*Appointment, error) {
	if !to.Valid() {
		return nil, ValidateUpdate(UpdateInput{Status: ptr(string(to))}).Err()
	}

	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if err := CheckTransition(current.Status, to); err != nil {
		return nil, err
	}
	if to == StatusCancelled {
		return s.CancelAppointment(ctx, id, actor)
	}
	if to == StatusScheduled {
		// reschedule needs the channel re-check done by UpdateAppointment
		return s.UpdateAppointment(ctx, id, UpdateInput{Status: ptr(string(to))}, actor)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, current.Status, to, actor.UserID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentStatusChanged, map[string]any{
		"from_status": current.Status,
		"to_status":   to,
		"updated_by":  actor.UserID,
	})
	return updated, nil
}

// CancelAppointment soft deletes: the row stays, marked inactive and CANCELLED,
// and the patient is notified.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if err := s.checkCancel(current, actor); err != nil {
		return nil, err
	}

	cancelled, err := s.repo.CancelAppointment(ctx, id, current.Status, actor.UserID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, cancelled.ID, EventAppointmentCancelled, map[string]any{
		"from_status":  current.Status,
		"cancelled_by": actor.UserID,
	})
	s.notifyCancelled(ctx, *cancelled)

	return cancelled, nil
}

func (s *Service) checkCancel(a *Appointment, actor Actor) error {
	if !a.ActiveStatus || a.Status == StatusCancelled {
		return fmt.Errorf("%w: already cancelled", ErrAppointmentNotFound)
	}
	if d := CanDelete(actor.Roles, a.DoctorID, actor.UserID); !d.CanDelete {
		return &PermissionError{Reason: d.Reason}
	}
	if a.Status == StatusCompleted {
		return ErrNotCancellable
	}
	if err := CheckTransition(a.Status, StatusCancelled); err != nil {
		return err
	}
	if a.AppointmentDate.Before(s.today()) {
		return ErrPastAppointment
	}
	return nil
}

// MarkNoShows is intended to be called by the worker periodically. Confirmed
// appointments from earlier days that never started become NO_SHOW.
func (s *Service) MarkNoShows(ctx context.Context) (int, error) {
	overdue, err := s.repo.FindOverdueConfirmed(ctx, s.today())
	if err != nil {
		return 0, fmt.Errorf("find overdue confirmed appointments: %w", err)
	}

	marked := 0
	for _, appt := range overdue {
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusConfirmed, StatusNoShow, systemActor)
		if err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				s.logger.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to mark no-show")
			}
			continue
		}
		marked++
		s.logEvent(ctx, appt.ID, EventAppointmentNoShow, map[string]any{
			"reason": "worker",
			"date":   appt.DateKey(),
		})
	}

	return marked, nil
}

func (s *Service) withChannelLock(ctx context.Context, doctorID string, date time.Time, fn func(ctx context.Context) error) error {
	err := s.locker.WithChannelLock(ctx, doctorID, DateKey(date), fn)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrChannelBusy
	}
	return err
}

func (s *Service) ensureDoctor(ctx context.Context, doctorID string) error {
	ok, err := s.repo.DoctorExists(ctx, doctorID)
	if err != nil {
		return fmt.Errorf("load doctor: %w", err)
	}
	if !ok {
		return ErrDoctorNotFound
	}
	return nil
}

func (s *Service) today() time.Time {
	return Today(s.now())
}

func (s *Service) notifyCancelled(ctx context.Context, a Appointment) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.AppointmentCancelled(ctx, a); err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("failed to send cancellation notification")
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}

func applyUpdate(a *Appointment, in UpdateInput) error {
	if in.DoctorID != nil {
		a.DoctorID = strings.TrimSpace(*in.DoctorID)
	}
	if in.AppointmentDate != nil {
		d, err := ParseDate(*in.AppointmentDate)
		if err != nil {
			return err
		}
		a.AppointmentDate = d
	}
	if in.AppointmentTime != nil {
		a.AppointmentTime = *in.AppointmentTime
	}
	if in.Duration != nil {
		a.Duration = *in.Duration
	}
	if in.PatientName != nil {
		a.PatientName = strings.TrimSpace(*in.PatientName)
	}
	if in.PatientNIC != nil {
		a.PatientNIC = strings.ToUpper(*in.PatientNIC)
	}
	if in.PatientPhone != nil {
		a.PatientPhone = *in.PatientPhone
	}
	if in.PatientEmail != nil {
		a.PatientEmail = optionalString(*in.PatientEmail)
	}
	if in.PatientAge != nil {
		age := *in.PatientAge
		a.PatientAge = &age
	}
	if in.PatientGender != nil {
		g := Gender(*in.PatientGender)
		a.PatientGender = &g
	}
	if in.PatientAddress != nil {
		a.PatientAddress = optionalString(*in.PatientAddress)
	}
	return nil
}

func excludeID(a *Appointment) *uuid.UUID {
	if a == nil {
		return nil
	}
	id := a.ID
	return &id
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func ptr[T any](v T) *T {
	return &v
}
