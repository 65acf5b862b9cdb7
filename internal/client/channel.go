package client

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-channeling/internal/appointment"
)

type Allocator interface {
	GenerateChannelNo(ctx context.Context, doctorID, date string) (int, error)
}

type Creator interface {
	CreateAppointment(ctx context.Context, in appointment.CreateInput) (*Appointment, error)
}

type Updater interface {
	UpdateAppointment(ctx context.Context, id string, in appointment.UpdateInput) (*Appointment, error)
}

// Booker creates appointments with a freshly allocated channel number. The
// allocator is only a hint: when the store reports the number taken, a new
// one is fetched and the create is retried.
type Booker struct {
	alloc   Allocator
	store   Creator
	retries int
	logger  zerolog.Logger
}

func NewBooker(alloc Allocator, store Creator, retries int, logger zerolog.Logger) *Booker {
	if retries < 0 {
		retries = 0
	}
	return &Booker{alloc: alloc, store: store, retries: retries, logger: logger}
}

func (b *Booker) Book(ctx context.Context, in appointment.CreateInput) (*Appointment, error) {
	const op = "create appointment"
	if res := appointment.ValidateCreate(in); !res.Valid {
		return nil, validationError(op, res)
	}

	var lastErr error
	for attempt := 0; attempt <= b.retries; attempt++ {
		no, err := b.alloc.GenerateChannelNo(ctx, in.DoctorID, in.AppointmentDate)
		if err != nil {
			// leave it empty, the store allocates one
			b.logger.Warn().Err(err).Str("doctor_id", in.DoctorID).Msg("channel allocation failed")
			no = 0
		}
		in.ChannelNo = no

		created, err := b.store.CreateAppointment(ctx, in)
		if err == nil {
			return created, nil
		}
		if !IsKind(err, KindConflict) {
			return nil, err
		}
		lastErr = err
		b.logger.Debug().Int("attempt", attempt+1).Int("channel_no", no).Msg("channel taken, retrying")
	}
	return nil, lastErr
}

// Editor saves edits to an existing appointment. The channel number is kept
// unless the edit moves the appointment to another doctor or day; then one
// allocation is made. If that allocation fails the previous number is sent.
type Editor struct {
	alloc  Allocator
	store  Updater
	logger zerolog.Logger
}

func NewEditor(alloc Allocator, store Updater, logger zerolog.Logger) *Editor {
	return &Editor{alloc: alloc, store: store, logger: logger}
}

func (e *Editor) Save(ctx context.Context, original *Appointment, in appointment.UpdateInput) (*Appointment, error) {
	const op = "update appointment"
	if res := appointment.ValidateUpdate(in); !res.Valid {
		return nil, validationError(op, res)
	}

	doctorID := original.DoctorID
	if in.DoctorID != nil {
		doctorID = strings.TrimSpace(*in.DoctorID)
	}
	date := original.AppointmentDate
	if in.AppointmentDate != nil {
		date = *in.AppointmentDate
	}

	if appointment.ChannelScopeChanged(original.DoctorID, original.AppointmentDate, doctorID, date) {
		no, err := e.alloc.GenerateChannelNo(ctx, doctorID, date)
		if err != nil {
			e.logger.Warn().Err(err).Str("appointment_id", original.ID).Msg("channel allocation failed, keeping previous number")
			no = original.ChannelNo
		}
		if no > 0 {
			in.ChannelNo = &no
		}
	}

	return e.store.UpdateAppointment(ctx, original.ID, in)
}
