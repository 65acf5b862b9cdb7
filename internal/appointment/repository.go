package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
)

// ListQuery filters a doctor's appointments. Zero values mean "no filter".
type ListQuery struct {
	DoctorID        string
	Date            *time.Time
	Status          *Status
	IncludeInactive bool
	Sort            string
	Order           string
	Limit           int
	Offset          int
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	DoctorExists(ctx context.Context, doctorID string) (bool, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByDoctor(ctx context.Context, q ListQuery) ([]Appointment, int, error)

	// Channel allocation; only active appointments hold a number.
	MaxChannelNo(ctx context.Context, doctorID string, date time.Time) (int, error)
	ChannelTaken(ctx context.Context, doctorID string, date time.Time, channelNo int, exclude *uuid.UUID) (bool, error)

	// Writes. Update and status changes only apply while the row still has
	// the expected status, otherwise ErrAppointmentNotFound is returned.
	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	UpdateAppointment(ctx context.Context, a *Appointment, expected Status) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status, updatedBy string) (*Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, from Status, updatedBy string) (*Appointment, error)

	// No-show worker
	FindOverdueConfirmed(ctx context.Context, before time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

// Notifier delivers the patient notification that follows a cancellation.
type Notifier interface {
	AppointmentCancelled(ctx context.Context, a Appointment) error
}
