package appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusConfirmed  Status = "CONFIRMED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusNoShow     Status = "NO_SHOW"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

const (
	RoleAdmin  = "ADMIN"
	RoleDoctor = "DOCTOR"
)

// DateLayout is the date-only form used for appointment dates and lock keys.
const DateLayout = "2006-01-02"

type Appointment struct {
	ID              uuid.UUID
	DoctorID        string
	AppointmentDate time.Time
	AppointmentTime string
	Duration        int
	ChannelNo       int

	PatientName    string
	PatientNIC     string
	PatientPhone   string
	PatientEmail   *string
	PatientAge     *int
	PatientGender  *Gender
	PatientAddress *string

	Status       Status
	ActiveStatus bool
	CreatedBy    string
	UpdatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DateKey returns the appointment date as YYYY-MM-DD.
func (a *Appointment) DateKey() string {
	return DateKey(a.AppointmentDate)
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// Actor is the staff member performing an operation.
type Actor struct {
	UserID string
	Roles  []string
}

func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns midnight
// UTC of the calendar date as written. The time of day and the offset are
// dropped without converting zones, so "2025-01-10T23:30:00+05:30" stays on
// the 10th.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: expected YYYY-MM-DD", s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// NormalizeDate is ParseDate followed by DateKey.
func NormalizeDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return DateKey(t), nil
}

// Today returns midnight UTC of the calendar day now falls on in UTC.
func Today(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// IsPastDate reports whether the appointment day is before today. An
// unparseable date is not past; the store has the final say on those.
func IsPastDate(date string, now time.Time) bool {
	d, err := ParseDate(date)
	if err != nil {
		return false
	}
	return d.Before(Today(now))
}

func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}
