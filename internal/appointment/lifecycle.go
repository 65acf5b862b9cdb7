package appointment

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// transitions lists, per status, the statuses it may move to. COMPLETED is
// terminal; CANCELLED and NO_SHOW may only be rescheduled.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusConfirmed, StatusInProgress, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCompleted, StatusNoShow, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {StatusScheduled},
	StatusNoShow:     {StatusScheduled},
}

var allStatuses = []Status{
	StatusScheduled,
	StatusConfirmed,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
}

var displayNames = map[Status]string{
	StatusScheduled:  "Scheduled",
	StatusConfirmed:  "Confirmed",
	StatusInProgress: "In Progress",
	StatusCompleted:  "Completed",
	StatusCancelled:  "Cancelled",
	StatusNoShow:     "No Show",
}

var colorClasses = map[Status]string{
	StatusScheduled:  "bg-blue-100 text-blue-800",
	StatusConfirmed:  "bg-green-100 text-green-800",
	StatusInProgress: "bg-yellow-100 text-yellow-800",
	StatusCompleted:  "bg-gray-100 text-gray-800",
	StatusCancelled:  "bg-red-100 text-red-800",
	StatusNoShow:     "bg-orange-100 text-orange-800",
}

// Statuses returns every status in declaration order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

func (s Status) DisplayName() string {
	if n, ok := displayNames[s]; ok {
		return n
	}
	return string(s)
}

func (s Status) ColorClass() string {
	if c, ok := colorClasses[s]; ok {
		return c
	}
	return "bg-gray-100 text-gray-800"
}

// NextStatuses returns the statuses reachable from s in one step.
func NextStatuses(s Status) []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

func IsValidTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition returns an error wrapping ErrInvalidTransition when the
// pair is not an edge of the lifecycle.
func CheckTransition(from, to Status) error {
	if !IsValidTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown appointment status %q", s)
	}
	return st, nil
}
