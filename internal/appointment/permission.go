package appointment

import (
	"errors"
	"strings"
)

var ErrPermissionDenied = errors.New("permission denied")

const (
	reasonNoRole     = "Only administrators or the assigned doctor can cancel appointments. Please request admin approval."
	reasonNotOwner   = "You can only cancel your own appointments. Please request admin approval."
	reasonNoIdentity = "Unable to verify the assigned doctor for this appointment. Please request admin approval."
)

// Decision is the outcome of the cancellation gate. Reason is set only when
// CanDelete is false and is meant to be shown to the user as is.
type Decision struct {
	CanDelete bool   `json:"canDelete"`
	Reason    string `json:"reason,omitempty"`
}

// CanDelete decides whether a user may cancel an appointment. ADMIN always
// may; a DOCTOR without ADMIN only for appointments assigned to them.
func CanDelete(roles []string, doctorID, currentUserID string) Decision {
	var admin, doctor bool
	for _, r := range roles {
		switch strings.ToUpper(strings.TrimSpace(r)) {
		case RoleAdmin:
			admin = true
		case RoleDoctor:
			doctor = true
		}
	}

	switch {
	case admin:
		return Decision{CanDelete: true}
	case !doctor:
		return Decision{Reason: reasonNoRole}
	case doctorID == "" || currentUserID == "":
		return Decision{Reason: reasonNoIdentity}
	case doctorID != currentUserID:
		return Decision{Reason: reasonNotOwner}
	}
	return Decision{CanDelete: true}
}

type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string {
	return "permission denied: " + e.Reason
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}
