package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrChannelConflict = errors.New("channel number already taken for this doctor and date")
	ErrChannelBusy     = errors.New("channel allocation in progress for this doctor and date, please retry")
)

// ChannelScopeChanged reports whether an edit moves an appointment to another
// doctor or another calendar day. Dates are compared after normalization, so
// "2025-01-10" and "2025-01-10T08:00:00+05:30" are the same day.
func ChannelScopeChanged(origDoctorID, origDate, doctorID, date string) bool {
	if strings.TrimSpace(origDoctorID) != strings.TrimSpace(doctorID) {
		return true
	}
	a, errA := NormalizeDate(origDate)
	b, errB := NormalizeDate(date)
	if errA != nil || errB != nil {
		return strings.TrimSpace(origDate) != strings.TrimSpace(date)
	}
	return a != b
}

// NextChannelNo returns the next unused channel number for a doctor on a day.
// It is a read: nothing is reserved until an appointment carrying the number
// is written.
func (s *Service) NextChannelNo(ctx context.Context, doctorID string, date time.Time) (int, error) {
	if strings.TrimSpace(doctorID) == "" {
		return 0, &ValidationError{
			Fields:   map[string]string{"doctorId": "doctor is required"},
			Messages: []string{"doctor is required"},
		}
	}
	maxNo, err := s.repo.MaxChannelNo(ctx, doctorID, date)
	if err != nil {
		return 0, fmt.Errorf("load max channel number: %w", err)
	}
	return maxNo + 1, nil
}

// claimChannel runs inside the doctor/day lock. A requested number is verified
// free; zero means allocate the next one.
func (s *Service) claimChannel(ctx context.Context, doctorID string, date time.Time, requested int, exclude *Appointment) (int, error) {
	if requested > 0 {
		taken, err := s.repo.ChannelTaken(ctx, doctorID, date, requested, excludeID(exclude))
		if err != nil {
			return 0, fmt.Errorf("check channel number: %w", err)
		}
		if taken {
			return 0, ErrChannelConflict
		}
		return requested, nil
	}
	return s.NextChannelNo(ctx, doctorID, date)
}
