package doctor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound      = errors.New("doctor not found")
	ErrAlreadyExists = errors.New("doctor already exists")
	ErrInvalid       = errors.New("doctor id and name are required")
)

type Doctor struct {
	ID        uuid.UUID
	DoctorID  string
	Name      string
	Specialty string
	Active    bool
	CreatedAt time.Time
}

type Repository interface {
	List(ctx context.Context, activeOnly bool) ([]Doctor, error)
	GetByDoctorID(ctx context.Context, doctorID string) (*Doctor, error)
	Create(ctx context.Context, d *Doctor) (*Doctor, error)
}

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "doctor").Logger()}
}

// List returns active doctors whose name, specialty or id contains q.
func (s *Service) List(ctx context.Context, q string) ([]Doctor, error) {
	all, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return Filter(all, q), nil
}

func (s *Service) Get(ctx context.Context, doctorID string) (*Doctor, error) {
	d, err := s.repo.GetByDoctorID(ctx, strings.TrimSpace(doctorID))
	if err != nil {
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	return d, nil
}

func (s *Service) Create(ctx context.Context, d Doctor) (*Doctor, error) {
	d.DoctorID = strings.TrimSpace(d.DoctorID)
	d.Name = strings.TrimSpace(d.Name)
	d.Specialty = strings.TrimSpace(d.Specialty)
	if d.DoctorID == "" || d.Name == "" {
		return nil, ErrInvalid
	}
	d.Active = true

	created, err := s.repo.Create(ctx, &d)
	if err != nil {
		return nil, fmt.Errorf("create doctor: %w", err)
	}
	s.logger.Info().Str("doctor_id", created.DoctorID).Msg("doctor created")
	return created, nil
}

// Filter keeps the doctors matching q case-insensitively on name, specialty
// or doctor id. An empty q keeps everything. The input is not modified.
func Filter(doctors []Doctor, q string) []Doctor {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]Doctor, 0, len(doctors))
	for _, d := range doctors {
		if q == "" ||
			strings.Contains(strings.ToLower(d.Name), q) ||
			strings.Contains(strings.ToLower(d.Specialty), q) ||
			strings.Contains(strings.ToLower(d.DoctorID), q) {
			out = append(out, d)
		}
	}
	return out
}
