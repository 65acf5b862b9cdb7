package testimonial

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrDoctorNotFound = errors.New("doctor not found")
)

type Testimonial struct {
	ID         uuid.UUID
	DoctorID   string
	AuthorName string
	Content    string
	Rating     int
	CreatedAt  time.Time
}

type CreateInput struct {
	DoctorID   string `json:"doctorId" validate:"required"`
	AuthorName string `json:"authorName" validate:"required,max=100"`
	Content    string `json:"content" validate:"required,min=10,max=2000"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
}

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for f, m := range e.Fields {
		msgs = append(msgs, f+": "+m)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}()

// Validate checks a testimonial before it is stored. Content is measured
// after trimming.
func Validate(in CreateInput) error {
	in.Content = strings.TrimSpace(in.Content)
	in.AuthorName = strings.TrimSpace(in.AuthorName)

	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "content":
			fields["content"] = "content must be between 10 and 2000 characters"
		case "rating":
			fields["rating"] = "rating must be between 1 and 5"
		case "authorName":
			fields["authorName"] = "author name is required and at most 100 characters"
		default:
			fields[fe.Field()] = fe.Field() + " is required"
		}
	}
	return &ValidationError{Fields: fields}
}

type Repository interface {
	List(ctx context.Context, doctorID string, limit int) ([]Testimonial, error)
	Create(ctx context.Context, t *Testimonial) (*Testimonial, error)
}

// DoctorChecker reports whether a doctor exists and is active.
type DoctorChecker interface {
	DoctorExists(ctx context.Context, doctorID string) (bool, error)
}

type Service struct {
	repo    Repository
	doctors DoctorChecker
	logger  zerolog.Logger
}

func NewService(repo Repository, doctors DoctorChecker, logger zerolog.Logger) *Service {
	return &Service{repo: repo, doctors: doctors, logger: logger.With().Str("component", "testimonial").Logger()}
}

const maxList = 100

// List returns the newest testimonials, optionally for one doctor.
func (s *Service) List(ctx context.Context, doctorID string) ([]Testimonial, error) {
	items, err := s.repo.List(ctx, strings.TrimSpace(doctorID), maxList)
	if err != nil {
		return nil, fmt.Errorf("list testimonials: %w", err)
	}
	return items, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Testimonial, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	doctorID := strings.TrimSpace(in.DoctorID)
	ok, err := s.doctors.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if !ok {
		return nil, ErrDoctorNotFound
	}

	created, err := s.repo.Create(ctx, &Testimonial{
		DoctorID:   doctorID,
		AuthorName: strings.TrimSpace(in.AuthorName),
		Content:    strings.TrimSpace(in.Content),
		Rating:     in.Rating,
	})
	if err != nil {
		return nil, fmt.Errorf("create testimonial: %w", err)
	}

	s.logger.Info().Str("doctor_id", doctorID).Int("rating", created.Rating).Msg("testimonial created")
	return created, nil
}
