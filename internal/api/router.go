package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-channeling/internal/appointment"
	"github.com/hackgods/hospital-channeling/internal/doctor"
	"github.com/hackgods/hospital-channeling/internal/session"
	"github.com/hackgods/hospital-channeling/internal/testimonial"
)

type AppointmentService interface {
	CreateAppointment(ctx context.Context, in appointment.CreateInput, actor appointment.Actor) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	ListDoctorAppointments(ctx context.Context, q appointment.ListQuery) (appointment.Page, error)
	NextChannelNo(ctx context.Context, doctorID string, date time.Time) (int, error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, in appointment.UpdateInput, actor appointment.Actor) (*appointment.Appointment, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, to appointment.Status, actor appointment.Actor) (*appointment.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, actor appointment.Actor) (*appointment.Appointment, error)
}

type DoctorService interface {
	List(ctx context.Context, q string) ([]doctor.Doctor, error)
}

type TestimonialService interface {
	List(ctx context.Context, doctorID string) ([]testimonial.Testimonial, error)
	Create(ctx context.Context, in testimonial.CreateInput) (*testimonial.Testimonial, error)
}

type RouterConfig struct {
	Appointments   AppointmentService
	Doctors        DoctorService
	Testimonials   TestimonialService
	Health         *HealthHandler
	Sessions       session.Chain
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(session.Middleware(cfg.Sessions))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	health := cfg.Health
	if health == nil {
		health = NewHealthHandler("", "")
	}
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	h := &handlers{
		appointments: cfg.Appointments,
		doctors:      cfg.Doctors,
		testimonials: cfg.Testimonials,
		logger:       cfg.Logger,
	}

	r.Get("/doctors", h.listDoctors)
	r.Get("/doctors/{doctorId}/appointments", h.listDoctorAppointments)

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.createAppointment)
		r.Get("/channel-no", h.nextChannelNo)
		r.Get("/{id}", h.getAppointment)
		r.Put("/{id}", h.updateAppointment)
		r.Delete("/{id}", h.cancelAppointment)
		r.Post("/{id}/status", h.transitionStatus)
	})

	r.Get("/testimonials", h.listTestimonials)
	r.Post("/testimonials", h.createTestimonial)

	return r
}
