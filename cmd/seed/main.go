package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-channeling/internal/appointment"
	"github.com/hackgods/hospital-channeling/internal/config"
	"github.com/hackgods/hospital-channeling/internal/db"
	"github.com/hackgods/hospital-channeling/internal/doctor"
	"github.com/hackgods/hospital-channeling/internal/logging"
	"github.com/hackgods/hospital-channeling/internal/notification"
	redisclient "github.com/hackgods/hospital-channeling/internal/redis"
	"github.com/hackgods/hospital-channeling/internal/testimonial"
)

const (
	doctorCount        = 20
	daysAhead          = 7
	appointmentsPerDay = 6
	testimonialsPerDoc = 3
	seedActorUserID    = "seed"
)

var specialties = []string{
	"Cardiology",
	"Dermatology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New(os.Getenv("APP_ENV"), "info")
		boot.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "seed").Logger()
	logger.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4})
	if err == nil {
		err = db.Migrate(ctx, pool)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres setup error")
	}
	defer pool.Close()

	rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer rdb.Close()

	apptRepo := appointment.NewPgRepository(pool)
	doctors := doctor.NewService(doctor.NewPgRepository(pool), logger)
	testimonials := testimonial.NewService(testimonial.NewPgRepository(pool), apptRepo, logger)
	appointments := appointment.NewService(
		apptRepo,
		redisclient.NewRedisChannelLocker(rdb, cfg.LockTTL, cfg.LockRetries),
		notification.NewLogNotifier(logger),
		logger,
	)

	ids, err := seedDoctors(ctx, doctors, doctorCount, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedTestimonials(ctx, testimonials, ids, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed testimonials")
	}
	if err := seedAppointments(ctx, appointments, ids, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed appointments")
	}

	logger.Info().Msg("seed complete")
}

func seedDoctors(ctx context.Context, svc *doctor.Service, count int, logger zerolog.Logger) ([]string, error) {
	logger.Info().Int("count", count).Msg("seeding doctors")

	ids := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		id := fmt.Sprintf("DOC-%03d", i)
		_, err := svc.Create(ctx, doctor.Doctor{
			DoctorID:  id,
			Name:      "Dr. " + gofakeit.Name(),
			Specialty: specialties[gofakeit.Number(0, len(specialties)-1)],
		})
		if err != nil && !errors.Is(err, doctor.ErrAlreadyExists) {
			return nil, err
		}
		ids = append(ids, id)
	}

	logger.Info().Int("count", len(ids)).Msg("doctors seeded")
	return ids, nil
}

func seedTestimonials(ctx context.Context, svc *testimonial.Service, doctorIDs []string, logger zerolog.Logger) error {
	seeded := 0
	for _, id := range doctorIDs {
		for i := 0; i < testimonialsPerDoc; i++ {
			_, err := svc.Create(ctx, testimonial.CreateInput{
				DoctorID:   id,
				AuthorName: gofakeit.Name(),
				Content:    fakeReview(),
				Rating:     gofakeit.Number(3, 5),
			})
			if err != nil {
				return err
			}
			seeded++
		}
	}
	logger.Info().Int("count", seeded).Msg("testimonials seeded")
	return nil
}

// seedAppointments books through the service so channel numbers are assigned
// the same way the API assigns them.
func seedAppointments(ctx context.Context, svc *appointment.Service, doctorIDs []string, logger zerolog.Logger) error {
	actor := appointment.Actor{UserID: seedActorUserID, Roles: []string{appointment.RoleAdmin}}
	today := time.Now().UTC()

	seeded := 0
	for _, id := range doctorIDs {
		for day := 0; day < daysAhead; day++ {
			date := appointment.DateKey(today.AddDate(0, 0, day))
			for slot := 0; slot < appointmentsPerDay; slot++ {
				age := gofakeit.Number(1, 90)
				_, err := svc.CreateAppointment(ctx, appointment.CreateInput{
					DoctorID:        id,
					AppointmentDate: date,
					AppointmentTime: fmt.Sprintf("%02d:%02d", 8+slot, 15*gofakeit.Number(0, 3)),
					Duration:        15,
					PatientName:     gofakeit.Name(),
					PatientNIC:      fakeNIC(),
					PatientPhone:    "07" + gofakeit.Numerify("########"),
					PatientEmail:    strings.ToLower(gofakeit.Email()),
					PatientAge:      &age,
					PatientGender:   []string{"MALE", "FEMALE", "OTHER"}[gofakeit.Number(0, 2)],
					PatientAddress:  gofakeit.Street() + ", " + gofakeit.City(),
				}, actor)
				if err != nil {
					return fmt.Errorf("doctor %s on %s: %w", id, date, err)
				}
				seeded++
			}
		}
		logger.Debug().Str("doctor_id", id).Msg("appointments seeded for doctor")
	}

	logger.Info().Int("count", seeded).Msg("appointments seeded")
	return nil
}

// fakeNIC returns either the old 9 digit + V form or the new 12 digit form.
func fakeNIC() string {
	if gofakeit.Bool() {
		return gofakeit.Numerify("#########") + "V"
	}
	return gofakeit.Numerify("############")
}

func fakeReview() string {
	return fmt.Sprintf("The doctor was %s and the %s visit felt %s. Would come back.",
		gofakeit.Adjective(), gofakeit.Adjective(), gofakeit.Adjective())
}
