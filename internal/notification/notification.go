// Package notification delivers the patient messages that follow appointment
// changes. The store publishes; SMS and email gateways subscribe.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-channeling/internal/appointment"
)

const KindAppointmentCancelled = "APPOINTMENT_CANCELLED"

type Message struct {
	ID              string    `json:"id"`
	Kind            string    `json:"kind"`
	AppointmentID   string    `json:"appointmentId"`
	DoctorID        string    `json:"doctorId"`
	AppointmentDate string    `json:"appointmentDate"`
	ChannelNo       int       `json:"channelNo"`
	PatientName     string    `json:"patientName"`
	PatientPhone    string    `json:"patientPhone"`
	PatientEmail    string    `json:"patientEmail,omitempty"`
	SentAt          time.Time `json:"sentAt"`
}

func cancelledMessage(a appointment.Appointment, now time.Time) Message {
	m := Message{
		ID:              uuid.NewString(),
		Kind:            KindAppointmentCancelled,
		AppointmentID:   a.ID.String(),
		DoctorID:        a.DoctorID,
		AppointmentDate: a.DateKey(),
		ChannelNo:       a.ChannelNo,
		PatientName:     a.PatientName,
		PatientPhone:    a.PatientPhone,
		SentAt:          now.UTC(),
	}
	if a.PatientEmail != nil {
		m.PatientEmail = *a.PatientEmail
	}
	return m
}

type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

func NewRedisPublisher(client *redis.Client, channel string, logger zerolog.Logger) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger.With().Str("component", "notification").Logger(),
	}
}

func (p *RedisPublisher) AppointmentCancelled(ctx context.Context, a appointment.Appointment) error {
	msg := cancelledMessage(a, time.Now())
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	receivers, err := p.client.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	p.logger.Debug().
		Str("appointment_id", msg.AppointmentID).
		Int64("receivers", receivers).
		Msg("cancellation notification published")
	return nil
}

// LogNotifier only logs. Used when no broker is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notification").Logger()}
}

func (n *LogNotifier) AppointmentCancelled(_ context.Context, a appointment.Appointment) error {
	n.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("doctor_id", a.DoctorID).
		Str("date", a.DateKey()).
		Msg("appointment cancelled, patient notification skipped")
	return nil
}
