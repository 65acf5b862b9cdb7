package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const appointmentColumns = `id, doctor_id, appointment_date, appointment_time, duration, channel_no,
	patient_name, patient_nic, patient_phone, patient_email, patient_age, patient_gender, patient_address,
	status, active_status, created_by, updated_by, created_at, updated_at`

var orderColumns = map[string]string{
	"appointment_date": "appointment_date, appointment_time, channel_no",
	"channel_no":       "channel_no",
	"created_at":       "created_at",
	"patient_name":     "patient_name",
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	var gender *string

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.AppointmentDate,
		&a.AppointmentTime,
		&a.Duration,
		&a.ChannelNo,
		&a.PatientName,
		&a.PatientNIC,
		&a.PatientPhone,
		&a.PatientEmail,
		&a.PatientAge,
		&gender,
		&a.PatientAddress,
		&status,
		&a.ActiveStatus,
		&a.CreatedBy,
		&a.UpdatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Status = Status(status)
	if gender != nil {
		g := Gender(*gender)
		a.PatientGender = &g
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrChannelConflict
	}
	return err
}

func genderValue(g *Gender) *string {
	if g == nil {
		return nil
	}
	s := string(*g)
	return &s
}

// Interface methods

func (r *PgRepository) DoctorExists(ctx context.Context, doctorID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM doctors WHERE doctor_id = $1 AND active)
	`, doctorID).Scan(&ok)
	return ok, err
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, q ListQuery) ([]Appointment, int, error) {
	where := []string{"doctor_id = $1"}
	args := []any{q.DoctorID}

	if !q.IncludeInactive {
		where = append(where, "active_status")
	}
	if q.Date != nil {
		args = append(args, *q.Date)
		where = append(where, fmt.Sprintf("appointment_date = $%d", len(args)))
	}
	if q.Status != nil {
		args = append(args, string(*q.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM appointments WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	order, ok := orderColumns[q.Sort]
	if !ok {
		order = orderColumns["appointment_date"]
	}
	dir := "ASC"
	if strings.EqualFold(q.Order, "desc") {
		dir = "DESC"
	}
	cols := strings.Split(order, ", ")
	for i := range cols {
		cols[i] += " " + dir
	}

	args = append(args, q.Limit, q.Offset)
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+clause+`
		ORDER BY `+strings.Join(cols, ", ")+`
		LIMIT $`+fmt.Sprint(len(args)-1)+` OFFSET $`+fmt.Sprint(len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}

	items, err := collectAppointments(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PgRepository) MaxChannelNo(ctx context.Context, doctorID string, date time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(channel_no), 0)
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		  AND active_status
	`, doctorID, date).Scan(&n)
	return n, err
}

func (r *PgRepository) ChannelTaken(ctx context.Context, doctorID string, date time.Time, channelNo int, exclude *uuid.UUID) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND appointment_date = $2
			  AND channel_no = $3
			  AND active_status
			  AND ($4::uuid IS NULL OR id <> $4)
		)
	`, doctorID, date, channelNo, exclude).Scan(&taken)
	return taken, err
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, doctor_id, appointment_date, appointment_time, duration, channel_no,
			patient_name, patient_nic, patient_phone, patient_email, patient_age, patient_gender, patient_address,
			status, active_status, created_by, updated_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now(), now())
		RETURNING `+appointmentColumns,
		id, a.DoctorID, a.AppointmentDate, a.AppointmentTime, a.Duration, a.ChannelNo,
		a.PatientName, a.PatientNIC, a.PatientPhone, a.PatientEmail, a.PatientAge, genderValue(a.PatientGender), a.PatientAddress,
		string(a.Status), a.ActiveStatus, a.CreatedBy, a.UpdatedBy,
	)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment, expected Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET doctor_id = $2,
		    appointment_date = $3,
		    appointment_time = $4,
		    duration = $5,
		    channel_no = $6,
		    patient_name = $7,
		    patient_nic = $8,
		    patient_phone = $9,
		    patient_email = $10,
		    patient_age = $11,
		    patient_gender = $12,
		    patient_address = $13,
		    status = $14,
		    active_status = $15,
		    updated_by = $16,
		    updated_at = now()
		WHERE id = $1
		  AND status = $17
		RETURNING `+appointmentColumns,
		a.ID, a.DoctorID, a.AppointmentDate, a.AppointmentTime, a.Duration, a.ChannelNo,
		a.PatientName, a.PatientNIC, a.PatientPhone, a.PatientEmail, a.PatientAge, genderValue(a.PatientGender), a.PatientAddress,
		string(a.Status), a.ActiveStatus, a.UpdatedBy, string(expected),
	)

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return updated, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status, updatedBy string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_by = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns,
		id, string(to), string(from), updatedBy)

	return scanAppointment(row)
}

func (r *PgRepository) CancelAppointment(ctx context.Context, id uuid.UUID, from Status, updatedBy string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'CANCELLED',
		    active_status = false,
		    updated_by = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		  AND active_status
		RETURNING `+appointmentColumns,
		id, string(from), updatedBy)

	return scanAppointment(row)
}

func (r *PgRepository) FindOverdueConfirmed(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'CONFIRMED'
		  AND active_status
		  AND appointment_date < $1
	`, before)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
