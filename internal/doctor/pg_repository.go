package doctor

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.DoctorID, &d.Name, &d.Specialty, &d.Active, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *PgRepository) List(ctx context.Context, activeOnly bool) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, name, specialty, active, created_at
		FROM doctors
		WHERE ($1 = false OR active)
		ORDER BY name
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetByDoctorID(ctx context.Context, doctorID string) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, name, specialty, active, created_at
		FROM doctors
		WHERE doctor_id = $1
	`, doctorID)
	return scanDoctor(row)
}

func (r *PgRepository) Create(ctx context.Context, d *Doctor) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO doctors (id, doctor_id, name, specialty, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, doctor_id, name, specialty, active, created_at
	`, uuid.New(), d.DoctorID, d.Name, d.Specialty, d.Active)

	created, err := scanDoctor(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return created, nil
}
