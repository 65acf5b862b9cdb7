package testimonial

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanTestimonial(row pgx.Row) (*Testimonial, error) {
	var t Testimonial
	if err := row.Scan(&t.ID, &t.DoctorID, &t.AuthorName, &t.Content, &t.Rating, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PgRepository) List(ctx context.Context, doctorID string, limit int) ([]Testimonial, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, author_name, content, rating, created_at
		FROM testimonials
		WHERE ($1 = '' OR doctor_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, doctorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Testimonial
	for rows.Next() {
		t, err := scanTestimonial(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func (r *PgRepository) Create(ctx context.Context, t *Testimonial) (*Testimonial, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO testimonials (id, doctor_id, author_name, content, rating)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, doctor_id, author_name, content, rating, created_at
	`, uuid.New(), t.DoctorID, t.AuthorName, t.Content, t.Rating)
	return scanTestimonial(row)
}
