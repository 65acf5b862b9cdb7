package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/hackgods/hospital-channeling/internal/alias"
	"github.com/hackgods/hospital-channeling/internal/testimonial"
)

type Testimonial struct {
	ID         string    `json:"id"`
	DoctorID   string    `json:"doctorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	Rating     int       `json:"rating"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (c *Client) ListTestimonials(ctx context.Context, doctorID string) ([]Testimonial, error) {
	query := url.Values{}
	if doctorID != "" {
		query.Set("doctor_id", doctorID)
	}

	var out []Testimonial
	if err := c.do(ctx, "list testimonials", http.MethodGet, "/testimonials", query, nil, &out, alias.Testimonial); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTestimonial(ctx context.Context, in testimonial.CreateInput) (*Testimonial, error) {
	const op = "create testimonial"
	if err := testimonial.Validate(in); err != nil {
		e := &Error{Kind: KindValidation, Op: op, Message: "testimonial is invalid", Err: err}
		var verr *testimonial.ValidationError
		if errors.As(err, &verr) {
			e.Fields = verr.Fields
		}
		return nil, e
	}

	var out Testimonial
	if err := c.do(ctx, op, http.MethodPost, "/testimonials", nil, in, &out, alias.Testimonial); err != nil {
		return nil, err
	}
	return &out, nil
}
