package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/hackgods/hospital-channeling/internal/alias"
)

type Doctor struct {
	ID        string `json:"id"`
	DoctorID  string `json:"doctorId"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Active    bool   `json:"active"`
}

func (c *Client) ListDoctors(ctx context.Context, q string) ([]Doctor, error) {
	query := url.Values{}
	if q = strings.TrimSpace(q); q != "" {
		query.Set("q", q)
	}

	var out []Doctor
	if err := c.do(ctx, "list doctors", http.MethodGet, "/doctors", query, nil, &out, alias.Common); err != nil {
		return nil, err
	}
	return out, nil
}

// FilterDoctors narrows a list already held by the caller. It never refetches,
// so the result is as fresh as the list passed in.
func FilterDoctors(doctors []Doctor, q string) []Doctor {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return append([]Doctor(nil), doctors...)
	}
	var out []Doctor
	for _, d := range doctors {
		if strings.Contains(strings.ToLower(d.Name), q) ||
			strings.Contains(strings.ToLower(d.Specialty), q) ||
			strings.Contains(strings.ToLower(d.DoctorID), q) {
			out = append(out, d)
		}
	}
	return out
}
