package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/hackgods/hospital-channeling/internal/alias"
)

// ReportKind is the collection path of a report service.
type ReportKind string

const (
	LabReports     ReportKind = "/lab-reports"
	DiagnosisCards ReportKind = "/diagnosis-cards"
	GeneralReports ReportKind = "/general-reports"
)

// Report is a patient document held by an external service. Fields the
// client does not model are kept in Data.
type Report struct {
	ID          string         `json:"id"`
	DoctorID    string         `json:"doctorId,omitempty"`
	PatientName string         `json:"patientName,omitempty"`
	PatientNIC  string         `json:"patientNIC,omitempty"`
	Title       string         `json:"title,omitempty"`
	Data        map[string]any `json:"-"`
}

func (r *Report) UnmarshalJSON(b []byte) error {
	type plain Report
	if err := json.Unmarshal(b, (*plain)(r)); err != nil {
		return err
	}
	return json.Unmarshal(b, &r.Data)
}

type ReportService struct {
	c    *Client
	kind ReportKind
	name string
}

func (c *Client) Reports(kind ReportKind) *ReportService {
	name := strings.ReplaceAll(strings.TrimPrefix(string(kind), "/"), "-", " ")
	return &ReportService{c: c, kind: kind, name: name}
}

func (s *ReportService) path(id string) string {
	if id == "" {
		return string(s.kind)
	}
	return string(s.kind) + "/" + url.PathEscape(id)
}

func (s *ReportService) List(ctx context.Context, query url.Values) ([]Report, error) {
	var out []Report
	if err := s.c.do(ctx, "list "+s.name, http.MethodGet, s.path(""), query, nil, &out, alias.Report); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ReportService) Get(ctx context.Context, id string) (*Report, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &Error{Kind: KindValidation, Op: "get " + s.name, Message: "id is required"}
	}
	var out Report
	if err := s.c.do(ctx, "get "+s.name, http.MethodGet, s.path(id), nil, nil, &out, alias.Report); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ReportService) Update(ctx context.Context, id string, fields map[string]any) (*Report, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &Error{Kind: KindValidation, Op: "update " + s.name, Message: "id is required"}
	}
	var out Report
	if err := s.c.do(ctx, "update "+s.name, http.MethodPut, s.path(id), nil, fields, &out, alias.Report); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ReportService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return &Error{Kind: KindValidation, Op: "delete " + s.name, Message: "id is required"}
	}
	return s.c.do(ctx, "delete "+s.name, http.MethodDelete, s.path(id), nil, nil, nil, nil)
}
