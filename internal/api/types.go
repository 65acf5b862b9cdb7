package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-channeling/internal/appointment"
	"github.com/hackgods/hospital-channeling/internal/doctor"
	"github.com/hackgods/hospital-channeling/internal/testimonial"
)

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	DoctorID        string    `json:"doctorId"`
	AppointmentDate string    `json:"appointmentDate"`
	AppointmentTime string    `json:"appointmentTime,omitempty"`
	Duration        int       `json:"duration"`
	ChannelNo       int       `json:"channelNo"`

	PatientName    string  `json:"patientName"`
	PatientNIC     string  `json:"patientNIC"`
	PatientPhone   string  `json:"patientPhone"`
	PatientEmail   *string `json:"patientEmail,omitempty"`
	PatientAge     *int    `json:"patientAge,omitempty"`
	PatientGender  *string `json:"patientGender,omitempty"`
	PatientAddress *string `json:"patientAddress,omitempty"`

	Status        string   `json:"status"`
	StatusDisplay string   `json:"statusDisplay"`
	StatusColor   string   `json:"statusColor"`
	NextStatuses  []string `json:"nextStatuses"`
	ActiveStatus  bool     `json:"activeStatus"`

	CreatedBy string    `json:"createdBy"`
	UpdatedBy string    `json:"updatedBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	next := appointment.NextStatuses(a.Status)
	names := make([]string, 0, len(next))
	for _, s := range next {
		names = append(names, string(s))
	}

	resp := AppointmentResponse{
		ID:              a.ID,
		DoctorID:        a.DoctorID,
		AppointmentDate: a.DateKey(),
		AppointmentTime: a.AppointmentTime,
		Duration:        a.Duration,
		ChannelNo:       a.ChannelNo,
		PatientName:     a.PatientName,
		PatientNIC:      a.PatientNIC,
		PatientPhone:    a.PatientPhone,
		PatientEmail:    a.PatientEmail,
		PatientAge:      a.PatientAge,
		PatientAddress:  a.PatientAddress,
		Status:          string(a.Status),
		StatusDisplay:   a.Status.DisplayName(),
		StatusColor:     a.Status.ColorClass(),
		NextStatuses:    names,
		ActiveStatus:    a.ActiveStatus,
		CreatedBy:       a.CreatedBy,
		UpdatedBy:       a.UpdatedBy,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.PatientGender != nil {
		g := string(*a.PatientGender)
		resp.PatientGender = &g
	}
	return resp
}

type AppointmentPageResponse struct {
	Items  []AppointmentResponse `json:"items"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

type ChannelNoResponse struct {
	DoctorID  string `json:"doctorId"`
	Date      string `json:"date"`
	ChannelNo int    `json:"channelNo"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type DoctorResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  string    `json:"doctorId"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
	Active    bool      `json:"active"`
}

func toDoctorResponse(d doctor.Doctor) DoctorResponse {
	return DoctorResponse{ID: d.ID, DoctorID: d.DoctorID, Name: d.Name, Specialty: d.Specialty, Active: d.Active}
}

type TestimonialResponse struct {
	ID         uuid.UUID `json:"id"`
	DoctorID   string    `json:"doctorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	Rating     int       `json:"rating"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toTestimonialResponse(t testimonial.Testimonial) TestimonialResponse {
	return TestimonialResponse{
		ID:         t.ID,
		DoctorID:   t.DoctorID,
		AuthorName: t.AuthorName,
		Content:    t.Content,
		Rating:     t.Rating,
		CreatedAt:  t.CreatedAt,
	}
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
