package client

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/hospital-channeling/internal/testimonial"
)

func TestListDoctors(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK, `[{"_id":"d-1","doctor_id":"DOC-1","name":"Anura Perera","specialty":"Cardiology","active":true}]`)

	docs, err := New(srv.URL).ListDoctors(context.Background(), " cardio ")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d-1", docs[0].ID)
	assert.Equal(t, "DOC-1", docs[0].DoctorID)
	assert.Equal(t, "Anura Perera", docs[0].Name)
	assert.Equal(t, "q=cardio", (*reqs)[0].query)
}

func TestFilterDoctors(t *testing.T) {
	docs := []Doctor{
		{DoctorID: "DOC-1", Name: "Anura Perera", Specialty: "Cardiology"},
		{DoctorID: "DOC-2", Name: "Malini Fernando", Specialty: "Dermatology"},
	}
	assert.Len(t, FilterDoctors(docs, ""), 2)
	assert.Equal(t, "DOC-2", FilterDoctors(docs, "DERM")[0].DoctorID)
	assert.Empty(t, FilterDoctors(docs, "neuro"))

	all := FilterDoctors(docs, "")
	all[0].Name = "changed"
	assert.Equal(t, "Anura Perera", docs[0].Name)
}

func TestCreateTestimonial(t *testing.T) {
	srv, reqs := newServer(t, http.StatusCreated, `{"id":"t-1","doctor_id":"DOC-1","author":"Sunil","content":"Very thorough doctor.","rating":5}`)
	c := New(srv.URL)

	_, err := c.CreateTestimonial(context.Background(), testimonial.CreateInput{DoctorID: "DOC-1", AuthorName: "Sunil", Content: "short", Rating: 5})
	require.True(t, IsKind(err, KindValidation))
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Fields, "content")
	assert.Empty(t, *reqs)

	got, err := c.CreateTestimonial(context.Background(), testimonial.CreateInput{DoctorID: "DOC-1", AuthorName: "Sunil", Content: "Very thorough doctor.", Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, "Sunil", got.AuthorName)
	assert.Equal(t, "DOC-1", got.DoctorID)
}

func TestListTestimonials(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK, `[{"id":"t-1","doctorId":"DOC-1","authorName":"Sunil","content":"Very thorough doctor.","rating":5}]`)
	items, err := New(srv.URL).ListTestimonials(context.Background(), "DOC-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "doctor_id=DOC-1", (*reqs)[0].query)
}

func TestReports(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK, `[{"_id":"r-1","nic":"123456789V","title":"CBC","hemoglobin":13.5}]`)
	reports := New(srv.URL).Reports(LabReports)

	items, err := reports.List(context.Background(), url.Values{"patient_nic": {"123456789V"}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "r-1", items[0].ID)
	assert.Equal(t, "123456789V", items[0].PatientNIC)
	assert.Equal(t, 13.5, items[0].Data["hemoglobin"])
	assert.Equal(t, "/lab-reports", (*reqs)[0].path)

	_, err = reports.Get(context.Background(), "")
	assert.True(t, IsKind(err, KindValidation))
	assert.Len(t, *reqs, 1)
}

func TestReports_KeepsReportFieldNames(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"id":"g-1","name":"Discharge summary","date":"2025-01-10","time":"09:15","patient_name":"Nimal Perera"}`)

	r, err := New(srv.URL).Reports(GeneralReports).Get(context.Background(), "g-1")
	require.NoError(t, err)
	assert.Equal(t, "Nimal Perera", r.PatientName)
	assert.Equal(t, "Discharge summary", r.Data["name"])
	assert.Equal(t, "2025-01-10", r.Data["date"])
	assert.Equal(t, "09:15", r.Data["time"])
	assert.NotContains(t, r.Data, "appointmentDate")
	assert.NotContains(t, r.Data, "appointmentTime")
}

func TestReports_UpdateAndDelete(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK, `{"id":"c-1","title":"Follow up"}`)
	cards := New(srv.URL).Reports(DiagnosisCards)

	r, err := cards.Update(context.Background(), "c-1", map[string]any{"title": "Follow up"})
	require.NoError(t, err)
	assert.Equal(t, "Follow up", r.Title)
	assert.Equal(t, http.MethodPut, (*reqs)[0].method)
	assert.Equal(t, "/diagnosis-cards/c-1", (*reqs)[0].path)

	require.NoError(t, New(srv.URL).Reports(GeneralReports).Delete(context.Background(), "g-1"))
	assert.Equal(t, "/general-reports/g-1", (*reqs)[1].path)
}
