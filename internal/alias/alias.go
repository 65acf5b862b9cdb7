// Package alias maps the field names used by older clients and upstream
// services onto canonical ones. Alias lists are ordered; the canonical name is
// always first and the first present key wins.
package alias

import (
	"encoding/json"
	"strings"
)

// Set maps a canonical field name to its ordered aliases.
type Set map[string][]string

// Common covers identifiers shared by every resource.
var Common = Set{
	"id":       {"id", "_id", "propertyId"},
	"doctorId": {"doctorId", "doctor_id", "doctorID"},
}

// Appointment covers appointment payloads, including the patient fields.
var Appointment = Common.With(Set{
	"channelNo":       {"channelNo", "channel_no", "channelNumber"},
	"appointmentDate": {"appointmentDate", "appointment_date", "date"},
	"appointmentTime": {"appointmentTime", "appointment_time", "time"},
	"patientName":     {"patientName", "name", "patient_name", "fullName"},
	"patientNIC":      {"patientNIC", "nic", "patient_nic"},
	"patientPhone":    {"patientPhone", "phone", "patient_phone", "contactNumber"},
	"patientEmail":    {"patientEmail", "email", "patient_email"},
	"patientAge":      {"patientAge", "age", "patient_age"},
	"patientGender":   {"patientGender", "gender", "patient_gender"},
	"patientAddress":  {"patientAddress", "address", "patient_address"},
	"activeStatus":    {"activeStatus", "active_status", "isActive"},
})

// Report covers documents from the report services. Generic report keys such
// as name, date and time are left alone.
var Report = Common.With(Set{
	"patientName": {"patientName", "patient_name"},
	"patientNIC":  {"patientNIC", "nic", "patient_nic"},
})

var Testimonial = Common.With(Set{
	"authorName": {"authorName", "author", "author_name"},
})

// With returns a new set holding s and extra. Entries in extra win.
func (s Set) With(extra Set) Set {
	out := make(Set, len(s)+len(extra))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// coalesce returns the value of the first alias of field present in m. Null
// and blank strings lose to a later populated alias; a blank string is still
// returned when nothing else is set, so a field can be cleared.
func (s Set) coalesce(m map[string]any, field string) (any, bool) {
	names, ok := s[field]
	if !ok {
		names = []string{field}
	}
	var blank any
	found := false
	for _, name := range names {
		v, ok := m[name]
		if !ok || v == nil {
			continue
		}
		if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
			if !found {
				blank, found = v, true
			}
			continue
		}
		return v, true
	}
	return blank, found
}

// Normalize returns a copy of m with every known alias folded into its
// canonical key. Keys that are not aliases are kept as they are.
func (s Set) Normalize(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	aliased := map[string]bool{}
	for canonical, names := range s {
		for _, name := range names {
			aliased[name] = true
		}
		if v, ok := s.coalesce(m, canonical); ok {
			out[canonical] = v
		}
	}
	for k, v := range m {
		if !aliased[k] {
			out[k] = v
		}
	}
	return out
}

// NormalizeJSON rewrites a JSON object so decoding into a struct with
// canonical tags picks up aliased fields. Non-object input is returned
// unchanged.
func (s Set) NormalizeJSON(data []byte) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		var arr []map[string]any
		if json.Unmarshal(data, &arr) != nil {
			return data, err
		}
		for i := range arr {
			arr[i] = s.Normalize(arr[i])
		}
		return json.Marshal(arr)
	}
	return json.Marshal(s.Normalize(m))
}
