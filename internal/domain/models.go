package domain

import (
	"strconv"
	"time"
)

// AnonymousPatient is the name used when a request carries none.
const AnonymousPatient = "Anonymous"

// NotAvailable is shown in place of absent metadata.
const NotAvailable = "N/A"

// PatientMetadata is the non-clinical context supplied with a classification request.
type PatientMetadata struct {
	Name           string `json:"name"`
	Age            *int   `json:"age"`
	Gender         string `json:"gender,omitempty"`
	FamilyHistory  string `json:"family_history,omitempty"`
	Symptoms       string `json:"symptoms,omitempty"`
	PreviousCancer string `json:"previous_cancer,omitempty"`
}

// DisplayName returns the patient name or the anonymous placeholder.
func (m PatientMetadata) DisplayName() string {
	if m.Name == "" {
		return AnonymousPatient
	}
	return m.Name
}

// AgeText returns the age as text, or "N/A" when unknown.
func (m PatientMetadata) AgeText() string {
	if m.Age == nil {
		return NotAvailable
	}
	return strconv.Itoa(*m.Age)
}

// GenderText returns the gender as given, or "N/A" when empty.
func (m PatientMetadata) GenderText() string {
	if m.Gender == "" {
		return NotAvailable
	}
	return m.Gender
}

// PatientRecord is one persisted encounter. Records are append-only: once written
// they are never updated or deleted.
type PatientRecord struct {
	ID        int64             `json:"id"`
	Metadata  PatientMetadata   `json:"metadata"`
	Features  FeatureVector     `json:"clinical_data"`
	Decision  DiagnosisDecision `json:"decision"`
	CreatedAt time.Time         `json:"timestamp"`
}

// IntPtr is a small helper for optional ages.
func IntPtr(v int) *int {
	return &v
}
