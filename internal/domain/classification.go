package domain

import (
	"fmt"
	"strings"
	"time"
)

// Raw class labels produced by the model.
const (
	LabelMalignant = "M"
	LabelBenign    = "B"
)

// Human readable diagnoses.
const (
	DiagnosisMalignant = "Malignant (M)"
	DiagnosisBenign    = "Benign (B)"
)

// Patient-facing one line messages returned with a prediction.
const (
	MessageMalignant = "High risk: Consult a doctor immediately!"
	MessageBenign    = "Low risk: Follow up with medical professionals."
)

// RiskCategory is the coarse band of the composite risk score.
type RiskCategory string

const (
	RiskNormal   RiskCategory = "Normal"
	RiskElevated RiskCategory = "Elevated"
)

// DiagnosisDecision is the classifier output plus the values derived from it.
type DiagnosisDecision struct {
	Label                string       `json:"label"`
	Diagnosis            string       `json:"diagnosis"`
	Malignant            bool         `json:"malignant"`
	Confidence           float64      `json:"confidence"`            // percent, 100 * max(p)
	MalignantProbability float64      `json:"malignant_probability"` // 0..1
	BenignProbability    float64      `json:"benign_probability"`    // 0..1
	RiskScore            float64      `json:"risk_score"`
	RiskCategory         RiskCategory `json:"risk_category"`
	ModelVersion         string       `json:"model_version,omitempty"`
	DecidedAt            time.Time    `json:"decided_at"`
}

// ConfidenceText formats the confidence the way it is stored and displayed, e.g. "82.00%".
func (d *DiagnosisDecision) ConfidenceText() string {
	return FormatPercent(d.Confidence)
}

// MalignantProbabilityText returns the malignant class probability as a percentage string.
func (d *DiagnosisDecision) MalignantProbabilityText() string {
	return FormatPercent(d.MalignantProbability * 100)
}

// BenignProbabilityText returns the benign class probability as a percentage string.
func (d *DiagnosisDecision) BenignProbabilityText() string {
	return FormatPercent(d.BenignProbability * 100)
}

// Message returns the short patient-facing message for the decision.
func (d *DiagnosisDecision) Message() string {
	if d.Malignant {
		return MessageMalignant
	}
	return MessageBenign
}

// FormatPercent renders a percentage with two decimals.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.2f%%", pct)
}

// IsMalignantDiagnosis reports whether a stored diagnosis string denotes malignancy.
// Accepts the display form ("Malignant (M)"), the bare word and the raw label.
func IsMalignantDiagnosis(diagnosis string) bool {
	d := strings.ToLower(strings.TrimSpace(diagnosis))
	return d == "m" || strings.HasPrefix(d, "malignant")
}
