// Package scoring derives the composite risk score and the feature significance
// ranking from a clinical feature vector. Everything here is pure.
package scoring

import (
	"math"

	"github.com/breast-dx-server/internal/domain"
)

// RiskThreshold separates Normal from Elevated scores. Scores at the threshold are Elevated.
const RiskThreshold = 500.0

// Narrative notes, keyed on risk category and diagnosis.
const (
	NoteNormalBenign      = "Your risk profile is within normal range. Continue routine screenings."
	NoteNormalMalignant   = "Despite low risk score, follow recommended treatment due to diagnosis."
	NoteElevatedMalignant = "Your elevated risk score requires immediate medical attention."
	NoteElevatedBenign    = "Further testing recommended due to elevated risk indicators."
)

// RiskScore is the mean of concave_points_worst, concavity_mean and radius_worst,
// scaled by 100. Absent features count as 0 and the score never drops below 0.
func RiskScore(v domain.FeatureVector) float64 {
	sum := v.ValueOr("concave_points_worst", 0) +
		v.ValueOr("concavity_mean", 0) +
		v.ValueOr("radius_worst", 0)
	return math.Max(0, (sum/3)*100)
}

// RiskCategoryFor maps a score onto its band.
func RiskCategoryFor(score float64) domain.RiskCategory {
	if score < RiskThreshold {
		return domain.RiskNormal
	}
	return domain.RiskElevated
}

// RiskNarrative returns the patient-facing note for a category and diagnosis.
func RiskNarrative(category domain.RiskCategory, malignant bool) string {
	switch {
	case category == domain.RiskElevated && malignant:
		return NoteElevatedMalignant
	case category == domain.RiskElevated:
		return NoteElevatedBenign
	case malignant:
		return NoteNormalMalignant
	default:
		return NoteNormalBenign
	}
}

// ApplyRisk fills the risk fields of a decision from the feature vector.
func ApplyRisk(d *domain.DiagnosisDecision, v domain.FeatureVector) {
	d.RiskScore = RiskScore(v)
	d.RiskCategory = RiskCategoryFor(d.RiskScore)
}
