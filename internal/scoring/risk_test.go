package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/breast-dx-server/internal/domain"
)

func TestRiskScore(t *testing.T) {
	tests := []struct {
		name     string
		features domain.FeatureVector
		want     float64
		category domain.RiskCategory
	}{
		{
			name: "elevated example",
			features: domain.FeatureVector{
				{Name: "radius_worst", Value: 20},
				{Name: "concavity_mean", Value: 0.3},
				{Name: "area_worst", Value: 900},
				{Name: "concave_points_worst", Value: 0},
			},
			want:     676.6666666666666,
			category: domain.RiskElevated,
		},
		{
			name: "normal",
			features: domain.FeatureVector{
				{Name: "radius_worst", Value: 12},
				{Name: "concavity_mean", Value: 0.05},
				{Name: "concave_points_worst", Value: 0.08},
			},
			want:     404.3333333333333,
			category: domain.RiskNormal,
		},
		{
			name:     "absent features count as zero",
			features: domain.FeatureVector{{Name: "area_mean", Value: 1000}},
			want:     0,
			category: domain.RiskNormal,
		},
		{
			name:     "exactly at threshold",
			features: domain.FeatureVector{{Name: "radius_worst", Value: 15}},
			want:     500,
			category: domain.RiskElevated,
		},
		{
			name: "negative inputs floor at zero",
			features: domain.FeatureVector{
				{Name: "radius_worst", Value: -12},
				{Name: "concavity_mean", Value: 0.05},
				{Name: "concave_points_worst", Value: 0.08},
			},
			want:     0,
			category: domain.RiskNormal,
		},
		{
			name: "one negative input still counts",
			features: domain.FeatureVector{
				{Name: "radius_worst", Value: 18},
				{Name: "concavity_mean", Value: -3},
			},
			want:     500,
			category: domain.RiskElevated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := RiskScore(tt.features)
			assert.InDelta(t, tt.want, score, 1e-9)
			assert.Equal(t, tt.category, RiskCategoryFor(score))
		})
	}
}

func TestRiskNarrative(t *testing.T) {
	assert.Equal(t, NoteNormalBenign, RiskNarrative(domain.RiskNormal, false))
	assert.Equal(t, NoteNormalMalignant, RiskNarrative(domain.RiskNormal, true))
	assert.Equal(t, NoteElevatedMalignant, RiskNarrative(domain.RiskElevated, true))
	assert.Equal(t, NoteElevatedBenign, RiskNarrative(domain.RiskElevated, false))
}

func TestApplyRisk(t *testing.T) {
	d := &domain.DiagnosisDecision{}
	ApplyRisk(d, domain.FeatureVector{{Name: "radius_worst", Value: 20}, {Name: "concavity_mean", Value: 0.3}})

	assert.InDelta(t, 676.67, d.RiskScore, 0.01)
	assert.Equal(t, domain.RiskElevated, d.RiskCategory)
}
