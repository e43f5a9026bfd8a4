package scoring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/breast-dx-server/internal/domain"
)

func TestFeatureImportance(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"concave_points_worst", 2},
		{"radius_worst", 2},
		{"area_mean", 1},
		{"perimeter_worst", 2},
		{"concavity_mean", 0},
		{"texture_mean", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FeatureImportance(tt.name), tt.name)
	}
}

func TestTopFeatures(t *testing.T) {
	v := domain.FeatureVector{
		{Name: "concave_points_mean", Value: 0.05},
		{Name: "concave_points_worst", Value: 0.2},
		{Name: "radius_worst", Value: 20},
		{Name: "perimeter_worst", Value: 130},
		{Name: "area_worst", Value: 900},
		{Name: "concavity_mean", Value: 0.3},
		{Name: "perimeter_mean", Value: 90},
		{Name: "area_mean", Value: 600},
	}

	top := TopFeatures(v, 0)
	assert.Equal(t, []domain.Feature{
		{Name: "area_worst", Value: 900},
		{Name: "perimeter_worst", Value: 130},
		{Name: "radius_worst", Value: 20},
	}, top)

	assert.Len(t, TopFeatures(v, 5), 5)
	assert.Len(t, TopFeatures(v, 50), len(v))
	assert.Empty(t, TopFeatures(nil, 3))
}

func TestTopFeatures_RawValuesAreNotNormalised(t *testing.T) {
	// a large unrelated value outranks a clinically stronger small one at equal importance
	v := domain.FeatureVector{
		{Name: "concave_points_mean", Value: 0.9},
		{Name: "area_mean", Value: 1500},
	}
	top := TopFeatures(v, 1)
	assert.Equal(t, "area_mean", top[0].Name)
}

func TestTopFeatures_TiesKeepInputOrder(t *testing.T) {
	a := domain.Feature{Name: "radius_worst", Value: 10}
	b := domain.Feature{Name: "perimeter_worst", Value: 10}
	c := domain.Feature{Name: "area_worst", Value: 10}

	assert.Equal(t, []domain.Feature{a, b, c}, TopFeatures(domain.FeatureVector{a, b, c}, 3))
	assert.Equal(t, []domain.Feature{c, a, b}, TopFeatures(domain.FeatureVector{c, a, b}, 3))
}

func TestTopFeatures_DoesNotMutateInput(t *testing.T) {
	v := domain.FeatureVector{
		{Name: "texture_mean", Value: 1},
		{Name: "radius_worst", Value: 2},
	}
	_ = TopFeatures(v, 2)
	assert.Equal(t, "texture_mean", v[0].Name)
}

func TestTopFeatures_IndependentOfInputOrder(t *testing.T) {
	base := domain.FeatureVector{
		{Name: "concave_points_mean", Value: 0.05},
		{Name: "concave_points_worst", Value: 0.2},
		{Name: "radius_worst", Value: 20},
		{Name: "perimeter_worst", Value: 130},
		{Name: "area_worst", Value: 900},
		{Name: "concavity_mean", Value: 0.3},
		{Name: "perimeter_mean", Value: 90},
		{Name: "area_mean", Value: 600},
	}
	want := TopFeatures(base, 3)

	reversed := base.Clone()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}

	tests := []struct {
		name string
		seed int64
		v    domain.FeatureVector
	}{
		{name: "reversed", v: reversed},
		{name: "shuffle seed 1", seed: 1},
		{name: "shuffle seed 7", seed: 7},
		{name: "shuffle seed 42", seed: 42},
		{name: "shuffle seed 2024", seed: 2024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.v
			if v == nil {
				v = base.Clone()
				rng := rand.New(rand.NewSource(tt.seed))
				rng.Shuffle(len(v), func(i, j int) { v[i], v[j] = v[j], v[i] })
			}
			assert.Equal(t, want, TopFeatures(v, 3))
		})
	}
}
