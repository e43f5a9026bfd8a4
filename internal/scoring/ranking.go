package scoring

import (
	"sort"
	"strings"

	"github.com/breast-dx-server/internal/domain"
)

// DefaultTopFeatures is the number of features shown in the report snapshot.
const DefaultTopFeatures = 3

var importantPatterns = []string{"_worst", "concave_points", "area", "radius", "perimeter"}

// FeatureImportance counts the important patterns contained in a feature name.
// A name can match several patterns.
func FeatureImportance(name string) int {
	score := 0
	for _, p := range importantPatterns {
		if strings.Contains(name, p) {
			score++
		}
	}
	return score
}

// TopFeatures returns the n most significant features ordered by importance, then raw
// value, both descending. Raw values are compared across units without normalisation.
// Equal keys keep their order in v. n <= 0 selects DefaultTopFeatures.
func TopFeatures(v domain.FeatureVector, n int) []domain.Feature {
	if n <= 0 {
		n = DefaultTopFeatures
	}

	type ranked struct {
		feature    domain.Feature
		importance int
	}
	items := make([]ranked, len(v))
	for i, f := range v {
		items[i] = ranked{feature: f, importance: FeatureImportance(f.Name)}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].importance != items[j].importance {
			return items[i].importance > items[j].importance
		}
		return items[i].feature.Value > items[j].feature.Value
	})

	if n > len(items) {
		n = len(items)
	}
	out := make([]domain.Feature, n)
	for i := range out {
		out[i] = items[i].feature
	}
	return out
}
