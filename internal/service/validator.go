package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/breast-dx-server/internal/domain"
)

// DefaultRequiredFeatures is the feature set of the shipped model, in model order.
// The active list always comes from the loaded artifact; this is the fallback for tools
// that run without one.
var DefaultRequiredFeatures = []string{
	"concave_points_mean",
	"concave_points_worst",
	"radius_worst",
	"perimeter_worst",
	"area_worst",
	"concavity_mean",
	"perimeter_mean",
	"area_mean",
}

// ValidateFeatures checks raw input against the required feature list and returns the
// vector in required order. Unknown keys are ignored. When any feature is absent or
// unparseable the result is a *domain.ValidationError listing every offender and no
// vector is returned.
func ValidateFeatures(raw map[string]any, required []string) (domain.FeatureVector, error) {
	var missing, invalid []string
	vector := make(domain.FeatureVector, 0, len(required))

	for _, name := range required {
		value, ok := raw[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		f, ok := toFeatureValue(value)
		if !ok {
			invalid = append(invalid, name)
			continue
		}
		vector = append(vector, domain.Feature{Name: name, Value: f})
	}

	if verr := domain.NewValidationError(missing, invalid); verr != nil {
		return nil, verr
	}
	return vector, nil
}

// toFeatureValue accepts finite numbers in any of the encodings a JSON
// body or a Go caller might produce.
func toFeatureValue(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ExtractMetadata pulls the optional patient context out of a request body. Only a
// malformed age is an error.
func ExtractMetadata(raw map[string]any) (domain.PatientMetadata, error) {
	meta := domain.PatientMetadata{
		Name:           firstText(raw, "patient_name", "name"),
		Gender:         firstText(raw, "gender"),
		FamilyHistory:  firstText(raw, "family_history"),
		Symptoms:       firstText(raw, "symptoms"),
		PreviousCancer: firstText(raw, "previous_cancer"),
	}
	if meta.Name == "" {
		meta.Name = domain.AnonymousPatient
	}

	age, err := parseAge(raw["age"])
	if err != nil {
		return domain.PatientMetadata{}, &domain.ValidationError{Invalid: []string{"age"}}
	}
	meta.Age = age

	return meta, nil
}

func firstText(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case nil:
			continue
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case bool:
			if v {
				return "yes"
			}
			return "no"
		default:
			return strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return ""
}

func parseAge(v any) (*int, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, domain.NotAvailable) {
			return nil, nil
		}
		v = s
	}
	if _, isBool := v.(bool); isBool {
		return nil, fmt.Errorf("age must be numeric")
	}

	f, ok := toFeatureValue(v)
	if !ok || f < 0 || f > 150 {
		return nil, fmt.Errorf("age out of range: %v", v)
	}
	age := int(f)
	// forms submit 0 for an empty age field
	if age == 0 {
		return nil, nil
	}
	return &age, nil
}
