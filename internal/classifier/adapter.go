package classifier

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/breast-dx-server/internal/domain"
)

// probabilityTolerance bounds how far the class probabilities may drift from summing to 1.
const probabilityTolerance = 1e-6

// Adapter turns feature vectors into diagnosis decisions using a loaded Model.
// Risk fields of the returned decision are left for the caller to fill in.
type Adapter struct {
	model    Model
	features []string
	classes  []string
	version  string
	logger   *logrus.Logger
	now      func() time.Time

	malignantIdx int
	benignIdx    int
}

// NewAdapter wraps a validated artifact.
func NewAdapter(a *Artifact, logger *logrus.Logger) (*Adapter, error) {
	return NewAdapterWithModel(a.Model(), a.Features, a.Classes, a.Version, logger)
}

// NewAdapterWithModel wraps an arbitrary Model. features is the order the model
// expects its input in; classes is the order of its probability output.
func NewAdapterWithModel(model Model, features, classes []string, version string, logger *logrus.Logger) (*Adapter, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("model feature list is empty")
	}
	if logger == nil {
		logger = logrus.New()
	}

	ad := &Adapter{
		model:        model,
		features:     append([]string(nil), features...),
		classes:      append([]string(nil), classes...),
		version:      version,
		logger:       logger,
		now:          time.Now,
		malignantIdx: -1,
		benignIdx:    -1,
	}
	for i, c := range classes {
		switch c {
		case domain.LabelMalignant:
			ad.malignantIdx = i
		case domain.LabelBenign:
			ad.benignIdx = i
		}
	}
	if ad.malignantIdx < 0 || ad.benignIdx < 0 {
		return nil, fmt.Errorf("model classes %v must include %q and %q", classes, domain.LabelMalignant, domain.LabelBenign)
	}
	return ad, nil
}

// Features returns the feature names the model requires, in model order.
func (a *Adapter) Features() []string {
	return append([]string(nil), a.features...)
}

// Version returns the artifact version.
func (a *Adapter) Version() string {
	return a.version
}

// Classify runs the model on v. Every failure is returned as *domain.InferenceError.
func (a *Adapter) Classify(ctx context.Context, v domain.FeatureVector) (*domain.DiagnosisDecision, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.InferenceError{Err: err}
	}

	x := make([]float64, len(a.features))
	for i, name := range a.features {
		val, ok := v.Get(name)
		if !ok {
			return nil, &domain.InferenceError{Err: fmt.Errorf("feature %q missing from input", name)}
		}
		x[i] = val
	}

	start := time.Now()
	label, err := a.model.Predict(x)
	if err != nil {
		return nil, &domain.InferenceError{Err: fmt.Errorf("predict: %w", err)}
	}
	proba, err := a.model.PredictProba(x)
	if err != nil {
		return nil, &domain.InferenceError{Err: fmt.Errorf("predict_proba: %w", err)}
	}
	if len(proba) != len(a.classes) {
		return nil, &domain.InferenceError{Err: fmt.Errorf("model returned %d probabilities for %d classes", len(proba), len(a.classes))}
	}
	var sum float64
	for _, p := range proba {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, &domain.InferenceError{Err: fmt.Errorf("model returned invalid probability %v", p)}
		}
		sum += p
	}
	if math.Abs(sum-1) > probabilityTolerance {
		return nil, &domain.InferenceError{Err: fmt.Errorf("model probabilities sum to %v, want 1", sum)}
	}

	decision := &domain.DiagnosisDecision{
		Label:                label,
		MalignantProbability: proba[a.malignantIdx],
		BenignProbability:    proba[a.benignIdx],
		ModelVersion:         a.version,
		DecidedAt:            a.now().UTC(),
	}
	switch label {
	case domain.LabelMalignant:
		decision.Diagnosis = domain.DiagnosisMalignant
		decision.Malignant = true
	case domain.LabelBenign:
		decision.Diagnosis = domain.DiagnosisBenign
	default:
		return nil, &domain.InferenceError{Err: fmt.Errorf("model returned unknown label %q", label)}
	}

	maxP := proba[0]
	for _, p := range proba[1:] {
		if p > maxP {
			maxP = p
		}
	}
	decision.Confidence = 100 * maxP

	a.logger.WithFields(logrus.Fields{
		"label":         label,
		"confidence":    decision.ConfidenceText(),
		"model_version": a.version,
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Debug("Classification completed")

	return decision, nil
}
