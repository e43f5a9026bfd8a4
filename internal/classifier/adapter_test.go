package classifier

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breast-dx-server/internal/domain"
)

type fakeModel struct {
	label      string
	proba      []float64
	predictErr error
	probaErr   error
	lastX      []float64
}

func (f *fakeModel) Predict(x []float64) (string, error) {
	f.lastX = append([]float64(nil), x...)
	return f.label, f.predictErr
}

func (f *fakeModel) PredictProba(x []float64) ([]float64, error) {
	return f.proba, f.probaErr
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var testFeatures = []string{"radius_worst", "concavity_mean", "area_worst"}

func TestAdapter_ClassifyMalignant(t *testing.T) {
	model := &fakeModel{label: "M", proba: []float64{0.82, 0.18}}
	ad, err := NewAdapterWithModel(model, testFeatures, []string{"M", "B"}, "v-test", quietLogger())
	require.NoError(t, err)
	ad.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	// input order differs from model order
	v := domain.FeatureVector{
		{Name: "area_worst", Value: 900},
		{Name: "radius_worst", Value: 20},
		{Name: "concavity_mean", Value: 0.3},
		{Name: "unused", Value: 1},
	}

	d, err := ad.Classify(context.Background(), v)
	require.NoError(t, err)

	assert.Equal(t, []float64{20, 0.3, 900}, model.lastX)
	assert.Equal(t, "M", d.Label)
	assert.Equal(t, "Malignant (M)", d.Diagnosis)
	assert.True(t, d.Malignant)
	assert.Equal(t, "82.00%", d.ConfidenceText())
	assert.InDelta(t, 0.82, d.MalignantProbability, 1e-12)
	assert.InDelta(t, 0.18, d.BenignProbability, 1e-12)
	assert.Equal(t, "v-test", d.ModelVersion)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), d.DecidedAt)
}

func TestAdapter_ProbabilitiesFollowClassOrder(t *testing.T) {
	model := &fakeModel{label: "B", proba: []float64{0.7, 0.3}}
	ad, err := NewAdapterWithModel(model, testFeatures, []string{"B", "M"}, "v", quietLogger())
	require.NoError(t, err)

	d, err := ad.Classify(context.Background(), domain.FeatureVector{
		{Name: "radius_worst", Value: 1}, {Name: "concavity_mean", Value: 1}, {Name: "area_worst", Value: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, "Benign (B)", d.Diagnosis)
	assert.False(t, d.Malignant)
	assert.InDelta(t, 0.3, d.MalignantProbability, 1e-12)
	assert.InDelta(t, 0.7, d.BenignProbability, 1e-12)
	assert.Equal(t, "70.00%", d.ConfidenceText())
}

func TestAdapter_Failures(t *testing.T) {
	full := domain.FeatureVector{
		{Name: "radius_worst", Value: 1}, {Name: "concavity_mean", Value: 1}, {Name: "area_worst", Value: 1},
	}

	tests := []struct {
		name    string
		model   *fakeModel
		input   domain.FeatureVector
		wantErr string
	}{
		{
			name:    "missing feature",
			model:   &fakeModel{label: "M", proba: []float64{0.5, 0.5}},
			input:   full[:2],
			wantErr: "area_worst",
		},
		{
			name:    "predict error",
			model:   &fakeModel{predictErr: errors.New("model corrupted")},
			input:   full,
			wantErr: "model corrupted",
		},
		{
			name:    "proba error",
			model:   &fakeModel{label: "M", probaErr: errors.New("bad proba")},
			input:   full,
			wantErr: "bad proba",
		},
		{
			name:    "shape mismatch",
			model:   &fakeModel{label: "M", proba: []float64{1}},
			input:   full,
			wantErr: "1 probabilities for 2 classes",
		},
		{
			name:    "unknown label",
			model:   &fakeModel{label: "X", proba: []float64{0.5, 0.5}},
			input:   full,
			wantErr: "unknown label",
		},
		{
			name:    "probability out of range",
			model:   &fakeModel{label: "M", proba: []float64{1.5, -0.5}},
			input:   full,
			wantErr: "invalid probability",
		},
		{
			name:    "probabilities do not sum to one",
			model:   &fakeModel{label: "M", proba: []float64{0.4, 0.4}},
			input:   full,
			wantErr: "sum to 0.8",
		},
		{
			name:    "probabilities overshoot one",
			model:   &fakeModel{label: "M", proba: []float64{0.6, 0.6}},
			input:   full,
			wantErr: "want 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ad, err := NewAdapterWithModel(tt.model, testFeatures, []string{"B", "M"}, "v", quietLogger())
			require.NoError(t, err)

			_, err = ad.Classify(context.Background(), tt.input)
			require.Error(t, err)

			var inf *domain.InferenceError
			require.True(t, errors.As(err, &inf))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAdapter_CancelledContext(t *testing.T) {
	ad, err := NewAdapterWithModel(&fakeModel{label: "M", proba: []float64{0, 1}}, testFeatures, []string{"B", "M"}, "v", quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = ad.Classify(ctx, nil)
	var inf *domain.InferenceError
	assert.True(t, errors.As(err, &inf))
}

func TestNewAdapterWithModel_RequiresKnownClasses(t *testing.T) {
	_, err := NewAdapterWithModel(&fakeModel{}, testFeatures, []string{"yes", "no"}, "v", nil)
	assert.Error(t, err)

	_, err = NewAdapterWithModel(nil, testFeatures, []string{"B", "M"}, "v", nil)
	assert.Error(t, err)
}

func TestNewAdapter_FromArtifact(t *testing.T) {
	a, err := ParseArtifact(strings.NewReader(stumpArtifact))
	require.NoError(t, err)

	ad, err := NewAdapter(a, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"radius_worst", "concavity_mean"}, ad.Features())
	assert.Equal(t, "test-1", ad.Version())

	d, err := ad.Classify(context.Background(), domain.FeatureVector{
		{Name: "radius_worst", Value: 20}, {Name: "concavity_mean", Value: 0.3},
	})
	require.NoError(t, err)
	assert.Equal(t, "Malignant (M)", d.Diagnosis)
	assert.Equal(t, "87.50%", d.ConfidenceText())
}

func TestAdapter_ShippedModelIsDeterministic(t *testing.T) {
	a, err := LoadArtifact(filepath.Join("..", "..", "models", "breast_cancer_model.json"))
	require.NoError(t, err)
	ad, err := NewAdapter(a, quietLogger())
	require.NoError(t, err)

	vector := func(values ...float64) domain.FeatureVector {
		v := make(domain.FeatureVector, len(values))
		for i, name := range ad.Features() {
			v[i] = domain.Feature{Name: name, Value: values[i]}
		}
		return v
	}

	tests := []struct {
		name  string
		input domain.FeatureVector
		label string
	}{
		{"benign", vector(0.02, 0.08, 13.0, 85.0, 520.0, 0.03, 80.0, 480.0), domain.LabelBenign},
		{"malignant", vector(0.09, 0.2, 24.0, 160.0, 1800.0, 0.2, 130.0, 1200.0), domain.LabelMalignant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := ad.Classify(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.label, first.Label)

			second, err := ad.Classify(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, first.Label, second.Label)
			assert.Equal(t, first.MalignantProbability, second.MalignantProbability)
			assert.Equal(t, first.BenignProbability, second.BenignProbability)
			assert.Equal(t, first.Confidence, second.Confidence)

			var wg sync.WaitGroup
			results := make([]*domain.DiagnosisDecision, 20)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], _ = ad.Classify(context.Background(), tt.input)
				}(i)
			}
			wg.Wait()
			for _, d := range results {
				require.NotNil(t, d)
				assert.Equal(t, first.Label, d.Label)
				assert.Equal(t, first.MalignantProbability, d.MalignantProbability)
			}
		})
	}
}
