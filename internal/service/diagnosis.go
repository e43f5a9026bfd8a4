package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/breast-dx-server/internal/domain"
	"github.com/breast-dx-server/internal/metrics"
	"github.com/breast-dx-server/internal/records"
	"github.com/breast-dx-server/internal/scoring"
	"github.com/breast-dx-server/internal/session"
)

// ErrNoRecord is returned when no stored diagnosis matches a lookup.
var ErrNoRecord = errors.New("no patient record found")

// Classifier is the model-facing half of the pipeline.
type Classifier interface {
	Classify(ctx context.Context, v domain.FeatureVector) (*domain.DiagnosisDecision, error)
	Features() []string
}

// DiagnosisResult is a persisted diagnosis plus its ranked features.
type DiagnosisResult struct {
	Record      *domain.PatientRecord
	TopFeatures []domain.Feature
}

// DiagnosisService runs the classification pipeline: validate, classify, score,
// persist, then cache the result for the caller's session.
type DiagnosisService struct {
	logger     *logrus.Logger
	classifier Classifier
	records    records.Store
	sessions   session.Store
}

// NewDiagnosisService creates a new diagnosis service. sessions may be nil.
func NewDiagnosisService(
	logger *logrus.Logger,
	classifier Classifier,
	store records.Store,
	sessions session.Store,
) *DiagnosisService {
	return &DiagnosisService{
		logger:     logger,
		classifier: classifier,
		records:    store,
		sessions:   sessions,
	}
}

// RequiredFeatures returns the feature names the loaded model needs.
func (s *DiagnosisService) RequiredFeatures() []string {
	return s.classifier.Features()
}

// Diagnose classifies a raw request body. The record is written before anything is
// returned; if the write fails the caller gets the storage fault and the session
// cache is left untouched.
func (s *DiagnosisService) Diagnose(ctx context.Context, sessionID string, raw map[string]any) (*DiagnosisResult, error) {
	startTime := time.Now()

	features, err := ValidateFeatures(raw, s.classifier.Features())
	if err != nil {
		s.rejected("features", err)
		return nil, err
	}

	meta, err := ExtractMetadata(raw)
	if err != nil {
		s.rejected("metadata", err)
		return nil, err
	}

	decision, err := s.classifier.Classify(ctx, features)
	if err != nil {
		metrics.RecordInferenceFailure()
		s.logger.WithError(err).Error("Classification failed")
		var ierr *domain.InferenceError
		if !errors.As(err, &ierr) {
			err = &domain.InferenceError{Err: err}
		}
		return nil, err
	}
	scoring.ApplyRisk(decision, features)

	rec := &domain.PatientRecord{
		Metadata:  meta,
		Features:  features,
		Decision:  *decision,
		CreatedAt: decision.DecidedAt,
	}
	if _, err := s.records.Insert(ctx, rec); err != nil {
		metrics.RecordStorageFault("insert")
		s.logger.WithError(err).Error("Failed to store patient record")
		var fault *domain.StorageFault
		if !errors.As(err, &fault) {
			err = &domain.StorageFault{Op: "insert", Err: err}
		}
		return nil, err
	}

	if sessionID != "" && s.sessions != nil {
		if err := s.sessions.Put(ctx, sessionID, session.FromRecord(rec)); err != nil {
			s.logger.WithError(err).WithField("record_id", rec.ID).Warn("Failed to cache session diagnosis")
		}
	}

	elapsed := time.Since(startTime)
	metrics.RecordPrediction(decision.Label, string(decision.RiskCategory), elapsed)
	s.logger.WithFields(logrus.Fields{
		"record_id":     rec.ID,
		"label":         decision.Label,
		"confidence":    decision.ConfidenceText(),
		"risk_category": decision.RiskCategory,
		"duration":      elapsed,
	}).Info("Diagnosis recorded")

	return &DiagnosisResult{
		Record:      rec,
		TopFeatures: scoring.TopFeatures(features, scoring.DefaultTopFeatures),
	}, nil
}

// Current returns the session's last diagnosis, or the most recent stored record
// when the session has none. The session cache is consulted once.
func (s *DiagnosisService) Current(ctx context.Context, sessionID string) (*domain.PatientRecord, error) {
	if sessionID != "" && s.sessions != nil {
		snap, err := s.sessions.Get(ctx, sessionID)
		switch {
		case err != nil:
			metrics.RecordSessionLookup("error")
			s.logger.WithError(err).Warn("Session lookup failed, falling back to latest record")
		case snap != nil:
			metrics.RecordSessionLookup("hit")
			return snap.Record(), nil
		default:
			metrics.RecordSessionLookup("miss")
		}
	}

	rec, err := s.records.FetchLatest(ctx)
	if err != nil {
		metrics.RecordStorageFault("fetch_latest")
		return nil, err
	}
	if rec == nil {
		return nil, ErrNoRecord
	}
	return rec, nil
}

// Record returns a stored record by id.
func (s *DiagnosisService) Record(ctx context.Context, id int64) (*domain.PatientRecord, error) {
	rec, err := s.records.FetchByID(ctx, id)
	if err != nil {
		metrics.RecordStorageFault("fetch_by_id")
		return nil, err
	}
	if rec == nil {
		return nil, ErrNoRecord
	}
	return rec, nil
}

func (s *DiagnosisService) rejected(kind string, err error) {
	metrics.RecordValidationFailure(kind)
	fields := logrus.Fields{"kind": kind}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		fields["missing_fields"] = verr.Missing
		fields["invalid_fields"] = verr.Invalid
	}
	s.logger.WithFields(fields).Warn("Rejected diagnosis request")
}
