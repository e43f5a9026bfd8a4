package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/breast-dx-server/internal/domain"
	"github.com/breast-dx-server/internal/metrics"
	"github.com/breast-dx-server/internal/report"
)

// RenderedReport is a finished document ready to send.
type RenderedReport struct {
	Filename    string
	ContentType string
	Body        []byte
	RecordID    int64
}

// ReportBody is a report request that carries its own inputs instead of naming a
// stored record. clinical_data keeps the order it was sent in.
type ReportBody struct {
	Name         string               `json:"name"`
	Age          any                  `json:"age"`
	Gender       string               `json:"gender"`
	Prediction   string               `json:"prediction"`
	ClinicalData domain.FeatureVector `json:"clinical_data"`
}

// Inputs converts the body into assembler inputs.
func (b *ReportBody) Inputs() (domain.PatientMetadata, domain.FeatureVector, domain.DiagnosisDecision, error) {
	meta, err := ExtractMetadata(map[string]any{
		"name":   b.Name,
		"age":    b.Age,
		"gender": b.Gender,
	})
	if err != nil {
		return domain.PatientMetadata{}, nil, domain.DiagnosisDecision{}, err
	}

	decision := domain.DiagnosisDecision{
		Diagnosis: b.Prediction,
		Malignant: domain.IsMalignantDiagnosis(b.Prediction),
	}
	if b.Prediction != "" {
		decision.Label = domain.LabelBenign
		if decision.Malignant {
			decision.Label = domain.LabelMalignant
		}
	}
	return meta, b.ClinicalData, decision, nil
}

// ReportService assembles and renders diagnostic reports.
type ReportService struct {
	logger    *logrus.Logger
	diagnoses *DiagnosisService
	style     report.Style
	now       func() time.Time
}

// NewReportService creates a new report service
func NewReportService(logger *logrus.Logger, diagnoses *DiagnosisService, style report.Style) *ReportService {
	return &ReportService{
		logger:    logger,
		diagnoses: diagnoses,
		style:     style,
		now:       time.Now,
	}
}

// Generate renders the report for record id, or for the session's current diagnosis
// when id is nil.
func (s *ReportService) Generate(ctx context.Context, sessionID string, id *int64, format report.Format) (*RenderedReport, error) {
	var (
		rec *domain.PatientRecord
		err error
	)
	if id != nil {
		rec, err = s.diagnoses.Record(ctx, *id)
	} else {
		rec, err = s.diagnoses.Current(ctx, sessionID)
	}
	if err != nil {
		return nil, err
	}

	out, err := s.Render(rec.Metadata, rec.Features, rec.Decision, format)
	if err != nil {
		return nil, err
	}
	out.RecordID = rec.ID
	return out, nil
}

// GenerateFromBody renders a report from explicit inputs without touching storage.
func (s *ReportService) GenerateFromBody(body *ReportBody, format report.Format) (*RenderedReport, error) {
	meta, features, decision, err := body.Inputs()
	if err != nil {
		return nil, err
	}
	return s.Render(meta, features, decision, format)
}

// Render assembles and renders one document.
func (s *ReportService) Render(meta domain.PatientMetadata, features domain.FeatureVector, decision domain.DiagnosisDecision, format report.Format) (*RenderedReport, error) {
	startTime := time.Now()

	renderer, err := report.NewRenderer(format, s.logger)
	if err != nil {
		return nil, &domain.RenderError{Format: string(format), Err: err}
	}

	doc := report.Assemble(meta, features, decision, s.now())
	body, err := renderer.Render(doc, s.style)
	metrics.RecordReport(string(format), err == nil, time.Since(startTime))
	if err != nil {
		s.logger.WithError(err).WithField("format", format).Error("Report rendering failed")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"format":   format,
		"bytes":    len(body),
		"duration": time.Since(startTime),
	}).Info("Report generated")

	return &RenderedReport{
		Filename:    report.Filename(doc, renderer),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}
