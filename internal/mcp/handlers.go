package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/breast-dx-server/internal/domain"
	"github.com/breast-dx-server/internal/report"
	"github.com/breast-dx-server/internal/service"
)

// Tool names.
const (
	ToolClassifyPatient  = "classify_patient"
	ToolGetPatientRecord = "get_patient_record"
	ToolGenerateReport   = "generate_report"
)

// ClassifyPatientParams defines parameters for classify_patient tool
type ClassifyPatientParams struct {
	Features       map[string]any `json:"features" jsonschema:"clinical measurements keyed by feature name, e.g. radius_worst"`
	PatientName    string         `json:"patient_name,omitempty"`
	Age            *int           `json:"age,omitempty"`
	Gender         string         `json:"gender,omitempty"`
	FamilyHistory  string         `json:"family_history,omitempty"`
	Symptoms       string         `json:"symptoms,omitempty"`
	PreviousCancer string         `json:"previous_cancer,omitempty"`
}

// ClassifyPatientResult defines the result structure for classify_patient tool
type ClassifyPatientResult struct {
	PatientID     int64               `json:"patient_id"`
	Diagnosis     string              `json:"diagnosis"`
	Message       string              `json:"message"`
	Confidence    string              `json:"confidence"`
	MalignantProb string              `json:"malignant_prob"`
	BenignProb    string              `json:"benign_prob"`
	RiskScore     float64             `json:"risk_score"`
	RiskCategory  domain.RiskCategory `json:"risk_category"`
	TopFeatures   []domain.Feature    `json:"top_features"`
}

// GetPatientRecordParams defines parameters for get_patient_record tool
type GetPatientRecordParams struct {
	PatientID int64 `json:"patient_id,omitempty" jsonschema:"record id; omit for the most recent diagnosis"`
}

// GenerateReportParams defines parameters for generate_report tool
type GenerateReportParams struct {
	PatientID int64  `json:"patient_id,omitempty" jsonschema:"record id; omit for the most recent diagnosis"`
	Format    string `json:"format,omitempty" jsonschema:"markdown (default) or pdf"`
}

// GenerateReportResult defines the result structure for generate_report tool
type GenerateReportResult struct {
	PatientID int64  `json:"patient_id"`
	Format    string `json:"format"`
	Filename  string `json:"filename"`
	Path      string `json:"path,omitempty"`
}

// handleClassifyPatient handles the classify_patient tool invocation
func (s *Server) handleClassifyPatient(ctx context.Context, req *mcp.CallToolRequest, params ClassifyPatientParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolClassifyPatient).Info("Tool invoked")

	if len(params.Features) == 0 {
		return s.createErrorResult("Missing required parameter", errors.New("features is required")), nil, nil
	}

	raw := make(map[string]any, len(params.Features)+6)
	for name, value := range params.Features {
		raw[name] = value
	}
	setText(raw, "patient_name", params.PatientName)
	setText(raw, "gender", params.Gender)
	setText(raw, "family_history", params.FamilyHistory)
	setText(raw, "symptoms", params.Symptoms)
	setText(raw, "previous_cancer", params.PreviousCancer)
	if params.Age != nil {
		raw["age"] = *params.Age
	}

	result, err := s.diagnoses.Diagnose(ctx, s.sessionID, raw)
	if err != nil {
		return s.createErrorResult("Classification failed", err), nil, nil
	}

	d := result.Record.Decision
	out := ClassifyPatientResult{
		PatientID:     result.Record.ID,
		Diagnosis:     d.Diagnosis,
		Message:       d.Message(),
		Confidence:    d.ConfidenceText(),
		MalignantProb: d.MalignantProbabilityText(),
		BenignProb:    d.BenignProbabilityText(),
		RiskScore:     d.RiskScore,
		RiskCategory:  d.RiskCategory,
		TopFeatures:   result.TopFeatures,
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Patient %d classified as %s (%s confidence, risk %s). %s",
					out.PatientID, out.Diagnosis, out.Confidence, out.RiskCategory, out.Message),
			},
		},
	}, out, nil
}

// handleGetPatientRecord handles the get_patient_record tool invocation
func (s *Server) handleGetPatientRecord(ctx context.Context, req *mcp.CallToolRequest, params GetPatientRecordParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolGetPatientRecord).Info("Tool invoked")

	rec, err := s.lookup(ctx, params.PatientID)
	if err != nil {
		return s.createErrorResult("Record lookup failed", err), nil, nil
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return s.createErrorResult("Failed to encode record", err), nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, rec, nil
}

// handleGenerateReport handles the generate_report tool invocation. Markdown is returned
// inline; PDF is written to the report directory and its path returned.
func (s *Server) handleGenerateReport(ctx context.Context, req *mcp.CallToolRequest, params GenerateReportParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolGenerateReport).Info("Tool invoked")

	format := report.FormatMarkdown
	if params.Format != "" {
		parsed, err := report.ParseFormat(params.Format)
		if err != nil {
			return s.createErrorResult("Invalid parameter", err), nil, nil
		}
		format = parsed
	}

	var id *int64
	if params.PatientID > 0 {
		id = &params.PatientID
	}

	rendered, err := s.reports.Generate(ctx, s.sessionID, id, format)
	if err != nil {
		return s.createErrorResult("Report generation failed", err), nil, nil
	}

	out := GenerateReportResult{
		PatientID: rendered.RecordID,
		Format:    string(format),
		Filename:  rendered.Filename,
	}

	if format == report.FormatMarkdown {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: string(rendered.Body)},
			},
		}, out, nil
	}

	if err := os.MkdirAll(s.reportDir, 0755); err != nil {
		return s.createErrorResult("Failed to create report directory", err), nil, nil
	}
	out.Path = filepath.Join(s.reportDir, rendered.Filename)
	if err := os.WriteFile(out.Path, rendered.Body, 0644); err != nil {
		return s.createErrorResult("Failed to write report", err), nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("PDF report for patient %d written to %s", out.PatientID, out.Path)},
		},
	}, out, nil
}

func (s *Server) lookup(ctx context.Context, id int64) (*domain.PatientRecord, error) {
	if id > 0 {
		return s.diagnoses.Record(ctx, id)
	}
	return s.diagnoses.Current(ctx, s.sessionID)
}

// createErrorResult creates an error result for tool calls
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	s.logger.WithError(err).Warn(message)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Error: %s: %s", message, describe(err))},
		},
		IsError: true,
	}
}

// describe keeps validation detail and hides internals of every other failure.
func describe(err error) string {
	var (
		verr  *domain.ValidationError
		ierr  *domain.InferenceError
		fault *domain.StorageFault
		rerr  *domain.RenderError
	)
	switch {
	case errors.As(err, &verr):
		var parts []string
		if len(verr.Missing) > 0 {
			parts = append(parts, "missing fields: "+strings.Join(verr.Missing, ", "))
		}
		if len(verr.Invalid) > 0 {
			parts = append(parts, "invalid fields: "+strings.Join(verr.Invalid, ", "))
		}
		return strings.Join(parts, "; ")
	case errors.Is(err, service.ErrNoRecord):
		return "no patient data found"
	case errors.As(err, &ierr):
		return "the classifier could not produce a prediction"
	case errors.As(err, &fault):
		return "patient records are unavailable"
	case errors.As(err, &rerr):
		return "the report could not be rendered"
	default:
		return err.Error()
	}
}

func setText(raw map[string]any, key, value string) {
	if value != "" {
		raw[key] = value
	}
}
