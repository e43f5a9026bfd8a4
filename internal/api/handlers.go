package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/breast-dx-server/internal/domain"
	"github.com/breast-dx-server/internal/middleware"
	"github.com/breast-dx-server/internal/report"
	"github.com/breast-dx-server/internal/service"
)

const maxBodyBytes = 1 << 20

// PredictResponse is the body returned by POST /predict.
type PredictResponse struct {
	PatientID     int64               `json:"patient_id"`
	Diagnosis     string              `json:"diagnosis"`
	Message       string              `json:"message"`
	Confidence    string              `json:"confidence"`
	MalignantProb string              `json:"malignant_prob"`
	BenignProb    string              `json:"benign_prob"`
	RiskScore     float64             `json:"risk_score"`
	RiskCategory  domain.RiskCategory `json:"risk_category"`
	TopFeatures   []domain.Feature    `json:"top_features"`
	Status        string              `json:"status"`
}

// PatientView is a stored or cached diagnosis as returned to the browser.
type PatientView struct {
	ID             int64                `json:"id"`
	Name           string               `json:"name"`
	Age            *int                 `json:"age"`
	Gender         string               `json:"gender"`
	FamilyHistory  string               `json:"family_history"`
	Symptoms       string               `json:"symptoms"`
	PreviousCancer string               `json:"previous_cancer"`
	Diagnosis      string               `json:"diagnosis"`
	ClinicalData   domain.FeatureVector `json:"clinical_data"`
	Confidence     string               `json:"confidence"`
	MalignantProb  string               `json:"malignant_prob"`
	BenignProb     string               `json:"benign_prob"`
	Message        string               `json:"message"`
	RiskScore      float64              `json:"risk_score"`
	RiskCategory   domain.RiskCategory  `json:"risk_category"`
	Timestamp      time.Time            `json:"timestamp"`
}

func newPatientView(rec *domain.PatientRecord) PatientView {
	d := rec.Decision
	diagnosis := d.Diagnosis
	if diagnosis == "" {
		diagnosis = "Unknown"
	}
	return PatientView{
		ID:             rec.ID,
		Name:           rec.Metadata.DisplayName(),
		Age:            rec.Metadata.Age,
		Gender:         rec.Metadata.Gender,
		FamilyHistory:  rec.Metadata.FamilyHistory,
		Symptoms:       rec.Metadata.Symptoms,
		PreviousCancer: rec.Metadata.PreviousCancer,
		Diagnosis:      diagnosis,
		ClinicalData:   rec.Features,
		Confidence:     d.ConfidenceText(),
		MalignantProb:  d.MalignantProbabilityText(),
		BenignProb:     d.BenignProbabilityText(),
		Message:        d.Message(),
		RiskScore:      d.RiskScore,
		RiskCategory:   d.RiskCategory,
		Timestamp:      rec.CreatedAt,
	}
}

// handlePredict validates, classifies and stores one encounter
func (s *Server) handlePredict(c *gin.Context) {
	raw, err := decodeObject(c.Request.Body)
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "No data provided",
			"code":           domain.ErrInvalidInput,
			"correlation_id": c.GetString(middleware.CorrelationIDKey),
		})
		return
	}

	result, err := s.diagnoses.Diagnose(c.Request.Context(), middleware.SessionID(c), raw)
	if err != nil {
		s.respondError(c, err)
		return
	}

	d := result.Record.Decision
	c.JSON(http.StatusOK, PredictResponse{
		PatientID:     result.Record.ID,
		Diagnosis:     d.Diagnosis,
		Message:       d.Message(),
		Confidence:    d.ConfidenceText(),
		MalignantProb: d.MalignantProbabilityText(),
		BenignProb:    d.BenignProbabilityText(),
		RiskScore:     d.RiskScore,
		RiskCategory:  d.RiskCategory,
		TopFeatures:   result.TopFeatures,
		Status:        "success",
	})
}

// handleRefreshPatientData returns the session's last diagnosis or the latest record
func (s *Server) handleRefreshPatientData(c *gin.Context) {
	rec, err := s.diagnoses.Current(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPatientView(rec))
}

// handleGetPreviousMetrics returns one stored record
func (s *Server) handleGetPreviousMetrics(c *gin.Context) {
	param := c.Query("patient_id")
	if param == "" {
		s.badRequest(c, "patient_id is required")
		return
	}
	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil || id <= 0 {
		s.badRequest(c, "patient_id must be a positive integer")
		return
	}

	rec, err := s.diagnoses.Record(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPatientView(rec))
}

// handleGenerateReport renders a report. A body carrying clinical_data is rendered
// as given; otherwise ?patient_id= or the session's current diagnosis is used.
func (s *Server) handleGenerateReport(c *gin.Context) {
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		s.badRequest(c, "unreadable request body")
		return
	}

	var out *service.RenderedReport
	if len(bytes.TrimSpace(body)) > 0 {
		var req service.ReportBody
		if err := json.Unmarshal(body, &req); err != nil {
			s.badRequest(c, "invalid report request: "+err.Error())
			return
		}
		if req.ClinicalData != nil {
			out, err = s.reports.GenerateFromBody(&req, format)
			s.sendReport(c, out, err)
			return
		}
	}

	var id *int64
	if param := c.Query("patient_id"); param != "" {
		parsed, err := strconv.ParseInt(param, 10, 64)
		if err != nil || parsed <= 0 {
			s.badRequest(c, "patient_id must be a positive integer")
			return
		}
		id = &parsed
	}

	out, err = s.reports.Generate(c.Request.Context(), middleware.SessionID(c), id, format)
	s.sendReport(c, out, err)
}

func (s *Server) sendReport(c *gin.Context, out *service.RenderedReport, err error) {
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	c.Data(http.StatusOK, out.ContentType, out.Body)
}

// decodeObject reads a JSON object keeping numbers as json.Number.
func decodeObject(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}
