package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/breast-dx-server/internal/domain"
	"github.com/breast-dx-server/internal/middleware"
	"github.com/breast-dx-server/internal/service"
)

// ErrorResponse is the body of every failed request. Validation failures also
// carry the offending field lists.
type ErrorResponse struct {
	Error         string   `json:"error"`
	Code          string   `json:"code"`
	Message       string   `json:"message,omitempty"`
	Fields        []string `json:"fields,omitempty"`
	MissingFields []string `json:"missing_fields,omitempty"`
	InvalidFields []string `json:"invalid_fields,omitempty"`
	CorrelationID string   `json:"correlation_id,omitempty"`
}

// respondError maps pipeline errors onto status codes. Inference and storage
// details stay in the log.
func (s *Server) respondError(c *gin.Context, err error) {
	body := ErrorResponse{CorrelationID: c.GetString(middleware.CorrelationIDKey)}
	status := http.StatusInternalServerError

	var (
		verr  *domain.ValidationError
		ierr  *domain.InferenceError
		fault *domain.StorageFault
		rerr  *domain.RenderError
	)
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body.Code = domain.ErrValidation
		body.MissingFields = verr.Missing
		body.InvalidFields = verr.Invalid
		if len(verr.Missing) > 0 {
			body.Error = "Missing required fields"
			body.Fields = verr.Missing
		} else {
			body.Error = "Invalid values"
			body.Fields = verr.Invalid
			body.Message = "All fields must be numeric"
		}
	case errors.Is(err, service.ErrNoRecord):
		status = http.StatusNotFound
		body.Code = domain.ErrNotFound
		body.Error = "No patient data found"
	case errors.As(err, &ierr):
		body.Code = domain.ErrInference
		body.Error = "Prediction failed"
	case errors.As(err, &fault):
		status = http.StatusServiceUnavailable
		body.Code = domain.ErrStorage
		body.Error = "Patient records are unavailable"
	case errors.As(err, &rerr):
		body.Code = domain.ErrRender
		body.Error = "Report generation failed"
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		body.Code = domain.ErrInternalServer
		body.Error = "Request timeout"
	default:
		body.Code = domain.ErrInternalServer
		body.Error = "Internal server error"
	}

	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("correlation_id", body.CorrelationID).Error("Request failed")
	}
	c.JSON(status, body)
}

func (s *Server) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:         message,
		Code:          domain.ErrInvalidInput,
		CorrelationID: c.GetString(middleware.CorrelationIDKey),
	})
}
