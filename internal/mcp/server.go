// Package mcp exposes the diagnosis pipeline as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/breast-dx-server/internal/service"
)

// Server metadata advertised to MCP clients.
const (
	ServerName    = "breast-dx-mcp-server"
	ServerVersion = "v1.0.0"
)

// Server represents the diagnosis MCP server implementation
type Server struct {
	mcpServer *mcp.Server
	diagnoses *service.DiagnosisService
	reports   *service.ReportService
	reportDir string
	sessionID string
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance. PDF reports are written under reportDir.
// One stdio process is one client, so the server keeps a single session for the
// last-diagnosis cache.
func NewServer(logger *logrus.Logger, diagnoses *service.DiagnosisService, reports *service.ReportService, reportDir string) *Server {
	serverInfo := &mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}

	server := &Server{
		mcpServer: mcp.NewServer(serverInfo, nil),
		diagnoses: diagnoses,
		reports:   reports,
		reportDir: reportDir,
		sessionID: "mcp-" + uuid.New().String(),
		logger:    logger,
	}
	server.registerTools()

	return server
}

// registerTools registers the diagnosis tools with the MCP SDK
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolClassifyPatient,
		Description: "Classify a breast mass from clinical measurements, store the encounter and return the diagnosis with its risk score",
	}, s.handleClassifyPatient)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolGetPatientRecord,
		Description: "Fetch a stored diagnosis by patient_id, or the most recent one when no id is given",
	}, s.handleGetPatientRecord)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolGenerateReport,
		Description: "Generate the patient-facing diagnostic report as Markdown, or write it as a PDF file",
	}, s.handleGenerateReport)

	s.logger.WithField("tool_count", 3).Info("Registered MCP tools")
}

// Run serves MCP over stdio until ctx is cancelled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting breast diagnosis MCP server...")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
