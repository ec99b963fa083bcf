package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/syllabus-coach/internal/coach"
	"github.com/bull/syllabus-coach/internal/markdown"
)

// Coach is the part of the coach service the tools call.
type Coach interface {
	Chat(ctx context.Context, req coach.ChatRequest) (string, error)
	Health() coach.Health
}

// Collections reports on the vector store.
type Collections interface {
	ListCollections(ctx context.Context) ([]string, error)
	Health(ctx context.Context) error
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Coach       Coach
	Collections Collections
	Renderer    *markdown.Renderer
	Version     string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = markdown.NewRenderer()
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "syllabus-coach",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "study_plan",
		Description: "Generate a five-part study plan for a heading or topic of an uploaded syllabus, grounded only in that syllabus. Upload the PDF over HTTP first to get a syllabus_id.",
	}, makeStudyPlanHandler(cfg.Coach, renderer))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "coach_status",
		Description: "Report how many syllabi are loaded, which chat model is used and whether the vector store is reachable.",
	}, makeStatusHandler(cfg.Coach, cfg.Collections))

	return &Server{server: server}
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
