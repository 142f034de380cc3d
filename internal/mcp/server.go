// Package mcp exposes IOC extraction and run history over the Model Context
// Protocol, so agent frontends can drive extraction without shelling out to
// the CLI.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/thsensai/sensai/internal/extract"
	"github.com/thsensai/sensai/internal/intel"
	"github.com/thsensai/sensai/internal/store"
)

// Config wires the server's collaborators.
type Config struct {
	Store     *store.Store
	Extractor *extract.Extractor
	Params    extract.Params
	Model     string
	Version   string
}

// Server bridges MCP tool calls to the extraction pipeline and run store.
type Server struct {
	mcpServer *server.MCPServer
	cfg       Config

	// dbMu serializes store access; tool calls may arrive concurrently.
	dbMu sync.Mutex
}

// NewServer builds the MCP server and registers its tools and resources.
func NewServer(cfg Config) *Server {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}
	s := &Server{
		mcpServer: server.NewMCPServer(
			"sensai",
			ver,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(true, false),
		),
		cfg: cfg,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio runs the server over stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	extractTool := mcp.NewTool("sensai_extract",
		mcp.WithDescription("Extract Indicators of Compromise (IOCs) from threat intel text. Returns a deduplicated CSV report of type, value and context per indicator."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The threat intel text to analyze"),
		),
		mcp.WithString("source",
			mcp.Description("Label for where the text came from (URL or file name)"),
		),
	)
	s.mcpServer.AddTool(extractTool, s.handleExtract)

	runsTool := mcp.NewTool("sensai_runs",
		mcp.WithDescription("List recent extraction runs with their source, model, parameters and indicator count."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of runs to return (default 20)"),
		),
	)
	s.mcpServer.AddTool(runsTool, s.handleRuns)
}

func (s *Server) handleExtract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text is empty"), nil
	}
	source := "mcp"
	if v, err := req.RequireString("source"); err == nil && v != "" {
		source = v
	}

	pipeline, err := extract.NewPipeline(s.cfg.Extractor, s.cfg.Params, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	set, err := pipeline.ExtractIOCs(ctx, []intel.Document{{Content: text, Source: source}})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("extraction failed: %v", err)), nil
	}

	if s.cfg.Store != nil {
		s.dbMu.Lock()
		_, saveErr := s.cfg.Store.SaveRun(source, s.cfg.Model, s.cfg.Params.ChunkSize, s.cfg.Params.ChunkOverlap, set)
		s.dbMu.Unlock()
		if saveErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("saving run: %v", saveErr)), nil
		}
	}

	csv, err := set.ToCSV()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(csv), nil
}

func (s *Server) handleRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.cfg.Store == nil {
		return mcp.NewToolResultError("run store is not configured"), nil
	}
	limit := 20
	if v, err := req.RequireFloat("limit"); err == nil && v > 0 {
		limit = int(v)
	}

	s.dbMu.Lock()
	runs, err := s.cfg.Store.ListRuns(limit)
	s.dbMu.Unlock()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRuns(runs)), nil
}

func (s *Server) registerResources() {
	recent := mcp.NewResource(
		"sensai://runs/recent",
		"Recent extraction runs",
		mcp.WithResourceDescription("The most recent IOC extraction runs"),
		mcp.WithMIMEType("text/plain"),
	)
	s.mcpServer.AddResource(recent, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if s.cfg.Store == nil {
			return nil, fmt.Errorf("run store is not configured")
		}
		s.dbMu.Lock()
		runs, err := s.cfg.Store.ListRuns(20)
		s.dbMu.Unlock()
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "sensai://runs/recent",
				MIMEType: "text/plain",
				Text:     formatRuns(runs),
			},
		}, nil
	})
}

func formatRuns(runs []store.Run) string {
	if len(runs) == 0 {
		return "no runs recorded"
	}
	var sb strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&sb, "#%d %s model=%s cs=%d co=%d iocs=%d at=%s\n",
			r.ID, r.Source, r.Model, r.ChunkSize, r.ChunkOverlap, r.IOCCount,
			r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return sb.String()
}
