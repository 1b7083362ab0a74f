package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/amansearch/internal/search"
	"github.com/Aman-CERP/amansearch/internal/telemetry"
	"github.com/Aman-CERP/amansearch/pkg/searcher"
	"github.com/Aman-CERP/amansearch/pkg/version"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "AmanSearch"

// Backend runs searches for the server. *searcher.Searcher implements it.
type Backend interface {
	NewRequest(query string) search.SearchRequest
	Search(ctx context.Context, req search.SearchRequest) (*search.SearchOutput, error)
	Status(ctx context.Context) searcher.Status
}

var _ Backend = (*searcher.Searcher)(nil)

// Server is the MCP server for AmanSearch.
// It bridges AI clients with the web search pipeline.
type Server struct {
	mcp     *mcp.Server
	backend Backend
	metrics *telemetry.QueryMetrics
	logger  *slog.Logger
	started time.Time

	mu sync.RWMutex
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger. Default is slog.Default().
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics exposes the telemetry collector as the metrics resource and
// in search_status.
func WithMetrics(m *telemetry.QueryMetrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// StatusOutput is the search_status tool's response.
type StatusOutput struct {
	Version       string              `json:"version"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	Status        searcher.Status     `json:"status"`
	Metrics       *telemetry.Snapshot `json:"metrics,omitempty"`
}

var tools = []ToolInfo{
	{
		Name: ToolWebSearch,
		Description: "Search the web across several engines at once. Results are deduplicated, " +
			"ranked by relevance and summarized. Set fetch_full_content to read pages as markdown.",
	},
	{
		Name: ToolSearchCode,
		Description: "Search the web for code: documentation, repositories and Q&A. " +
			"Routes to code-aware engines and extracts fenced code blocks when pages are fetched.",
	},
	{
		Name:        ToolSearchStatus,
		Description: "Report which search providers are available, circuit breaker state, cache and query statistics.",
	},
}

// NewServer creates a new MCP server over backend.
func NewServer(backend Backend, opts ...ServerOption) (*Server, error) {
	if backend == nil {
		return nil, errors.New("search backend is required")
	}

	s := &Server{
		backend: backend,
		logger:  slog.Default(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()
	return s, nil
}

// SetBackend swaps the search backend, typically after a config reload.
// Calls already running keep the previous backend; the caller closes it,
// and a call that lands on a closed backend is retried on the new one.
func (s *Server) SetBackend(b Backend) error {
	if b == nil {
		return errors.New("search backend is required")
	}
	s.mu.Lock()
	s.backend = b
	s.mu.Unlock()
	s.logger.Info("mcp_backend_swapped")
	return nil
}

func (s *Server) currentBackend() Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

// CallTool invokes a tool by name with JSON-style arguments. It backs the
// SDK handlers and lets callers drive tools without a transport.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case ToolWebSearch:
		var in WebSearchInput
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		return s.handleWebSearch(ctx, in)
	case ToolSearchCode:
		var in SearchCodeInput
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		return s.handleSearchCode(ctx, in)
	case ToolSearchStatus:
		return s.handleSearchStatus(ctx)
	default:
		return "", NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, v any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func (s *Server) handleWebSearch(ctx context.Context, in WebSearchInput) (string, error) {
	backend := s.currentBackend()
	req, err := applyWebSearch(backend.NewRequest(in.Query), in)
	if err != nil {
		return "", err
	}
	out, err := s.run(ctx, ToolWebSearch, backend, req)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(in.Format, FormatJSON) {
		return marshalJSON(out)
	}
	return FormatSearchResults(out), nil
}

func (s *Server) handleSearchCode(ctx context.Context, in SearchCodeInput) (string, error) {
	backend := s.currentBackend()
	req, err := applySearchCode(backend.NewRequest(in.Query), in)
	if err != nil {
		return "", err
	}
	out, err := s.run(ctx, ToolSearchCode, backend, req)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(in.Format, FormatJSON) {
		return marshalJSON(out)
	}
	return FormatCodeResults(out, in.Language), nil
}

// run executes one search with request-scoped logging. Only configuration
// and validation problems surface as errors; provider failures travel in
// the output.
func (s *Server) run(ctx context.Context, tool string, backend Backend, req search.SearchRequest) (*search.SearchOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	s.logger.Info("tool_started",
		slog.String("tool", tool),
		slog.String("request_id", requestID),
		slog.String("query", req.Query),
		slog.String("mode", string(req.Mode)),
		slog.Int("max_results", req.MaxResults))

	out, err := backend.Search(ctx, req)
	if errors.Is(err, searcher.ErrClosed) {
		if next := s.currentBackend(); next != backend {
			out, err = next.Search(ctx, req)
		}
	}
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("tool_failed",
			slog.String("tool", tool),
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.Info("tool_completed",
		slog.String("tool", tool),
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(out.Results)),
		slog.Int("failed_providers", len(out.PartialFailures)),
		slog.Bool("cached", out.Cached))
	return out, nil
}

func (s *Server) handleSearchStatus(ctx context.Context) (string, error) {
	out := StatusOutput{
		Version:       version.Version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Status:        s.currentBackend().Status(ctx),
	}
	if s.metrics != nil {
		out.Metrics = s.metrics.Snapshot()
	}
	return marshalJSON(out)
}

func marshalJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", MapError(err)
	}
	return string(data), nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolWebSearch, Description: tools[0].Description}, s.mcpWebSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolSearchCode, Description: tools[1].Description}, s.mcpSearchCodeHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolSearchStatus, Description: tools[2].Description}, s.mcpSearchStatusHandler)
	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

// Output is left untyped so the SDK publishes no output schema; results
// are returned as text content.
func (s *Server) mcpWebSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in WebSearchInput) (*mcp.CallToolResult, any, error) {
	text, err := s.handleWebSearch(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(text), nil, nil
}

func (s *Server) mcpSearchCodeHandler(ctx context.Context, _ *mcp.CallToolRequest, in SearchCodeInput) (*mcp.CallToolResult, any, error) {
	text, err := s.handleSearchCode(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(text), nil, nil
}

func (s *Server) mcpSearchStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ SearchStatusInput) (*mcp.CallToolResult, any, error) {
	text, err := s.handleSearchStatus(ctx)
	if err != nil {
		return nil, nil, err
	}
	return textResult(text), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio", "":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	return uuid.NewString()[:8]
}
