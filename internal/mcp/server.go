package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"sitefinity-mcp-server/internal/config"
	"sitefinity-mcp-server/internal/correlation"
	"sitefinity-mcp-server/internal/editor"
	"sitefinity-mcp-server/internal/recorder"
	"sitefinity-mcp-server/internal/sitefinity"
)

// ErrToolNotFound is returned by ExecuteTool for names nothing registered.
var ErrToolNotFound = errors.New("tool not found")

// Server wires the MCP runtime to the Sitefinity tool catalogue.
type Server struct {
	cfg       config.Config
	client    *sitefinity.Client
	logger    *zap.Logger
	recorder  *recorder.Recorder
	now       func() time.Time
	tools     map[string]Tool
	order     []string
	mcpServer *mcpserver.MCPServer
}

// Tool describes the contract for MCP tool implementations.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// ToolInfo is the public summary of a registered tool.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the logger used for tool runs.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRecorder traces every tool run to rec.
func WithRecorder(rec *recorder.Recorder) Option {
	return func(s *Server) { s.recorder = rec }
}

// WithClock replaces time.Now for draft publication dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer constructs the MCP server and registers all tools.
func NewServer(cfg config.Config, client *sitefinity.Client, opts ...Option) (*Server, error) {
	if client == nil {
		return nil, errors.New("sitefinity client is required")
	}

	mcpSrv := mcpserver.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithRecovery(),
	)

	server := &Server{
		cfg:       cfg,
		client:    client,
		logger:    zap.NewNop(),
		now:       time.Now,
		tools:     make(map[string]Tool),
		mcpServer: mcpSrv,
	}
	for _, opt := range opts {
		opt(server)
	}

	server.registerAllTools()
	server.registerAllResources()
	return server, nil
}

// Start launches the stdio server.
func (s *Server) Start(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// StartSSE hosts the server over HTTP using SSE endpoints with graceful shutdown.
func (s *Server) StartSSE(ctx context.Context, port int) error {
	sseServer := mcpserver.NewSSEServer(s.mcpServer, mcpserver.WithBaseURL("http://localhost:"+strconv.Itoa(port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("SSE server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// HTTPHandler serves the streamable HTTP transport, for mounting on another
// router.
func (s *Server) HTTPHandler() http.Handler {
	return mcpserver.NewStreamableHTTPServer(s.mcpServer)
}

// ExecuteTool runs a tool directly, bypassing the MCP protocol.
func (s *Server) ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	tool, exists := s.tools[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return s.run(ctx, tool, args)
}

// HasTool reports whether name is registered.
func (s *Server) HasTool(name string) bool {
	_, ok := s.tools[name]
	return ok
}

// Tools lists the registered tools in registration order.
func (s *Server) Tools() []ToolInfo {
	out := make([]ToolInfo, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, ToolInfo{Name: name, Description: s.tools[name].Description()})
	}
	return out
}

func (s *Server) registerAllTools() {
	for _, spec := range listTools {
		s.registerTool(&ListContentTool{spec: spec, client: s.client})
	}
	s.registerTool(&GetBlogPostByIDTool{client: s.client})
	for _, spec := range parentTools {
		s.registerTool(&ParentsTool{spec: spec, client: s.client})
	}
	for _, spec := range draftTools {
		s.registerTool(&CreateDraftTool{spec: spec, client: s.client, now: s.now})
	}
}

func (s *Server) registerTool(tool Tool) {
	if _, dup := s.tools[tool.Name()]; !dup {
		s.order = append(s.order, tool.Name())
	}
	s.tools[tool.Name()] = tool

	schema, err := json.Marshal(tool.InputSchema())
	if err != nil {
		schema = json.RawMessage(`{"type":"object"}`)
	}

	mcpTool := mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema)
	s.mcpServer.AddTool(mcpTool, s.wrapTool(tool))
}

func (s *Server) wrapTool(tool Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}

		result, err := s.run(ctx, tool, args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s failed: %v", tool.Name(), err))},
				IsError: true,
			}, nil
		}

		var text string
		if str, ok := result.(string); ok {
			text = str
		} else {
			text = string(marshalToolPayload(tool.Name(), result))
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(text)},
			IsError: false,
		}, nil
	}
}

// run executes tool and records the outcome.
func (s *Server) run(ctx context.Context, tool Tool, args map[string]interface{}) (interface{}, error) {
	name := tool.Name()
	requestID := correlation.RequestIDFromContext(ctx)
	started := time.Now()
	s.recorder.Log(recorder.EventToolCall, name, requestID, map[string]any{"params": args})

	result, err := tool.Execute(ctx, args)
	elapsed := time.Since(started)
	if err != nil {
		s.logger.Warn("tool failed",
			zap.String("tool", name),
			zap.String("request_id", requestID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		s.recorder.Log(recorder.EventToolError, name, requestID, err.Error())
		return nil, err
	}

	s.logger.Debug("tool completed",
		zap.String("tool", name),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", elapsed))
	if item, ok := result.(sitefinity.Item); ok {
		if _, isDraft := editor.Lookup(name); isDraft {
			s.recorder.Log(recorder.EventDraftCreated, name, requestID, map[string]any{"id": item.ID(), "title": item.String("Title")})
		}
	}
	return result, nil
}

func marshalToolPayload(toolName string, result interface{}) []byte {
	payload, marshalErr := json.Marshal(result)
	if marshalErr == nil {
		return payload
	}

	fallback := map[string]interface{}{
		"success": false,
		"error":   fmt.Sprintf("tool %s returned non-serializable payload: %v", toolName, marshalErr),
	}
	payload, fallbackErr := json.Marshal(fallback)
	if fallbackErr == nil {
		return payload
	}

	return []byte(fmt.Sprintf(`{"success":false,"error":"tool %s failed to encode payload"}`, toolName))
}
