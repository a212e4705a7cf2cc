// Package inspector serves the browser tool runner: a small JSON API over the
// tool catalogue plus the HTML shell that drives it.
package inspector

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"sitefinity-mcp-server/internal/config"
	"sitefinity-mcp-server/internal/mcp"
	"sitefinity-mcp-server/internal/render"
)

// Executor runs tools by name. *mcp.Server satisfies it.
type Executor interface {
	ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)
	HasTool(name string) bool
	Tools() []mcp.ToolInfo
}

// Server is the inspector HTTP front end.
type Server struct {
	cfg      config.InspectorConfig
	version  string
	tools    Executor
	renderer *render.Renderer
	logger   *zap.Logger

	mcpPath    string
	mcpHandler http.Handler
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMCPHandler mounts an MCP transport at path, behind the same API key.
func WithMCPHandler(path string, h http.Handler) Option {
	return func(s *Server) {
		s.mcpPath = path
		s.mcpHandler = h
	}
}

// New builds an inspector over tools.
func New(cfg config.Config, tools Executor, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg.Inspector,
		version:  cfg.Server.Version,
		tools:    tools,
		renderer: render.New(cfg.Inspector.Location()),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))
	r.Use(cors(s.cfg.CORSOrigins))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)

	r.Group(func(api chi.Router) {
		api.Use(apiKey(s.cfg.APIKey))

		api.Route("/api", func(r chi.Router) {
			r.Post("/run-tool", s.handleRunTool)
			r.Get("/list-tools", s.handleListTools)
			r.Get("/editor/{tool}", s.handleEditor)
			r.Post("/editor/{tool}", s.handleEditor)
			r.Post("/drafts/{tool}", s.handleDraft)
		})

		if s.mcpHandler != nil && s.mcpPath != "" {
			api.Handle(s.mcpPath, s.mcpHandler)
		}
	})

	return r
}

// ListenAndServe serves Handler on the configured address until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("inspector listening", zap.String("addr", s.cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("inspector shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
