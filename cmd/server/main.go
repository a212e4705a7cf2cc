package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sitefinity-mcp-server/internal/config"
	"sitefinity-mcp-server/internal/inspector"
	"sitefinity-mcp-server/internal/logging"
	mcpserver "sitefinity-mcp-server/internal/mcp"
	"sitefinity-mcp-server/internal/recorder"
	"sitefinity-mcp-server/internal/sitefinity"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath   string
	workspaceDir string
	noWorkspace  bool
	logLevel     string
	verbose      bool
}

type serveFlags struct {
	ssePort     int
	addr        string
	noStdio     bool
	noInspector bool
}

// errStdioClosed ends the other servers once the MCP client hangs up.
var errStdioClosed = errors.New("stdio transport closed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	sf := &serveFlags{}

	root := &cobra.Command{
		Use:   "sitefinity-mcp",
		Short: "MCP server and browser inspector for Sitefinity content",
		Long: `sitefinity-mcp exposes Sitefinity content listings and draft creation as
MCP tools, and serves a browser inspector for running them by hand.

Run without a subcommand to serve.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, sf)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Path to a config file layered over the workspace config")
	pf.StringVar(&g.workspaceDir, "workspace-dir", "", "Use this directory as the workspace root instead of searching upward")
	pf.BoolVar(&g.noWorkspace, "no-workspace", false, "Skip .sitefinity-mcp workspace discovery")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Shorthand for --log-level=debug")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP transport and the inspector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, sf)
		},
	}
	for _, fs := range []*cobra.Command{root, serveCmd} {
		f := fs.Flags()
		f.IntVar(&sf.ssePort, "sse-port", 0, "Serve MCP over SSE on this port instead of stdio (overrides config)")
		f.StringVar(&sf.addr, "addr", "", "Inspector listen address (overrides config)")
		f.BoolVar(&sf.noStdio, "no-stdio", false, "Do not serve MCP over stdio")
		f.BoolVar(&sf.noInspector, "no-inspector", false, "Do not start the inspector")
	}

	root.AddCommand(serveCmd, newInitCmd(g), newToolsCmd(g), newCallCmd(g))
	return root
}

// loadConfig merges defaults, workspace, explicit file, environment and
// global flags, in that order.
func loadConfig(g *globalFlags) (config.Config, string, error) {
	cfg, wsDir, err := config.LoadWithWorkspace(g.configPath, config.WorkspaceOptions{
		Disable:     g.noWorkspace,
		ExplicitDir: g.workspaceDir,
	})
	if err != nil {
		return cfg, wsDir, fmt.Errorf("failed to load config: %w", err)
	}
	if g.logLevel != "" {
		cfg.Server.LogLevel = g.logLevel
	}
	if g.verbose {
		cfg.Server.LogLevel = "debug"
	}
	return cfg, wsDir, nil
}

// newToolServer builds the Sitefinity client and the tool catalogue over it.
func newToolServer(cfg config.Config, logger *zap.Logger, opts ...mcpserver.Option) (*mcpserver.Server, error) {
	client := sitefinity.NewClient(cfg.Sitefinity, sitefinity.WithLogger(logger.Named("sitefinity")))
	opts = append([]mcpserver.Option{mcpserver.WithLogger(logger.Named("mcp"))}, opts...)
	server, err := mcpserver.NewServer(cfg, client, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MCP server: %w", err)
	}
	return server, nil
}

func runServe(cmd *cobra.Command, g *globalFlags, sf *serveFlags) error {
	cfg, wsDir, err := loadConfig(g)
	if err != nil {
		return err
	}
	if sf.ssePort != 0 {
		cfg.MCP.SSEPort = sf.ssePort
	}
	if sf.addr != "" {
		cfg.Inspector.Addr = sf.addr
	}
	if sf.noInspector {
		cfg.Inspector.Enabled = false
	}
	stdio := cfg.MCP.SSEPort == 0 && !sf.noStdio
	if !stdio && cfg.MCP.SSEPort == 0 && !cfg.Inspector.Enabled {
		return errors.New("nothing to serve: no MCP transport and the inspector is disabled")
	}

	// stdout carries the stdio protocol, so logs go to the file or nowhere.
	logger, err := logging.New(logging.Options{
		Level: cfg.Server.LogLevel,
		File:  logFileFor(cfg, stdio),
		Quiet: stdio,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if wsDir != "" {
		logger.Info("using workspace", zap.String("dir", wsDir))
	}

	var opts []mcpserver.Option
	if cfg.Recorder.Enabled {
		rec, err := recorder.New(cfg.Recorder.Dir, cfg.Recorder.GetMaxRotated())
		if err != nil {
			return fmt.Errorf("failed to initialize recorder: %w", err)
		}
		defer rec.Close()
		path, err := rec.Start("serve")
		if err != nil {
			return fmt.Errorf("failed to start trace: %w", err)
		}
		logger.Info("recording tool runs", zap.String("path", path))
		opts = append(opts, mcpserver.WithRecorder(rec))
	}

	server, err := newToolServer(cfg, logger, opts...)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(cmd.Context())

	switch {
	case cfg.MCP.SSEPort > 0:
		group.Go(func() error {
			logger.Info("starting MCP SSE server", zap.Int("port", cfg.MCP.SSEPort))
			return server.StartSSE(ctx, cfg.MCP.SSEPort)
		})
	case stdio:
		group.Go(func() error {
			logger.Info("starting MCP stdio server")
			if err := server.Start(ctx); err != nil {
				return err
			}
			return errStdioClosed
		})
	}

	if cfg.Inspector.Enabled {
		inspectorOpts := []inspector.Option{inspector.WithLogger(logger.Named("inspector"))}
		if cfg.MCP.HTTPEnabled {
			inspectorOpts = append(inspectorOpts, inspector.WithMCPHandler(cfg.MCP.GetHTTPPath(), server.HTTPHandler()))
		}
		web := inspector.New(cfg, server, inspectorOpts...)
		group.Go(func() error {
			return web.ListenAndServe(ctx)
		})
	}

	err = group.Wait()
	if errors.Is(err, errStdioClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return fmt.Errorf("server exited with error: %w", err)
	}
	return nil
}

func logFileFor(cfg config.Config, stdio bool) string {
	if stdio {
		return cfg.Server.LogFile
	}
	return ""
}
