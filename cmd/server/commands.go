package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sitefinity-mcp-server/internal/config"
	"sitefinity-mcp-server/internal/logging"
)

func newInitCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a .sitefinity-mcp workspace in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := g.workspaceDir
			if root == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("getting working directory: %w", err)
				}
				root = cwd
			}
			if err := config.InitWorkspace(root); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized workspace at %s\n", filepath.Join(root, config.WorkspaceDirName))
			return nil
		},
	}
}

func newToolsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(g)
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{Level: cfg.Server.LogLevel})
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			server, err := newToolServer(cfg, logger)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, info := range server.Tools() {
				fmt.Fprintf(tw, "%s\t%s\n", info.Name, info.Description)
			}
			return tw.Flush()
		},
	}
}

func newCallCmd(g *globalFlags) *cobra.Command {
	var params string

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Run one tool and print its result",
		Long: `Runs a tool directly against the configured site.

Example:
  sitefinity-mcp call getNews --params '{"top": 5}'
  sitefinity-mcp call createBlogPostDraft --params '{"title": "Hello", "parent_id": "..."}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var toolArgs map[string]interface{}
			if params != "" {
				if err := json.Unmarshal([]byte(params), &toolArgs); err != nil {
					return fmt.Errorf("invalid --params JSON: %w", err)
				}
			}

			cfg, _, err := loadConfig(g)
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{Level: cfg.Server.LogLevel})
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			server, err := newToolServer(cfg, logger)
			if err != nil {
				return err
			}

			result, err := server.ExecuteTool(cmd.Context(), args[0], toolArgs)
			if err != nil {
				return fmt.Errorf("tool %s failed: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if text, ok := result.(string); ok {
				_, err = fmt.Fprint(out, text)
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&params, "params", "", "Tool arguments as a JSON object")
	return cmd
}
