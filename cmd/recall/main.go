// Package main is the entry point for the recall CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/flemzord/recall/internal/config"
	"github.com/flemzord/recall/internal/core"
	"github.com/flemzord/recall/internal/ingest"
	"github.com/flemzord/recall/pkg/app"
	"github.com/spf13/cobra"

	_ "github.com/flemzord/recall/modules/embedder/hashing"
	_ "github.com/flemzord/recall/modules/embedder/openai"
	_ "github.com/flemzord/recall/modules/provider/anthropic"
	_ "github.com/flemzord/recall/modules/provider/openai"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "recall",
		Short:         "A knowledge base with per-user memory, served over HTTP, WebSocket and MCP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.AddCommand(versionCmd(), serveCmd(), mcpCmd(), searchCmd(), configCmd())
	return root
}

func runParams(cmd *cobra.Command) app.RunParams {
	cfgPath, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("log-level")
	return app.RunParams{
		ConfigPath: cfgPath,
		LogLevel:   level,
		Version:    version,
		Commit:     commit,
		Date:       date,
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "recall %s (commit: %s, built: %s)\n", version, commit, date)
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range core.GetModules() {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP gateway with all configured modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(runParams(cmd))
		},
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the protocol as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := runParams(cmd)
			p.Stdin, p.Stdout = cmd.InOrStdin(), cmd.OutOrStdout()
			return app.RunMCP(p)
		},
	}
}

func searchCmd() *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the seeded knowledge base once and print the ranked results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := runParams(cmd)
			cfg, _, err := app.LoadConfig(p.ConfigPath)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			svc, err := app.Build(cmd.Context(), cfg, app.BuildOptions{Logger: logger, Version: version})
			if err != nil {
				return err
			}
			defer svc.Close()

			results, err := svc.Knowledge.Search(cmd.Context(), strings.Join(args, " "), topK)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ingest.FormatResults(results))
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 5, "Number of results")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration and provision its modules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.LoadConfig(args[0])
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			application := core.NewApp(core.NewAppContext(logger).WithModuleConfigs(cfg.Modules))
			ids := config.Resolve(cfg)
			if err := application.LoadModules(ids); err != nil {
				return err
			}
			defer application.Stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK (%d modules, embedder %s)\n", len(ids), cfg.Embedding.Module)
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	})
	return cmd
}
