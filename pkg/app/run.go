// Package app is the shared entry point of the recall binary: it loads
// configuration, assembles the knowledge base, memory and transports, and
// runs them until a shutdown signal.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/flemzord/recall/internal/config"
	"github.com/flemzord/recall/internal/security"
	"github.com/flemzord/recall/internal/telemetry"
)

// ErrNoConfig is returned by ResolveConfigPath when no file exists in any
// standard location.
var ErrNoConfig = errors.New("no configuration file found")

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file. If
	// empty, ResolveConfigPath is consulted and built-in defaults are used
	// when nothing is found.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// LogLevel overrides log.level from the configuration when set.
	LogLevel string

	// Stdin and Stdout carry the MCP stdio transport. Nil selects the
	// process streams.
	Stdin  io.Reader
	Stdout io.Writer
}

// Run loads configuration, starts all modules, and blocks until SIGINT or
// SIGTERM.
func Run(params RunParams) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, shutdown, err := setup(ctx, params)
	if err != nil {
		return err
	}
	defer shutdown()

	if err := svc.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	svc.Logger.Info("shutdown signal received")
	svc.Stop()
	svc.Logger.Info("shutdown complete")
	return nil
}

// RunMCP serves the protocol as MCP tools over stdio until the input is
// closed or a signal arrives. Listener modules are not started.
func RunMCP(params RunParams) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, shutdown, err := setup(ctx, params)
	if err != nil {
		return err
	}
	defer shutdown()

	in, out := params.Stdin, params.Stdout
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	if svc.Chain != nil {
		svc.Chain.Start(ctx)
		defer svc.Chain.Stop()
	}
	svc.Logger.Info("serving MCP over stdio")
	if err := svc.MCP.ServeStdio(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// setup performs everything Run and RunMCP share: configuration, logging,
// tracing and Build. The returned func releases tracing and caches.
func setup(ctx context.Context, params RunParams) (*Services, func(), error) {
	cfg, cfgPath, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	levelName := cfg.Log.Level
	if params.LogLevel != "" {
		levelName = params.LogLevel
	}
	level, err := config.LogConfig{Level: levelName}.SlogLevel()
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	redactor := security.NewRedactor()
	redactor.AddLiteral(secretValues(cfg.Modules)...)
	logger := NewLogger(os.Stderr, level, redactor)
	if cfgPath == "" {
		logger.Info("no configuration file found, using defaults")
	} else {
		logger.Info("configuration loaded", "path", cfgPath)
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, params.Version, logger)
	if err != nil {
		return nil, nil, err
	}

	svc, err := Build(ctx, cfg, BuildOptions{
		Logger:   logger,
		Redactor: redactor,
		Version:  params.Version,
	})
	if err != nil {
		_ = shutdownTracing(context.Background())
		return nil, nil, err
	}

	release := func() {
		svc.Close()
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}
	return svc, release, nil
}

// LoadConfig loads, defaults and validates the configuration at path. An
// empty path is resolved with ResolveConfigPath; when no file exists the
// built-in defaults are returned with an empty path.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		resolved, err := ResolveConfigPath()
		switch {
		case errors.Is(err, ErrNoConfig):
			return config.Default(), "", nil
		case err != nil:
			return nil, "", err
		}
		path = resolved
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// NewLogger returns a text logger on w that scrubs secrets known to
// redactor from every record.
func NewLogger(w io.Writer, level slog.Level, redactor *security.Redactor) *slog.Logger {
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/recall/recall.yaml → ~/.config/recall/recall.yaml → ./recall.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "recall", "recall.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "recall", "recall.yaml"))
	}

	candidates = append(candidates, "recall.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w (searched: %v)", ErrNoConfig, candidates)
}
