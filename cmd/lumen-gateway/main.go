// ABOUTME: Entry point for the lumen-gateway execution gateway
// ABOUTME: Wires config, catalog, engine backend, and the stdio transport loop

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/lumenlabs/lumen-gateway/internal/availability"
	"github.com/lumenlabs/lumen-gateway/internal/catalog"
	"github.com/lumenlabs/lumen-gateway/internal/config"
	"github.com/lumenlabs/lumen-gateway/internal/engine"
	"github.com/lumenlabs/lumen-gateway/internal/engine/gemini"
	"github.com/lumenlabs/lumen-gateway/internal/engine/mock"
	"github.com/lumenlabs/lumen-gateway/internal/engine/openai"
	"github.com/lumenlabs/lumen-gateway/internal/executor"
	"github.com/lumenlabs/lumen-gateway/internal/gateway"
	"github.com/lumenlabs/lumen-gateway/internal/session"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _
| |_   _ _ __ ___   ___ _ __
| | | | | '_ ' _ \ / _ \ '_ \
| | |_| | | | | | |  __/ | | |
|_|\__,_|_| |_| |_|\___|_| |_|
        gateway
`

// getConfigPath returns the path to the gateway config file.
// Priority: LUMEN_CONFIG env var > --config flag > XDG_CONFIG_HOME/lumen/gateway.yaml > ~/.config/lumen/gateway.yaml
func getConfigPath(flagPath string) string {
	if envPath := os.Getenv("LUMEN_CONFIG"); envPath != "" {
		return envPath
	}
	if flagPath != "" {
		return flagPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "lumen", "gateway.yaml")
}

func main() {
	configFlag := flag.String("config", "", "path to the gateway config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFlag string) error {
	configPath := getConfigPath(configFlag)

	// Everything human-facing goes to stderr. Stdout carries only
	// protocol response lines.
	cyan := color.New(color.FgCyan)
	cyan.Fprint(os.Stderr, banner)

	gray := color.New(color.FgHiBlack)
	gray.Fprintf(os.Stderr, "    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("loading model catalog: %w", err)
	}

	model := cat.Resolve(cfg.Engine.Backend, cfg.Engine.Model)

	green := color.New(color.FgGreen)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Config:  %s\n", configPath)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Backend: %s\n", cfg.Engine.Backend)
	if model != "" {
		green.Fprint(os.Stderr, "    ▶ ")
		fmt.Fprintf(os.Stderr, "Model:   %s\n", model)
	}
	fmt.Fprintln(os.Stderr)

	eng, err := buildEngine(ctx, cfg, model, logger)
	if err != nil {
		return fmt.Errorf("creating %s engine: %w", cfg.Engine.Backend, err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Error("closing engine", "error", err)
		}
	}()

	logger.Info("starting lumen-gateway",
		"config", configPath,
		"backend", cfg.Engine.Backend,
		"idle_timeout", cfg.Session.IdleTimeout,
		"sweep_interval", cfg.Session.SweepInterval,
	)

	sessions := session.NewManager(eng, cfg.Session.IdleTimeout, cfg.Session.SweepInterval, logger)
	exec := executor.New(cfg.Limits.MaxContentChars, logger)
	checker := availability.NewChecker(eng, cfg.Limits.ReadyProbeTimeout)
	gw := gateway.New(sessions, exec, checker, logger)

	return gw.Run(ctx, os.Stdin, os.Stdout)
}

// buildEngine constructs the configured backend.
func buildEngine(ctx context.Context, cfg *config.Config, model string, logger *slog.Logger) (engine.Engine, error) {
	switch cfg.Engine.Backend {
	case "mock":
		return mock.New(), nil
	case "gemini":
		return gemini.New(ctx, cfg.Engine.APIKey, model, logger)
	case "openai":
		return openai.New(cfg.Engine.APIKey, model, cfg.Engine.BaseURL, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Engine.Backend)
	}
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
// It writes to stderr so log lines never interleave with protocol output.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	// Handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(os.Stderr, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
