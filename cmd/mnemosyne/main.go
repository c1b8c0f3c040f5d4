// Command mnemosyne runs the Mnemosyne memory server: a JSON-RPC 2.0 tool
// surface over HTTP backed by a Neo4j property graph. Agents call it through
// POST /mcp; orchestrators probe /healthz and /readyz and scrape /metrics.
//
// Configuration is loaded from an optional YAML file (-config) and then
// overridden by MNEMOSYNE_* and NEO4J_* environment variables; see
// [config.Load] for the full contract.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/mnemosyne/internal/config"
	"github.com/MrWong99/mnemosyne/internal/health"
	"github.com/MrWong99/mnemosyne/internal/mcp"
	"github.com/MrWong99/mnemosyne/internal/observe"
	neo4jstore "github.com/MrWong99/mnemosyne/pkg/memory/neo4j"
)

const version = "2.0.0"

func main() {
	os.Exit(run())
}

func run() int {
	// ── Configuration ──────────────────────────────────────────────

	configPath := flag.String("config", "", "path to the YAML configuration file (optional)")
	logLevel := flag.String("log-level", "", "log level override (debug|info|warn|error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mnemosyne: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		lvl := config.LogLevel(*logLevel)
		if !lvl.IsValid() {
			fmt.Fprintf(os.Stderr, "mnemosyne: unknown log level %q\n", *logLevel)
			return 1
		}
		cfg.Logging.Level = lvl
	}

	logger := newLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	slog.Info("mnemosyne starting",
		"version", version,
		"addr", cfg.Server.Addr(),
		"neo4j", cfg.Neo4j.String(),
		"multi_tenant", cfg.MultiTenant,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ──────────────────────────────────────────────────

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "mnemosyne",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("telemetry init failed", "error", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	metrics := observe.DefaultMetrics()

	// ── Graph store ────────────────────────────────────────────────

	store, err := neo4jstore.NewStore(ctx, neo4jstore.Config{
		URI:                cfg.Neo4j.URI,
		User:               cfg.Neo4j.User,
		Password:           cfg.Neo4j.Password,
		Database:           cfg.Neo4j.Database,
		MultiTenant:        cfg.MultiTenant,
		OnFulltextFallback: metrics.RecordFulltextFallback,
	})
	if err != nil {
		slog.Error("neo4j connection failed", "uri", cfg.Neo4j.URI, "error", err)
		return 1
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(cctx); err != nil {
			slog.Warn("neo4j close", "error", err)
		}
	}()

	if err := store.InstallSchema(ctx); err != nil {
		slog.Error("schema install failed", "error", err)
		return 1
	}
	slog.Info("graph schema ready", "database", cfg.Neo4j.Database)

	// ── HTTP surface ───────────────────────────────────────────────

	dispatcher := mcp.NewServer(store, metrics)
	probes := health.New(health.Checker{Name: "neo4j", Check: store.Ping})

	mux := http.NewServeMux()
	mux.Handle("POST /mcp", dispatcher)
	mux.Handle("GET /metrics", promhttp.Handler())
	probes.Register(mux)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	printStartupSummary(cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	slog.Info("server ready — press Ctrl+C to shut down")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
	}

	// ── Shutdown ───────────────────────────────────────────────────

	slog.Info("shutdown signal received, stopping…")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// newLogger builds the process-wide text logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// printStartupSummary writes a human-oriented banner to stdout. Operational
// logs go to stderr; the banner is the one thing meant for eyes.
func printStartupSummary(cfg *config.Config) {
	tenancy := "single-tenant"
	if cfg.MultiTenant {
		tenancy = "multi-tenant"
	}

	rows := []struct {
		label string
		value string
	}{
		{"Listen", trim(cfg.Server.Addr(), 28)},
		{"Neo4j", trim(cfg.Neo4j.URI, 28)},
		{"Database", trim(cfg.Neo4j.Database, 28)},
		{"User", trim(cfg.Neo4j.User, 28)},
		{"Tenancy", tenancy},
		{"Log level", string(cfg.Logging.Level)},
	}

	fmt.Println("╔══════════════════════════════════════════╗")
	fmt.Printf("║  Mnemosyne memory server %-16s║\n", "v"+version)
	fmt.Println("╟──────────────────────────────────────────╢")
	for _, r := range rows {
		fmt.Printf("║  %-10s %-29s║\n", r.label, r.value)
	}
	fmt.Println("╚══════════════════════════════════════════╝")
}

// trim shortens s for banner display.
func trim(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max-1]) + "…"
}
