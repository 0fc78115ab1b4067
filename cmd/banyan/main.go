// Banyan - Decision support for forest rights claim tracking.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-gov/banyan/internal/api"
	"github.com/opensource-gov/banyan/internal/bus"
	"github.com/opensource-gov/banyan/internal/cache"
	"github.com/opensource-gov/banyan/internal/domain"
	"github.com/opensource-gov/banyan/internal/dss"
	"github.com/opensource-gov/banyan/internal/engine"
	"github.com/opensource-gov/banyan/internal/repository"
	"github.com/opensource-gov/banyan/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("BANYAN_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting banyan",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("BANYAN_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Wrap repository with the active-rule snapshot cache
	cachedRepo := cache.NewCachedRepository(repo, cacheImpl, cfg.Cache.LocalTTL)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Rule Engine
	eng := engine.NewEngine(cachedRepo, 10)

	rules, err := cachedRepo.GetActiveRules(ctx)
	if err != nil {
		slog.Warn("failed to count active rules", "error", err)
	} else if len(rules) == 0 {
		slog.Info("no rules in database - configure via POST /rules API")
	} else {
		slog.Info("rule engine initialized", "rules_count", len(rules))
	}

	// Initialize Recommendation Synthesizer
	synth := dss.NewSynthesizer()
	slog.Info("synthesizer initialized", "urgency_keywords", synth.UrgencyKeywords)

	// Initialize async Worker
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("BANYAN_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, cachedRepo, eng, synth)
		if err := asyncWorker.Start(); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started")
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, cachedRepo, cacheImpl, busImpl, eng, synth, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("banyan is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("banyan shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🌳 BANYAN                   ║")
	fmt.Println("  ║     Claim Decision Support Engine         ║")
	fmt.Println("  ║      Every claim, a clear answer.         ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /evaluate          - Evaluate a claim record")
	fmt.Println("    GET  /evaluations/{id}  - Get evaluation by ID")
	fmt.Println("    GET  /rules             - List all rules")
	fmt.Println("    POST /rules             - Create a new rule")
	fmt.Println("    GET  /rules/{id}        - Get rule by ID")
	fmt.Println("    PUT  /rules/{id}        - Update a rule")
	fmt.Println("    DELETE /rules/{id}      - Delete a rule")
	fmt.Println("    GET  /health            - Health check")
	fmt.Println()
}
