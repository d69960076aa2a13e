// Package main runs the settlement keeper with its dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"round-curator/internal/config"
	"round-curator/internal/keeper"
	"round-curator/internal/logger"
	"round-curator/internal/round"
	"round-curator/internal/service"
	"round-curator/internal/tui"

	dbpkg "round-curator/internal/db"
)

func main() {
	// Try to load .env from CWD if present; otherwise use environment as-is
	if _, statErr := os.Stat(".env"); statErr == nil {
		_ = godotenv.Load(".env")
	}

	cfg := config.Load()

	// If debug logs are enabled, write them to file to avoid interfering with TUI
	var logWriter io.Writer = os.Stderr
	if cfg.Debug {
		logFile, err := os.OpenFile("keeper.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			defer logFile.Close()
			logWriter = logFile
			fmt.Fprintf(os.Stderr, "Debug logs written to keeper.log\n")
		} else {
			fmt.Fprintf(os.Stderr, "Warning: failed to open log file, logs will go to stderr (may interfere with TUI): %v\n", err)
		}
	}

	log := logger.NewWithWriter(cfg.Debug, logWriter).With("module", "keeper")

	fmt.Printf("Round keeper starting...\n")
	fmt.Printf("Config loaded: %s\n", cfg.DebugString())

	gormDB, err := dbpkg.Open(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	var store dbpkg.Store
	if gormDB != nil {
		log.Printf("DB connected")

		if err := dbpkg.AutoMigrate(gormDB); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		log.Printf("Migrations applied")
		store = dbpkg.NewGormStore(gormDB)
	} else {
		log.Printf("DATABASE_URL not provided – rounds are kept in memory only")
		store = dbpkg.NewMemoryStore()
	}

	gate := round.Gate{Controller: round.Identity(cfg.ControllerIdentity), Enforce: cfg.EnforceGate}
	svc := service.New(store, gate, round.SystemClock, log.With("component", "service"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := keeper.NewMetrics(reg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics server stopped: %v", err)
			}
		}()
	}

	// Create channel for TUI updates (TUI is always enabled)
	tuiUpdateCh := make(chan interface{}, keeper.TUIChannelBufferSize)
	// Start TUI in a goroutine
	go func() {
		if err := tui.Run(tuiUpdateCh); err != nil {
			log.Printf("TUI error: %v", err)
		}
		// TUI exited, cancel context to trigger shutdown
		cancel()
	}()

	kp, err := keeper.New(cfg, svc, tuiUpdateCh, metrics, log)
	if err != nil {
		log.Printf("failed to init keeper: %v", err)
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := kp.Run(ctx); err != nil {
			log.Printf("keeper stopped: %v", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")

	// Close keeper first (this will stop all goroutines and connections)
	if err := kp.Close(); err != nil {
		log.Printf("close error: %v", err)
	}
	<-done

	if metricsSrv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		stop()
	}

	// Close TUI update channel to stop sending updates
	close(tuiUpdateCh)
	// Give TUI a moment to process the close and quit
	time.Sleep(keeper.TUICloseDelay)

	// Ensure logs flushed in some environments
	_ = os.Stderr.Sync()
	_ = os.Stdout.Sync()
}
