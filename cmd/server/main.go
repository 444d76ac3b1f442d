// Package main starts the AccessGate HTTP server, setting up configuration,
// logging, the entry store, services, handlers and background cleanup.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/accessgate/internal/clock"
	"github.com/atinyakov/accessgate/internal/config"
	"github.com/atinyakov/accessgate/internal/db"
	"github.com/atinyakov/accessgate/internal/enrollment"
	"github.com/atinyakov/accessgate/internal/logger"
	"github.com/atinyakov/accessgate/internal/method"
	"github.com/atinyakov/accessgate/internal/repository"
	"github.com/atinyakov/accessgate/internal/server/handler/http"
	"github.com/atinyakov/accessgate/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, file and environment configuration.
	options, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	if err := log.Init(cmp.Or(options.LogLevel, "info")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.System{}

	// Open the entry store.
	conn, err := db.Open(options.Driver, options.Source())
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.String("driver", options.Driver), zap.Error(err))
	}
	defer conn.Close()
	repo, err := repository.NewEntryRepository(options.Driver, conn, clk)
	if err != nil {
		zapLogger.Fatal("cannot init repository", zap.Error(err))
	}

	// Purge soft-deleted entries in the background.
	db.StartSoftDeleteCleaner(ctx, repo, clk, options.PurgeInterval, options.PurgeRetention, zapLogger)

	registry := method.Default()

	// Initialize business-logic services.
	entryService := service.NewEntryService(repo)
	authService := service.NewAuthService(repo, registry, zapLogger)

	// One wizard per enrollment id, expired when idle.
	sessions := http.NewSessions(func() *enrollment.Machine {
		return enrollment.NewMachine(repo, registry, clk, zapLogger)
	}, clk, options.WizardTTL)
	sessions.StartJanitor(ctx, time.Minute, zapLogger)

	// Build the router with middleware and routes.
	router := http.NewRouter(
		&http.EntryHandler{EntryService: entryService, Methods: registry},
		&http.AuthHandler{AuthService: authService},
		&http.EnrollmentHandler{Sessions: sessions, Log: zapLogger},
		zapLogger,
	)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr), zap.String("driver", options.Driver))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
