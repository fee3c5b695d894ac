package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sqliteadapter "github.com/jmthornton/rategate/internal/adapter/driven/sqlite"
	httphandler "github.com/jmthornton/rategate/internal/adapter/driving/http"
	"github.com/jmthornton/rategate/internal/application"
	"github.com/jmthornton/rategate/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"session_ttl", cfg.SessionTTL,
		"sweep_interval", cfg.SweepInterval,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	appStore := sqliteadapter.NewAppRepo(db)
	ruleStore := sqliteadapter.NewRuleRepo(db)
	suppressionStore := sqliteadapter.NewSuppressionRepo(db)
	decisionStore := sqliteadapter.NewDecisionLogRepo(db)

	// 6. Wire services. The bundled audit handler is the registered decision
	// handler; it writes a local audit row per outcome and routes nothing.
	gateSvc := application.NewGateService(ruleStore, suppressionStore)
	auditHandler := application.NewAuditHandler(decisionStore)
	promptSvc := application.NewPromptService(gateSvc, auditHandler, cfg.SessionTTL, cfg.SweepInterval)
	go promptSvc.Start(ctx)

	// 7. Create HTTP handler and server.
	apiHandler := httphandler.NewHandler(
		appStore, ruleStore, suppressionStore, decisionStore,
		gateSvc, promptSvc, slog.Default(),
	)
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("rategate started", "listen_addr", cfg.ListenAddr)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
