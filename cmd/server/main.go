package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expensebook/internal/auth"
	"expensebook/internal/backend"
	"expensebook/internal/config"
	"expensebook/internal/expenses"
	"expensebook/internal/handlers"
	applog "expensebook/internal/log"
	"expensebook/web"

	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	configFile := flags.String("config", "", "Path to an optional config file")
	flags.String("port", "", "Port to listen on")
	flags.String("db", "", "Path to the SQLite database file")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configFile, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := applog.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", applog.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.SecretGenerated {
		logger.Warn("SESSION_SECRET is not set; using a random key, sessions will not survive a restart")
	}

	store, err := backend.Open(cfg, applog.WithComponent(logger, "storage"))
	if err != nil {
		return err
	}
	defer store.Close()

	signer := auth.NewSigner([]byte(cfg.SessionSecret))
	authSvc := auth.NewService(store, signer, auth.WithSessionDuration(cfg.SessionDuration))

	if err := bootstrapAdmin(ctx, authSvc, logger); err != nil {
		return err
	}

	if removed, err := store.CleanExpiredSessions(ctx); err != nil {
		logger.Warn("failed to clean expired sessions", applog.FieldError, err)
	} else if removed > 0 {
		logger.Info("removed expired sessions", "count", removed)
	}

	h, err := handlers.NewHandlers(authSvc, expenses.NewService(store), signer, web.Templates(), cfg.SecureCookie)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           setupRouter(h, web.Static(), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

// bootstrapAdmin creates the account named by ADMIN_USER and ADMIN_PASSWORD
// when both are set and the user does not exist yet.
func bootstrapAdmin(ctx context.Context, authSvc *auth.Service, logger *slog.Logger) error {
	username, password := os.Getenv("ADMIN_USER"), os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		return nil
	}

	_, err := authSvc.Register(ctx, username, password)
	switch {
	case err == nil:
		logger.Info("created admin user", "username", username)
	case errors.Is(err, auth.ErrDuplicateUsername):
	default:
		return fmt.Errorf("create admin user: %w", err)
	}
	return nil
}

func setupRouter(h *handlers.Handlers, static fs.FS, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	h.Mount(mux)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.HandleFunc("GET /healthz", handleHealth)

	return applog.Middleware(logger)(mux)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
