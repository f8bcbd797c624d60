package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/timetrack/api"
	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/closedperiod"
	"github.com/frahmantamala/timetrack/internal/hierarchy"
	"github.com/frahmantamala/timetrack/internal/membership"
	"github.com/frahmantamala/timetrack/internal/project"
	"github.com/frahmantamala/timetrack/internal/timeentry"
	"github.com/frahmantamala/timetrack/internal/transport"
	"github.com/frahmantamala/timetrack/internal/transport/middleware"
	"github.com/frahmantamala/timetrack/internal/transport/rest"
	"github.com/frahmantamala/timetrack/internal/user"
)

var withReconciler bool

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func init() {
	httpServerCmd.Flags().BoolVar(&withReconciler, "with-reconciler", false, "run the periodic hierarchy reconciler inside the server process")
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	router, err := setupRoutes(deps)
	if err != nil {
		deps.Logger.Error("failed to set up routes", "error", err)
		return
	}

	cfg := deps.Config.Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if withReconciler {
		go deps.Reconciler.RunPeriodic(ctx, deps.Config.Hierarchy.ReconcileInterval)
	}

	serverErr := make(chan error, 1)
	go func() {
		deps.Logger.Info("starting HTTP server", "address", addr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		deps.Logger.Info("received signal, shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("server failed", "error", err)
			return
		}
	}

	deps.Logger.Info("server stopped")
}

func setupRoutes(deps *Dependencies) (*chi.Mux, error) {
	transport.UseTranslator(deps.Translator)
	base := transport.NewBaseHandler(deps.Logger)

	handlers := rest.Handlers{
		Health:       rest.NewHealthHandler(deps.SQL),
		Auth:         auth.NewHandler(deps.Auth),
		RBAC:         auth.NewRBACAuthorization(deps.Checker, deps.Logger),
		User:         user.NewHandler(base, deps.Users),
		Project:      project.NewHandler(base, deps.Projects),
		Membership:   membership.NewHandler(base, deps.Memberships),
		Hierarchy:    hierarchy.NewHandler(base, deps.Synchronizer, deps.Reconciler, deps.Members),
		TimeEntry:    timeentry.NewHandler(base, deps.TimeEntries, deps.Approval),
		ClosedPeriod: closedperiod.NewHandler(base, deps.ClosedPeriod),
	}

	opts := rest.Options{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		OpenAPISpec:    api.OpenAPISpec,
		Language:       deps.Translator,
	}
	if deps.Config.Observability.Metrics.Enabled {
		opts.MetricsPath = deps.Config.Observability.Metrics.Path
	}
	if deps.Config.Server.ValidateRequests {
		validator, err := middleware.NewRequestValidator(api.OpenAPISpec, deps.Logger)
		if err != nil {
			return nil, err
		}
		opts.Validator = validator
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, handlers, opts, deps.Logger)
	logRoutes(router, deps.Logger)
	return router, nil
}

func logRoutes(router chi.Routes, lg *slog.Logger) {
	_ = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		lg.Debug("route registered", "method", method, "route", route)
		return nil
	})
}
