package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/closedperiod"
	"github.com/frahmantamala/timetrack/internal/hierarchy"
	"github.com/frahmantamala/timetrack/internal/membership"
	"github.com/frahmantamala/timetrack/internal/metrics"
	"github.com/frahmantamala/timetrack/internal/project"
	"github.com/frahmantamala/timetrack/internal/timeentry"
	"github.com/frahmantamala/timetrack/internal/transport/middleware"
	"github.com/frahmantamala/timetrack/internal/transport/swagger"
	"github.com/frahmantamala/timetrack/internal/user"
)

type Handlers struct {
	Health       *HealthHandler
	Auth         *auth.Handler
	RBAC         *auth.RBACAuthorization
	User         *user.Handler
	Project      *project.Handler
	Membership   *membership.Handler
	Hierarchy    *hierarchy.Handler
	TimeEntry    *timeentry.Handler
	ClosedPeriod *closedperiod.Handler
}

type Options struct {
	AllowedOrigins string
	// MetricsPath exposes Prometheus metrics when non-empty.
	MetricsPath string
	OpenAPISpec []byte
	// Validator checks requests against OpenAPISpec when set.
	Validator *middleware.RequestValidator
	Language  middleware.LanguageResolver
}

func RegisterAllRoutes(router chi.Router, h Handlers, opts Options, logger *slog.Logger) {
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	if opts.Language != nil {
		router.Use(middleware.Language(opts.Language))
	}

	if opts.MetricsPath != "" {
		router.Handle(opts.MetricsPath, metrics.Handler())
	}

	if len(opts.OpenAPISpec) > 0 {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			_, _ = w.Write(opts.OpenAPISpec)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if opts.Validator != nil {
			r.Use(opts.Validator.Middleware)
		}

		r.Get("/health", h.Health.Health)
		r.Get("/ping", h.Health.Ping)

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/login", h.Auth.Login)
			ar.Post("/refresh", h.Auth.RefreshToken)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.User.GetCurrentUser)

			pr.Get("/projects", h.Project.ListProjects)
			pr.Get("/projects/{id}", h.Project.GetProject)
			pr.Get("/projects/{id}/descendants", h.Project.GetDescendants)
			pr.With(h.RBAC.RequireProjectPermission("id", auth.PermViewTimeEntries, auth.PermApproveTimeEntries)).
				Get("/projects/{id}/memberships", h.Membership.ListProjectMemberships)
			pr.Get("/projects/{id}/time-entries", h.TimeEntry.ListProjectTimeEntries)
			pr.Get("/memberships/{id}", h.Membership.GetMembership)

			pr.Route("/time-entries", func(tr chi.Router) {
				tr.Get("/", h.TimeEntry.ListTimeEntries)
				tr.Post("/", h.TimeEntry.CreateTimeEntry)
				tr.Get("/{id}", h.TimeEntry.GetTimeEntry)
				tr.Patch("/{id}", h.TimeEntry.UpdateTimeEntry)
				tr.Delete("/{id}", h.TimeEntry.DestroyTimeEntry)
			})

			pr.Get("/settings/closed-period", h.ClosedPeriod.GetClosedPeriod)

			// Administration
			pr.Group(func(ar chi.Router) {
				ar.Use(h.RBAC.RequireAdmin())

				ar.Post("/users", h.User.CreateUser)
				ar.Post("/projects", h.Project.CreateProject)
				ar.Post("/projects/{id}/memberships", h.Membership.UpsertMembership)
				ar.Post("/memberships/{id}/roles", h.Membership.AddRole)
				ar.Delete("/memberships/{id}/roles/{roleID}", h.Membership.RemoveRole)
				ar.Delete("/memberships/{id}", h.Membership.DestroyMembership)
				ar.Post("/memberships/{id}/sync", h.Hierarchy.SyncMembership)
				ar.Post("/hierarchy/reconcile", h.Hierarchy.Reconcile)
				ar.Put("/settings/closed-period", h.ClosedPeriod.UpdateClosedPeriod)
			})
		})
	})
}
