package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/transport"
)

type RBACAuthorization struct {
	*transport.BaseHandler
	checker PermissionChecker
}

func NewRBACAuthorization(checker PermissionChecker, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		checker:     checker,
	}
}

// RequireAdmin rejects every actor that is not an administrator.
func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				ra.WriteAppError(w, r, internal.ErrInvalidToken)
				return
			}
			if !actor.Admin {
				ra.Logger.WarnContext(r.Context(), "access denied: admin permissions required", "user_id", actor.ID, "path", r.URL.Path)
				ra.WriteAppError(w, r, internal.ErrAdminRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireProjectPermission rejects actors holding none of the permissions on the
// project named by the chi URL parameter.
func (ra *RBACAuthorization) RequireProjectPermission(param string, perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				ra.WriteAppError(w, r, internal.ErrInvalidToken)
				return
			}

			projectID, appErr := ra.URLParamInt64(r, param)
			if appErr != nil {
				ra.WriteAppError(w, r, appErr)
				return
			}

			allowed, err := AnyAllowed(r.Context(), ra.checker, actor, projectID, perms...)
			if err != nil {
				ra.Logger.ErrorContext(r.Context(), "authorization check failed", "error", err, "user_id", actor.ID, "permissions", perms)
				ra.HandleServiceError(w, r, err)
				return
			}
			if !allowed {
				ra.Logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", actor.ID,
					"project_id", projectID,
					"required_permissions", perms)
				ra.WriteAppError(w, r, internal.NewPolicyDeniedError("missing_permission", "insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
