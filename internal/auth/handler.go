package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/transport"
	"github.com/frahmantamala/timetrack/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	tokens, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.Logger.Warn("authentication failed", "login", dto.Login, "error", err)
		h.HandleServiceError(w, r, toAppError(err))
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}
	if dto.RefreshToken == "" {
		h.WriteAppError(w, r, internal.NewValidationFieldError("refresh_token", "refresh_token is required", internal.ErrCodeValidationFailed))
		return
	}

	tokens, err := h.Service.RefreshTokens(r.Context(), dto.RefreshToken)
	if err != nil {
		h.Logger.Warn("token refresh failed", "error", err)
		h.HandleServiceError(w, r, toAppError(err))
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, r, internal.NewUnauthorizedError("missing authorization token", internal.ErrCodeInvalidToken))
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.Logger.Warn("token validation failed", "error", err)
			h.HandleServiceError(w, r, toAppError(err))
			return
		}

		uid, err := strconv.ParseInt(claims.UserID, 10, 64)
		if err != nil {
			h.Logger.Warn("failed to parse user id from token claims", "value", claims.UserID, "error", err)
			h.WriteAppError(w, r, internal.ErrInvalidToken)
			return
		}

		actor, err := h.Service.LoadActor(r.Context(), uid)
		if err != nil {
			h.Logger.Warn("auth middleware: failed to load actor", "user_id", uid, "error", err)
			h.HandleServiceError(w, r, toAppError(err))
			return
		}

		ctx := ContextWithActor(r.Context(), actor)
		ctx = logger.With(ctx, "actor_id", actor.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func toAppError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return internal.ErrInvalidCredentials
	case errors.Is(err, ErrUserInactive), errors.Is(err, ErrUserNotFound):
		return internal.ErrUserInactive
	case errors.Is(err, ErrTokenExpired):
		return internal.ErrTokenExpired
	case errors.Is(err, ErrInvalidToken):
		return internal.ErrInvalidToken
	default:
		return err
	}
}
