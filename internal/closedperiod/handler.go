package closedperiod

import (
	"context"
	"net/http"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/transport"
)

type ServiceAPI interface {
	Current(ctx context.Context) (*CutoffResponse, error)
	SetCutoff(ctx context.Context, actor *auth.Actor, dto UpdateCutoffDTO) (*CutoffResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetClosedPeriod(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.Current(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) UpdateClosedPeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrInvalidToken)
		return
	}

	var dto UpdateCutoffDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	resp, err := h.Service.SetCutoff(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}
