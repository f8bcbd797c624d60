package membership

import (
	"context"
	"net/http"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/transport"
)

type ServiceAPI interface {
	Get(ctx context.Context, id int64) (*Member, error)
	ListByProject(ctx context.Context, projectID int64) ([]*Member, error)
	Upsert(ctx context.Context, actor *auth.Actor, projectID int64, dto UpsertMembershipDTO) (*Member, error)
	AddRole(ctx context.Context, actor *auth.Actor, memberID, roleID int64) (*Member, error)
	RemoveRole(ctx context.Context, actor *auth.Actor, memberID, roleID int64) (*Member, error)
	Destroy(ctx context.Context, actor *auth.Actor, memberID int64) error
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

func (h *Handler) ListProjectMemberships(w http.ResponseWriter, r *http.Request) {
	projectID, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	members, err := h.Service.ListByProject(r.Context(), projectID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MembersResponse{Memberships: members})
}

func (h *Handler) UpsertMembership(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrInvalidToken)
		return
	}
	projectID, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	var dto UpsertMembershipDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	m, err := h.Service.Upsert(r.Context(), actor, projectID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) GetMembership(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	m, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) AddRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrInvalidToken)
		return
	}
	id, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	var dto AddRoleDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}
	if dto.RoleID <= 0 {
		h.WriteAppError(w, r, internal.NewValidationFieldError("role_id", "role_id is required", internal.ErrCodeValidationFailed))
		return
	}

	m, err := h.Service.AddRole(r.Context(), actor, id, dto.RoleID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrInvalidToken)
		return
	}
	id, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}
	roleID, appErr := h.URLParamInt64(r, "roleID")
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	m, err := h.Service.RemoveRole(r.Context(), actor, id, roleID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) DestroyMembership(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrInvalidToken)
		return
	}
	id, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	if err := h.Service.Destroy(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
