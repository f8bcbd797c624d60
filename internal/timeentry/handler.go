package timeentry

import (
	"context"
	"net/http"
	"time"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/core/common/validation"
	"github.com/frahmantamala/timetrack/internal/core/policy"
	"github.com/frahmantamala/timetrack/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, actor *auth.Actor, dto CreateTimeEntryDTO) (*TimeEntry, error)
	Update(ctx context.Context, actor *auth.Actor, id int64, dto UpdateTimeEntryDTO) (*TimeEntry, error)
	Destroy(ctx context.Context, actor *auth.Actor, id int64) error
	Get(ctx context.Context, actor *auth.Actor, id int64) (*TimeEntry, error)
	List(ctx context.Context, actor *auth.Actor, dto ListTimeEntriesDTO) (*TimeEntriesResponse, error)
}

// WriteGuard is the pre-action authorization run before a write reaches the service.
type WriteGuard interface {
	AuthorizeTimeEntryWrite(ctx context.Context, actor *auth.Actor, action policy.Action, entry *TimeEntry, changes Changes) (policy.Decision, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Guard   WriteGuard
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, guard WriteGuard) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Guard:       guard,
	}
}

func (h *Handler) CreateTimeEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrInvalidToken)
		return
	}

	var dto CreateTimeEntryDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}
	if appErr := validation.Struct(dto); appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	entry, appErr := dto.ToEntry(actor.ID, time.Now())
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}
	if !h.authorize(w, r, actor, policy.ActionCreate, entry, Diff(nil, entry)) {
		return
	}

	created, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateTimeEntry(w http.ResponseWriter, r *http.Request) {
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

	var dto UpdateTimeEntryDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	stored, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	changes, appErr := dto.Changes(stored)
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}
	if !h.authorize(w, r, actor, policy.ActionUpdate, stored, changes) {
		return
	}

	updated, err := h.Service.Update(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) DestroyTimeEntry(w http.ResponseWriter, r *http.Request) {
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

	stored, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if !h.authorize(w, r, actor, policy.ActionDestroy, stored, Changes{}) {
		return
	}

	if err := h.Service.Destroy(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetTimeEntry(w http.ResponseWriter, r *http.Request) {
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

	entry, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, entry)
}

// ListTimeEntries lists entries across projects, filtered by the query string.
func (h *Handler) ListTimeEntries(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, nil)
}

func (h *Handler) ListProjectTimeEntries(w http.ResponseWriter, r *http.Request) {
	projectID, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}
	h.list(w, r, &projectID)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, projectID *int64) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrInvalidToken)
		return
	}

	var dto ListTimeEntriesDTO
	if appErr := h.DecodeQuery(r, &dto); appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}
	if projectID != nil {
		dto.ProjectID = projectID
	}

	resp, err := h.Service.List(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, actor *auth.Actor, action policy.Action, entry *TimeEntry, changes Changes) bool {
	decision, err := h.Guard.AuthorizeTimeEntryWrite(r.Context(), actor, action, entry, changes)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return false
	}
	if !decision.Allowed {
		h.HandleServiceError(w, r, decision.Err())
		return false
	}
	return true
}
