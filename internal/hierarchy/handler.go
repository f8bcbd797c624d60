package hierarchy

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/membership"
	"github.com/frahmantamala/timetrack/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	sync       *Synchronizer
	reconciler *Reconciler
	members    MembershipStore
}

func NewHandler(baseHandler *transport.BaseHandler, sync *Synchronizer, reconciler *Reconciler, members MembershipStore) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		sync:        sync,
		reconciler:  reconciler,
		members:     members,
	}
}

// SyncMembership runs synchronization for one membership on demand.
func (h *Handler) SyncMembership(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	m, err := h.members.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, membership.ErrNotFound) {
			h.WriteAppError(w, r, internal.NewNotFoundError(fmt.Sprintf("membership %d not found", id), internal.ErrCodeMembershipNotFound))
			return
		}
		h.HandleServiceError(w, r, err)
		return
	}

	res, err := h.sync.SyncHierarchyForManager(r.Context(), m)
	if err != nil {
		h.Logger.Error("on-demand synchronization incomplete", "member_id", id, "error", err)
		h.WriteAppError(w, r, internal.NewInternalError("hierarchy synchronization incomplete", err))
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.ReconcileAll(r.Context())
	if err != nil {
		h.Logger.Error("on-demand reconciliation incomplete", "error", err)
		h.WriteAppError(w, r, internal.NewInternalError("reconciliation incomplete", err))
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}
