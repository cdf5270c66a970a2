package handler

import (
	"net/http"

	"github.com/evant/instance-state/internal/infra/buildinfo"
)

// handleVersion handles GET /v1/version.
func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, buildinfo.Get())
}

// handleStateStatus handles GET /v1/state.
func (h *Handler) handleStateStatus(w http.ResponseWriter, r *http.Request) {
	resp := StateStatusResponse{
		StoreStats: h.store.Stats(),
		Backend:    "none",
		Build:      buildinfo.Get(),
	}
	if h.lifecycle != nil {
		resp.Backend = h.lifecycle.Backend()
		if t := h.lifecycle.LastPersist(); !t.IsZero() {
			resp.LastPersist = &t
		}
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// handleSnapshot handles GET /v1/state/save.
func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	h.writeJSON(w, r, http.StatusOK, SnapshotResponse{
		Keys:    len(snap),
		Entries: snap,
	})
}

// handlePersist handles POST /v1/state/persist.
func (h *Handler) handlePersist(w http.ResponseWriter, r *http.Request) {
	if h.lifecycle == nil {
		h.writeJSON(w, r, http.StatusOK, PersistResponse{Backend: "none"})
		return
	}

	n, err := h.lifecycle.Persist(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, PersistResponse{
		Backend: h.lifecycle.Backend(),
		Keys:    n,
	})
}
