package stock

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sunpower-services/invoicing-api/internal/common"
)

// Handler exposes the per-location stock snapshot endpoints.
type Handler struct {
	Service *Service
}

// Snapshot handles GET /api/v1/locations/{id}/stock. It serves the cached
// snapshot, building one on a miss.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "stock service not configured", nil)
		return
	}
	snap, err := h.Service.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": snap})
}

// Refresh handles POST /api/v1/locations/{id}/stock/refresh, forcing a
// rebuild regardless of cache state.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "stock service not configured", nil)
		return
	}
	snap, err := h.Service.Rebuild(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": snap})
}
