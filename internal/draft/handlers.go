package draft

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sunpower-services/invoicing-api/internal/common"
	"github.com/sunpower-services/invoicing-api/internal/pricing"
)

// Handler exposes the draft composition endpoints.
type Handler struct {
	Service *Service
}

// Routes mounts the draft endpoints on r. submitMiddleware wraps only the
// submission endpoint (idempotency + rate limiting).
func (h *Handler) Routes(r chi.Router, submitMiddleware ...func(http.Handler) http.Handler) {
	r.Post("/", h.CreateDraft)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetDraft)
		r.Delete("/", h.DeleteDraft)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{index}", h.EditItem)
		r.Delete("/items/{index}", h.RemoveItem)
		r.Put("/location", h.SetLocation)
		r.Put("/discount", h.SetDiscount)
		r.Put("/charges", h.SetCharges)
		r.Put("/buyback", h.SetBuyBack)
		r.Put("/customer", h.SetCustomer)
		r.Put("/notes", h.SetNotes)
		r.With(submitMiddleware...).Post("/submit", h.Submit)
	})
}

type createDraftRequest struct {
	DocType string `json:"invoiceType"`
}

// CreateDraft handles POST /api/v1/drafts.
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	d, err := h.Service.Create(r.Context(), DocType(req.DocType))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": d})
}

// GetDraft handles GET /api/v1/drafts/{id}.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": d})
}

// DeleteDraft handles DELETE /api/v1/drafts/{id}, discarding an abandoned
// draft.
func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Discard(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /api/v1/drafts/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.Apply(r.Context(), chi.URLParam(r, "id"), AddItem{})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": d})
}

type editItemRequest struct {
	Product   *string          `json:"product,omitempty"`
	Quantity  *int64           `json:"quantity,omitempty"`
	Increment bool             `json:"increment,omitempty"`
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
	Discount  *decimal.Decimal `json:"discount,omitempty"`
}

// EditItem handles PATCH /api/v1/drafts/{id}/items/{index}. Exactly the
// fields present in the body are applied, each as its own reducer action, in
// the order a user would fill the row.
func (h *Handler) EditItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "item index must be an integer", nil)
		return
	}
	var req editItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}

	var d Draft
	applied := false
	ctx := r.Context()
	if req.Product != nil {
		if d, err = h.Service.SelectProduct(ctx, id, index, *req.Product); err != nil {
			h.writeError(w, err)
			return
		}
		applied = true
	}
	if req.Quantity != nil {
		if d, err = h.Service.Apply(ctx, id, SetQuantity{Index: index, Quantity: *req.Quantity, Increment: req.Increment}); err != nil {
			h.writeError(w, err)
			return
		}
		applied = true
	}
	if req.UnitPrice != nil {
		if d, err = h.Service.Apply(ctx, id, SetUnitPrice{Index: index, Price: *req.UnitPrice}); err != nil {
			h.writeError(w, err)
			return
		}
		applied = true
	}
	if req.Discount != nil {
		if d, err = h.Service.Apply(ctx, id, SetDiscount{Index: index, Percent: *req.Discount}); err != nil {
			h.writeError(w, err)
			return
		}
		applied = true
	}
	if !applied {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "no editable field in request body", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": d})
}

// RemoveItem handles DELETE /api/v1/drafts/{id}/items/{index}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "item index must be an integer", nil)
		return
	}
	d, err := h.Service.Apply(r.Context(), chi.URLParam(r, "id"), RemoveItem{Index: index})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": d})
}

// SetLocation handles PUT /api/v1/drafts/{id}/location.
func (h *Handler) SetLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	d, err := h.Service.SetLocation(r.Context(), chi.URLParam(r, "id"), req.Location)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": d})
}

// SetDiscount handles PUT /api/v1/drafts/{id}/discount.
func (h *Handler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Percent decimal.Decimal `json:"percent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	d, err := h.Service.Apply(r.Context(), chi.URLParam(r, "id"), SetOverallDiscount{Percent: req.Percent})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": d})
}

// SetCharges handles PUT /api/v1/drafts/{id}/charges.
func (h *Handler) SetCharges(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Charges []pricing.ServiceCharge `json:"serviceCharges"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	d, err := h.Service.Apply(r.Context(), chi.URLParam(r, "id"), SetServiceCharges{Charges: req.Charges})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": d})
}

// SetBuyBack handles PUT /api/v1/drafts/{id}/buyback. A null body field
// clears the deduction.
func (h *Handler) SetBuyBack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BuyBack *pricing.BuyBack `json:"batteryBuyBack"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	d, err := h.Service.Apply(r.Context(), chi.URLParam(r, "id"), SetBuyBack{BuyBack: req.BuyBack})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": d})
}

// SetCustomer handles PUT /api/v1/drafts/{id}/customer.
func (h *Handler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Customer string `json:"customer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	d, err := h.Service.SetCustomer(r.Context(), chi.URLParam(r, "id"), req.Customer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": d})
}

// SetNotes handles PUT /api/v1/drafts/{id}/notes.
func (h *Handler) SetNotes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	d, err := h.Service.Apply(r.Context(), chi.URLParam(r, "id"), SetNotes{Notes: req.Notes})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": d})
}

// Submit handles POST /api/v1/drafts/{id}/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "draft not found", nil)
	case errors.Is(err, ErrConflict):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "draft was modified concurrently", nil)
	case errors.Is(err, ErrRowIndex):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrZeroQuantity), errors.Is(err, ErrSalesOnly), errors.Is(err, ErrLocationMissing):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_EDIT", err.Error(), nil)
	default:
		common.WriteError(w, err)
	}
}
