package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"slices"

	"github.com/erazemk/armory/internal/lookup"
	"github.com/erazemk/armory/internal/model"
	"github.com/erazemk/armory/internal/qr"
	"github.com/erazemk/armory/internal/registry"
	"github.com/erazemk/armory/internal/store"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	DB       *sql.DB
	Registry *registry.Registry
	QR       *qr.Service
}

type updateItemRequest struct {
	Description string `json:"description"`
	Condition   string `json:"condition"`
}

type itemResponse struct {
	*model.Item
	Autofill *lookup.Consumables `json:"autofill,omitempty"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ItemFilter{Status: q.Get("status")}
	if f.Status != "" && !slices.Contains(model.ItemStatuses, f.Status) {
		writeError(w, r, model.NewValidationError("status", "unknown item status"))
		return
	}
	if t := q.Get("type"); t != "" {
		itemType, ok := model.CanonicalItemType(t)
		if !ok {
			writeError(w, r, model.NewValidationError("type", "unknown item type"))
			return
		}
		f.ItemType = itemType
	}

	items, err := store.ListItems(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.NewItem
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	it, err := h.Registry.RegisterItem(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, it)
}

// Get handles GET /api/items/{id}. The ID may also be a scanned token; with
// ?duty_type= the response suggests consumable quantities for the issue.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	it, ok := h.item(w, r)
	if !ok {
		return
	}

	resp := itemResponse{Item: it}
	if duty := r.URL.Query().Get("duty_type"); duty != "" {
		c := lookup.SuggestConsumables(it.ItemType, duty)
		resp.Autofill = &c
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	it, ok := h.item(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Condition == "" {
		req.Condition = it.Condition
	}

	updated, err := store.UpdateItemDetails(r.Context(), h.DB, it.ID, req.Description, req.Condition)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item updated", "user", claims.Username, "item", it.ID, "condition", updated.Condition)
	jsonResponse(w, http.StatusOK, updated)
}

// UpdateStatus handles PUT /api/items/{id}/status.
func (h *ItemsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	it, ok := h.item(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := store.SetAdministrativeStatus(r.Context(), h.DB, it.ID, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item status set", "user", claims.Username, "item", it.ID, "from", it.Status, "to", updated.Status)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	it, ok := h.item(w, r)
	if !ok {
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, it.ID); err != nil {
		writeError(w, r, err)
		return
	}
	h.QR.Discard(r.Context(), model.KindItem, it.ID)

	claims := GetClaims(r.Context())
	slog.Info("item deleted", "user", claims.Username, "item", it.ID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// Transactions handles GET /api/items/{id}/transactions.
func (h *ItemsHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	it, ok := h.item(w, r)
	if !ok {
		return
	}

	f, err := parseTransactionFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.ItemID = it.ID

	txns, err := store.ListTransactions(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, txns)
}

// QRImage handles GET /api/items/{id}/qr.
func (h *ItemsHandler) QRImage(w http.ResponseWriter, r *http.Request) {
	it, ok := h.item(w, r)
	if !ok {
		return
	}
	serveQR(w, r, h.QR, model.KindItem, it.ID)
}

func (h *ItemsHandler) item(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	it, err := lookup.ResolveItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return it, true
}
