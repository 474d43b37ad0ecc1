package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/armory/internal/lookup"
	"github.com/erazemk/armory/internal/model"
	"github.com/erazemk/armory/internal/qr"
	"github.com/erazemk/armory/internal/registry"
	"github.com/erazemk/armory/internal/store"
)

// PersonnelHandler handles personnel endpoints.
type PersonnelHandler struct {
	DB       *sql.DB
	Registry *registry.Registry
	QR       *qr.Service
}

type statusRequest struct {
	Status string `json:"status"`
}

type personResponse struct {
	*model.Person
	Class      string `json:"class"`
	HeldItemID string `json:"held_item_id,omitempty"`
}

// List handles GET /api/personnel.
func (h *PersonnelHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidPersonStatus(status) {
		writeError(w, r, model.NewValidationError("status", "must be Active or Inactive"))
		return
	}

	personnel, err := store.ListPersonnel(r.Context(), h.DB, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if personnel == nil {
		personnel = []model.Person{}
	}
	jsonResponse(w, http.StatusOK, personnel)
}

// Create handles POST /api/personnel.
func (h *PersonnelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.NewPerson
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.Registry.RegisterPerson(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, p)
}

// Get handles GET /api/personnel/{id}. The ID may also be a scanned token.
// The response names the item the person currently holds, if any.
func (h *PersonnelHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.person(w, r)
	if !ok {
		return
	}

	held, err := store.HeldItem(r.Context(), h.DB, p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, personResponse{Person: p, Class: p.Class(), HeldItemID: held})
}

// UpdateStatus handles PUT /api/personnel/{id}/status.
func (h *PersonnelHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := h.person(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := store.UpdatePersonStatus(r.Context(), h.DB, p.ID, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("personnel status updated", "user", claims.Username, "personnel", p.ID, "status", req.Status)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/personnel/{id}.
func (h *PersonnelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.person(w, r)
	if !ok {
		return
	}

	if err := store.DeletePerson(r.Context(), h.DB, p.ID); err != nil {
		writeError(w, r, err)
		return
	}
	h.QR.Discard(r.Context(), model.KindPersonnel, p.ID)

	claims := GetClaims(r.Context())
	slog.Info("personnel deleted", "user", claims.Username, "personnel", p.ID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "personnel deleted"})
}

// Transactions handles GET /api/personnel/{id}/transactions.
func (h *PersonnelHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.person(w, r)
	if !ok {
		return
	}

	f, err := parseTransactionFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.PersonID = p.ID

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

// QRImage handles GET /api/personnel/{id}/qr.
func (h *PersonnelHandler) QRImage(w http.ResponseWriter, r *http.Request) {
	p, ok := h.person(w, r)
	if !ok {
		return
	}
	serveQR(w, r, h.QR, model.KindPersonnel, p.ID)
}

func (h *PersonnelHandler) person(w http.ResponseWriter, r *http.Request) (*model.Person, bool) {
	p, err := lookup.ResolvePerson(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return p, true
}
