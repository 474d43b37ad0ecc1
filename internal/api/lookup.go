package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/armory/internal/lookup"
	"github.com/erazemk/armory/internal/model"
)

// LookupHandler resolves scanned tokens and suggests consumables.
type LookupHandler struct {
	DB *sql.DB
}

type consumablesResponse struct {
	lookup.Consumables
	DutyTypes []string `json:"duty_types"`
}

// Resolve handles GET /api/lookup/{token}.
func (h *LookupHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	res, err := lookup.Resolve(r.Context(), h.DB, r.PathValue("token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// Consumables handles GET /api/consumables?item_type=&duty_type=. Combinations
// without a standard issue, unknown item types included, suggest zeros; the
// operator enters the counts by hand. The offered duty types are listed
// alongside.
func (h *LookupHandler) Consumables(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	jsonResponse(w, http.StatusOK, consumablesResponse{
		Consumables: lookup.SuggestConsumables(q.Get("item_type"), q.Get("duty_type")),
		DutyTypes:   model.DutyTypes,
	})
}
