package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/armory/internal/lookup"
	"github.com/erazemk/armory/internal/metrics"
	"github.com/erazemk/armory/internal/model"
	"github.com/erazemk/armory/internal/store"
)

// TransactionsHandler handles ledger endpoints.
type TransactionsHandler struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

type createTransactionRequest struct {
	PersonID  string `json:"person_id"`
	ItemID    string `json:"item_id"`
	Action    string `json:"action"`
	Magazines *int   `json:"magazines"`
	Rounds    *int   `json:"rounds"`
	DutyType  string `json:"duty_type"`
	Notes     string `json:"notes"`
}

type createTransactionResponse struct {
	Transaction *model.Transaction `json:"transaction"`
	ItemStatus  string             `json:"item_status"`
}

// Create handles POST /api/transactions. Person and item may be given as
// IDs or scanned tokens.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	action, ok := model.CanonicalAction(req.Action)
	if !ok {
		h.reject(w, r, "unknown", model.NewValidationError("action", "must be Take or Return"))
		return
	}

	var missing []model.FieldError
	if req.PersonID == "" {
		missing = append(missing, model.FieldError{Field: "person_id", Message: "is required"})
	}
	if req.ItemID == "" {
		missing = append(missing, model.FieldError{Field: "item_id", Message: "is required"})
	}
	if len(missing) > 0 {
		h.reject(w, r, action, &model.ValidationError{Errors: missing})
		return
	}

	person, err := lookup.ResolvePerson(r.Context(), h.DB, req.PersonID)
	if err != nil {
		h.reject(w, r, action, err)
		return
	}
	item, err := lookup.ResolveItem(r.Context(), h.DB, req.ItemID)
	if err != nil {
		h.reject(w, r, action, err)
		return
	}

	meta := model.TransactionMeta{
		MagazineCount: req.Magazines,
		RoundCount:    req.Rounds,
		DutyType:      req.DutyType,
		Notes:         req.Notes,
	}
	if claims := GetClaims(r.Context()); claims != nil {
		meta.RecordedBy = &claims.UserID
	}

	txn, updated, err := store.RecordTransaction(r.Context(), h.DB, person.ID, item.ID, action, meta)
	if err != nil {
		h.reject(w, r, action, err)
		return
	}

	h.Metrics.Transaction(action, "ok")
	jsonResponse(w, http.StatusCreated, createTransactionResponse{
		Transaction: txn,
		ItemStatus:  updated.Status,
	})
}

func (h *TransactionsHandler) reject(w http.ResponseWriter, r *http.Request, action string, err error) {
	h.Metrics.Transaction(action, model.ErrorKind(err))
	writeError(w, r, err)
}

// List handles GET /api/transactions.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseTransactionFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	f.PersonID = q.Get("person_id")
	f.ItemID = q.Get("item_id")

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

// Get handles GET /api/transactions/{id}.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, model.NewValidationError("id", "must be a number"))
		return
	}

	txn, err := store.GetTransaction(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txn == nil {
		writeError(w, r, &model.NotFoundError{Kind: "transaction", ID: r.PathValue("id")})
		return
	}
	jsonResponse(w, http.StatusOK, txn)
}

// Custody handles GET /api/custody.
func (h *TransactionsHandler) Custody(w http.ResponseWriter, r *http.Request) {
	records, err := store.ListCustody(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []model.CustodyRecord{}
	}
	jsonResponse(w, http.StatusOK, records)
}

// parseTransactionFilter reads action, duty_type, from, to and limit.
// Dates are RFC 3339 timestamps or YYYY-MM-DD days; a day given as "to"
// covers the whole day.
func parseTransactionFilter(r *http.Request) (model.TransactionFilter, error) {
	q := r.URL.Query()
	var f model.TransactionFilter
	var errs []model.FieldError

	if a := q.Get("action"); a != "" {
		action, ok := model.CanonicalAction(a)
		if !ok {
			errs = append(errs, model.FieldError{Field: "action", Message: "must be Take or Return"})
		}
		f.Action = action
	}
	f.DutyType = q.Get("duty_type")

	if v := q.Get("from"); v != "" {
		t, _, err := parseDate(v)
		if err != nil {
			errs = append(errs, model.FieldError{Field: "from", Message: err.Error()})
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, day, err := parseDate(v)
		if err != nil {
			errs = append(errs, model.FieldError{Field: "to", Message: err.Error()})
		}
		if day {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, model.FieldError{Field: "limit", Message: "must be a non-negative number"})
		}
		f.Limit = n
	}

	if len(errs) > 0 {
		return f, &model.ValidationError{Errors: errs}
	}
	return f, nil
}

var errBadDate = errors.New("must be RFC 3339 or YYYY-MM-DD")

func parseDate(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), false, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, errBadDate
}
