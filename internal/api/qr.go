package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/armory/internal/model"
	"github.com/erazemk/armory/internal/qr"
)

// QRHandler handles QR image maintenance.
type QRHandler struct {
	QR *qr.Service
}

// Render handles POST /api/qr/{type}/{id}/render.
func (h *QRHandler) Render(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("type")
	if !model.ValidKind(kind) {
		writeError(w, r, model.NewValidationError("type", "must be personnel or item"))
		return
	}

	code, err := h.QR.Rerender(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, code)
}

func serveQR(w http.ResponseWriter, r *http.Request, svc *qr.Service, kind, id string) {
	img, err := svc.Image(r.Context(), kind, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", qr.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}
