// Package syncapi exposes the sync engine's force-sync action and its
// per-collection status, the UI's proof of what has not yet reached the
// remote store.
package syncapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/davidmreis/bizbook/internal/http/respond"
	"github.com/davidmreis/bizbook/internal/ledger"
	"github.com/davidmreis/bizbook/internal/sync"
)

type Handler struct {
	engine *sync.Engine
}

func NewHandler(engine *sync.Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.forceSync)
	r.Get("/status", h.status)
}

type statusResponse struct {
	Pending     int                              `json:"pending"`
	Collections map[ledger.Collection]sync.State `json:"collections"`
}

func (h *Handler) forceSync(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ForceSync(r.Context()); err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, statusResponse{
		Pending:     h.engine.Pending(),
		Collections: h.engine.States(),
	})
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, statusResponse{
		Pending:     h.engine.Pending(),
		Collections: h.engine.States(),
	})
}
