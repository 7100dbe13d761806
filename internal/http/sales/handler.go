package sales

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/davidmreis/bizbook/internal/http/respond"
	"github.com/davidmreis/bizbook/internal/ledger"
	"github.com/davidmreis/bizbook/internal/sales"
)

type Handler struct {
	svc *sales.Service
}

func NewHandler(svc *sales.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
}

type createSaleRequest struct {
	CustomerID uuid.UUID       `json:"customer_id"`
	Number     string          `json:"number"`
	Total      int64           `json:"total"`
	Paid       int64           `json:"paid"`
	Mode       ledger.SaleMode `json:"mode"`
	Date       time.Time       `json:"date"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sale, err := h.svc.Create(r.Context(), sales.CreateParams{
		CustomerID: req.CustomerID,
		Number:     req.Number,
		Total:      req.Total,
		Paid:       req.Paid,
		Mode:       req.Mode,
		Date:       req.Date,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.svc.List(r.Context()))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	sale, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, sale)
}
