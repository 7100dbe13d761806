package ledger

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/davidmreis/bizbook/internal/http/respond"
	"github.com/davidmreis/bizbook/internal/ledger"
)

type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) AccountRoutes(r chi.Router) {
	r.Post("/", h.createAccount)
	r.Get("/", h.listAccounts)
	r.Get("/{id}", h.getAccount)
	r.Get("/{id}/ledger", h.accountLedger)
	r.Get("/{id}/ledger/totals", h.accountTotals)
}

func (h *Handler) EntryRoutes(r chi.Router) {
	r.Post("/", h.addEntry)
	r.Delete("/{id}", h.deleteEntry)
	r.Patch("/{id}", h.updateEntry)
}

type createAccountRequest struct {
	Name           string             `json:"name"`
	Kind           ledger.AccountKind `json:"kind"`
	Phone          string             `json:"phone"`
	OpeningBalance int64              `json:"opening_balance"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	acc, err := h.svc.CreateAccount(r.Context(), ledger.CreateAccountParams{
		Name:           req.Name,
		Kind:           req.Kind,
		Phone:          req.Phone,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toAccountResponse(acc))
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	kind := ledger.AccountKind(r.URL.Query().Get("kind"))
	accounts := h.svc.ListAccounts(r.Context(), kind)

	resp := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		resp[i] = toAccountResponse(a)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	acc, err := h.svc.GetAccount(r.Context(), id)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, toAccountResponse(acc))
}

func (h *Handler) accountLedger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	entries, err := h.svc.AccountLedger(r.Context(), id)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, toEntryResponseList(entries))
}

func (h *Handler) accountTotals(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	entries, err := h.svc.AccountLedger(r.Context(), id)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, ledger.ComputeTotals(entries))
}

type addEntryRequest struct {
	AccountID       uuid.UUID            `json:"account_id"`
	Type            ledger.EntryType     `json:"type"`
	Debit           int64                `json:"debit"`
	Credit          int64                `json:"credit"`
	Description     string               `json:"description"`
	Date            time.Time            `json:"date"`
	ReferenceID     *uuid.UUID           `json:"reference_id,omitempty"`
	ReferenceNumber string               `json:"reference_number,omitempty"`
	Method          ledger.PaymentMethod `json:"payment_method,omitempty"`
	Notes           string               `json:"notes,omitempty"`
}

func (h *Handler) addEntry(w http.ResponseWriter, r *http.Request) {
	var req addEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.svc.AddEntry(r.Context(), ledger.AddEntryParams{
		AccountID:       req.AccountID,
		Type:            req.Type,
		Debit:           req.Debit,
		Credit:          req.Credit,
		Description:     req.Description,
		Date:            req.Date,
		ReferenceID:     req.ReferenceID,
		ReferenceNumber: req.ReferenceNumber,
		Method:          req.Method,
		Notes:           req.Notes,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

// deleteEntry recalculates every balance at or after the deleted position.
// Clients present this as a destructive, balance-altering operation.
func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.DeleteEntry(r.Context(), id); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	respond.Error(w, h.svc.UpdateEntry(r.Context(), id))
}
