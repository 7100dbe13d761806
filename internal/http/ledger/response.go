package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidmreis/bizbook/internal/ledger"
)

type accountResponse struct {
	ID             uuid.UUID          `json:"id"`
	Name           string             `json:"name"`
	Kind           ledger.AccountKind `json:"kind"`
	Phone          string             `json:"phone,omitempty"`
	OpeningBalance int64              `json:"opening_balance"`
	Balance        int64              `json:"balance"`
	CreatedAt      time.Time          `json:"created_at"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID:             a.ID,
		Name:           a.Name,
		Kind:           a.Kind,
		Phone:          a.Phone,
		OpeningBalance: a.OpeningBalance,
		Balance:        a.Balance,
		CreatedAt:      a.CreatedAt,
	}
}

type entryResponse struct {
	ID              uuid.UUID            `json:"id"`
	AccountID       uuid.UUID            `json:"account_id"`
	AccountName     string               `json:"account_name"`
	Type            ledger.EntryType     `json:"type"`
	Debit           int64                `json:"debit"`
	Credit          int64                `json:"credit"`
	Description     string               `json:"description"`
	Date            time.Time            `json:"date"`
	CreatedAt       time.Time            `json:"created_at"`
	RunningBalance  int64                `json:"running_balance"`
	ReferenceID     *uuid.UUID           `json:"reference_id,omitempty"`
	ReferenceNumber string               `json:"reference_number,omitempty"`
	Method          ledger.PaymentMethod `json:"payment_method,omitempty"`
	Notes           string               `json:"notes,omitempty"`
}

func toEntryResponse(e ledger.Entry) entryResponse {
	return entryResponse{
		ID:              e.ID,
		AccountID:       e.AccountID,
		AccountName:     e.AccountName,
		Type:            e.Type,
		Debit:           e.Debit,
		Credit:          e.Credit,
		Description:     e.Description,
		Date:            e.Date,
		CreatedAt:       e.CreatedAt,
		RunningBalance:  e.RunningBalance,
		ReferenceID:     e.ReferenceID,
		ReferenceNumber: e.ReferenceNumber,
		Method:          e.Method,
		Notes:           e.Notes,
	}
}

func toEntryResponseList(entries []ledger.Entry) []entryResponse {
	resp := make([]entryResponse, len(entries))
	for i, e := range entries {
		resp[i] = toEntryResponse(e)
	}

	return resp
}
