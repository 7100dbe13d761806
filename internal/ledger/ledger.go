package ledger

import (
	"time"

	"github.com/google/uuid"
)

// EntryType represents the business meaning of a ledger entry.
type EntryType string

const (
	TypeSale           EntryType = "sale"
	TypePayment        EntryType = "payment"
	TypeCreditNote     EntryType = "credit_note"
	TypeOpeningBalance EntryType = "opening_balance"
	TypeAdjustment     EntryType = "adjustment"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case TypeSale, TypePayment, TypeCreditNote, TypeOpeningBalance, TypeAdjustment:
		return true
	}

	return false
}

// PaymentMethod is only meaningful on entries of TypePayment.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodBank     PaymentMethod = "bank_transfer"
	MethodCheque   PaymentMethod = "cheque"
	MethodMobile   PaymentMethod = "mobile_money"
	MethodCardSwap PaymentMethod = "card"
)

// AccountKind distinguishes the two ledgers the application keeps.
type AccountKind string

const (
	KindCustomer AccountKind = "customer"
	KindSupplier AccountKind = "supplier"
)

// Entry is one row in an account's history. Amounts are in cents.
//
// Entries are immutable once created: edits are delete+recreate, so that a
// Sale's reference to its entry can never point at silently changed data.
type Entry struct {
	ID          uuid.UUID  `json:"id"`
	AccountID   uuid.UUID  `json:"account_id"`
	AccountName string     `json:"account_name"`
	Type        EntryType  `json:"type"`
	Debit       int64      `json:"debit"`
	Credit      int64      `json:"credit"`
	Description string     `json:"description"`
	// Date is the user-settable business date; it may be backdated.
	Date time.Time `json:"date"`
	// CreatedAt is the true insertion time, used only to break ties between
	// entries sharing a business date. Never user-settable.
	CreatedAt time.Time `json:"created_at"`
	// RunningBalance is derived from the canonical order; it is rewritten on
	// every insert or delete and is never independently mutable.
	RunningBalance  int64         `json:"running_balance"`
	ReferenceID     *uuid.UUID    `json:"reference_id,omitempty"`
	ReferenceNumber string        `json:"reference_number,omitempty"`
	Method          PaymentMethod `json:"payment_method,omitempty"`
	Notes           string        `json:"notes,omitempty"`
}

// Account is a customer or supplier whose dealings the ledger tracks.
//
// Sign convention: a negative balance means the account owes money, a
// positive balance means it holds credit.
type Account struct {
	ID    uuid.UUID   `json:"id"`
	Name  string      `json:"name"`
	Kind  AccountKind `json:"kind"`
	Phone string      `json:"phone,omitempty"`
	// OpeningBalance is the balance the account carried before its first
	// ledger entry. It is the base of the running balance recurrence and
	// never changes after creation.
	OpeningBalance int64 `json:"opening_balance"`
	// Balance is the effective balance: OpeningBalance while the account has
	// no entries, otherwise the running balance of its last entry in
	// canonical order. Denormalized; rewritten after every recompute.
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// SaleMode says how a sale was settled.
type SaleMode string

const (
	ModeCash   SaleMode = "cash"
	ModeCredit SaleMode = "credit"
)

// Sale is a minimal sale record; credit sales post a referenced ledger
// entry for the outstanding amount.
type Sale struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Number     string    `json:"number"`
	Total      int64     `json:"total"`
	Paid       int64     `json:"paid"`
	Mode       SaleMode  `json:"mode"`
	Date       time.Time `json:"date"`
	// LedgerEntryID links the sale to the ledger entry it produced, if any.
	// Entry deletion is orphan-tolerant: a dangling id reads as "unlinked".
	LedgerEntryID *uuid.UUID `json:"ledger_entry_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Totals is a pure reduction over a set of entries. Net uses the
// filtered-window definition (credit minus debit over the set), which for a
// single full account ledger equals the last running balance but is NOT the
// authoritative balance for partial views.
type Totals struct {
	TotalDebit  int64 `json:"total_debit"`
	TotalCredit int64 `json:"total_credit"`
	Net         int64 `json:"net_balance"`
}
