package ledger

import (
	"sort"

	"github.com/google/uuid"
)

// Collection names the entity collections held in a Snapshot. The sync
// engine tracks dirtiness and pending mutations per collection.
type Collection string

const (
	CollectionAccounts Collection = "accounts"
	CollectionSales    Collection = "sales"
	CollectionEntries  Collection = "entries"
)

// Collections lists every collection in serialization order.
var Collections = []Collection{CollectionAccounts, CollectionSales, CollectionEntries}

// Snapshot is the in-memory image of every entity collection. It is owned
// exclusively by the sync engine; all access goes through its Update/View
// methods.
type Snapshot struct {
	Accounts []Account `json:"accounts"`
	Sales    []Sale    `json:"sales"`
	Entries  []Entry   `json:"entries"`
}

// Account returns a pointer into the snapshot for in-place mutation, or nil.
func (s *Snapshot) Account(id uuid.UUID) *Account {
	for i := range s.Accounts {
		if s.Accounts[i].ID == id {
			return &s.Accounts[i]
		}
	}

	return nil
}

// EntryIndex returns the position of the entry in the snapshot, or -1.
func (s *Snapshot) EntryIndex(id uuid.UUID) int {
	for i := range s.Entries {
		if s.Entries[i].ID == id {
			return i
		}
	}

	return -1
}

// AccountEntries returns copies of the account's entries in canonical order.
func (s *Snapshot) AccountEntries(accountID uuid.UUID) []Entry {
	var out []Entry

	for i := range s.Entries {
		if s.Entries[i].AccountID == accountID {
			out = append(out, s.Entries[i])
		}
	}

	SortCanonical(out)

	return out
}

// SortCanonical orders entries ascending by business date, breaking ties by
// creation time and finally by id so the order is total. This is the only
// order in which running balances may be computed.
func SortCanonical(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}

		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}

		return a.ID.String() < b.ID.String()
	})
}

// Recompute rewrites RunningBalance over entries, which must already be in
// canonical order. Each entry's balance is the previous balance minus its
// debit plus its credit, starting from base. Idempotent.
func Recompute(entries []Entry, base int64) {
	balance := base
	for i := range entries {
		balance = balance - entries[i].Debit + entries[i].Credit
		entries[i].RunningBalance = balance
	}
}

// recomputeAccount reorders and rebalances one account's entries inside the
// snapshot and refreshes the account's effective balance. The relative order
// of other accounts' entries is untouched.
func (s *Snapshot) recomputeAccount(acc *Account) {
	entries := s.AccountEntries(acc.ID)
	Recompute(entries, acc.OpeningBalance)

	for _, e := range entries {
		if i := s.EntryIndex(e.ID); i >= 0 {
			s.Entries[i].RunningBalance = e.RunningBalance
		}
	}

	if len(entries) == 0 {
		acc.Balance = acc.OpeningBalance
		return
	}

	acc.Balance = entries[len(entries)-1].RunningBalance
}
