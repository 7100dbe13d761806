package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidmreis/bizbook/internal/errs"
)

// Store is the mutation path into the snapshot owned by the sync engine.
// Every write the service performs goes through Update so the engine can
// count it as a pending mutation; the service never holds its own copy.
type Store interface {
	// Update applies fn to the snapshot under the write lock and, if fn
	// succeeds, marks the named collections dirty.
	Update(ctx context.Context, fn func(*Snapshot) error, collections ...Collection) error
	// View runs fn with read access to the snapshot.
	View(fn func(*Snapshot))
}

// Service is the ledger engine: pure, synchronous balance bookkeeping over
// the snapshot. It performs no I/O and surfaces only validation and
// not-found errors.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

type AddEntryParams struct {
	AccountID       uuid.UUID
	Type            EntryType
	Debit           int64
	Credit          int64
	Description     string
	Date            time.Time
	ReferenceID     *uuid.UUID
	ReferenceNumber string
	Method          PaymentMethod
	Notes           string
}

func (p AddEntryParams) validate() error {
	if p.AccountID == uuid.Nil {
		return fmt.Errorf("%w: account_id is required", errs.ErrValidation)
	}

	if !p.Type.Valid() {
		return fmt.Errorf("%w: unknown entry type %q", errs.ErrValidation, p.Type)
	}

	if p.Debit < 0 || p.Credit < 0 {
		return fmt.Errorf("%w: amounts must be non-negative", errs.ErrValidation)
	}

	if p.Debit == 0 && p.Credit == 0 {
		return fmt.Errorf("%w: entry must carry a debit or a credit", errs.ErrValidation)
	}

	if p.Date.IsZero() {
		return fmt.Errorf("%w: date is required", errs.ErrValidation)
	}

	return nil
}

// AddEntry inserts a new entry into the account's history and recomputes
// every running balance of that account. The entry's creation time is
// assigned here and is the tie-breaker for same-day entries.
func (s *Service) AddEntry(ctx context.Context, params AddEntryParams) (Entry, error) {
	if err := params.validate(); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:              uuid.New(),
		AccountID:       params.AccountID,
		Type:            params.Type,
		Debit:           params.Debit,
		Credit:          params.Credit,
		Description:     params.Description,
		Date:            params.Date,
		CreatedAt:       s.now(),
		ReferenceID:     params.ReferenceID,
		ReferenceNumber: params.ReferenceNumber,
		Notes:           params.Notes,
	}

	if params.Type == TypePayment {
		entry.Method = params.Method
	}

	var created Entry

	err := s.store.Update(ctx, func(snap *Snapshot) error {
		acc := snap.Account(params.AccountID)
		if acc == nil {
			return fmt.Errorf("%w: account %s", errs.ErrNotFound, params.AccountID)
		}

		entry.AccountName = acc.Name
		snap.Entries = append(snap.Entries, entry)
		snap.recomputeAccount(acc)

		if i := snap.EntryIndex(entry.ID); i >= 0 {
			created = snap.Entries[i]
		}

		return nil
	}, CollectionEntries, CollectionAccounts)
	if err != nil {
		return Entry{}, err
	}

	return created, nil
}

// DeleteEntry removes the entry and reprocesses the full remaining history
// of its account. Callers must surface this as a balance-altering operation:
// every balance at or after the deleted position changes.
func (s *Service) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	return s.store.Update(ctx, func(snap *Snapshot) error {
		i := snap.EntryIndex(id)
		if i < 0 {
			return fmt.Errorf("%w: entry %s", errs.ErrNotFound, id)
		}

		accountID := snap.Entries[i].AccountID
		snap.Entries = append(snap.Entries[:i], snap.Entries[i+1:]...)

		if acc := snap.Account(accountID); acc != nil {
			snap.recomputeAccount(acc)
		}

		return nil
	}, CollectionEntries, CollectionAccounts)
}

// UpdateEntry is rejected by design: an entry edit would silently invalidate
// Sale references to it. Delete and recreate instead.
func (s *Service) UpdateEntry(_ context.Context, id uuid.UUID) error {
	return fmt.Errorf("%w: entry %s is immutable, delete and recreate", errs.ErrUnsupported, id)
}

// AccountLedger returns the account's entries in canonical order.
func (s *Service) AccountLedger(_ context.Context, accountID uuid.UUID) ([]Entry, error) {
	var (
		entries []Entry
		found   bool
	)

	s.store.View(func(snap *Snapshot) {
		if snap.Account(accountID) != nil {
			found = true
			entries = snap.AccountEntries(accountID)
		}
	})

	if !found {
		return nil, fmt.Errorf("%w: account %s", errs.ErrNotFound, accountID)
	}

	return entries, nil
}

// ComputeTotals reduces a set of entries to window totals. Net is
// credit minus debit over the given set, not a running balance; for
// filtered views the two deliberately differ.
func ComputeTotals(entries []Entry) Totals {
	var t Totals
	for _, e := range entries {
		t.TotalDebit += e.Debit
		t.TotalCredit += e.Credit
	}

	t.Net = t.TotalCredit - t.TotalDebit

	return t
}

type CreateAccountParams struct {
	Name           string
	Kind           AccountKind
	Phone          string
	OpeningBalance int64
}

// CreateAccount registers a customer or supplier. The opening balance is the
// base of the running balance recurrence and is immutable afterwards.
func (s *Service) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	if strings.TrimSpace(params.Name) == "" {
		return Account{}, fmt.Errorf("%w: name is required", errs.ErrValidation)
	}

	if params.Kind != KindCustomer && params.Kind != KindSupplier {
		return Account{}, fmt.Errorf("%w: unknown account kind %q", errs.ErrValidation, params.Kind)
	}

	acc := Account{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(params.Name),
		Kind:           params.Kind,
		Phone:          params.Phone,
		OpeningBalance: params.OpeningBalance,
		Balance:        params.OpeningBalance,
		CreatedAt:      s.now(),
	}

	err := s.store.Update(ctx, func(snap *Snapshot) error {
		snap.Accounts = append(snap.Accounts, acc)
		return nil
	}, CollectionAccounts)
	if err != nil {
		return Account{}, err
	}

	return acc, nil
}

// GetAccount returns the account with its current effective balance.
func (s *Service) GetAccount(_ context.Context, id uuid.UUID) (Account, error) {
	var (
		acc   Account
		found bool
	)

	s.store.View(func(snap *Snapshot) {
		if a := snap.Account(id); a != nil {
			acc = *a
			found = true
		}
	})

	if !found {
		return Account{}, fmt.Errorf("%w: account %s", errs.ErrNotFound, id)
	}

	return acc, nil
}

// ListAccounts returns all accounts, optionally filtered by kind.
func (s *Service) ListAccounts(_ context.Context, kind AccountKind) []Account {
	var out []Account

	s.store.View(func(snap *Snapshot) {
		for _, a := range snap.Accounts {
			if kind != "" && a.Kind != kind {
				continue
			}

			out = append(out, a)
		}
	})

	return out
}
