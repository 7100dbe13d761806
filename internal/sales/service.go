// Package sales records sales and posts the ledger side of credit sales.
package sales

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/davidmreis/bizbook/internal/errs"
	"github.com/davidmreis/bizbook/internal/ledger"
)

// Ledger is the slice of the ledger engine the sales service needs.
type Ledger interface {
	AddEntry(ctx context.Context, params ledger.AddEntryParams) (ledger.Entry, error)
}

type Service struct {
	store  ledger.Store
	ledger Ledger
	now    func() time.Time
}

func NewService(store ledger.Store, l Ledger) *Service {
	return &Service{store: store, ledger: l, now: time.Now}
}

type CreateParams struct {
	CustomerID uuid.UUID
	Number     string
	Total      int64
	Paid       int64
	Mode       ledger.SaleMode
	Date       time.Time
}

func (p CreateParams) validate() error {
	if p.CustomerID == uuid.Nil {
		return fmt.Errorf("%w: customer_id is required", errs.ErrValidation)
	}

	if p.Total <= 0 {
		return fmt.Errorf("%w: total must be positive", errs.ErrValidation)
	}

	if p.Paid < 0 || p.Paid > p.Total {
		return fmt.Errorf("%w: paid must be between 0 and total", errs.ErrValidation)
	}

	if p.Mode != ledger.ModeCash && p.Mode != ledger.ModeCredit {
		return fmt.Errorf("%w: unknown sale mode %q", errs.ErrValidation, p.Mode)
	}

	if p.Date.IsZero() {
		return fmt.Errorf("%w: date is required", errs.ErrValidation)
	}

	return nil
}

// Create stores the sale and, for credit sales with an outstanding amount,
// posts a referenced ledger entry debiting the customer. The entry id is
// linked back onto the sale; entry deletion later leaves that link dangling
// on purpose (orphan-tolerant).
func (s *Service) Create(ctx context.Context, params CreateParams) (ledger.Sale, error) {
	if err := params.validate(); err != nil {
		return ledger.Sale{}, err
	}

	sale := ledger.Sale{
		ID:         uuid.New(),
		CustomerID: params.CustomerID,
		Number:     params.Number,
		Total:      params.Total,
		Paid:       params.Paid,
		Mode:       params.Mode,
		Date:       params.Date,
		CreatedAt:  s.now(),
	}

	err := s.store.Update(ctx, func(snap *ledger.Snapshot) error {
		acc := snap.Account(params.CustomerID)
		if acc == nil || acc.Kind != ledger.KindCustomer {
			return fmt.Errorf("%w: customer %s", errs.ErrNotFound, params.CustomerID)
		}

		snap.Sales = append(snap.Sales, sale)

		return nil
	}, ledger.CollectionSales)
	if err != nil {
		return ledger.Sale{}, err
	}

	outstanding := params.Total - params.Paid
	if params.Mode != ledger.ModeCredit || outstanding == 0 {
		return sale, nil
	}

	entry, err := s.ledger.AddEntry(ctx, ledger.AddEntryParams{
		AccountID:       params.CustomerID,
		Type:            ledger.TypeSale,
		Debit:           outstanding,
		Description:     "Sale " + sale.Number,
		Date:            params.Date,
		ReferenceID:     &sale.ID,
		ReferenceNumber: sale.Number,
	})
	if err != nil {
		return ledger.Sale{}, fmt.Errorf("posting sale entry: %w", err)
	}

	err = s.store.Update(ctx, func(snap *ledger.Snapshot) error {
		for i := range snap.Sales {
			if snap.Sales[i].ID == sale.ID {
				snap.Sales[i].LedgerEntryID = &entry.ID
				sale = snap.Sales[i]

				return nil
			}
		}

		return fmt.Errorf("%w: sale %s", errs.ErrNotFound, sale.ID)
	}, ledger.CollectionSales)
	if err != nil {
		return ledger.Sale{}, err
	}

	return sale, nil
}

// List returns all sales, newest business date first.
func (s *Service) List(_ context.Context) []ledger.Sale {
	var out []ledger.Sale

	s.store.View(func(snap *ledger.Snapshot) {
		out = append(out, snap.Sales...)
	})

	slices.SortFunc(out, func(a, b ledger.Sale) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}

		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return out
}

// Get returns one sale by id.
func (s *Service) Get(_ context.Context, id uuid.UUID) (ledger.Sale, error) {
	var (
		sale  ledger.Sale
		found bool
	)

	s.store.View(func(snap *ledger.Snapshot) {
		for _, sl := range snap.Sales {
			if sl.ID == id {
				sale = sl
				found = true

				return
			}
		}
	})

	if !found {
		return ledger.Sale{}, fmt.Errorf("%w: sale %s", errs.ErrNotFound, id)
	}

	return sale, nil
}
