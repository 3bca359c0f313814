package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-ledger/internal/models"
)

// LedgerService maintains the event-sourced tax-lot ledger.
type LedgerService interface {
	// RecordTransaction validates and commits a transaction. Buys open a
	// lot; sells deplete lots FIFO and attach the realized gain. The
	// returned mutation describes exactly what was applied.
	RecordTransaction(ctx context.Context, tx models.Transaction) (*models.LedgerMutation, error)

	// UpdateTransaction applies a partial update to a committed non-trade
	// transaction. Buys and sells are immutable and must be deleted and
	// re-entered.
	UpdateTransaction(ctx context.Context, id string, update models.TransactionUpdate) (*models.Transaction, error)

	// DeleteTransaction removes a transaction. Deleting a buy or sell
	// replays the pair's remaining trade history to rebuild its lots.
	DeleteTransaction(ctx context.Context, id string) error

	// Inventory returns the open quantity across all lots for a pair.
	Inventory(ctx context.Context, accountID, assetID string) (decimal.Decimal, error)
}

// ReportOptions configures one aggregation run.
type ReportOptions struct {
	AsOf      time.Time // zero = now
	AccountID string    // optional account filter
	// IncomeAsExternalFlow counts dividend/interest as external capital in
	// the portfolio-total money-weighted return.
	IncomeAsExternalFlow bool
}

// PerformanceService computes performance snapshots per lens partition.
type PerformanceService interface {
	Report(ctx context.Context, lens models.Lens, opts ReportOptions) (*models.PerformanceReport, error)
}
