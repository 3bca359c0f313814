// Package interfaces defines storage and service contracts for the ledger engine
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/models"
)

// StorageManager provides access to domain-specific storage interfaces.
// Implementations can be swapped (BadgerDB for the CLI, in-memory for
// embedding and tests).
type StorageManager interface {
	Transactions() TransactionStore
	Lots() LotStore
	Prices() PriceStore
	Assets() AssetMetaStore
	Close() error
}

// TransactionFilter narrows a transaction query. Zero values match everything.
type TransactionFilter struct {
	AccountID string
	AssetID   string
	From      time.Time
	To        time.Time
}

// TransactionStore persists the append-only transaction stream.
// Trade transactions are written through LotStore.ApplyMutation so the
// ledger side effects commit atomically with the row.
type TransactionStore interface {
	Put(ctx context.Context, tx *models.Transaction) error
	Get(ctx context.Context, id string) (*models.Transaction, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
}

// LotStore persists tax lots and applies ledger mutations atomically.
type LotStore interface {
	// OpenLots returns lots with remaining quantity for the pair,
	// ordered by purchase date then insertion sequence.
	OpenLots(ctx context.Context, accountID, assetID string) ([]models.TaxLot, error)

	// AllLots returns every lot ever opened for the pair, including closed ones.
	AllLots(ctx context.Context, accountID, assetID string) ([]models.TaxLot, error)

	// ListLots returns every lot in the store.
	ListLots(ctx context.Context) ([]models.TaxLot, error)

	// ApplyMutation applies a ledger mutation (transaction insert plus lot
	// creation/depletions) as one atomic unit. On error no state changes.
	ApplyMutation(ctx context.Context, mut *models.LedgerMutation) error

	// RebuildPair applies a trade deletion as one atomic unit: the removed
	// transaction row, the pair's replayed lot set, and the sells whose
	// realized gain changed all commit together or not at all.
	RebuildPair(ctx context.Context, accountID, assetID, removeTxID string, lots []models.TaxLot, sells []models.Transaction) error
}

// PriceStore persists the most recent known price per ticker.
type PriceStore interface {
	PutPrice(ctx context.Context, quote models.PriceQuote) error

	// LatestPrice returns the most recent quote at or before asOf.
	// Returns models.ErrNotFound (wrapped) when no price is known.
	LatestPrice(ctx context.Context, ticker string, asOf time.Time) (*models.PriceQuote, error)
}

// AssetMetaStore persists grouping metadata for assets.
type AssetMetaStore interface {
	PutAsset(ctx context.Context, meta *models.AssetMeta) error
	GetAsset(ctx context.Context, assetID string) (*models.AssetMeta, error)
}
