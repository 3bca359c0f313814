package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/models"
)

// PriceStorage implements interfaces.PriceStore using BadgerDB. Quotes are
// keyed by ticker and timestamp so the price history survives updates.
type PriceStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewPriceStorage creates price storage backed by BadgerDB.
func NewPriceStorage(db *BadgerDB, logger *common.Logger) *PriceStorage {
	return &PriceStorage{
		db:     db,
		logger: logger,
	}
}

func quoteKey(ticker string, asOf time.Time) string {
	return ticker + "|" + asOf.UTC().Format(time.RFC3339Nano)
}

// PutPrice stores a price quote.
func (s *PriceStorage) PutPrice(_ context.Context, quote models.PriceQuote) error {
	if err := s.db.Store().Upsert(quoteKey(quote.Ticker, quote.AsOf), &quote); err != nil {
		return fmt.Errorf("failed to store price for %s: %w", quote.Ticker, err)
	}
	return nil
}

// LatestPrice returns the most recent quote at or before asOf.
func (s *PriceStorage) LatestPrice(_ context.Context, ticker string, asOf time.Time) (*models.PriceQuote, error) {
	var quotes []models.PriceQuote
	query := badgerhold.Where("Ticker").Eq(ticker)
	if err := s.db.Store().Find(&quotes, query); err != nil {
		return nil, fmt.Errorf("failed to find prices for %s: %w", ticker, err)
	}

	var best *models.PriceQuote
	for i := range quotes {
		q := &quotes[i]
		if q.AsOf.After(asOf) {
			continue
		}
		if best == nil || q.AsOf.After(best.AsOf) {
			best = q
		}
	}
	if best == nil {
		return nil, fmt.Errorf("price for %s: %w", ticker, models.ErrNotFound)
	}
	return best, nil
}
