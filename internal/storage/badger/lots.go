package badger

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/models"
)

// LotStorage implements interfaces.LotStore using BadgerDB. Mutations run
// inside a single Badger transaction so a sell's lot depletions commit
// together with the transaction row or not at all.
type LotStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewLotStorage creates tax-lot storage backed by BadgerDB.
func NewLotStorage(db *BadgerDB, logger *common.Logger) *LotStorage {
	return &LotStorage{
		db:     db,
		logger: logger,
	}
}

// OpenLots returns open lots for the pair in FIFO order.
func (s *LotStorage) OpenLots(ctx context.Context, accountID, assetID string) ([]models.TaxLot, error) {
	lots, err := s.AllLots(ctx, accountID, assetID)
	if err != nil {
		return nil, err
	}
	out := lots[:0]
	for _, lot := range lots {
		if lot.Open() {
			out = append(out, lot)
		}
	}
	return out, nil
}

// AllLots returns every lot for the pair in FIFO order, closed lots included.
func (s *LotStorage) AllLots(_ context.Context, accountID, assetID string) ([]models.TaxLot, error) {
	var lots []models.TaxLot
	query := badgerhold.Where("AccountID").Eq(accountID).And("AssetID").Eq(assetID)
	if err := s.db.Store().Find(&lots, query); err != nil {
		return nil, fmt.Errorf("failed to find lots for %s/%s: %w", accountID, assetID, err)
	}
	models.SortLotsFIFO(lots)
	return lots, nil
}

// ListLots returns every lot in the store.
func (s *LotStorage) ListLots(_ context.Context) ([]models.TaxLot, error) {
	var lots []models.TaxLot
	if err := s.db.Store().Find(&lots, nil); err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	models.SortLotsFIFO(lots)
	return lots, nil
}

// ApplyMutation writes the transaction row, the opened lot, and every lot
// depletion inside one Badger transaction.
func (s *LotStorage) ApplyMutation(_ context.Context, mut *models.LedgerMutation) error {
	store := s.db.Store()
	err := store.Badger().Update(func(txn *badgerdb.Txn) error {
		if err := store.TxUpsert(txn, mut.Transaction.ID, &mut.Transaction); err != nil {
			return fmt.Errorf("failed to store transaction %s: %w", mut.Transaction.ID, err)
		}
		if mut.OpenLot != nil {
			if err := store.TxUpsert(txn, mut.OpenLot.ID, mut.OpenLot); err != nil {
				return fmt.Errorf("failed to store lot %s: %w", mut.OpenLot.ID, err)
			}
		}
		for _, d := range mut.Depletions {
			var lot models.TaxLot
			if err := store.TxGet(txn, d.LotID, &lot); err != nil {
				if errors.Is(err, badgerhold.ErrNotFound) {
					return fmt.Errorf("depletion references lot %s: %w", d.LotID, models.ErrNotFound)
				}
				return fmt.Errorf("failed to load lot %s: %w", d.LotID, err)
			}
			lot.RemainingQuantity = d.Remaining
			if d.Closed {
				t := mut.Transaction.Date
				lot.ClosedAt = &t
			}
			if err := store.TxUpsert(txn, lot.ID, &lot); err != nil {
				return fmt.Errorf("failed to update lot %s: %w", lot.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug().
		Str("transaction_id", mut.Transaction.ID).
		Int("depletions", len(mut.Depletions)).
		Msg("Ledger mutation applied")
	return nil
}

// RebuildPair deletes the trade row, swaps the pair's lot set for the
// replayed one, and rewrites corrected sells inside one Badger transaction.
// A failure at any step rolls the whole correction back.
func (s *LotStorage) RebuildPair(_ context.Context, accountID, assetID, removeTxID string, lots []models.TaxLot, sells []models.Transaction) error {
	store := s.db.Store()
	err := store.Badger().Update(func(txn *badgerdb.Txn) error {
		if err := store.TxDelete(txn, removeTxID, models.Transaction{}); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return fmt.Errorf("transaction %s: %w", removeTxID, models.ErrNotFound)
			}
			return fmt.Errorf("failed to delete transaction %s: %w", removeTxID, err)
		}
		var existing []models.TaxLot
		query := badgerhold.Where("AccountID").Eq(accountID).And("AssetID").Eq(assetID)
		if err := store.TxFind(txn, &existing, query); err != nil {
			return fmt.Errorf("failed to find lots for %s/%s: %w", accountID, assetID, err)
		}
		for i := range existing {
			if err := store.TxDelete(txn, existing[i].ID, models.TaxLot{}); err != nil {
				return fmt.Errorf("failed to delete lot %s: %w", existing[i].ID, err)
			}
		}
		for i := range lots {
			if err := store.TxUpsert(txn, lots[i].ID, &lots[i]); err != nil {
				return fmt.Errorf("failed to store lot %s: %w", lots[i].ID, err)
			}
		}
		for i := range sells {
			if err := store.TxUpsert(txn, sells[i].ID, &sells[i]); err != nil {
				return fmt.Errorf("failed to update sell %s: %w", sells[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug().Str("account", accountID).Str("asset", assetID).
		Int("lots", len(lots)).Msg("Pair ledger rebuilt")
	return nil
}
