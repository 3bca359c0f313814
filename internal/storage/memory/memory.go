// Package memory provides an in-memory StorageManager for embedding the
// engine without BadgerDB and for tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/models"
)

// Compile-time interface check
var _ interfaces.StorageManager = (*Manager)(nil)

// Manager implements StorageManager with maps guarded by one RWMutex.
// ApplyMutation validates every referenced lot before touching state, so
// a failed mutation leaves the ledger unchanged.
type Manager struct {
	mu     sync.RWMutex
	txs    map[string]models.Transaction
	lots   map[string]models.TaxLot
	quotes map[string][]models.PriceQuote
	assets map[string]models.AssetMeta
	logger *common.Logger
}

// NewManager creates an empty in-memory storage manager.
func NewManager(logger *common.Logger) *Manager {
	return &Manager{
		txs:    make(map[string]models.Transaction),
		lots:   make(map[string]models.TaxLot),
		quotes: make(map[string][]models.PriceQuote),
		assets: make(map[string]models.AssetMeta),
		logger: logger,
	}
}

func (m *Manager) Transactions() interfaces.TransactionStore { return (*transactionStore)(m) }
func (m *Manager) Lots() interfaces.LotStore                 { return (*lotStore)(m) }
func (m *Manager) Prices() interfaces.PriceStore             { return (*priceStore)(m) }
func (m *Manager) Assets() interfaces.AssetMetaStore         { return (*assetStore)(m) }

// Close is a no-op for the in-memory backend.
func (m *Manager) Close() error { return nil }

// --- TransactionStore ---

type transactionStore Manager

func (s *transactionStore) Put(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[tx.ID] = *tx
	return nil
}

func (s *transactionStore) Get(_ context.Context, id string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, models.ErrNotFound)
	}
	return &tx, nil
}

func (s *transactionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, models.ErrNotFound)
	}
	delete(s.txs, id)
	return nil
}

func (s *transactionStore) List(_ context.Context, filter interfaces.TransactionFilter) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Transaction
	for _, tx := range s.txs {
		if matchesFilter(&tx, filter) {
			out = append(out, tx)
		}
	}
	sortTransactionsByDate(out)
	return out, nil
}

func matchesFilter(tx *models.Transaction, f interfaces.TransactionFilter) bool {
	if f.AccountID != "" && tx.AccountID != f.AccountID {
		return false
	}
	if f.AssetID != "" && tx.AssetID != f.AssetID {
		return false
	}
	if !f.From.IsZero() && tx.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To) {
		return false
	}
	return true
}

func sortTransactionsByDate(txs []models.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date.Equal(txs[j].Date) {
			return txs[i].CreatedAt.Before(txs[j].CreatedAt)
		}
		return txs[i].Date.Before(txs[j].Date)
	})
}

// --- LotStore ---

type lotStore Manager

func (s *lotStore) OpenLots(_ context.Context, accountID, assetID string) ([]models.TaxLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TaxLot
	for _, lot := range s.lots {
		if lot.AccountID == accountID && lot.AssetID == assetID && lot.Open() {
			out = append(out, lot)
		}
	}
	models.SortLotsFIFO(out)
	return out, nil
}

func (s *lotStore) AllLots(_ context.Context, accountID, assetID string) ([]models.TaxLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TaxLot
	for _, lot := range s.lots {
		if lot.AccountID == accountID && lot.AssetID == assetID {
			out = append(out, lot)
		}
	}
	models.SortLotsFIFO(out)
	return out, nil
}

func (s *lotStore) ListLots(_ context.Context) ([]models.TaxLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TaxLot, 0, len(s.lots))
	for _, lot := range s.lots {
		out = append(out, lot)
	}
	models.SortLotsFIFO(out)
	return out, nil
}

func (s *lotStore) ApplyMutation(_ context.Context, mut *models.LedgerMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate everything up front; nothing is written on failure.
	for _, d := range mut.Depletions {
		lot, ok := s.lots[d.LotID]
		if !ok {
			return fmt.Errorf("depletion references lot %s: %w", d.LotID, models.ErrNotFound)
		}
		if d.Remaining.IsNegative() || d.Remaining.GreaterThan(lot.Quantity) {
			return fmt.Errorf("depletion of lot %s leaves invalid remaining %s", d.LotID, d.Remaining)
		}
	}

	s.txs[mut.Transaction.ID] = mut.Transaction
	if mut.OpenLot != nil {
		s.lots[mut.OpenLot.ID] = *mut.OpenLot
	}
	for _, d := range mut.Depletions {
		lot := s.lots[d.LotID]
		lot.RemainingQuantity = d.Remaining
		if d.Closed {
			t := mut.Transaction.Date
			lot.ClosedAt = &t
		}
		s.lots[d.LotID] = lot
	}
	return nil
}

// RebuildPair applies a trade deletion under one lock so the row removal,
// lot swap, and sell corrections land together. The removed transaction is
// checked before any write; a missing row leaves the store untouched.
func (s *lotStore) RebuildPair(_ context.Context, accountID, assetID, removeTxID string, lots []models.TaxLot, sells []models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[removeTxID]; !ok {
		return fmt.Errorf("transaction %s: %w", removeTxID, models.ErrNotFound)
	}
	delete(s.txs, removeTxID)
	for id, lot := range s.lots {
		if lot.AccountID == accountID && lot.AssetID == assetID {
			delete(s.lots, id)
		}
	}
	for i := range lots {
		s.lots[lots[i].ID] = lots[i]
	}
	for i := range sells {
		s.txs[sells[i].ID] = sells[i]
	}
	return nil
}

// --- PriceStore ---

type priceStore Manager

func (s *priceStore) PutPrice(_ context.Context, quote models.PriceQuote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[quote.Ticker] = append(s.quotes[quote.Ticker], quote)
	return nil
}

func (s *priceStore) LatestPrice(_ context.Context, ticker string, asOf time.Time) (*models.PriceQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *models.PriceQuote
	for i := range s.quotes[ticker] {
		q := s.quotes[ticker][i]
		if q.AsOf.After(asOf) {
			continue
		}
		if best == nil || q.AsOf.After(best.AsOf) {
			best = &q
		}
	}
	if best == nil {
		return nil, fmt.Errorf("price for %s: %w", ticker, models.ErrNotFound)
	}
	return best, nil
}

// --- AssetMetaStore ---

type assetStore Manager

func (s *assetStore) PutAsset(_ context.Context, meta *models.AssetMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[meta.AssetID] = *meta
	return nil
}

func (s *assetStore) GetAsset(_ context.Context, assetID string) (*models.AssetMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", assetID, models.ErrNotFound)
	}
	return &meta, nil
}
