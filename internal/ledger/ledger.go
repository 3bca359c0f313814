// Package ledger maintains the event-sourced tax-lot inventory: buys open
// lots, sells deplete them strictly oldest-purchase-first (FIFO), and every
// committed trade carries its realized gain computed once at sell time.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/models"
)

// Compile-time interface check
var _ interfaces.LedgerService = (*Service)(nil)

// Service implements LedgerService.
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per (account, asset) pair
}

// NewService creates a new ledger service.
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// pairLock returns the mutex serializing writes for one (account, asset)
// pair. Two concurrent sells against the same open-lot set must not both
// read the same remaining quantity and over-deplete it.
func (s *Service) pairLock(accountID, assetID string) *sync.Mutex {
	key := accountID + "|" + assetID
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// generateTransactionID returns a unique ID with "tx_" prefix + 8 hex chars.
func generateTransactionID() string {
	return "tx_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// generateLotID returns a unique ID with "lot_" prefix + 8 hex chars.
func generateLotID() string {
	return "lot_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// RecordTransaction validates and commits a transaction. The transaction
// insert and any lot creation or depletion are applied as one atomic unit;
// on failure no state changes.
func (s *Service) RecordTransaction(ctx context.Context, tx models.Transaction) (*models.LedgerMutation, error) {
	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transaction: %w", err)
	}

	now := time.Now()
	if tx.ID == "" {
		tx.ID = generateTransactionID()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now

	var mut *models.LedgerMutation
	var err error

	switch tx.Type {
	case models.TxBuy:
		mut, err = s.processBuy(ctx, tx)
	case models.TxSell:
		mut, err = s.processSell(ctx, tx)
	default:
		mut = &models.LedgerMutation{Transaction: tx}
		err = s.storage.Lots().ApplyMutation(ctx, mut)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("id", tx.ID).Str("type", string(tx.Type)).
		Str("account", tx.AccountID).Str("asset", tx.AssetID).
		Str("amount", tx.Amount.String()).Msg("Transaction recorded")
	return mut, nil
}

// processBuy opens exactly one lot for the buy and commits it with the
// transaction row.
func (s *Service) processBuy(ctx context.Context, tx models.Transaction) (*models.LedgerMutation, error) {
	lock := s.pairLock(tx.AccountID, tx.AssetID)
	lock.Lock()
	defer lock.Unlock()

	all, err := s.storage.Lots().AllLots(ctx, tx.AccountID, tx.AssetID)
	if err != nil {
		return nil, fmt.Errorf("failed to read lots for %s/%s: %w", tx.AccountID, tx.AssetID, err)
	}

	lot, err := buildLot(&tx, nextSeq(all))
	if err != nil {
		return nil, err
	}

	mut := &models.LedgerMutation{Transaction: tx, OpenLot: lot}
	if err := s.storage.Lots().ApplyMutation(ctx, mut); err != nil {
		return nil, fmt.Errorf("failed to commit buy %s: %w", tx.ID, err)
	}
	return mut, nil
}

// processSell depletes open lots FIFO and attaches the realized gain to the
// transaction before committing. All-or-nothing: if the open lots cannot
// cover the quantity, nothing is written.
func (s *Service) processSell(ctx context.Context, tx models.Transaction) (*models.LedgerMutation, error) {
	lock := s.pairLock(tx.AccountID, tx.AssetID)
	lock.Lock()
	defer lock.Unlock()

	open, err := s.storage.Lots().OpenLots(ctx, tx.AccountID, tx.AssetID)
	if err != nil {
		return nil, fmt.Errorf("failed to read open lots for %s/%s: %w", tx.AccountID, tx.AssetID, err)
	}

	depletions, basisSold, err := depleteFIFO(open, tx.Quantity, tx.AccountID, tx.AssetID)
	if err != nil {
		return nil, err
	}

	// realized = (quantity*price - fees) - basis sold
	proceeds := tx.Quantity.Mul(tx.PricePerUnit).Sub(tx.Fees)
	realized := proceeds.Sub(basisSold)
	tx.RealizedGain = &realized

	mut := &models.LedgerMutation{
		Transaction:  tx,
		Depletions:   depletions,
		BasisSold:    basisSold,
		RealizedGain: &realized,
	}
	if err := s.storage.Lots().ApplyMutation(ctx, mut); err != nil {
		return nil, fmt.Errorf("failed to commit sell %s: %w", tx.ID, err)
	}
	return mut, nil
}

// buildLot creates the tax lot a buy opens. Buy fees are capitalized into
// the cost basis.
func buildLot(tx *models.Transaction, seq int64) (*models.TaxLot, error) {
	if !tx.Quantity.IsPositive() {
		return nil, &models.ValidationError{Field: "quantity", Reason: "quantity must be positive"}
	}
	basisPerUnit := tx.Amount.Add(tx.Fees).Div(tx.Quantity)
	if !basisPerUnit.IsPositive() {
		return nil, &models.ValidationError{Field: "cost_basis_per_unit", Reason: "cost basis must be positive"}
	}
	return &models.TaxLot{
		ID:                generateLotID(),
		AccountID:         tx.AccountID,
		AssetID:           tx.AssetID,
		PurchaseDate:      tx.Date,
		Quantity:          tx.Quantity,
		CostBasisPerUnit:  basisPerUnit,
		RemainingQuantity: tx.Quantity,
		Seq:               seq,
	}, nil
}

// nextSeq returns the next insertion sequence for a pair's lots.
func nextSeq(lots []models.TaxLot) int64 {
	var max int64
	for i := range lots {
		if lots[i].Seq > max {
			max = lots[i].Seq
		}
	}
	return max + 1
}

// depleteFIFO computes the depletions needed to cover quantity from the
// open lots, oldest purchase first. It operates on the callers' view only;
// no lot is mutated here, so a failure leaves the ledger untouched.
func depleteFIFO(open []models.TaxLot, quantity decimal.Decimal, accountID, assetID string) ([]models.LotDepletion, decimal.Decimal, error) {
	models.SortLotsFIFO(open)

	available := decimal.Zero
	for i := range open {
		available = available.Add(open[i].RemainingQuantity)
	}
	if quantity.GreaterThan(available) {
		return nil, decimal.Zero, &models.InsufficientInventoryError{
			AccountID: accountID,
			AssetID:   assetID,
			Requested: quantity,
			Available: available,
		}
	}

	remaining := quantity
	basisSold := decimal.Zero
	var depletions []models.LotDepletion

	for i := range open {
		if !remaining.IsPositive() {
			break
		}
		lot := &open[i]
		take := decimal.Min(remaining, lot.RemainingQuantity)
		if !take.IsPositive() {
			continue
		}
		after := lot.RemainingQuantity.Sub(take)
		basis := take.Mul(lot.CostBasisPerUnit)
		basisSold = basisSold.Add(basis)
		depletions = append(depletions, models.LotDepletion{
			LotID:     lot.ID,
			Quantity:  take,
			Remaining: after,
			BasisSold: basis,
			Closed:    after.IsZero(),
		})
		remaining = remaining.Sub(take)
	}

	return depletions, basisSold, nil
}

// Inventory returns the open quantity across all lots for the pair.
func (s *Service) Inventory(ctx context.Context, accountID, assetID string) (decimal.Decimal, error) {
	open, err := s.storage.Lots().OpenLots(ctx, accountID, assetID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read open lots for %s/%s: %w", accountID, assetID, err)
	}
	total := decimal.Zero
	for i := range open {
		total = total.Add(open[i].RemainingQuantity)
	}
	return total, nil
}

// UpdateTransaction applies a partial update to a committed non-trade
// transaction. Nil patch fields keep their current value, so an explicit
// zero clears fees or notes. Trades are immutable: their lot side effects
// cannot be re-derived in place, so they must be deleted and re-entered.
func (s *Service) UpdateTransaction(ctx context.Context, id string, update models.TransactionUpdate) (*models.Transaction, error) {
	existing, err := s.storage.Transactions().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Type.IsTrade() {
		return nil, fmt.Errorf("transaction %s is a %s: %w", id, existing.Type, models.ErrTransactionImmutable)
	}

	if update.Date != nil {
		existing.Date = *update.Date
	}
	if update.Amount != nil {
		existing.Amount = *update.Amount
	}
	if update.Fees != nil {
		existing.Fees = *update.Fees
	}
	if update.Notes != nil {
		existing.Notes = *update.Notes
	}
	existing.UpdatedAt = time.Now()

	if err := existing.Validate(); err != nil {
		return nil, fmt.Errorf("invalid update: %w", err)
	}
	if err := s.storage.Transactions().Put(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update transaction %s: %w", id, err)
	}

	s.logger.Info().Str("id", id).Msg("Transaction updated")
	return existing, nil
}

// DeleteTransaction removes a transaction. Deleting a trade replays the
// pair's remaining trade history so the lot set and realized gains reflect
// the corrected stream.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	existing, err := s.storage.Transactions().Get(ctx, id)
	if err != nil {
		return err
	}

	if !existing.Type.IsTrade() {
		if err := s.storage.Transactions().Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete transaction %s: %w", id, err)
		}
		s.logger.Info().Str("id", id).Msg("Transaction deleted")
		return nil
	}

	lock := s.pairLock(existing.AccountID, existing.AssetID)
	lock.Lock()
	defer lock.Unlock()

	// Replay the pair's trades without the deleted one. A sell that can no
	// longer be covered rejects the deletion before anything is written.
	trades, err := s.pairTrades(ctx, existing.AccountID, existing.AssetID, id)
	if err != nil {
		return err
	}
	lots, updatedSells, err := replayTrades(trades, existing.AccountID, existing.AssetID)
	if err != nil {
		return fmt.Errorf("cannot delete %s: replay of remaining trades failed: %w", id, err)
	}

	// One storage transaction: the row removal, the rebuilt lot set, and
	// the corrected sells commit together or not at all.
	if err := s.storage.Lots().RebuildPair(ctx, existing.AccountID, existing.AssetID, id, lots, updatedSells); err != nil {
		return fmt.Errorf("failed to rebuild pair %s/%s: %w", existing.AccountID, existing.AssetID, err)
	}

	s.logger.Info().Str("id", id).Str("account", existing.AccountID).
		Str("asset", existing.AssetID).Int("lots", len(lots)).
		Msg("Trade deleted, pair ledger rebuilt")
	return nil
}

// pairTrades returns the pair's buy/sell transactions in date order,
// excluding excludeID. Same-date trades keep creation order.
func (s *Service) pairTrades(ctx context.Context, accountID, assetID, excludeID string) ([]models.Transaction, error) {
	txs, err := s.storage.Transactions().List(ctx, interfaces.TransactionFilter{
		AccountID: accountID,
		AssetID:   assetID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list trades for %s/%s: %w", accountID, assetID, err)
	}

	var trades []models.Transaction
	for _, tx := range txs {
		if tx.ID == excludeID || !tx.Type.IsTrade() {
			continue
		}
		trades = append(trades, tx)
	}
	sort.SliceStable(trades, func(i, j int) bool {
		if trades[i].Date.Equal(trades[j].Date) {
			return trades[i].CreatedAt.Before(trades[j].CreatedAt)
		}
		return trades[i].Date.Before(trades[j].Date)
	})
	return trades, nil
}

// replayTrades rebuilds the pair's lot set from a trade stream and
// recomputes the realized gain on every sell. Returns the final lots and
// the sells whose realized gain changed.
func replayTrades(trades []models.Transaction, accountID, assetID string) ([]models.TaxLot, []models.Transaction, error) {
	var lots []models.TaxLot
	var updatedSells []models.Transaction
	var seq int64

	for _, tx := range trades {
		switch tx.Type {
		case models.TxBuy:
			seq++
			lot, err := buildLot(&tx, seq)
			if err != nil {
				return nil, nil, err
			}
			lots = append(lots, *lot)
		case models.TxSell:
			var open []models.TaxLot
			for i := range lots {
				if lots[i].Open() {
					open = append(open, lots[i])
				}
			}
			depletions, basisSold, err := depleteFIFO(open, tx.Quantity, accountID, assetID)
			if err != nil {
				return nil, nil, err
			}
			applyDepletions(lots, depletions, tx.Date)

			realized := tx.Quantity.Mul(tx.PricePerUnit).Sub(tx.Fees).Sub(basisSold)
			if tx.RealizedGain == nil || !tx.RealizedGain.Equal(realized) {
				tx.RealizedGain = &realized
				updatedSells = append(updatedSells, tx)
			}
		}
	}
	return lots, updatedSells, nil
}

// applyDepletions writes depletion results back onto the lot slice.
// Fully depleted lots are zeroed and stamped closed, never removed.
func applyDepletions(lots []models.TaxLot, depletions []models.LotDepletion, soldAt time.Time) {
	byID := make(map[string]*models.TaxLot, len(lots))
	for i := range lots {
		byID[lots[i].ID] = &lots[i]
	}
	for _, d := range depletions {
		lot, ok := byID[d.LotID]
		if !ok {
			continue
		}
		lot.RemainingQuantity = d.Remaining
		if d.Closed {
			t := soldAt
			lot.ClosedAt = &t
		}
	}
}
