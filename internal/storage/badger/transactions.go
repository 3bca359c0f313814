package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/models"
)

// TransactionStorage implements interfaces.TransactionStore using BadgerDB.
type TransactionStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewTransactionStorage creates transaction storage backed by BadgerDB.
func NewTransactionStorage(db *BadgerDB, logger *common.Logger) *TransactionStorage {
	return &TransactionStorage{
		db:     db,
		logger: logger,
	}
}

// Put stores a transaction keyed by its ID.
func (s *TransactionStorage) Put(_ context.Context, tx *models.Transaction) error {
	if err := s.db.Store().Upsert(tx.ID, tx); err != nil {
		return fmt.Errorf("failed to store transaction %s: %w", tx.ID, err)
	}
	return nil
}

// Get retrieves a transaction by ID.
func (s *TransactionStorage) Get(_ context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.Store().Get(id, &tx)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("transaction %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return &tx, nil
}

// Delete removes a transaction by ID.
func (s *TransactionStorage) Delete(_ context.Context, id string) error {
	err := s.db.Store().Delete(id, models.Transaction{})
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("transaction %s: %w", id, models.ErrNotFound)
		}
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	return nil
}

// List returns transactions matching the filter, ordered by date.
func (s *TransactionStorage) List(_ context.Context, filter interfaces.TransactionFilter) ([]models.Transaction, error) {
	var query *badgerhold.Query
	if filter.AccountID != "" {
		query = badgerhold.Where("AccountID").Eq(filter.AccountID)
	}

	var txs []models.Transaction
	if err := s.db.Store().Find(&txs, query); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	out := txs[:0]
	for _, tx := range txs {
		if filter.AssetID != "" && tx.AssetID != filter.AssetID {
			continue
		}
		if !filter.From.IsZero() && tx.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && tx.Date.After(filter.To) {
			continue
		}
		out = append(out, tx)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}
