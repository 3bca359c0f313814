package badger

import (
	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/config"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
)

// Compile-time interface check
var _ interfaces.StorageManager = (*Manager)(nil)

// Manager implements the StorageManager interface for Badger.
type Manager struct {
	db     *BadgerDB
	txs    *TransactionStorage
	lots   *LotStorage
	prices *PriceStorage
	assets *AssetStorage
	logger *common.Logger
}

// NewManager creates a new Badger storage manager.
func NewManager(logger *common.Logger, cfg *config.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, cfg)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		txs:    NewTransactionStorage(db, logger),
		lots:   NewLotStorage(db, logger),
		prices: NewPriceStorage(db, logger),
		assets: NewAssetStorage(db, logger),
		logger: logger,
	}

	logger.Debug().Msg("Badger storage manager initialized")

	return manager, nil
}

// Transactions returns the transaction storage interface.
func (m *Manager) Transactions() interfaces.TransactionStore {
	return m.txs
}

// Lots returns the tax-lot storage interface.
func (m *Manager) Lots() interfaces.LotStore {
	return m.lots
}

// Prices returns the price storage interface.
func (m *Manager) Prices() interfaces.PriceStore {
	return m.prices
}

// Assets returns the asset metadata storage interface.
func (m *Manager) Assets() interfaces.AssetMetaStore {
	return m.assets
}

// Close closes the database connection.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
