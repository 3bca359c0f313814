// Package storage selects a StorageManager implementation from config.
package storage

import (
	"fmt"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/config"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/storage/badger"
	"github.com/bobmcallan/vire-ledger/internal/storage/memory"
)

// NewStorageManager creates a new storage manager based on config.
func NewStorageManager(logger *common.Logger, cfg *config.Config) (interfaces.StorageManager, error) {
	switch cfg.Storage.Backend {
	case "", "badger":
		return badger.NewManager(logger, &cfg.Storage.Badger)
	case "memory":
		return memory.NewManager(logger), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
