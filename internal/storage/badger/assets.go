package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/models"
)

// AssetStorage implements interfaces.AssetMetaStore using BadgerDB.
type AssetStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewAssetStorage creates asset metadata storage backed by BadgerDB.
func NewAssetStorage(db *BadgerDB, logger *common.Logger) *AssetStorage {
	return &AssetStorage{
		db:     db,
		logger: logger,
	}
}

// PutAsset stores grouping metadata keyed by asset ID.
func (s *AssetStorage) PutAsset(_ context.Context, meta *models.AssetMeta) error {
	if err := s.db.Store().Upsert(meta.AssetID, meta); err != nil {
		return fmt.Errorf("failed to store asset %s: %w", meta.AssetID, err)
	}
	return nil
}

// GetAsset retrieves grouping metadata by asset ID.
func (s *AssetStorage) GetAsset(_ context.Context, assetID string) (*models.AssetMeta, error) {
	var meta models.AssetMeta
	err := s.db.Store().Get(assetID, &meta)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("asset %s: %w", assetID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get asset %s: %w", assetID, err)
	}
	return &meta, nil
}
