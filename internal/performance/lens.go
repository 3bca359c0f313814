// Package performance partitions ledger state by a lens and computes a
// performance snapshot per partition plus the portfolio-wide rollup.
// Every partition and the rollup share the same normalizer, netter, and
// solver, so no call site can drift.
package performance

import (
	"github.com/bobmcallan/vire-ledger/internal/models"
)

// unclassified is the partition for assets with no metadata for the lens
// dimension.
const unclassified = "unclassified"

// partitioner resolves the partition key and display label for
// transactions and lots under one lens. Metadata is read through a cache
// so each asset is resolved at most once per report.
type partitioner struct {
	lens models.Lens
	meta map[string]*models.AssetMeta // assetID -> meta, nil when unknown
}

// metaKey extracts the lens dimension from asset metadata.
func (p *partitioner) metaKey(assetID string) (string, bool) {
	m := p.meta[assetID]
	if m == nil {
		return unclassified, true
	}
	var v string
	switch p.lens {
	case models.LensSubPortfolio:
		v = m.SubPortfolioID
	case models.LensAssetType:
		v = m.Type
	case models.LensAssetSubtype:
		v = m.Subtype
	case models.LensGeography:
		v = m.Geography
	case models.LensSizeTag:
		v = m.SizeTag
	case models.LensFactorTag:
		v = m.FactorTag
	default:
		return "", false
	}
	if v == "" {
		return unclassified, true
	}
	return v, true
}

// transactionKey returns the partition key for a transaction, or ok=false
// when the transaction does not belong to any partition under this lens
// (e.g. a deposit under an asset-dimension lens).
func (p *partitioner) transactionKey(tx *models.Transaction) (string, bool) {
	switch p.lens {
	case models.LensTotal:
		return "total", true
	case models.LensAccount:
		return tx.AccountID, true
	case models.LensAsset:
		if tx.AssetID == "" {
			return "", false
		}
		return tx.AssetID, true
	default:
		if tx.AssetID == "" {
			return "", false
		}
		return p.metaKey(tx.AssetID)
	}
}

// lotKey returns the partition key for a tax lot. Lots always carry both
// account and asset, so every lens resolves.
func (p *partitioner) lotKey(lot *models.TaxLot) (string, bool) {
	switch p.lens {
	case models.LensTotal:
		return "total", true
	case models.LensAccount:
		return lot.AccountID, true
	case models.LensAsset:
		return lot.AssetID, true
	default:
		return p.metaKey(lot.AssetID)
	}
}

// label returns the display label for a partition key.
func (p *partitioner) label(key string) string {
	if p.lens == models.LensAsset {
		if m := p.meta[key]; m != nil && m.Name != "" {
			return m.Name
		}
	}
	return key
}
