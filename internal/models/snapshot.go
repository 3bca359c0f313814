package models

import "time"

// Lens is a grouping dimension used to partition holdings and transactions
// for reporting.
type Lens string

const (
	LensAsset        Lens = "asset"
	LensAccount      Lens = "account"
	LensSubPortfolio Lens = "subportfolio"
	LensAssetType    Lens = "assettype"
	LensAssetSubtype Lens = "assetsubtype"
	LensGeography    Lens = "geography"
	LensSizeTag      Lens = "sizetag"
	LensFactorTag    Lens = "factortag"
	LensTotal        Lens = "total"
)

// Valid reports whether l is a known lens.
func (l Lens) Valid() bool {
	switch l {
	case LensAsset, LensAccount, LensSubPortfolio, LensAssetType, LensAssetSubtype,
		LensGeography, LensSizeTag, LensFactorTag, LensTotal:
		return true
	}
	return false
}

// AccountScoped reports whether the lens partitions by a dimension that
// owns a cash balance. Account-scoped partitions measure return against
// external capital movements with cash included in the terminal value;
// asset-dimension partitions (sub-portfolios included) track no cash, so
// their buys and sells are the capital movements.
func (l Lens) AccountScoped() bool {
	return l == LensAccount || l == LensTotal
}

// PerformanceSnapshot is the computed performance of one partition.
// AnnualizedIRRPct is nil when the solver reports the rate as unavailable;
// consumers must render that distinctly from 0%.
type PerformanceSnapshot struct {
	Key              string    `json:"key"`
	Label            string    `json:"label,omitempty"`
	CurrentValue     float64   `json:"current_value"`
	CostBasis        float64   `json:"cost_basis"`
	UnrealizedGain   float64   `json:"unrealized_gain"`
	RealizedGain     float64   `json:"realized_gain"`
	Income           float64   `json:"income"`
	Fees             float64   `json:"fees"`
	NetGain          float64   `json:"net_gain"`
	TotalReturnPct   float64   `json:"total_return_pct"`
	AnnualizedIRRPct *float64  `json:"annualized_irr_pct,omitempty"`
	WeightPct        float64   `json:"weight_pct"`
	MissingPrices    []string  `json:"missing_prices,omitempty"`
}

// PerformanceReport is the full output of one aggregation run: a snapshot
// per partition value plus the portfolio-wide rollup.
type PerformanceReport struct {
	Lens        Lens                  `json:"lens"`
	AsOf        time.Time             `json:"as_of"`
	Groups      []PerformanceSnapshot `json:"groups"`
	Total       PerformanceSnapshot   `json:"total"`
	GeneratedAt time.Time             `json:"generated_at"`
}
