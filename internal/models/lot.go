package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TaxLot records one purchase and the quantity still held from it.
// Lots are created only by buy transactions and depleted only by sells,
// strictly oldest purchase date first. A fully depleted lot is zeroed and
// kept (never deleted) so the audit trail survives.
type TaxLot struct {
	ID                string          `json:"id"`
	AccountID         string          `json:"account_id"`
	AssetID           string          `json:"asset_id"`
	PurchaseDate      time.Time       `json:"purchase_date"`
	Quantity          decimal.Decimal `json:"quantity"`
	CostBasisPerUnit  decimal.Decimal `json:"cost_basis_per_unit"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Seq               int64           `json:"seq"` // per-pair insertion order, FIFO tie-break
	ClosedAt          *time.Time      `json:"closed_at,omitempty"`
}

// Open reports whether the lot still holds quantity.
func (l *TaxLot) Open() bool {
	return l.RemainingQuantity.IsPositive()
}

// DepletedQuantity returns how much of the lot has been sold.
func (l *TaxLot) DepletedQuantity() decimal.Decimal {
	return l.Quantity.Sub(l.RemainingQuantity)
}

// CostBasis returns the total original cost of the lot.
func (l *TaxLot) CostBasis() decimal.Decimal {
	return l.Quantity.Mul(l.CostBasisPerUnit)
}

// SortLotsFIFO orders lots by purchase date ascending, tie-broken by
// insertion sequence so depletion order is stable for same-day buys.
// Every depletion path sorts with this single comparator.
func SortLotsFIFO(lots []TaxLot) {
	sort.Slice(lots, func(i, j int) bool {
		if lots[i].PurchaseDate.Equal(lots[j].PurchaseDate) {
			return lots[i].Seq < lots[j].Seq
		}
		return lots[i].PurchaseDate.Before(lots[j].PurchaseDate)
	})
}

// LotDepletion describes one lot's share of a sell.
type LotDepletion struct {
	LotID     string          `json:"lot_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Remaining decimal.Decimal `json:"remaining"` // remaining_quantity after the depletion
	BasisSold decimal.Decimal `json:"basis_sold"`
	Closed    bool            `json:"closed"`
}

// LedgerMutation is the atomic unit of ledger change produced by committing
// a transaction. The persistence collaborator applies the transaction write,
// lot creation, and lot depletions as one transaction or not at all.
type LedgerMutation struct {
	Transaction  Transaction      `json:"transaction"`
	OpenLot      *TaxLot          `json:"open_lot,omitempty"`
	Depletions   []LotDepletion   `json:"depletions,omitempty"`
	BasisSold    decimal.Decimal  `json:"basis_sold"`
	RealizedGain *decimal.Decimal `json:"realized_gain,omitempty"`
}

// PriceQuote is the most recent known price for a ticker.
type PriceQuote struct {
	Ticker string    `json:"ticker"`
	Price  float64   `json:"price"`
	AsOf   time.Time `json:"as_of"`
}

// AssetMeta carries the grouping dimensions used to resolve lens partition
// keys. The engine reads it, never mutates it.
type AssetMeta struct {
	AssetID        string `json:"asset_id"`
	Name           string `json:"name,omitempty"`
	Type           string `json:"type,omitempty"`    // e.g. "equity", "etf", "bond"
	Subtype        string `json:"subtype,omitempty"` // e.g. "reit", "index"
	Geography      string `json:"geography,omitempty"`
	SizeTag        string `json:"size_tag,omitempty"`   // e.g. "large", "small"
	FactorTag      string `json:"factor_tag,omitempty"` // e.g. "value", "growth"
	SubPortfolioID string `json:"sub_portfolio_id,omitempty"`
}
