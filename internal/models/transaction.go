// Package models defines data structures for the vire ledger engine
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType categorizes a ledger transaction.
type TransactionType string

const (
	TxBuy        TransactionType = "buy"
	TxSell       TransactionType = "sell"
	TxDividend   TransactionType = "dividend"
	TxInterest   TransactionType = "interest"
	TxDeposit    TransactionType = "deposit"
	TxWithdrawal TransactionType = "withdrawal"
)

// Valid reports whether t is one of the six known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TxBuy, TxSell, TxDividend, TxInterest, TxDeposit, TxWithdrawal:
		return true
	}
	return false
}

// RequiresAsset reports whether the type must carry an asset ID.
func (t TransactionType) RequiresAsset() bool {
	switch t {
	case TxBuy, TxSell, TxDividend:
		return true
	}
	return false
}

// IsTrade reports whether the type has ledger side effects (lot creation or depletion).
func (t TransactionType) IsTrade() bool {
	return t == TxBuy || t == TxSell
}

// FundingSource indicates where the cash for a buy came from.
type FundingSource string

const (
	FundingCash     FundingSource = "cash"
	FundingExternal FundingSource = "external"
)

// ValidFundingSource reports whether f is a known funding source or empty.
func ValidFundingSource(f FundingSource) bool {
	return f == "" || f == FundingCash || f == FundingExternal
}

// amountTolerance is the maximum accepted difference between a trade's
// recorded amount and quantity * price_per_unit.
var amountTolerance = decimal.NewFromFloat(1e-6)

// Transaction is a single immutable ledger event. Amount is the gross
// consideration: for trades it equals quantity * price_per_unit; the cash
// impact of fees is applied by the flow normalizer and cash balance logic,
// never baked into Amount.
type Transaction struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	Type          TransactionType `json:"type"`
	AccountID     string          `json:"account_id"`
	AssetID       string          `json:"asset_id,omitempty"`
	Quantity      decimal.Decimal `json:"quantity,omitempty"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Fees          decimal.Decimal `json:"fees"`
	FundingSource FundingSource   `json:"funding_source,omitempty"`
	RealizedGain  *decimal.Decimal `json:"realized_gain,omitempty"` // set once at sell time
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TransactionUpdate is a partial update for a committed non-trade
// transaction. Nil fields keep their current value; set fields overwrite,
// so fees and notes can be cleared with an explicit zero value.
type TransactionUpdate struct {
	Date   *time.Time       `json:"date,omitempty"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Fees   *decimal.Decimal `json:"fees,omitempty"`
	Notes  *string          `json:"notes,omitempty"`
}

// Validate checks field values against the rules for the transaction's type.
func (tx *Transaction) Validate() error {
	if !tx.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "unknown transaction type " + string(tx.Type)}
	}
	if tx.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "date is required"}
	}
	if strings.TrimSpace(tx.AccountID) == "" {
		return &ValidationError{Field: "account_id", Reason: "account is required"}
	}
	if tx.Type.RequiresAsset() {
		if strings.TrimSpace(tx.AssetID) == "" {
			return &ValidationError{Field: "asset_id", Reason: "asset is required for " + string(tx.Type)}
		}
	} else if tx.AssetID != "" {
		return &ValidationError{Field: "asset_id", Reason: "asset must be absent for " + string(tx.Type)}
	}
	if !tx.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "amount must be positive"}
	}
	if tx.Fees.IsNegative() {
		return &ValidationError{Field: "fees", Reason: "fees cannot be negative"}
	}
	if !ValidFundingSource(tx.FundingSource) {
		return &ValidationError{Field: "funding_source", Reason: "must be 'cash' or 'external'"}
	}
	if tx.Type.IsTrade() {
		if !tx.Quantity.IsPositive() {
			return &ValidationError{Field: "quantity", Reason: "quantity must be positive"}
		}
		if !tx.PricePerUnit.IsPositive() {
			return &ValidationError{Field: "price_per_unit", Reason: "price must be positive"}
		}
		gross := tx.Quantity.Mul(tx.PricePerUnit)
		if tx.Amount.Sub(gross).Abs().GreaterThan(amountTolerance) {
			return &ValidationError{Field: "amount", Reason: "amount must equal quantity * price_per_unit"}
		}
	}
	return nil
}

// CashEffect returns the signed change this transaction makes to the
// account's cash balance. Fees always reduce cash. Externally funded buys
// touch no account cash; the matching deposit carries the funding.
func (tx *Transaction) CashEffect() decimal.Decimal {
	switch tx.Type {
	case TxDeposit, TxDividend, TxInterest:
		return tx.Amount.Sub(tx.Fees)
	case TxWithdrawal:
		return tx.Amount.Neg().Sub(tx.Fees)
	case TxBuy:
		if tx.FundingSource == FundingExternal {
			return decimal.Zero
		}
		return tx.Amount.Neg().Sub(tx.Fees)
	case TxSell:
		return tx.Amount.Sub(tx.Fees)
	}
	return decimal.Zero
}

// CashBalance sums the cash effect of every transaction.
func CashBalance(txs []Transaction) decimal.Decimal {
	balance := decimal.Zero
	for i := range txs {
		balance = balance.Add(txs[i].CashEffect())
	}
	return balance
}
