package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validBuy() Transaction {
	return Transaction{
		Type:         TxBuy,
		Date:         time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		AccountID:    "acct1",
		AssetID:      "VAS",
		Quantity:     decimal.NewFromInt(10),
		PricePerUnit: decimal.NewFromInt(100),
		Amount:       decimal.NewFromInt(1000),
	}
}

func TestValidate_ValidBuy(t *testing.T) {
	tx := validBuy()
	assert.NoError(t, tx.Validate())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"unknown type", func(tx *Transaction) { tx.Type = "transfer" }},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }},
		{"missing account", func(tx *Transaction) { tx.AccountID = " " }},
		{"trade without asset", func(tx *Transaction) { tx.AssetID = "" }},
		{"zero quantity", func(tx *Transaction) { tx.Quantity = decimal.Zero }},
		{"negative price", func(tx *Transaction) { tx.PricePerUnit = decimal.NewFromInt(-1) }},
		{"amount mismatch", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(900) }},
		{"negative fees", func(tx *Transaction) { tx.Fees = decimal.NewFromInt(-1) }},
		{"bad funding source", func(tx *Transaction) { tx.FundingSource = "loan" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validBuy()
			tt.mutate(&tx)
			err := tx.Validate()
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestValidate_AssetMustBeAbsentForCashTypes(t *testing.T) {
	tx := Transaction{
		Type:      TxDeposit,
		Date:      time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		AccountID: "acct1",
		AssetID:   "VAS",
		Amount:    decimal.NewFromInt(1000),
	}
	assert.ErrorIs(t, tx.Validate(), ErrValidation)

	tx.AssetID = ""
	assert.NoError(t, tx.Validate())
}

func TestValidate_DividendRequiresAsset(t *testing.T) {
	tx := Transaction{
		Type:      TxDividend,
		Date:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		AccountID: "acct1",
		Amount:    decimal.NewFromInt(40),
	}
	assert.ErrorIs(t, tx.Validate(), ErrValidation)

	tx.AssetID = "VAS"
	assert.NoError(t, tx.Validate())
}

func TestValidate_AmountToleranceAcceptsRounding(t *testing.T) {
	tx := validBuy()
	tx.Amount = decimal.NewFromInt(1000).Add(decimal.NewFromFloat(5e-7))
	assert.NoError(t, tx.Validate())
}

func TestCashEffect(t *testing.T) {
	d := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	amount := decimal.NewFromInt(1000)
	fees := decimal.NewFromInt(10)

	tests := []struct {
		name string
		tx   Transaction
		want int64
	}{
		{"deposit adds cash", Transaction{Type: TxDeposit, Date: d, Amount: amount, Fees: fees}, 990},
		{"withdrawal removes cash and fees", Transaction{Type: TxWithdrawal, Date: d, Amount: amount, Fees: fees}, -1010},
		{"cash buy removes cash and fees", Transaction{Type: TxBuy, Date: d, Amount: amount, Fees: fees}, -1010},
		{"external buy touches no cash", Transaction{Type: TxBuy, Date: d, Amount: amount, Fees: fees, FundingSource: FundingExternal}, 0},
		{"sell adds proceeds minus fees", Transaction{Type: TxSell, Date: d, Amount: amount, Fees: fees}, 990},
		{"dividend adds cash", Transaction{Type: TxDividend, Date: d, Amount: amount}, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.tx.CashEffect().Equal(decimal.NewFromInt(tt.want)),
				"got %s", tt.tx.CashEffect())
		})
	}
}

func TestCashBalance(t *testing.T) {
	d := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{Type: TxDeposit, Date: d, Amount: decimal.NewFromInt(5000)},
		{Type: TxBuy, Date: d, Amount: decimal.NewFromInt(3000), Fees: decimal.NewFromInt(10)},
		{Type: TxDividend, Date: d, Amount: decimal.NewFromInt(40)},
	}
	assert.True(t, CashBalance(txs).Equal(decimal.NewFromInt(2030)))
}

func TestLotOpenAndCostBasis(t *testing.T) {
	lot := TaxLot{
		Quantity:          decimal.NewFromInt(10),
		CostBasisPerUnit:  decimal.NewFromFloat(100.95),
		RemainingQuantity: decimal.NewFromInt(4),
	}
	assert.True(t, lot.Open())
	assert.True(t, lot.DepletedQuantity().Equal(decimal.NewFromInt(6)))
	assert.True(t, lot.CostBasis().Equal(decimal.NewFromFloat(1009.5)))

	lot.RemainingQuantity = decimal.Zero
	assert.False(t, lot.Open())
}
