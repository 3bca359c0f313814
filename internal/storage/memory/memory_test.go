package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/models"
)

func TestApplyMutation_FailureLeavesStateUntouched(t *testing.T) {
	m := NewManager(common.NewSilentLogger())
	ctx := context.Background()

	mut := &models.LedgerMutation{
		Transaction: models.Transaction{ID: "tx_1", Type: models.TxSell},
		Depletions: []models.LotDepletion{
			{LotID: "lot_missing", Quantity: decimal.NewFromInt(1)},
		},
	}

	err := m.Lots().ApplyMutation(ctx, mut)
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := m.Transactions().Get(ctx, "tx_1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("transaction must not be written when a depletion fails, got %v", err)
	}
}

func TestRebuildPair_MissingRowLeavesStateUntouched(t *testing.T) {
	m := NewManager(common.NewSilentLogger())
	ctx := context.Background()

	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	q := decimal.NewFromInt(10)
	lot := models.TaxLot{
		ID: "lot_1", AccountID: "acct1", AssetID: "VAS", PurchaseDate: jan,
		Quantity: q, CostBasisPerUnit: decimal.NewFromInt(100), RemainingQuantity: q, Seq: 1,
	}
	if err := m.Lots().ApplyMutation(ctx, &models.LedgerMutation{
		Transaction: models.Transaction{ID: "tx_buy", Type: models.TxBuy},
		OpenLot:     &lot,
	}); err != nil {
		t.Fatal(err)
	}

	err := m.Lots().RebuildPair(ctx, "acct1", "VAS", "tx_missing", nil, nil)
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	all, err := m.Lots().AllLots(ctx, "acct1", "VAS")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].ID != "lot_1" {
		t.Errorf("expected lot_1 untouched after failed rebuild, got %+v", all)
	}
}

func TestTransactionList_FilterAndOrder(t *testing.T) {
	m := NewManager(common.NewSilentLogger())
	ctx := context.Background()

	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	for _, tx := range []models.Transaction{
		{ID: "tx_c", Type: models.TxDeposit, AccountID: "acct1", Date: jun, Amount: decimal.NewFromInt(1)},
		{ID: "tx_a", Type: models.TxDeposit, AccountID: "acct1", Date: jan, Amount: decimal.NewFromInt(1)},
		{ID: "tx_b", Type: models.TxDeposit, AccountID: "acct2", Date: mar, Amount: decimal.NewFromInt(1)},
	} {
		tx := tx
		if err := m.Transactions().Put(ctx, &tx); err != nil {
			t.Fatal(err)
		}
	}

	all, err := m.Transactions().List(ctx, interfaces.TransactionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "tx_a" || all[2].ID != "tx_c" {
		t.Errorf("expected date-ordered tx_a..tx_c, got %+v", all)
	}

	acct1, err := m.Transactions().List(ctx, interfaces.TransactionFilter{AccountID: "acct1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(acct1) != 2 {
		t.Errorf("expected 2 acct1 transactions, got %d", len(acct1))
	}

	until, err := m.Transactions().List(ctx, interfaces.TransactionFilter{To: mar})
	if err != nil {
		t.Fatal(err)
	}
	if len(until) != 2 {
		t.Errorf("expected 2 transactions at or before March, got %d", len(until))
	}
}

func TestPriceStore_LatestAtOrBefore(t *testing.T) {
	m := NewManager(common.NewSilentLogger())
	ctx := context.Background()

	for _, q := range []models.PriceQuote{
		{Ticker: "VAS", Price: 100, AsOf: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Ticker: "VAS", Price: 120, AsOf: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)},
	} {
		if err := m.Prices().PutPrice(ctx, q); err != nil {
			t.Fatal(err)
		}
	}

	quote, err := m.Prices().LatestPrice(ctx, "VAS", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if quote.Price != 100 {
		t.Errorf("expected 100, got %v", quote.Price)
	}

	if _, err := m.Prices().LatestPrice(ctx, "VAS", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound before first quote, got %v", err)
	}
}
