package returns

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-ledger/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func tx(t models.TransactionType, date time.Time, amount, fees float64) models.Transaction {
	return models.Transaction{
		Type:   t,
		Date:   date,
		Amount: decimal.NewFromFloat(amount),
		Fees:   decimal.NewFromFloat(fees),
	}
}

func TestSignedFlow_Signs(t *testing.T) {
	d := day(2024, 1, 15)

	tests := []struct {
		name string
		tx   models.Transaction
		want float64
	}{
		{"deposit is negative", tx(models.TxDeposit, d, 1000, 0), -1000},
		{"buy is negative", tx(models.TxBuy, d, 1000, 0), -1000},
		{"withdrawal is positive", tx(models.TxWithdrawal, d, 500, 0), 500},
		{"sell is positive", tx(models.TxSell, d, 500, 0), 500},
		{"dividend is positive", tx(models.TxDividend, d, 25, 0), 25},
		{"interest is positive", tx(models.TxInterest, d, 10, 0), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SignedFlow(&tt.tx)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestSignedFlow_FeesAlwaysReduce(t *testing.T) {
	d := day(2024, 1, 15)

	// Fees push an outflow further negative and shrink an inflow.
	buy := tx(models.TxBuy, d, 1000, 10)
	assert.InDelta(t, -1010, SignedFlow(&buy), 1e-9)

	sell := tx(models.TxSell, d, 1000, 10)
	assert.InDelta(t, 990, SignedFlow(&sell), 1e-9)

	div := tx(models.TxDividend, d, 25, 1)
	assert.InDelta(t, 24, SignedFlow(&div), 1e-9)
}

func TestNetFlows_GroupsByCalendarDay(t *testing.T) {
	morning := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	afternoon := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	flows := []Flow{
		{Date: afternoon, Amount: 300},
		{Date: morning, Amount: -1000},
		{Date: day(2024, 3, 5), Amount: 500},
	}

	netted := NetFlows(flows)
	require.Len(t, netted, 2)
	assert.Equal(t, day(2024, 3, 1), netted[0].Date)
	assert.InDelta(t, -700, netted[0].Amount, 1e-9)
	assert.Equal(t, day(2024, 3, 5), netted[1].Date)
	assert.InDelta(t, 500, netted[1].Amount, 1e-9)
}

func TestNetFlows_DropsZeroSumDates(t *testing.T) {
	flows := []Flow{
		{Date: day(2024, 3, 1), Amount: -1000},
		{Date: day(2024, 3, 1), Amount: 1000},
		{Date: day(2024, 3, 2), Amount: 250},
	}

	netted := NetFlows(flows)
	require.Len(t, netted, 1)
	assert.Equal(t, day(2024, 3, 2), netted[0].Date)
}

func TestNetFlows_Idempotent(t *testing.T) {
	flows := []Flow{
		{Date: day(2024, 1, 1), Amount: -1000},
		{Date: day(2024, 1, 1), Amount: -500},
		{Date: day(2024, 6, 1), Amount: 200},
		{Date: day(2024, 12, 31), Amount: 1600},
	}

	once := NetFlows(flows)
	twice := NetFlows(once)
	assert.Equal(t, once, twice)
}

func TestNetFlows_SortedAscending(t *testing.T) {
	flows := []Flow{
		{Date: day(2024, 12, 1), Amount: 100},
		{Date: day(2024, 1, 1), Amount: -100},
		{Date: day(2024, 6, 1), Amount: 50},
	}

	netted := NetFlows(flows)
	require.Len(t, netted, 3)
	for i := 1; i < len(netted); i++ {
		assert.True(t, netted[i-1].Date.Before(netted[i].Date))
	}
}

func TestNormalize_MapsEveryTransaction(t *testing.T) {
	txs := []models.Transaction{
		tx(models.TxDeposit, day(2024, 1, 1), 10000, 0),
		tx(models.TxBuy, day(2024, 1, 2), 5000, 9.5),
		tx(models.TxDividend, day(2024, 4, 1), 120, 0),
	}

	flows := Normalize(txs)
	require.Len(t, flows, 3)
	assert.InDelta(t, -10000, flows[0].Amount, 1e-9)
	assert.InDelta(t, -5009.5, flows[1].Amount, 1e-9)
	assert.InDelta(t, 120, flows[2].Amount, 1e-9)
}
