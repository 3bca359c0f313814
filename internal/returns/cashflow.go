// Package returns provides cash flow normalization and money-weighted
// return (XIRR) calculation. Every aggregation path shares this single
// normalizer, netter, and solver.
package returns

import (
	"sort"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/models"
)

// Flow is a single dated cash flow. Negative = money out of the investor's
// pocket (deposits, buys), positive = money back in (withdrawals, sells,
// income, terminal value).
type Flow struct {
	Date   time.Time
	Amount float64
}

// SignedFlow maps one transaction to its signed cash flow. Fees always
// reduce the flow magnitude regardless of direction.
func SignedFlow(tx *models.Transaction) float64 {
	amount := tx.Amount.InexactFloat64()
	fees := tx.Fees.Abs().InexactFloat64()

	var signed float64
	switch tx.Type {
	case models.TxDeposit, models.TxBuy:
		signed = -amount
	case models.TxWithdrawal, models.TxSell, models.TxDividend, models.TxInterest:
		signed = amount
	default:
		// Unknown types never reach here; Validate rejects them at entry.
		return 0
	}
	return signed - fees
}

// Normalize maps transactions to flows via SignedFlow.
func Normalize(txs []models.Transaction) []Flow {
	flows := make([]Flow, 0, len(txs))
	for i := range txs {
		flows = append(flows, Flow{Date: txs[i].Date, Amount: SignedFlow(&txs[i])})
	}
	return flows
}

// NetFlows groups flows by calendar date (UTC, time-of-day ignored), sums
// same-date flows, and returns a strictly increasing date sequence.
// Dates whose flows net to exactly zero are dropped: a same-day buy plus
// its funding deposit must not feed the solver as two offsetting entries.
// NetFlows is idempotent.
func NetFlows(flows []Flow) []Flow {
	if len(flows) == 0 {
		return nil
	}

	byDate := make(map[time.Time]float64, len(flows))
	for _, f := range flows {
		d := truncateDay(f.Date)
		byDate[d] += f.Amount
	}

	netted := make([]Flow, 0, len(byDate))
	for d, amount := range byDate {
		if amount == 0 {
			continue
		}
		netted = append(netted, Flow{Date: d, Amount: amount})
	}

	sort.Slice(netted, func(i, j int) bool {
		return netted[i].Date.Before(netted[j].Date)
	})
	return netted
}

// truncateDay strips the time-of-day component in UTC.
func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
