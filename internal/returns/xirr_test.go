package returns

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-ledger/internal/models"
)

func TestSolve_SimpleAnnualReturn(t *testing.T) {
	// Invest 1000, receive 1100 one year later: the rate is 10%.
	start := day(2023, 1, 1)
	flows := []Flow{
		{Date: start, Amount: -1000},
		{Date: start.AddDate(1, 0, 0), Amount: 1100},
	}

	rate, err := Solve(flows)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, rate, 0.001)
}

func TestSolve_MultiFlow(t *testing.T) {
	// Two investments, one final payout. The root must satisfy NPV = 0.
	start := day(2022, 1, 1)
	flows := []Flow{
		{Date: start, Amount: -1000},
		{Date: start.AddDate(0, 6, 0), Amount: -500},
		{Date: start.AddDate(2, 0, 0), Amount: 1900},
	}

	rate, err := Solve(flows)
	require.NoError(t, err)

	npv := 0.0
	for _, f := range flows {
		years := f.Date.Sub(start).Hours() / 24 / 365.25
		npv += f.Amount / math.Pow(1+rate, years)
	}
	assert.InDelta(t, 0, npv, 1e-4)
}

func TestSolve_NegativeReturn(t *testing.T) {
	start := day(2023, 1, 1)
	flows := []Flow{
		{Date: start, Amount: -1000},
		{Date: start.AddDate(1, 0, 0), Amount: 800},
	}

	rate, err := Solve(flows)
	require.NoError(t, err)
	assert.InDelta(t, -0.20, rate, 0.001)
}

func TestSolve_InsufficientFlows(t *testing.T) {
	start := day(2023, 1, 1)

	tests := []struct {
		name  string
		flows []Flow
	}{
		{"empty", nil},
		{"single flow", []Flow{{Date: start, Amount: -1000}}},
		{"all negative", []Flow{
			{Date: start, Amount: -1000},
			{Date: start.AddDate(1, 0, 0), Amount: -500},
		}},
		{"all positive", []Flow{
			{Date: start, Amount: 1000},
			{Date: start.AddDate(1, 0, 0), Amount: 500},
		}},
		{"zero span", []Flow{
			{Date: start, Amount: -1000},
			{Date: start, Amount: 1100},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Solve(tt.flows)
			assert.ErrorIs(t, err, models.ErrInsufficientFlows)
		})
	}
}

func TestSolve_NonConvergenceIsAnErrorNotZero(t *testing.T) {
	// A 99.9% loss over one year puts the root below the bisection bracket.
	// The solver must report failure rather than a silent 0.
	start := day(2023, 1, 1)
	flows := []Flow{
		{Date: start, Amount: -1000},
		{Date: start.AddDate(1, 0, 0), Amount: 1},
	}

	rate, err := Solve(flows)
	require.ErrorIs(t, err, models.ErrNonConvergence)
	assert.Equal(t, 0.0, rate)
}

func TestSolve_ExtremeGainFallsBackToBisection(t *testing.T) {
	// A 10x gain in a month sends Newton's iterates far outside the
	// plausible band; bisection must still find the root.
	start := day(2023, 1, 1)
	flows := []Flow{
		{Date: start, Amount: -100},
		{Date: start.AddDate(0, 1, 0), Amount: 1000},
	}

	rate, err := Solve(flows)
	if err != nil {
		// The annualized root may exceed the bisection ceiling too; either
		// outcome must be explicit, never a fabricated rate.
		assert.ErrorIs(t, err, models.ErrNonConvergence)
		return
	}
	assert.Greater(t, rate, 1.0)
}

func TestSolve_HandlesIntradayTimestamps(t *testing.T) {
	// Solve measures time from the first flow; intraday offsets shift year
	// fractions only marginally.
	start := time.Date(2023, 1, 1, 14, 30, 0, 0, time.UTC)
	flows := []Flow{
		{Date: start, Amount: -1000},
		{Date: start.AddDate(1, 0, 0), Amount: 1100},
	}

	rate, err := Solve(flows)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, rate, 0.001)
}

func TestInitialGuess_AnnualizedRatio(t *testing.T) {
	start := day(2023, 1, 1)
	flows := []Flow{
		{Date: start, Amount: -1000},
		{Date: start.AddDate(1, 0, 0), Amount: 1210},
	}
	years := []float64{0, 1}

	guess := initialGuess(flows, years)
	assert.InDelta(t, 0.21, guess, 0.001)
}

func TestInitialGuess_FallbackWithoutBothSigns(t *testing.T) {
	start := day(2023, 1, 1)
	flows := []Flow{
		{Date: start, Amount: 1000},
		{Date: start.AddDate(1, 0, 0), Amount: 1100},
	}
	years := []float64{0, 1}

	assert.Equal(t, 0.1, initialGuess(flows, years))
}
