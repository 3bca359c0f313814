package returns

import (
	"math"

	"github.com/bobmcallan/vire-ledger/internal/models"
)

const (
	newtonMaxIter = 100
	newtonTol     = 1e-7
	bisectMaxIter = 200
	bisectTol     = 1e-6

	minRate = -0.999
	maxRate = 50.0 // Newton aborts outside this band

	bisectLo = -0.99
	bisectHi = 20.0
)

// Solve finds the annualized rate r such that the net present value of the
// netted flow series is zero: sum of amount_i / (1+r)^years_i, with years
// measured from the first flow date using a 365.25-day year.
//
// The series must already be netted (strictly increasing dates) and contain
// at least two entries with both a negative and a positive flow; otherwise
// Solve returns models.ErrInsufficientFlows. If neither Newton-Raphson nor
// the bisection fallback converges, Solve returns models.ErrNonConvergence.
// The rate is never silently reported as 0.
func Solve(flows []Flow) (float64, error) {
	if len(flows) < 2 {
		return 0, models.ErrInsufficientFlows
	}

	hasNeg, hasPos := false, false
	for _, f := range flows {
		if f.Amount < 0 {
			hasNeg = true
		}
		if f.Amount > 0 {
			hasPos = true
		}
	}
	if !hasNeg || !hasPos {
		return 0, models.ErrInsufficientFlows
	}

	baseDate := flows[0].Date
	years := make([]float64, len(flows))
	for i, f := range flows {
		days := f.Date.Sub(baseDate).Hours() / 24
		years[i] = days / 365.25
	}
	if years[len(years)-1] <= 0 {
		return 0, models.ErrInsufficientFlows
	}

	rate, ok := newton(flows, years)
	if ok {
		return rate, nil
	}

	rate, ok = bisect(flows, years)
	if ok {
		return rate, nil
	}
	return 0, models.ErrNonConvergence
}

// initialGuess derives a starting rate from the ratio of inflows to
// outflows annualized over the series span, falling back to 10%.
func initialGuess(flows []Flow, years []float64) float64 {
	totalIn := 0.0
	totalOut := 0.0
	for _, f := range flows {
		if f.Amount < 0 {
			totalOut -= f.Amount
		} else {
			totalIn += f.Amount
		}
	}

	span := years[len(years)-1]
	if totalOut <= 0 || totalIn <= 0 || span <= 0 {
		return 0.1
	}

	guess := math.Pow(totalIn/totalOut, 1/span) - 1
	if math.IsNaN(guess) || math.IsInf(guess, 0) {
		return 0.1
	}
	// Clamp to a sane starting range
	if guess < -0.9 {
		guess = -0.9
	}
	if guess > 10 {
		guess = 10
	}
	return guess
}

// npvAt computes NPV and its derivative with respect to the rate.
func npvAt(flows []Flow, years []float64, rate float64) (npv, dnpv float64) {
	for i, f := range flows {
		y := years[i]
		base := 1 + rate
		if base <= 0 {
			base = 1 + minRate
		}
		discount := math.Pow(base, y)
		if discount == 0 {
			continue
		}
		npv += f.Amount / discount
		if y != 0 {
			dnpv -= y * f.Amount / (discount * base)
		}
	}
	return npv, dnpv
}

// newton runs bounded Newton-Raphson iteration. Returns ok=false when the
// derivative vanishes, the rate leaves the plausible band, or the iteration
// limit is hit without convergence.
func newton(flows []Flow, years []float64) (float64, bool) {
	rate := initialGuess(flows, years)

	for iter := 0; iter < newtonMaxIter; iter++ {
		npv, dnpv := npvAt(flows, years, rate)

		if math.Abs(npv) < newtonTol {
			return rate, true
		}
		if math.Abs(dnpv) < 1e-12 {
			// Derivative is effectively zero, the update would blow up
			return 0, false
		}

		newRate := rate - npv/dnpv
		if newRate < minRate || newRate > maxRate {
			return 0, false
		}
		if math.Abs(newRate-rate) < newtonTol {
			return newRate, true
		}
		rate = newRate
	}

	return 0, false
}

// bisect narrows a bracket on [bisectLo, bisectHi]. Valid because NPV is
// monotonically decreasing in the rate for a series that starts with net
// outflow and ends with net inflow.
func bisect(flows []Flow, years []float64) (float64, bool) {
	lo, hi := bisectLo, bisectHi
	npvLo, _ := npvAt(flows, years, lo)
	npvHi, _ := npvAt(flows, years, hi)

	if math.IsNaN(npvLo) || math.IsNaN(npvHi) {
		return 0, false
	}
	if npvLo*npvHi > 0 {
		// Same sign at both ends, no root in this bracket
		return 0, false
	}

	for iter := 0; iter < bisectMaxIter; iter++ {
		mid := (lo + hi) / 2
		npvMid, _ := npvAt(flows, years, mid)
		if math.IsNaN(npvMid) {
			return 0, false
		}
		if math.Abs(npvMid) < bisectTol {
			return mid, true
		}
		if npvMid*npvLo < 0 {
			hi = mid
		} else {
			lo = mid
			npvLo = npvMid
		}
	}

	if hi-lo < bisectTol {
		return (lo + hi) / 2, true
	}
	return 0, false
}
