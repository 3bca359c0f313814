package performance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/ledger"
	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/bobmcallan/vire-ledger/internal/returns"
)

// Compile-time interface check
var _ interfaces.PerformanceService = (*Engine)(nil)

// Engine implements PerformanceService over an immutable snapshot of
// transactions, lots, and prices fetched once per report.
type Engine struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewEngine creates a new aggregation engine.
func NewEngine(storage interfaces.StorageManager, logger *common.Logger) *Engine {
	return &Engine{
		storage: storage,
		logger:  logger,
	}
}

// partition accumulates one lens value's transactions and lots.
type partition struct {
	key  string
	txs  []models.Transaction
	lots []models.TaxLot
}

// Report partitions ledger state by the lens and computes a snapshot per
// partition value plus the portfolio-wide rollup. Aggregation-level
// problems (missing price, unavailable IRR) degrade the affected partition
// and never abort the report.
func (e *Engine) Report(ctx context.Context, lens models.Lens, opts interfaces.ReportOptions) (*models.PerformanceReport, error) {
	if !lens.Valid() {
		return nil, &models.ValidationError{Field: "lens", Reason: "unknown lens " + string(lens)}
	}

	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	txs, err := e.storage.Transactions().List(ctx, interfaces.TransactionFilter{
		AccountID: opts.AccountID,
		To:        asOf,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	lots, err := e.storage.Lots().ListLots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	filtered := lots[:0]
	for _, lot := range lots {
		if opts.AccountID != "" && lot.AccountID != opts.AccountID {
			continue
		}
		if lot.PurchaseDate.After(asOf) {
			continue
		}
		filtered = append(filtered, lot)
	}
	// Stored lots carry present-day depletion state. Re-apply only the
	// sells up to asOf so a historical report values the inventory as it
	// stood on that date.
	lots, err = ledger.RewindLots(filtered, txs)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild lot state as of %s: %w", asOf.Format("2006-01-02"), err)
	}

	prices := e.resolvePrices(ctx, lots, asOf)
	part := &partitioner{lens: lens, meta: e.resolveMeta(ctx, txs, lots)}

	groups := make(map[string]*partition)
	for _, tx := range txs {
		key, ok := part.transactionKey(&tx)
		if !ok {
			continue
		}
		g := groups[key]
		if g == nil {
			g = &partition{key: key}
			groups[key] = g
		}
		g.txs = append(g.txs, tx)
	}
	for _, lot := range lots {
		key, ok := part.lotKey(&lot)
		if !ok {
			continue
		}
		g := groups[key]
		if g == nil {
			g = &partition{key: key}
			groups[key] = g
		}
		g.lots = append(g.lots, lot)
	}

	report := &models.PerformanceReport{
		Lens:        lens,
		AsOf:        asOf,
		GeneratedAt: time.Now(),
	}

	var totalValue float64
	for _, g := range groups {
		// Account-scoped partitions measure against external capital only;
		// asset-dimension partitions treat their buys and sells as the flows.
		snap := e.snapshot(g.key, part.label(g.key), g.txs, g.lots, prices, asOf, lens.AccountScoped(), lens.AccountScoped(), opts.IncomeAsExternalFlow)
		totalValue += snap.CurrentValue
		report.Groups = append(report.Groups, snap)
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		return report.Groups[i].Key < report.Groups[j].Key
	})

	// Weight per partition; zero portfolio value leaves every weight 0.
	if totalValue > 0 {
		for i := range report.Groups {
			report.Groups[i].WeightPct = report.Groups[i].CurrentValue / totalValue * 100
		}
	}

	report.Total = e.snapshot("total", "Portfolio", txs, lots, prices, asOf, true, true, opts.IncomeAsExternalFlow)
	if report.Total.CurrentValue > 0 {
		report.Total.WeightPct = 100
	}

	e.logger.Debug().Str("lens", string(lens)).Int("groups", len(report.Groups)).
		Msg("Performance report computed")
	return report, nil
}

// snapshot computes the performance of one partition. With externalOnly
// set, the flow series is restricted to genuinely external capital
// movements (deposits, withdrawals, and optionally income): the
// portfolio-total rollup must not count internal buy/sell transfers.
func (e *Engine) snapshot(key, label string, txs []models.Transaction, lots []models.TaxLot, prices map[string]float64, asOf time.Time, accountScoped, externalOnly, incomeAsExternal bool) models.PerformanceSnapshot {
	snap := models.PerformanceSnapshot{Key: key, Label: label}

	missing := make(map[string]bool)
	for i := range lots {
		lot := &lots[i]
		basis := lot.CostBasis().InexactFloat64()
		snap.CostBasis += basis
		if !lot.Open() {
			continue
		}
		price, ok := prices[lot.AssetID]
		if !ok {
			// Degrade to zero value rather than failing the report
			missing[lot.AssetID] = true
			continue
		}
		remaining := lot.RemainingQuantity.InexactFloat64()
		snap.CurrentValue += remaining * price
		snap.UnrealizedGain += remaining * (price - lot.CostBasisPerUnit.InexactFloat64())
	}
	for ticker := range missing {
		snap.MissingPrices = append(snap.MissingPrices, ticker)
	}
	sort.Strings(snap.MissingPrices)

	for i := range txs {
		tx := &txs[i]
		snap.Fees += tx.Fees.InexactFloat64()
		switch tx.Type {
		case models.TxSell:
			if tx.RealizedGain != nil {
				snap.RealizedGain += tx.RealizedGain.InexactFloat64()
			}
		case models.TxDividend, models.TxInterest:
			snap.Income += tx.Amount.InexactFloat64()
		}
	}

	snap.NetGain = snap.UnrealizedGain + snap.RealizedGain + snap.Income - snap.Fees
	if snap.CostBasis > 0 {
		snap.TotalReturnPct = snap.NetGain / snap.CostBasis * 100
	}

	snap.AnnualizedIRRPct = e.solveIRR(txs, snap.CurrentValue, asOf, accountScoped, externalOnly, incomeAsExternal)
	return snap
}

// solveIRR builds the partition's netted flow series, appends the terminal
// value, and solves. Returns nil when the rate is unavailable; an
// unavailable rate is never coerced to 0.
func (e *Engine) solveIRR(txs []models.Transaction, currentValue float64, asOf time.Time, accountScoped, externalOnly, incomeAsExternal bool) *float64 {
	var flows []returns.Flow
	cash := 0.0
	for i := range txs {
		tx := &txs[i]
		emitted := !externalOnly || isExternalFlow(tx.Type, incomeAsExternal)
		if accountScoped {
			// Income already emitted as a flow must not also sit in the
			// terminal cash balance.
			isIncome := tx.Type == models.TxDividend || tx.Type == models.TxInterest
			if !(emitted && isIncome) {
				cash += tx.CashEffect().InexactFloat64()
			}
		}
		if !emitted {
			continue
		}
		flows = append(flows, returns.Flow{Date: tx.Date, Amount: returns.SignedFlow(tx)})
	}

	terminal := currentValue
	if accountScoped {
		terminal += cash
	}
	if terminal > 0 {
		flows = append(flows, returns.Flow{Date: asOf, Amount: terminal})
	}

	rate, err := returns.Solve(returns.NetFlows(flows))
	if err != nil {
		return nil
	}
	pct := rate * 100
	return &pct
}

// isExternalFlow reports whether the type moves capital across the
// portfolio boundary. Buys and sells are internal transfers between cash
// and assets and must not inflate the money-weighted total.
func isExternalFlow(t models.TransactionType, incomeAsExternal bool) bool {
	switch t {
	case models.TxDeposit, models.TxWithdrawal:
		return true
	case models.TxDividend, models.TxInterest:
		return incomeAsExternal
	case models.TxBuy, models.TxSell:
		return false
	}
	return false
}

// resolvePrices fetches the latest price for every asset appearing in the
// lot set. Missing prices are simply absent from the map.
func (e *Engine) resolvePrices(ctx context.Context, lots []models.TaxLot, asOf time.Time) map[string]float64 {
	prices := make(map[string]float64)
	seen := make(map[string]bool)
	for i := range lots {
		ticker := lots[i].AssetID
		if seen[ticker] {
			continue
		}
		seen[ticker] = true
		quote, err := e.storage.Prices().LatestPrice(ctx, ticker, asOf)
		if err != nil || quote == nil {
			e.logger.Warn().Str("ticker", ticker).Msg("No price available, valuing at zero")
			continue
		}
		prices[ticker] = quote.Price
	}
	return prices
}

// resolveMeta fetches asset metadata for every asset in the report inputs.
func (e *Engine) resolveMeta(ctx context.Context, txs []models.Transaction, lots []models.TaxLot) map[string]*models.AssetMeta {
	meta := make(map[string]*models.AssetMeta)
	resolve := func(assetID string) {
		if assetID == "" {
			return
		}
		if _, ok := meta[assetID]; ok {
			return
		}
		m, err := e.storage.Assets().GetAsset(ctx, assetID)
		if err != nil {
			meta[assetID] = nil
			return
		}
		meta[assetID] = m
	}
	for i := range txs {
		resolve(txs[i].AssetID)
	}
	for i := range lots {
		resolve(lots[i].AssetID)
	}
	return meta
}
