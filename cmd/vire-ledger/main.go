package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/config"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/ledger"
	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/bobmcallan/vire-ledger/internal/performance"
	"github.com/bobmcallan/vire-ledger/internal/render"
	"github.com/bobmcallan/vire-ledger/internal/storage"
)

// configPaths is a custom flag type that allows multiple -config flags.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	dataPath    = flag.String("data", "", "Badger data directory (overrides config)")
	lensFlag    = flag.String("lens", "", "Report lens (overrides config)")
	accountFlag = flag.String("account", "", "Restrict report to one account")
	asOfFlag    = flag.String("asof", "", "Report as-of date (YYYY-MM-DD, default now)")
	plainFlag   = flag.Bool("plain", false, "Emit plain markdown without terminal styling")
	jsonFlag    = flag.Bool("json", false, "Emit JSON instead of markdown")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: vire-ledger [flags] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  import <file.json>        Import assets and transactions")
	fmt.Fprintln(os.Stderr, "  price <ticker> <price>    Record a price quote (optionally a date argument)")
	fmt.Fprintln(os.Stderr, "  report                    Compute a performance report")
	fmt.Fprintln(os.Stderr, "  lots                      List tax lots")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("vire-ledger version %s\n", config.GetVersion())
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	// Auto-discover config file if not specified.
	// Binary-relative paths are tried first so the config is found even when
	// the working directory differs from the binary location.
	if len(configFiles) == 0 {
		for _, path := range ledgerConfigSearchPaths() {
			if _, err := os.Stat(path); err == nil {
				configFiles = append(configFiles, path)
				break
			}
		}
	}

	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Apply CLI flag overrides (highest priority)
	config.ApplyFlagOverrides(cfg, *dataPath, *lensFlag)

	logger := common.NewLoggerFromConfig(cfg.Logging)

	store, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		logger.Error().Str("error", err.Error()).Msg("Failed to initialize storage")
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	ledgerSvc := ledger.NewService(store, logger)
	perfSvc := performance.NewEngine(store, logger)

	if err := runCommand(ctx, cfg, store, ledgerSvc, perfSvc, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, cfg *config.Config, store interfaces.StorageManager, ledgerSvc interfaces.LedgerService, perfSvc interfaces.PerformanceService, args []string) error {
	switch args[0] {
	case "import":
		if len(args) != 2 {
			return fmt.Errorf("usage: vire-ledger import <file.json>")
		}
		return runImport(ctx, store, ledgerSvc, args[1])
	case "price":
		if len(args) < 3 {
			return fmt.Errorf("usage: vire-ledger price <ticker> <price> [date]")
		}
		return runPrice(ctx, store, args[1:])
	case "report":
		return runReport(ctx, cfg, perfSvc)
	case "lots":
		return runLots(ctx, store)
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// importFile is the JSON document accepted by the import command.
type importFile struct {
	Assets       []models.AssetMeta   `json:"assets,omitempty"`
	Transactions []models.Transaction `json:"transactions"`
}

// runImport loads assets and transactions from a JSON file. Transactions
// replay in date order so sells find the lots their buys opened.
func runImport(ctx context.Context, store interfaces.StorageManager, ledgerSvc interfaces.LedgerService, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc importFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i := range doc.Assets {
		if err := store.Assets().PutAsset(ctx, &doc.Assets[i]); err != nil {
			return fmt.Errorf("failed to import asset %s: %w", doc.Assets[i].AssetID, err)
		}
	}

	sort.SliceStable(doc.Transactions, func(i, j int) bool {
		return doc.Transactions[i].Date.Before(doc.Transactions[j].Date)
	})

	for i := range doc.Transactions {
		if _, err := ledgerSvc.RecordTransaction(ctx, doc.Transactions[i]); err != nil {
			return fmt.Errorf("transaction %d of %d rejected: %w", i+1, len(doc.Transactions), err)
		}
	}

	fmt.Printf("Imported %d assets, %d transactions\n", len(doc.Assets), len(doc.Transactions))
	return nil
}

func runPrice(ctx context.Context, store interfaces.StorageManager, args []string) error {
	price, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", args[1], err)
	}
	asOf := time.Now()
	if len(args) > 2 {
		asOf, err = time.Parse("2006-01-02", args[2])
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", args[2], err)
		}
	}

	quote := models.PriceQuote{Ticker: args[0], Price: price, AsOf: asOf}
	if err := store.Prices().PutPrice(ctx, quote); err != nil {
		return err
	}
	fmt.Printf("Recorded %s = %.4f as of %s\n", quote.Ticker, quote.Price, quote.AsOf.Format("2006-01-02"))
	return nil
}

func runReport(ctx context.Context, cfg *config.Config, perfSvc interfaces.PerformanceService) error {
	lens := models.Lens(cfg.Report.DefaultLens)
	opts := interfaces.ReportOptions{
		AccountID:            *accountFlag,
		IncomeAsExternalFlow: cfg.Report.IncomeAsExternalFlow,
	}
	if *asOfFlag != "" {
		asOf, err := time.Parse("2006-01-02", *asOfFlag)
		if err != nil {
			return fmt.Errorf("invalid asof date %q: %w", *asOfFlag, err)
		}
		opts.AsOf = asOf
	}

	report, err := perfSvc.Report(ctx, lens, opts)
	if err != nil {
		return err
	}

	if *jsonFlag {
		return printJSON(report)
	}

	md, err := render.ReportMarkdown(report)
	if err != nil {
		return err
	}
	out, err := render.Terminal(md, *plainFlag)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func runLots(ctx context.Context, store interfaces.StorageManager) error {
	lots, err := store.Lots().ListLots(ctx)
	if err != nil {
		return err
	}
	if *accountFlag != "" {
		filtered := lots[:0]
		for _, lot := range lots {
			if lot.AccountID == *accountFlag {
				filtered = append(filtered, lot)
			}
		}
		lots = filtered
	}

	if *jsonFlag {
		return printJSON(lots)
	}

	md, err := render.LotsMarkdown(lots)
	if err != nil {
		return err
	}
	out, err := render.Terminal(md, *plainFlag)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ledgerConfigSearchPaths returns TOML files to auto-discover (first match
// wins). Binary-relative paths are tried first, with CWD fallbacks after.
func ledgerConfigSearchPaths() []string {
	candidates := []string{
		"vire-ledger.toml",
		"config/vire-ledger.toml",
	}

	exe, err := os.Executable()
	if err != nil {
		return candidates
	}
	binDir := filepath.Dir(exe)

	paths := []string{
		filepath.Join(binDir, "vire-ledger.toml"),
		filepath.Join(binDir, "config", "vire-ledger.toml"),
	}
	paths = append(paths, candidates...)

	seen := make(map[string]bool, len(paths))
	deduped := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		deduped = append(deduped, p)
	}
	return deduped
}
