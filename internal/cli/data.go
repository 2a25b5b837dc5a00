package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/banklab/internal/model"
	"github.com/ppiankov/banklab/internal/pipeline"
	"github.com/ppiankov/banklab/internal/worker"
)

var (
	tickersFile string
	refresh     bool
	noPrices    bool
	noCache     bool
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Download source data",
}

var dataFetchCmd = &cobra.Command{
	Use:   "fetch [TICKER...]",
	Short: "Download SEC company facts and daily prices",
	Long: `Fetch downloads XBRL company facts from SEC EDGAR and daily prices from
Stooq for each ticker, keeps every file under <data_dir>/raw with a
provenance manifest, and writes raw_facts.csv and prices_daily.csv.

Files already downloaded are reused unless --refresh is given. A ticker
that fails is reported and skipped.

Example:
  banklab data fetch
  banklab data fetch JPM BAC WFC
  banklab data fetch --tickers-file banks.txt --refresh`,
	RunE: runDataFetch,
}

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataFetchCmd)
	addFetchFlags(dataFetchCmd)
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&tickersFile, "tickers-file", "", "file with one ticker per line")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "download again even if files exist")
	cmd.Flags().BoolVar(&noPrices, "no-prices", false, "skip price downloads")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the HTTP response cache")
}

// resolveTickers picks tickers from args, then --tickers-file, then config
func resolveTickers(cfg *model.Config, args []string) ([]string, error) {
	switch {
	case len(args) > 0:
		out := make([]string, 0, len(args))
		for _, a := range args {
			out = append(out, strings.ToUpper(strings.TrimSpace(a)))
		}
		return out, nil
	case tickersFile != "":
		return worker.ReadTickersFromFile(tickersFile)
	case len(cfg.Tickers) > 0:
		return cfg.Tickers, nil
	default:
		return nil, fmt.Errorf("no tickers: pass them as arguments, use --tickers-file, or set tickers in the config")
	}
}

func applyFetchFlags(cfg *model.Config) {
	if noPrices {
		cfg.Prices.Enabled = false
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
}

func runDataFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFetchFlags(cfg)
	tickers, err := resolveTickers(cfg, args)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	_, err = fetchData(ctx, cfg, tickers)
	return err
}

func fetchData(ctx context.Context, cfg *model.Config, tickers []string) (*pipeline.DataResult, error) {
	banner("BankLab Data Fetch")
	field("Tickers", strings.Join(tickers, ", "))
	field("Data dir", cfg.DataDir)
	field("Workers", cfg.Concurrency.Workers)
	field("Prices", cfg.Prices.Enabled)
	field("Refresh", refresh)
	fmt.Fprintln(os.Stderr)

	p, err := pipeline.NewDataPipeline(cfg, pipeline.WithRefresh(refresh))
	if err != nil {
		return nil, err
	}
	res, err := p.Run(ctx, tickers)
	if res != nil {
		printFailures(res.Failed)
	}
	if err != nil {
		return res, fmt.Errorf("data fetch failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Loaded %d facts for %d tickers\n", len(res.Facts), len(res.Companies))
	for _, c := range res.Companies {
		fmt.Fprintf(os.Stderr, "    %-6s %s (CIK %s)\n", c.Ticker, c.Name, c.CIK)
	}
	if cfg.Prices.Enabled {
		fmt.Fprintf(os.Stderr, "✓ Loaded %d daily prices\n", len(res.Prices))
	}
	printFiles(res.Files)
	fmt.Fprintf(os.Stderr, "  Completed in %v\n\n", res.Duration.Round(time.Millisecond))
	return res, nil
}

func printFailures(failed map[string]error) {
	if len(failed) == 0 {
		return
	}
	tickers := make([]string, 0, len(failed))
	for t := range failed {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	fmt.Fprintf(os.Stderr, "✗ %d tickers failed:\n", len(failed))
	for _, t := range tickers {
		fmt.Fprintf(os.Stderr, "    %s\n", failed[t])
	}
}

func printFiles(files map[string]string) {
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", files[n])
	}
}
