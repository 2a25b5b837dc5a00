package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ppiankov/banklab/internal/llm"
	"github.com/ppiankov/banklab/internal/model"
	"github.com/ppiankov/banklab/internal/pipeline"
	"github.com/ppiankov/banklab/internal/store"
)

var (
	withSummary bool
	llmProvider string
	llmModel    string
	formats     []string
)

var fundamentalsCmd = &cobra.Command{
	Use:   "fundamentals",
	Short: "Build the fundamentals panel",
}

var fundamentalsBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Normalize raw facts, compute KPIs and run quality checks",
	Long: `Build reads raw_facts.csv (and prices_daily.csv when present) from
<data_dir>/raw and writes to <data_dir>/processed:

  fundamentals_quarterly.csv       one value per bank, quarter and line item
  fundamentals_quarterly_wide.csv  one row per bank and quarter
  kpis_quarterly.csv               bank KPIs and growth rates
  quality_report.csv               data quality findings
  data_dictionary.csv              line item definitions

Example:
  banklab fundamentals build
  banklab fundamentals build --format csv,xlsx
  banklab fundamentals build --summary --llm-provider ollama`,
	Args: cobra.NoArgs,
	RunE: runFundamentalsBuild,
}

func init() {
	rootCmd.AddCommand(fundamentalsCmd)
	fundamentalsCmd.AddCommand(fundamentalsBuildCmd)
	addBuildFlags(fundamentalsBuildCmd)
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&formats, "format", nil, "output formats: csv, xlsx (default from config)")
	cmd.Flags().BoolVar(&withSummary, "summary", false, "write analyst_summary.md with the configured LLM")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider for --summary (openai, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func applyBuildFlags(cfg *model.Config) {
	if len(formats) > 0 {
		cfg.Output.Formats = formats
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
}

func runFundamentalsBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyBuildFlags(cfg)

	facts, prices, err := pipeline.LoadRaw(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	return buildFundamentals(ctx, cfg, facts, prices)
}

func buildFundamentals(ctx context.Context, cfg *model.Config, facts []model.RawFact, prices []model.PriceBar) error {
	banner("BankLab Fundamentals Build")
	field("Raw facts", len(facts))
	field("Prices", len(prices))
	field("Formats", strings.Join(cfg.Output.Formats, ", "))
	field("Annualize", cfg.KPI.Annualize)

	var opts []pipeline.FundamentalsOption

	if cfg.Output.PostgresURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.Output.PostgresURL)
		if err != nil {
			log.WithError(err).Warn("Postgres unavailable; skipping database output")
		} else {
			defer pg.Close()
			opts = append(opts, pipeline.WithSink(pg))
			field("Postgres", "enabled")
		}
	}

	if withSummary {
		if cfg.LLM.Provider == "" {
			return fmt.Errorf("--summary needs an LLM provider: set llm.provider or pass --llm-provider")
		}
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
		if err != nil {
			return fmt.Errorf("initialize LLM provider: %w", err)
		}
		opts = append(opts, pipeline.WithSummarizer(s))
		field("LLM", s.ProviderName())
	}
	fmt.Fprintln(os.Stderr)

	res, err := pipeline.NewFundamentalsPipeline(cfg, opts...).Run(ctx, facts, prices)
	if err != nil {
		return fmt.Errorf("fundamentals build failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Normalized %d line items across %d bank-quarters\n", len(res.Normalized), len(res.Wide))
	fmt.Fprintf(os.Stderr, "✓ Computed %d KPI observations\n", len(res.KPIs))
	fmt.Fprintf(os.Stderr, "✓ Quality: %s\n", res.Quality.Summary())
	if res.Summary != nil {
		if res.Summary.SummaryMD != "" {
			fmt.Fprintf(os.Stderr, "✓ Generated analyst summary using %s/%s\n", res.Summary.Provider, res.Summary.Model)
		}
		for _, w := range res.Summary.Warnings {
			fmt.Fprintf(os.Stderr, "    %s\n", w)
		}
	}
	printFiles(res.Files)
	fmt.Fprintf(os.Stderr, "  Run ID: %s\n\n", res.RunID)

	if res.Quality.HasErrors() {
		fmt.Fprintf(os.Stderr, "⚠ Quality errors found; see %s\n\n", res.Files[store.QualityFile])
	}
	return nil
}
