package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ppiankov/banklab/internal/ingest"
	"github.com/ppiankov/banklab/internal/kpi"
	"github.com/ppiankov/banklab/internal/llm"
	"github.com/ppiankov/banklab/internal/model"
	"github.com/ppiankov/banklab/internal/normalize"
	"github.com/ppiankov/banklab/internal/store"
	"github.com/ppiankov/banklab/internal/validate"
)

// Sink receives a finished run
type Sink interface {
	EnsureSchema(ctx context.Context) error
	SaveRun(ctx context.Context, run store.Run) error
}

// FundamentalsPipeline runs normalize, wide pivot, KPIs and quality checks,
// then persists every stage
type FundamentalsPipeline struct {
	cfg        *model.Config
	normalizer *normalize.Normalizer
	sink       Sink
	summarizer *llm.Summarizer
	now        func() time.Time
	newID      func() string
}

// FundamentalsOption configures a FundamentalsPipeline
type FundamentalsOption func(*FundamentalsPipeline)

// WithSink also stores runs in sink
func WithSink(sink Sink) FundamentalsOption {
	return func(p *FundamentalsPipeline) { p.sink = sink }
}

// WithSummarizer writes analyst_summary.md after each run
func WithSummarizer(s *llm.Summarizer) FundamentalsOption {
	return func(p *FundamentalsPipeline) { p.summarizer = s }
}

// NewFundamentalsPipeline creates the pipeline from cfg
func NewFundamentalsPipeline(cfg *model.Config, opts ...FundamentalsOption) *FundamentalsPipeline {
	p := &FundamentalsPipeline{
		cfg:        cfg,
		normalizer: normalize.New(cfg.Normalize.MinFiscalYear, normalize.WithWorkers(cfg.Normalize.Workers)),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result holds every stage of one run
type Result struct {
	RunID      string
	CreatedAt  time.Time
	Normalized []model.NormalizedLineItem
	Wide       []model.WideRow
	KPIs       []model.KPIObservation
	Quality    *validate.Report
	Summary    *model.LLMSummary
	Files      map[string]string
}

// Entities lists the entities present in the run
func (r *Result) Entities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range r.Wide {
		if !seen[row.EntityID] {
			seen[row.EntityID] = true
			out = append(out, row.EntityID)
		}
	}
	sort.Strings(out)
	return out
}

// Compute runs every stage in memory without writing anything
func (p *FundamentalsPipeline) Compute(facts []model.RawFact, prices []model.PriceBar) (*Result, error) {
	res := &Result{
		RunID:     p.newID(),
		CreatedAt: p.now().UTC(),
		Files:     make(map[string]string),
	}

	res.Normalized = p.normalizer.Normalize(facts)
	if len(res.Normalized) == 0 {
		log.WithFields(log.Fields{"run_id": res.RunID, "facts": len(facts)}).
			Warn("No facts survived normalization; outputs will be empty")
	}
	res.Wide = normalize.ToWide(res.Normalized)

	opts := kpi.Options{Annualize: p.cfg.KPI.Annualize, PeriodsPerYear: p.cfg.KPI.PeriodsPerYear}
	var lookup kpi.PriceLookup
	if len(prices) > 0 {
		lookup = ingest.NewPriceIndex(prices).Close
	}
	res.KPIs = kpi.Observations(res.Wide, opts, lookup)
	res.KPIs = append(res.KPIs, kpi.GrowthObservations(res.Wide, kpi.GrowthConcepts)...)
	kpi.SortObservations(res.KPIs)

	qopts := validate.DefaultOptions()
	qopts.BalanceTolerance = p.cfg.Quality.BalanceTolerance
	qopts.IncludeKPIChecks = p.cfg.Quality.IncludeKPIChecks
	res.Quality = validate.RunAll(res.Wide, res.KPIs, qopts)

	log.WithFields(log.Fields{
		"run_id":     res.RunID,
		"facts":      len(facts),
		"normalized": len(res.Normalized),
		"rows":       len(res.Wide),
		"kpis":       len(res.KPIs),
		"quality":    res.Quality.Summary().String(),
	}).Info("Fundamentals computed")
	return res, nil
}

// Run computes and persists one run. Summary and database failures are
// logged and do not fail the run.
func (p *FundamentalsPipeline) Run(ctx context.Context, facts []model.RawFact, prices []model.PriceBar) (*Result, error) {
	res, err := p.Compute(facts, prices)
	if err != nil {
		return res, err
	}
	if err := p.persist(res); err != nil {
		return res, err
	}

	if p.sink != nil {
		if err := p.save(ctx, res); err != nil {
			log.WithError(err).Warn("Database sink failed")
		}
	}

	if p.summarizer != nil && p.summarizer.IsEnabled() {
		p.summarize(ctx, res)
	}
	return res, nil
}

func (p *FundamentalsPipeline) persist(res *Result) error {
	dir := p.cfg.ProcessedDir()
	tables := []struct {
		file  string
		table store.Table
	}{
		{store.FundamentalsFile, store.NormalizedTable(res.Normalized)},
		{store.WideFile, store.WideTable(res.Wide)},
		{store.KPIFile, store.KPITable(res.KPIs)},
		{store.DictionaryFile, store.DictionaryTable()},
	}

	if p.cfg.HasFormat("csv") || len(p.cfg.Output.Formats) == 0 {
		for _, t := range tables {
			path := filepath.Join(dir, t.file)
			if err := store.WriteCSVFile(path, t.table); err != nil {
				return err
			}
			res.Files[t.file] = path
		}
	}

	// The quality report is always written so an empty run still has a header-only file
	qpath := filepath.Join(dir, store.QualityFile)
	if err := writeQuality(qpath, res.Quality); err != nil {
		return err
	}
	res.Files[store.QualityFile] = qpath

	if p.cfg.HasFormat("xlsx") {
		path := filepath.Join(dir, store.WorkbookFile)
		if err := store.WriteWorkbook(path,
			tables[0].table, tables[1].table, tables[2].table,
			store.QualityTable(res.Quality), tables[3].table,
		); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		res.Files[store.WorkbookFile] = path
	}

	for name, path := range res.Files {
		log.WithFields(log.Fields{"file": name, "path": path}).Debug("Saved output")
	}
	return nil
}

func writeQuality(path string, report *validate.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create quality report: %w", err)
	}
	if err := report.WriteCSV(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write quality report: %w", err)
	}
	return f.Close()
}

func (p *FundamentalsPipeline) save(ctx context.Context, res *Result) error {
	if err := p.sink.EnsureSchema(ctx); err != nil {
		return err
	}
	return p.sink.SaveRun(ctx, store.Run{
		ID:         res.RunID,
		CreatedAt:  res.CreatedAt,
		Entities:   res.Entities(),
		Normalized: res.Normalized,
		KPIs:       res.KPIs,
		Warnings:   res.Quality.Warnings,
	})
}

func (p *FundamentalsPipeline) summarize(ctx context.Context, res *Result) {
	digest := llm.BuildDigest(res.RunID, res.KPIs, res.Quality.Warnings)
	summary, err := p.summarizer.GenerateSummary(ctx, digest)
	if err != nil {
		log.WithError(err).Warn("LLM summary generation failed")
		return
	}
	if summary == nil {
		return
	}
	res.Summary = summary
	for _, w := range summary.Warnings {
		log.WithField("provider", summary.Provider).Debug(w)
	}

	md := llm.RenderSeparateMarkdown(summary)
	if md == "" {
		return
	}
	path := filepath.Join(p.cfg.ProcessedDir(), store.SummaryFile)
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		log.WithError(err).Warn("Failed to write analyst summary")
		return
	}
	res.Files[store.SummaryFile] = path
}

// LoadRaw reads the raw tables written by DataPipeline
func LoadRaw(cfg *model.Config) ([]model.RawFact, []model.PriceBar, error) {
	facts, err := store.ReadRawFacts(filepath.Join(cfg.RawDir(), RawFactsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("raw facts not found; run 'banklab data fetch' first: %w", err)
		}
		return nil, nil, fmt.Errorf("read raw facts: %w", err)
	}
	prices, err := store.ReadPrices(filepath.Join(cfg.RawDir(), PricesFile))
	if err != nil {
		return nil, nil, fmt.Errorf("read prices: %w", err)
	}
	return facts, prices, nil
}
