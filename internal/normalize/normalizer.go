// Package normalize resolves raw XBRL facts into one value per entity,
// fiscal period and standardized concept, and pivots the result wide.
package normalize

import (
	"math"
	"runtime"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/banklab/internal/model"
	"github.com/ppiankov/banklab/internal/registry"
)

// DefaultMinFiscalYear is the earliest fiscal year kept by default
const DefaultMinFiscalYear = 2015

// Normalizer reduces raw facts to normalized line items
type Normalizer struct {
	defs          []model.LineItemDefinition
	stages        []Stage
	minFiscalYear int
	workers       int
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithDefinitions replaces the registry table
func WithDefinitions(defs []model.LineItemDefinition) Option {
	return func(n *Normalizer) { n.defs = defs }
}

// WithStages replaces the duplicate tie-break chain
func WithStages(stages ...Stage) Option {
	return func(n *Normalizer) { n.stages = stages }
}

// WithWorkers sets how many entities are resolved in parallel
func WithWorkers(workers int) Option {
	return func(n *Normalizer) { n.workers = workers }
}

// New creates a Normalizer that keeps fiscal years >= minFiscalYear
func New(minFiscalYear int, opts ...Option) *Normalizer {
	n := &Normalizer{
		defs:          registry.All(),
		stages:        DefaultStages(),
		minFiscalYear: minFiscalYear,
		workers:       runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.workers <= 0 {
		n.workers = 1
	}
	return n
}

// Normalize is New(minFiscalYear).Normalize(facts)
func Normalize(facts []model.RawFact, minFiscalYear int) []model.NormalizedLineItem {
	return New(minFiscalYear).Normalize(facts)
}

// Normalize resolves every (entity, fiscal period, concept) to at most one item.
// Facts outside the fiscal-year floor or with a non-standard period marker are
// dropped. Concepts without a usable fact are omitted, never emitted as nulls.
func (n *Normalizer) Normalize(facts []model.RawFact) []model.NormalizedLineItem {
	byEntity := make(map[string][]model.RawFact)
	kept := 0
	for _, f := range facts {
		if f.FiscalYear < n.minFiscalYear || !f.FiscalPeriod.Valid() {
			continue
		}
		byEntity[f.EntityID] = append(byEntity[f.EntityID], f)
		kept++
	}

	entities := make([]string, 0, len(byEntity))
	for entity := range byEntity {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	results := make([][]model.NormalizedLineItem, len(entities))
	var g errgroup.Group
	g.SetLimit(n.workers)
	for i, entity := range entities {
		g.Go(func() error {
			results[i] = n.normalizeEntity(entity, byEntity[entity])
			return nil
		})
	}
	_ = g.Wait()

	var items []model.NormalizedLineItem
	for _, r := range results {
		items = append(items, r...)
	}
	sortItems(items)

	log.WithFields(log.Fields{
		"facts":    len(facts),
		"kept":     kept,
		"entities": len(entities),
		"items":    len(items),
	}).Debug("normalized facts")

	return items
}

func (n *Normalizer) normalizeEntity(entity string, facts []model.RawFact) []model.NormalizedLineItem {
	periods := make(map[model.PeriodKey][]model.RawFact)
	for _, f := range facts {
		periods[f.Key()] = append(periods[f.Key()], f)
	}

	var items []model.NormalizedLineItem
	for key, periodFacts := range periods {
		asOf := latestPeriodEnd(periodFacts)
		byTag := indexByTag(periodFacts)

		for _, def := range n.defs {
			value, tag, ok := n.resolve(byTag, def)
			if !ok {
				continue
			}
			items = append(items, model.NormalizedLineItem{
				EntityID:     entity,
				FiscalYear:   key.FiscalYear,
				FiscalPeriod: key.FiscalPeriod,
				AsOf:         asOf,
				Concept:      def.Name,
				DisplayName:  def.DisplayName,
				Category:     def.Category,
				Value:        value,
				SourceTag:    tag,
			})
		}
	}
	return items
}

// Resolve picks the value for one concept from the facts of a single period.
// It reports the winning tag, or ok=false when no tag yields a usable value.
func (n *Normalizer) Resolve(periodFacts []model.RawFact, def model.LineItemDefinition) (value float64, tag string, ok bool) {
	return n.resolve(indexByTag(periodFacts), def)
}

func (n *Normalizer) resolve(byTag map[string][]model.RawFact, def model.LineItemDefinition) (float64, string, bool) {
	for _, tag := range def.Tags {
		var candidates []model.RawFact
		for _, f := range byTag[tag] {
			if f.Unit == def.Unit {
				candidates = append(candidates, f)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		chosen := narrow(candidates, n.stages)
		if math.IsNaN(chosen.Value) {
			continue
		}
		return chosen.Value, tag, true
	}
	return math.NaN(), "", false
}

func indexByTag(facts []model.RawFact) map[string][]model.RawFact {
	idx := make(map[string][]model.RawFact)
	for _, f := range facts {
		idx[f.ConceptTag] = append(idx[f.ConceptTag], f)
	}
	return idx
}

func latestPeriodEnd(facts []model.RawFact) time.Time {
	var latest time.Time
	for _, f := range facts {
		if f.PeriodEnd.After(latest) {
			latest = f.PeriodEnd
		}
	}
	return latest
}

func sortItems(items []model.NormalizedLineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Key() != b.Key() {
			return a.Key().Less(b.Key())
		}
		return a.Concept < b.Concept
	})
}
