package kpi

import (
	"math"

	"github.com/ppiankov/banklab/internal/model"
)

// GrowthObservations derives year-over-year and quarter-over-quarter growth
// for the given concepts. YoY compares the same fiscal period one year
// earlier; QoQ compares quarters only, with Q1 following the prior Q4.
func GrowthObservations(rows []model.WideRow, concepts []string) []model.KPIObservation {
	index := make(map[model.PeriodKey]model.WideRow, len(rows))
	for _, row := range rows {
		if _, dup := index[row.Key()]; !dup {
			index[row.Key()] = row
		}
	}

	var out []model.KPIObservation
	for _, concept := range concepts {
		yoyDef, err := Lookup(concept + "_yoy")
		if err != nil {
			continue
		}
		qoqDef, _ := Lookup(concept + "_qoq")

		current := make([]float64, len(rows))
		priorYear := make([]float64, len(rows))
		priorQuarter := make([]float64, len(rows))
		for i, row := range rows {
			current[i], _ = row.Get(concept)
			priorYear[i] = valueAt(index, yearEarlier(row.Key()), concept)
			if prev, ok := row.Key().PreviousQuarter(); ok {
				priorQuarter[i] = valueAt(index, prev, concept)
			} else {
				priorQuarter[i] = math.NaN()
			}
		}

		yoy := Batch(YoYGrowth, current, priorYear)
		qoq := Batch(QoQGrowth, current, priorQuarter)
		for i, row := range rows {
			if !math.IsNaN(yoy[i]) {
				out = append(out, observation(row, yoyDef, yoy[i]))
			}
			if !math.IsNaN(qoq[i]) {
				out = append(out, observation(row, qoqDef, qoq[i]))
			}
		}
	}
	SortObservations(out)
	return out
}

func valueAt(index map[model.PeriodKey]model.WideRow, key model.PeriodKey, concept string) float64 {
	row, ok := index[key]
	if !ok {
		return math.NaN()
	}
	v, _ := row.Get(concept)
	return v
}

func yearEarlier(k model.PeriodKey) model.PeriodKey {
	k.FiscalYear--
	return k
}
