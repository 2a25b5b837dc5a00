package normalize

import (
	"sort"
	"time"

	"github.com/ppiankov/banklab/internal/model"
)

type wideKey struct {
	period model.PeriodKey
	asOf   time.Time
}

// ToWide pivots normalized items into one row per entity, fiscal period and
// as-of date. When two items land in the same cell the first one wins.
func ToWide(items []model.NormalizedLineItem) []model.WideRow {
	index := make(map[wideKey]int)
	var rows []model.WideRow

	for _, item := range items {
		key := wideKey{period: item.Key(), asOf: item.AsOf}
		i, ok := index[key]
		if !ok {
			i = len(rows)
			index[key] = i
			rows = append(rows, model.WideRow{
				EntityID:     item.EntityID,
				FiscalYear:   item.FiscalYear,
				FiscalPeriod: item.FiscalPeriod,
				AsOf:         item.AsOf,
			})
		}
		rows[i].Set(item.Concept, item.Value)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Key() != b.Key() {
			return a.Key().Less(b.Key())
		}
		return a.AsOf.Before(b.AsOf)
	})
	return rows
}
