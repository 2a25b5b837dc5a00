package normalize

import (
	"github.com/ppiankov/banklab/internal/model"
)

// DefaultFormPreference is the order in which duplicate reports are trusted
var DefaultFormPreference = []string{model.Form10K, model.Form10Q, model.Form10KA, model.Form10QA}

// Stage narrows the duplicate facts reported for one tag in one period.
// A stage must never return an empty slice for a non-empty input.
type Stage struct {
	Name  string
	Apply func(candidates []model.RawFact) []model.RawFact
}

// DefaultStages is the tie-break chain applied to duplicate facts:
// preferred filing forms, then the most recent filing.
func DefaultStages() []Stage {
	return []Stage{
		PreferForms(DefaultFormPreference...),
		LatestFiled(),
	}
}

// PreferForms keeps only the facts of the first listed form that has any
// match. When none of the forms is present the candidates pass through.
func PreferForms(forms ...string) Stage {
	return Stage{
		Name: "prefer_forms",
		Apply: func(candidates []model.RawFact) []model.RawFact {
			for _, form := range forms {
				var kept []model.RawFact
				for _, f := range candidates {
					if f.SourceForm == form {
						kept = append(kept, f)
					}
				}
				if len(kept) > 0 {
					return kept
				}
			}
			return candidates
		},
	}
}

// LatestFiled keeps the most recently filed fact. Equal filing dates fall
// back to the later period end, then to input order.
func LatestFiled() Stage {
	return Stage{
		Name: "latest_filed",
		Apply: func(candidates []model.RawFact) []model.RawFact {
			if len(candidates) == 0 {
				return candidates
			}
			best := 0
			for i := 1; i < len(candidates); i++ {
				c, b := candidates[i], candidates[best]
				if c.Filed.After(b.Filed) || (c.Filed.Equal(b.Filed) && c.PeriodEnd.After(b.PeriodEnd)) {
					best = i
				}
			}
			return candidates[best : best+1]
		},
	}
}

// narrow runs the stages in order until one candidate is left
func narrow(candidates []model.RawFact, stages []Stage) model.RawFact {
	for _, stage := range stages {
		if len(candidates) <= 1 {
			break
		}
		if next := stage.Apply(candidates); len(next) > 0 {
			candidates = next
		}
	}
	return candidates[0]
}
