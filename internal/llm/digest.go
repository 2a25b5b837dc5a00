package llm

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/banklab/internal/model"
)

// DigestMetrics are the KPIs reported per bank, in display order
var DigestMetrics = []string{"roe", "roa", "nim", "efficiency_ratio", "equity_to_assets", "leverage", "ldr", "pb"}

const maxQualityMessages = 5

// Digest is the compact view of a run handed to the model
type Digest struct {
	RunID    string
	Entities []EntityDigest
	Quality  QualityDigest
}

// EntityDigest holds one bank's latest period
type EntityDigest struct {
	EntityID string
	Period   string
	Metrics  []Metric
}

// Metric is one formatted KPI value
type Metric struct {
	Name        string
	DisplayName string
	Value       float64
	Formatted   string
}

// QualityDigest counts quality findings by severity
type QualityDigest struct {
	Errors, Warnings, Info int
	Messages               []string
}

// BuildDigest keeps each entity's most recent period of DigestMetrics and
// the first few error and warning messages
func BuildDigest(runID string, kpis []model.KPIObservation, warnings []model.QualityWarning) Digest {
	latest := make(map[string]model.PeriodKey)
	for _, o := range kpis {
		k := o.Key()
		if cur, ok := latest[o.EntityID]; !ok || cur.Less(k) {
			latest[o.EntityID] = k
		}
	}

	wanted := make(map[string]int, len(DigestMetrics))
	for i, name := range DigestMetrics {
		wanted[name] = i
	}

	byEntity := make(map[string][]Metric)
	for _, o := range kpis {
		if _, ok := wanted[o.Name]; !ok || o.Key() != latest[o.EntityID] || math.IsNaN(o.Value) {
			continue
		}
		byEntity[o.EntityID] = append(byEntity[o.EntityID], Metric{
			Name:        o.Name,
			DisplayName: o.DisplayName,
			Value:       o.Value,
			Formatted:   FormatValue(o.Value, o.Unit),
		})
	}

	d := Digest{RunID: runID}
	entities := make([]string, 0, len(latest))
	for e := range latest {
		entities = append(entities, e)
	}
	sort.Strings(entities)
	for _, e := range entities {
		metrics := byEntity[e]
		sort.Slice(metrics, func(i, j int) bool { return wanted[metrics[i].Name] < wanted[metrics[j].Name] })
		d.Entities = append(d.Entities, EntityDigest{EntityID: e, Period: latest[e].Label(), Metrics: metrics})
	}

	for _, w := range warnings {
		switch w.Severity {
		case model.SeverityError:
			d.Quality.Errors++
		case model.SeverityWarning:
			d.Quality.Warnings++
		default:
			d.Quality.Info++
			continue
		}
		if len(d.Quality.Messages) < maxQualityMessages {
			d.Quality.Messages = append(d.Quality.Messages, fmt.Sprintf("%s %s: %s", w.EntityID, w.Period, w.Message))
		}
	}
	return d
}

// FormatValue renders a KPI the way it is shown to the model
func FormatValue(v float64, unit string) string {
	switch unit {
	case "percent":
		return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
	case "multiple":
		return strconv.FormatFloat(v, 'f', 2, 64) + "x"
	case "currency":
		return "$" + strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return strconv.FormatFloat(v, 'f', 4, 64)
	}
}

var numberPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// AllowedNumbers lists every number that appears anywhere in the prompt for d
func AllowedNumbers(d Digest) []string {
	return ExtractNumbers(BuildPrompt(d, []string{"*"}))
}

// ExtractNumbers returns the distinct numbers in text with thousands separators removed
func ExtractNumbers(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range numberPattern.FindAllString(text, -1) {
		n := normalizeNumber(m)
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func normalizeNumber(s string) string {
	s = strings.ReplaceAll(s, ",", "")
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// UnlistedNumbers returns the numbers in summary that are not in allowed
func UnlistedNumbers(summary string, allowed []string) []string {
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[normalizeNumber(a)] = true
	}
	var bad []string
	for _, n := range ExtractNumbers(summary) {
		if !ok[n] {
			bad = append(bad, n)
		}
	}
	return bad
}
