// Package validate checks the normalized and KPI panels against accounting
// and plausibility rules. Checks never fail a run; they return warnings.
package validate

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/ppiankov/banklab/internal/model"
)

// Result is the outcome of one check
type Result struct {
	Check    string
	Warnings []model.QualityWarning
}

// Report accumulates the results of a validation pass
type Report struct {
	Warnings  []model.QualityWarning `json:"warnings"`
	ChecksRun []string               `json:"checks_run"`
}

// Merge appends check results. A check is recorded as run even when it found nothing.
func (r *Report) Merge(results ...Result) {
	for _, res := range results {
		r.ChecksRun = append(r.ChecksRun, res.Check)
		r.Warnings = append(r.Warnings, res.Warnings...)
	}
}

// Combine merges other reports into r
func (r *Report) Combine(others ...*Report) {
	for _, o := range others {
		if o == nil {
			continue
		}
		r.ChecksRun = append(r.ChecksRun, o.ChecksRun...)
		r.Warnings = append(r.Warnings, o.Warnings...)
	}
}

// HasErrors reports whether any warning has error severity
func (r *Report) HasErrors() bool {
	for _, w := range r.Warnings {
		if w.Severity == model.SeverityError {
			return true
		}
	}
	return false
}

// BySeverity returns the warnings of one severity
func (r *Report) BySeverity(sev model.Severity) []model.QualityWarning {
	var out []model.QualityWarning
	for _, w := range r.Warnings {
		if w.Severity == sev {
			out = append(out, w)
		}
	}
	return out
}

// Summary counts warnings by severity
type Summary struct {
	Errors   int      `json:"error"`
	Warnings int      `json:"warning"`
	Info     int      `json:"info"`
	Entities []string `json:"entities"` // Entities with at least one warning
}

// Summary counts warnings by severity and lists the affected entities
func (r *Report) Summary() Summary {
	var s Summary
	seen := make(map[string]bool)
	for _, w := range r.Warnings {
		switch w.Severity {
		case model.SeverityError:
			s.Errors++
		case model.SeverityWarning:
			s.Warnings++
		case model.SeverityInfo:
			s.Info++
		}
		if w.EntityID != "" && !seen[w.EntityID] {
			seen[w.EntityID] = true
			s.Entities = append(s.Entities, w.EntityID)
		}
	}
	sort.Strings(s.Entities)
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d errors, %d warnings, %d info", s.Errors, s.Warnings, s.Info)
}

// CSVHeader is the quality report table header
var CSVHeader = []string{"check_name", "severity", "entity_id", "period", "message"}

// WriteCSV writes the report as a table. An empty report still gets a header.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, warn := range r.Warnings {
		record := []string{warn.CheckName, string(warn.Severity), warn.EntityID, warn.Period, warn.Message}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
