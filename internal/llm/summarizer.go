package llm

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ppiankov/banklab/internal/model"
)

// Summarizer wraps a provider with number verification
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer builds a summarizer. A nil provider disables it.
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s.provider != nil
}

// ProviderName returns the provider name, or "" when disabled
func (s *Summarizer) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary asks the provider for a narrative of d. Provider failures
// are reported as warnings on the summary and never fail the run.
func (s *Summarizer) GenerateSummary(ctx context.Context, d Digest) (*model.LLMSummary, error) {
	if s.provider == nil {
		return nil, nil
	}

	summary := &model.LLMSummary{
		Enabled:       true,
		Provider:      s.provider.Name(),
		Model:         s.config.Model,
		StrictNumbers: s.config.StrictNumbers,
	}

	if !s.provider.IsAvailable(ctx) {
		summary.Enabled = false
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM provider %s not available", s.provider.Name()))
		return summary, nil
	}

	allowed := AllowedNumbers(d)
	log.WithFields(log.Fields{
		"provider": s.provider.Name(),
		"entities": len(d.Entities),
		"allowed":  len(allowed),
	}).Debug("Requesting summary")

	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Digest:         d,
		AllowedNumbers: allowed,
		Model:          s.config.Model,
		MaxTokens:      s.config.MaxTokens,
	})
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM generation failed: %v", err))
		return summary, nil
	}

	if resp.Model != "" {
		summary.Model = resp.Model
	}

	cited := ExtractNumbers(resp.Summary)
	if s.config.StrictNumbers {
		if bad := UnlistedNumbers(resp.Summary, allowed); len(bad) > 0 {
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("Summary rejected: cites numbers not present in the data: %s", strings.Join(bad, ", ")))
			return summary, nil
		}
	}

	summary.SummaryMD = resp.Summary
	summary.Warnings = append(summary.Warnings,
		fmt.Sprintf("Tokens used: %d", resp.TokensUsed),
		fmt.Sprintf("Verified %d numbers", len(cited)),
	)
	return summary, nil
}

// RenderSeparateMarkdown renders the summary as a standalone analyst_summary.md
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Analyst Summary\n\n")
	b.WriteString("> **GENERATED CONTENT**: this narrative was written by a language model from the run's KPI table. ")
	b.WriteString("All figures were computed independently of the model; treat the tables as authoritative.\n\n")

	fmt.Fprintf(&b, "- **Provider**: %s\n", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&b, "- **Model**: %s\n", summary.Model)
	}
	fmt.Fprintf(&b, "- **Strict Numbers**: %t\n\n", summary.StrictNumbers)

	b.WriteString("## Summary\n\n")
	if summary.SummaryMD == "" {
		b.WriteString("_No summary generated._\n")
	} else {
		b.WriteString(summary.SummaryMD)
		b.WriteString("\n")
	}

	if len(summary.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
