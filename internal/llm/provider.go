// Package llm writes an optional narrative summary of a finished run.
// The summary is produced after every number is final and never feeds back
// into them; any number it quotes must appear in the run digest.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider is a chat model backend
type Provider interface {
	Name() string
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest is the input to one summary
type SummarizeRequest struct {
	Digest Digest

	// AllowedNumbers are the only figures the model may quote
	AllowedNumbers []string

	Prompt    string // Overrides BuildPrompt when set
	Model     string
	MaxTokens int
}

// SummarizeResponse is the model output
type SummarizeResponse struct {
	Summary    string
	Model      string
	TokensUsed int
}

// Config holds provider settings
type Config struct {
	Provider string // openai, ollama, or empty to disable
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration

	// StrictNumbers rejects summaries quoting figures absent from the digest
	StrictNumbers bool

	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns a disabled configuration with strict numbers on
func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Second,
		StrictNumbers: true,
		MaxTokens:     1000,
	}
}

const systemPrompt = "You are a bank equity analyst summarizing a quarterly fundamentals panel. " +
	"You quote figures exactly as given and never compute new ones."

// BuildPrompt renders the digest into the user prompt
func BuildPrompt(d Digest, allowed []string) string {
	var b strings.Builder
	b.WriteString(`Summarize the latest quarterly fundamentals of the banks below.

RULES:
1. Quote only numbers that appear in the data below, written exactly as shown.
2. Do not compute new ratios, differences or averages.
3. If a metric is missing for a bank, say so instead of estimating it.
4. Mention data quality problems when the quality section lists any.
5. Write 2-3 short paragraphs of markdown, no tables.

`)
	fmt.Fprintf(&b, "Banks: %d\n\n", len(d.Entities))
	for _, e := range d.Entities {
		fmt.Fprintf(&b, "## %s (%s)\n", e.EntityID, e.Period)
		if len(e.Metrics) == 0 {
			b.WriteString("- no metrics available\n")
		}
		for _, m := range e.Metrics {
			fmt.Fprintf(&b, "- %s: %s\n", m.DisplayName, m.Formatted)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Data quality\n- errors: %d\n- warnings: %d\n- info: %d\n",
		d.Quality.Errors, d.Quality.Warnings, d.Quality.Info)
	for _, msg := range d.Quality.Messages {
		fmt.Fprintf(&b, "- %s\n", msg)
	}

	if len(allowed) == 0 {
		b.WriteString("\n(No figures available: do not quote any numbers.)\n")
	}
	return b.String()
}
