package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/banklab/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *SummarizeResponse
	err       error
	lastReq   SummarizeRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func testDigest() Digest {
	kpis := []model.KPIObservation{
		{EntityID: "JPM", FiscalYear: 2024, FiscalPeriod: model.Q1, Name: "roe", DisplayName: "Return on Equity", Unit: "percent", Value: 0.1733},
		{EntityID: "JPM", FiscalYear: 2024, FiscalPeriod: model.Q1, Name: "leverage", DisplayName: "Leverage", Unit: "multiple", Value: 12.5},
	}
	return BuildDigest("run-1", kpis, nil)
}

func TestNewSummarizer_DisabledProvider(t *testing.T) {
	summarizer, err := NewSummarizer(Config{Provider: ""})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summarizer.IsEnabled() {
		t.Error("Expected summarizer to be disabled")
	}
	if summarizer.ProviderName() != "" {
		t.Error("Expected empty provider name when disabled")
	}
}

func TestNewSummarizer_UnknownProvider(t *testing.T) {
	if _, err := NewSummarizer(Config{Provider: "telepathy"}); err == nil {
		t.Fatal("Expected error for unknown provider")
	}
}

func TestSummarizer_GenerateSummary_Disabled(t *testing.T) {
	summarizer := &Summarizer{}

	summary, err := summarizer.GenerateSummary(context.Background(), testDigest())
	if err != nil {
		t.Errorf("Expected no error when disabled, got %v", err)
	}
	if summary != nil {
		t.Error("Expected nil summary when provider disabled")
	}
}

func TestSummarizer_GenerateSummary_ProviderUnavailable(t *testing.T) {
	summarizer := &Summarizer{
		provider: &MockProvider{name: "test-provider", available: false},
		config:   Config{StrictNumbers: true},
	}

	summary, err := summarizer.GenerateSummary(context.Background(), testDigest())
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if summary == nil {
		t.Fatal("Expected summary object with warnings")
	}
	if summary.Enabled {
		t.Error("Expected summary to be marked as disabled")
	}
	if len(summary.Warnings) != 1 || !strings.Contains(summary.Warnings[0], "not available") {
		t.Errorf("Expected warning about provider unavailability, got %v", summary.Warnings)
	}
}

func TestSummarizer_GenerateSummary_Success(t *testing.T) {
	mock := &MockProvider{
		name:      "test-provider",
		available: true,
		response: &SummarizeResponse{
			Summary:    "JPM earned a 17.33% return on equity in 2024-Q1 at 12.50x leverage.",
			Model:      "test-model",
			TokensUsed: 150,
		},
	}
	summarizer := &Summarizer{
		provider: mock,
		config:   Config{Model: "test-model", StrictNumbers: true},
	}

	summary, err := summarizer.GenerateSummary(context.Background(), testDigest())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !summary.Enabled {
		t.Error("Expected summary to be enabled")
	}
	if summary.Provider != "test-provider" {
		t.Errorf("Expected provider 'test-provider', got '%s'", summary.Provider)
	}
	if summary.Model != "test-model" {
		t.Errorf("Expected model 'test-model', got '%s'", summary.Model)
	}
	if !summary.StrictNumbers {
		t.Error("Expected strict numbers mode to be enabled")
	}
	if summary.SummaryMD != mock.response.Summary {
		t.Errorf("Expected summary text to match, got '%s'", summary.SummaryMD)
	}
	if len(mock.lastReq.AllowedNumbers) == 0 {
		t.Error("Expected allowed numbers to be passed to the provider")
	}

	foundTokens, foundVerified := false, false
	for _, warning := range summary.Warnings {
		if strings.Contains(warning, "Tokens used: 150") {
			foundTokens = true
		}
		if strings.HasPrefix(warning, "Verified") && strings.Contains(warning, "numbers") {
			foundVerified = true
		}
	}
	if !foundTokens {
		t.Error("Expected warning about tokens used")
	}
	if !foundVerified {
		t.Error("Expected warning about verified numbers")
	}
}

func TestSummarizer_GenerateSummary_RejectsInventedNumbers(t *testing.T) {
	summarizer := &Summarizer{
		provider: &MockProvider{
			name:      "test-provider",
			available: true,
			response:  &SummarizeResponse{Summary: "JPM earned 18.9% on equity."},
		},
		config: Config{StrictNumbers: true},
	}

	summary, err := summarizer.GenerateSummary(context.Background(), testDigest())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summary.SummaryMD != "" {
		t.Errorf("Expected summary to be rejected, got %q", summary.SummaryMD)
	}
	if len(summary.Warnings) != 1 || !strings.Contains(summary.Warnings[0], "18.9") {
		t.Errorf("Expected rejection warning naming 18.9, got %v", summary.Warnings)
	}
}

func TestSummarizer_GenerateSummary_LenientKeepsInventedNumbers(t *testing.T) {
	summarizer := &Summarizer{
		provider: &MockProvider{
			name:      "test-provider",
			available: true,
			response:  &SummarizeResponse{Summary: "JPM earned 18.9% on equity."},
		},
		config: Config{StrictNumbers: false},
	}

	summary, err := summarizer.GenerateSummary(context.Background(), testDigest())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summary.SummaryMD == "" {
		t.Error("Expected summary to be kept when strict numbers is off")
	}
}

func TestSummarizer_GenerateSummary_ProviderError(t *testing.T) {
	summarizer := &Summarizer{
		provider: &MockProvider{
			name:      "test-provider",
			available: true,
			err:       errors.New("API rate limit exceeded"),
		},
		config: Config{Model: "test-model", StrictNumbers: true},
	}

	summary, err := summarizer.GenerateSummary(context.Background(), testDigest())
	if err != nil {
		t.Errorf("Expected no error (graceful degradation), got %v", err)
	}
	if summary == nil {
		t.Fatal("Expected summary with error warning")
	}
	if !summary.Enabled {
		t.Error("Expected summary to be marked as enabled (but failed)")
	}

	found := false
	for _, warning := range summary.Warnings {
		if strings.Contains(warning, "failed") && strings.Contains(warning, "rate limit") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected warning to mention error: %v", summary.Warnings)
	}
}

func TestRenderSeparateMarkdown_Disabled(t *testing.T) {
	if md := RenderSeparateMarkdown(&model.LLMSummary{Enabled: false}); md != "" {
		t.Error("Expected empty markdown when disabled")
	}
	if md := RenderSeparateMarkdown(nil); md != "" {
		t.Error("Expected empty markdown when nil")
	}
}

func TestRenderSeparateMarkdown_Success(t *testing.T) {
	summary := &model.LLMSummary{
		Enabled:       true,
		Provider:      "openai",
		Model:         "gpt-4o-mini",
		StrictNumbers: true,
		SummaryMD:     "This is the generated summary content.",
		Warnings:      []string{"Tokens used: 150", "Verified 5 numbers"},
	}

	md := RenderSeparateMarkdown(summary)

	for _, section := range []string{
		"# Analyst Summary",
		"GENERATED CONTENT",
		"computed independently",
		"**Provider**: openai",
		"**Model**: gpt-4o-mini",
		"**Strict Numbers**: true",
		"This is the generated summary content.",
		"## Notes",
		"Tokens used: 150",
		"Verified 5 numbers",
	} {
		if !strings.Contains(md, section) {
			t.Errorf("Expected markdown to contain '%s'", section)
		}
	}
}

func TestRenderSeparateMarkdown_NoSummary(t *testing.T) {
	md := RenderSeparateMarkdown(&model.LLMSummary{Enabled: true, Provider: "test-provider"})

	if !strings.Contains(md, "No summary generated") {
		t.Error("Expected message about no summary")
	}
}
