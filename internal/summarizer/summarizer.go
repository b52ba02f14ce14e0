package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"Signalist/internal/domain"
	"Signalist/internal/metrics"
	"Signalist/internal/ports"
)

const (
	defaultMaxTokens   = 2048
	defaultTemperature = 0.7
)

// Options tunes the completion request. A nil Temperature means 0.7.
type Options struct {
	MaxTokens   int
	Temperature *float64
}

// Summarizer turns a user's articles into the HTML body of the digest email.
type Summarizer struct {
	completer   ports.Completer
	sanitizer   *Sanitizer
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

// New builds a summarizer. A nil completer makes every call use the fallback renderer.
func New(completer ports.Completer, opts Options, logger *slog.Logger) *Summarizer {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	temperature := defaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		completer:   completer,
		sanitizer:   NewSanitizer(),
		maxTokens:   opts.MaxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// Summarize asks the completer for an HTML summary of the articles. Only
// headline and url are sent. Failures are returned as *domain.SummarizationError.
func (s *Summarizer) Summarize(ctx context.Context, articles []domain.Article) (string, error) {
	if s.completer == nil {
		return "", &domain.SummarizationError{Err: domain.ErrNotConfigured}
	}

	briefs := make([]domain.ArticleBrief, 0, len(articles))
	for _, a := range articles {
		briefs = append(briefs, a.Brief())
	}
	payload, err := json.Marshal(briefs)
	if err != nil {
		return "", &domain.SummarizationError{Err: fmt.Errorf("encode articles: %w", err)}
	}

	prompt := strings.Replace(newsSummaryPrompt, newsDataPlaceholder, string(payload), 1)

	content, err := s.completer.Complete(ctx, ports.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   s.maxTokens,
		Temperature: &s.temperature,
	})
	if err != nil {
		return "", &domain.SummarizationError{Err: err}
	}

	content = s.sanitizer.Clean(content)
	if content == "" {
		return "", &domain.SummarizationError{Err: fmt.Errorf("empty completion from %s", s.completer.Name())}
	}
	return content, nil
}

// SummarizeOrFallback never fails: when Summarize does, the articles are
// rendered by Fallback and usedFallback is true.
func (s *Summarizer) SummarizeOrFallback(ctx context.Context, articles []domain.Article) (content string, usedFallback bool) {
	content, err := s.Summarize(ctx, articles)
	if err == nil {
		return content, false
	}

	s.logger.Warn("summarization failed, using fallback", "articles", len(articles), "error", err)
	metrics.SummaryFallbacks.Inc()
	return Fallback(articles), true
}

// Fallback renders each article as a styled block with its headline and link.
func Fallback(articles []domain.Article) string {
	var b strings.Builder
	for _, a := range articles {
		fmt.Fprintf(&b,
			`<div style="margin: 15px 0; padding: 15px; background: #212328; border-radius: 8px;">`+
				`<strong style="color: #FDD458;">%s</strong><br>`+
				`<a href="%s" style="color: #FDD458; font-size: 14px;">Read more &rarr;</a>`+
				`</div>`,
			html.EscapeString(a.Headline), html.EscapeString(a.URL))
	}
	return b.String()
}

// WelcomeIntro generates the personalised intro for the welcome email and
// falls back to a fixed sentence on any failure.
func (s *Summarizer) WelcomeIntro(ctx context.Context, profile domain.Profile) string {
	if s.completer == nil {
		return defaultWelcomeIntro
	}

	prompt := strings.Replace(welcomePrompt, userProfilePlaceholder, formatProfile(profile), 1)
	content, err := s.completer.Complete(ctx, ports.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   512,
		Temperature: &s.temperature,
	})
	if err != nil {
		s.logger.Warn("welcome intro generation failed", "error", err)
		return defaultWelcomeIntro
	}

	content = strings.TrimSpace(stripFences(content))
	if content == "" {
		return defaultWelcomeIntro
	}
	return content
}

func formatProfile(p domain.Profile) string {
	return fmt.Sprintf("- Country: %s\n- Investment goals: %s\n- Risk tolerance: %s\n- Preferred industry: %s",
		p.Country, p.InvestmentGoals, p.RiskTolerance, p.PreferredIndustry)
}
