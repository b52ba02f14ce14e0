package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"Signalist/internal/domain"
	"Signalist/internal/metrics"
	"Signalist/internal/ports"
)

const (
	// MaxArticles caps every GetNews result.
	MaxArticles  = 6
	maxSymbols   = 10
	maxRounds    = 6
	lookbackDays = 5
)

// AggregatorDeps wires the aggregator to its provider.
type AggregatorDeps struct {
	Provider ports.NewsProvider
	Logger   *slog.Logger
	Now      func() time.Time
}

// Aggregator builds per-user news selections from company and general news.
type Aggregator struct {
	provider ports.NewsProvider
	logger   *slog.Logger
	now      func() time.Time
}

// NewAggregator constructs the aggregator; Now defaults to time.Now.
func NewAggregator(deps AggregatorDeps) *Aggregator {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{provider: deps.Provider, logger: logger, now: now}
}

// GetNews returns at most six articles, most recent first. With symbols it
// round-robins company news and falls back to general news when nothing
// usable comes back. The returned error is always a *domain.NewsFetchError.
func (a *Aggregator) GetNews(ctx context.Context, symbols []string) ([]domain.Article, error) {
	if a.provider == nil {
		return nil, &domain.NewsFetchError{Err: domain.ErrNotConfigured}
	}

	window := LookbackWindow(a.now(), lookbackDays)

	cleaned := CleanSymbols(symbols)
	if len(cleaned) == 0 {
		return a.generalNews(ctx)
	}

	articles, err := a.companyNews(ctx, cleaned, window)
	if err != nil {
		return nil, err
	}
	if len(articles) > 0 {
		return articles, nil
	}

	a.logger.Debug("no company news in window, using general news",
		"symbols", strings.Join(cleaned, ","), "from", window.From, "to", window.To)
	return a.generalNews(ctx)
}

// CleanSymbols uppercases and trims symbols, drops empties and keeps the first ten.
func CleanSymbols(symbols []string) []string {
	cleaned := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		cleaned = append(cleaned, s)
		if len(cleaned) == maxSymbols {
			break
		}
	}
	return cleaned
}

func (a *Aggregator) companyNews(ctx context.Context, symbols []string, window Window) ([]domain.Article, error) {
	collected := make([]domain.Article, 0, MaxArticles)
	seen := make(map[string]struct{}, MaxArticles)

	for round := 0; round < maxRounds; round++ {
		symbol := symbols[round%len(symbols)]

		raws, err := a.provider.CompanyNews(ctx, symbol, window.From, window.To)
		if err != nil {
			if errors.Is(err, domain.ErrMissingAPIKey) {
				return nil, &domain.NewsFetchError{Err: err}
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &domain.NewsFetchError{Err: ctxErr}
			}
			metrics.NewsFetchErrors.WithLabelValues("company").Inc()
			a.logger.Warn("company news fetch failed", "symbol", symbol, "round", round, "error", err)
			continue
		}

		for _, raw := range raws {
			if !Validate(raw) {
				continue
			}
			article := Format(raw, true, symbol, round)
			if _, dup := seen[article.ID]; !dup {
				seen[article.ID] = struct{}{}
				collected = append(collected, article)
			}
			break
		}

		if len(collected) >= MaxArticles {
			break
		}
	}

	sortByRecency(collected)
	if len(collected) > MaxArticles {
		collected = collected[:MaxArticles]
	}
	return collected, nil
}

func (a *Aggregator) generalNews(ctx context.Context) ([]domain.Article, error) {
	raws, err := a.provider.MarketNews(ctx, generalCategory)
	if err != nil {
		metrics.NewsFetchErrors.WithLabelValues(generalCategory).Inc()
		return nil, &domain.NewsFetchError{Err: err}
	}

	collected := make([]domain.Article, 0, MaxArticles)
	seen := make(map[string]struct{}, len(raws))

	for i, raw := range raws {
		if !Validate(raw) {
			continue
		}
		key := dedupKey(raw)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		collected = append(collected, Format(raw, false, "", i))
		if len(collected) >= MaxArticles {
			break
		}
	}

	sortByRecency(collected)
	return collected, nil
}

func dedupKey(raw domain.RawArticle) string {
	id := ""
	if raw.ID != 0 {
		id = strconv.FormatInt(raw.ID, 10)
	}
	return fmt.Sprintf("%s-%s-%s", id, strings.TrimSpace(raw.URL), strings.TrimSpace(raw.Headline))
}

func sortByRecency(articles []domain.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Datetime > articles[j].Datetime
	})
}
