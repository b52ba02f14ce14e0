package news

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"Signalist/internal/domain"
	"Signalist/internal/ports"
)

// CachedProvider serves category news from a cache for ttl. Company news is
// never cached so each run sees the current lookback window.
type CachedProvider struct {
	next   ports.NewsProvider
	cache  ports.NewsCache
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.NewsProvider = (*CachedProvider)(nil)

// NewCachedProvider decorates next. A nil cache or non-positive ttl disables caching.
func NewCachedProvider(next ports.NewsProvider, cache ports.NewsCache, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProvider{next: next, cache: cache, ttl: ttl, logger: logger}
}

// CompanyNews always goes to the upstream provider.
func (c *CachedProvider) CompanyNews(ctx context.Context, symbol, from, to string) ([]domain.RawArticle, error) {
	return c.next.CompanyNews(ctx, symbol, from, to)
}

// MarketNews returns a cached copy when one is still fresh.
func (c *CachedProvider) MarketNews(ctx context.Context, category string) ([]domain.RawArticle, error) {
	if c.cache == nil || c.ttl <= 0 {
		return c.next.MarketNews(ctx, category)
	}

	key := "news:market:" + category
	if payload, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("news cache read failed", "key", key, "error", err)
	} else if ok {
		var cached []domain.RawArticle
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		c.logger.Warn("news cache entry undecodable", "key", key)
	}

	articles, err := c.next.MarketNews(ctx, category)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(articles); err == nil {
		if err := c.cache.Set(ctx, key, payload, c.ttl); err != nil {
			c.logger.Warn("news cache write failed", "key", key, "error", err)
		}
	}
	return articles, nil
}
