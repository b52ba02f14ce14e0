package finnhub

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
	"golang.org/x/time/rate"

	"Signalist/internal/domain"
	"Signalist/internal/ports"
)

const (
	defaultBaseURL           = "https://finnhub.io/api/v1"
	defaultRequestsPerMinute = 60
	userAgent                = "Signalist/1.0"
)

// Config configures the Finnhub news client.
type Config struct {
	APIKey            string
	BaseURL           string
	RequestsPerMinute int
	Timeout           time.Duration
}

// Client implements ports.NewsProvider on the Finnhub REST API.
type Client struct {
	api     *finnhub.DefaultApiService
	apiKey  string
	limiter *rate.Limiter
}

var _ ports.NewsProvider = (*Client)(nil)

// NewClient wires the generated API client; httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	apiCfg := finnhub.NewConfiguration()
	apiCfg.HTTPClient = httpClient
	apiCfg.UserAgent = userAgent
	apiCfg.Servers = finnhub.ServerConfigurations{{URL: baseURL}}

	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = defaultRequestsPerMinute
	}

	return &Client{
		api:     finnhub.NewAPIClient(apiCfg).DefaultApi,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 5),
	}
}

// CompanyNews fetches news for symbol between from and to (YYYY-MM-DD).
func (c *Client) CompanyNews(ctx context.Context, symbol, from, to string) ([]domain.RawArticle, error) {
	ctx, err := c.prepare(ctx)
	if err != nil {
		return nil, err
	}

	items, _, err := c.api.CompanyNews(ctx).Symbol(symbol).From(from).To(to).Execute()
	if err != nil {
		return nil, &domain.FetchError{Symbol: symbol, Err: err}
	}

	out := make([]domain.RawArticle, 0, len(items))
	for _, n := range items {
		out = append(out, domain.RawArticle{
			ID:       n.GetId(),
			Headline: n.GetHeadline(),
			Summary:  n.GetSummary(),
			URL:      n.GetUrl(),
			Datetime: n.GetDatetime(),
			Source:   n.GetSource(),
			Image:    n.GetImage(),
			Category: n.GetCategory(),
			Related:  n.GetRelated(),
		})
	}
	return out, nil
}

// MarketNews fetches one page of news for category.
func (c *Client) MarketNews(ctx context.Context, category string) ([]domain.RawArticle, error) {
	ctx, err := c.prepare(ctx)
	if err != nil {
		return nil, err
	}

	items, _, err := c.api.MarketNews(ctx).Category(category).Execute()
	if err != nil {
		return nil, &domain.FetchError{Category: category, Err: err}
	}

	out := make([]domain.RawArticle, 0, len(items))
	for _, n := range items {
		out = append(out, domain.RawArticle{
			ID:       n.GetId(),
			Headline: n.GetHeadline(),
			Summary:  n.GetSummary(),
			URL:      n.GetUrl(),
			Datetime: n.GetDatetime(),
			Source:   n.GetSource(),
			Image:    n.GetImage(),
			Category: n.GetCategory(),
			Related:  n.GetRelated(),
		})
	}
	return out, nil
}

// prepare waits for a rate-limit slot and attaches the token, which the
// generated client sends as the token query parameter.
func (c *Client) prepare(ctx context.Context) (context.Context, error) {
	if c.apiKey == "" {
		return nil, domain.ErrMissingAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return context.WithValue(ctx, finnhub.ContextAPIKeys, map[string]finnhub.APIKey{
		"api_key": {Key: c.apiKey},
	}), nil
}
