package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Signalist/internal/domain"
)

func TestCompanyNewsSendsTokenInQuery(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/company-news", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"symbol": q.Get("symbol"),
			"from":   q.Get("from"),
			"to":     q.Get("to"),
			"token":  q.Get("token"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":42,"headline":"Apple ships","summary":"s","url":"https://example.com/a","datetime":1760000000,"source":"Reuters","category":"company","related":"AAPL","image":""}]`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{APIKey: "secret", BaseURL: srv.URL + "/"}, srv.Client())
	items, err := client.CompanyNews(context.Background(), "AAPL", "2026-10-13", "2026-10-17")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"symbol": "AAPL", "from": "2026-10-13", "to": "2026-10-17", "token": "secret"}, gotQuery)
	require.Len(t, items, 1)
	assert.Equal(t, domain.RawArticle{
		ID:       42,
		Headline: "Apple ships",
		Summary:  "s",
		URL:      "https://example.com/a",
		Datetime: 1760000000,
		Source:   "Reuters",
		Category: "company",
		Related:  "AAPL",
	}, items[0])
}

func TestMarketNews(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news", r.URL.Path)
		assert.Equal(t, "general", r.URL.Query().Get("category"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"headline":"Fed holds","url":"https://example.com/f","datetime":1760000100,"category":"top news"}]`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{APIKey: "secret", BaseURL: srv.URL}, srv.Client())
	items, err := client.MarketNews(context.Background(), "general")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Fed holds", items[0].Headline)
	assert.Equal(t, "top news", items[0].Category)
}

func TestUpstreamErrorAndMissingKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"limit"}`, http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{APIKey: "secret", BaseURL: srv.URL}, srv.Client())

	_, err := client.MarketNews(context.Background(), "general")
	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "general", fetchErr.Category)
	assert.Empty(t, fetchErr.Symbol)

	_, err = client.CompanyNews(context.Background(), "AAPL", "2026-10-13", "2026-10-17")
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "AAPL", fetchErr.Symbol)

	_, err = NewClient(Config{BaseURL: srv.URL}, srv.Client()).CompanyNews(context.Background(), "AAPL", "a", "b")
	require.ErrorIs(t, err, domain.ErrMissingAPIKey)
}
