package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Signalist/internal/config"
	"Signalist/internal/infrastructure/llm"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Server:    config.ServerConfig{Addr: "127.0.0.1:0"},
		Database:  config.DatabaseConfig{Driver: "badger", BadgerPath: filepath.Join(t.TempDir(), "db")},
		Cache:     config.CacheConfig{Size: 16, GeneralNewsTTL: time.Minute},
		Finnhub:   config.FinnhubConfig{RequestsPerMinute: 60},
		AI:        config.AIConfig{Provider: "openai", MaxTokens: 256, Temperature: 0.5},
		Mail:      config.MailConfig{Port: 465},
		Auth:      config.AuthConfig{BaseURL: "https://signalist.app", Secret: "s3cret"},
		Scheduler: config.SchedulerConfig{CronExpression: "0 12 * * *"},
		Digest:    config.DigestConfig{Concurrency: 2},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnceWithEmptyDirectory(t *testing.T) {
	ctx := context.Background()
	application, err := New(ctx, testConfig(t), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	report, err := application.RunOnce(ctx)
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, "no users found for news email", report.Message)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	application, err := New(ctx, testConfig(t), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	done := make(chan error, 1)
	go func() { done <- application.Run(ctx, false) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestServerHealth(t *testing.T) {
	ctx := context.Background()
	application, err := New(ctx, testConfig(t), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	rec := httptest.NewRecorder()
	application.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSelectCompleter(t *testing.T) {
	t.Parallel()

	_, err := selectCompleter(config.AIConfig{Provider: llm.ProviderOpenAI})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: []")

	c, err := selectCompleter(config.AIConfig{Provider: llm.ProviderAnthropic, AnthropicAPIKey: "k", OpenAIAPIKey: "o"})
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderAnthropic, c.Name())

	c, err = selectCompleter(config.AIConfig{Provider: llm.ProviderOpenAI, OpenAIAPIKey: "o"})
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderOpenAI, c.Name())
}

func TestSelectCompleterListsRegisteredProviders(t *testing.T) {
	t.Parallel()

	_, err := selectCompleter(config.AIConfig{Provider: llm.ProviderOpenAI, AnthropicAPIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completer openai is not registered")
	assert.Contains(t, err.Error(), "available: [anthropic]")
}
