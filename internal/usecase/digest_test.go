package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Signalist/internal/domain"
	"Signalist/internal/mailer"
	"Signalist/internal/summarizer"
)

var runDay = time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)

type digestFixture struct {
	store     *memStore
	news      *stubNews
	transport *captureTransport
	completer promptCompleter
}

func newFixture() *digestFixture {
	return &digestFixture{
		store:     &memStore{},
		news:      &stubNews{bySymbol: map[string][]domain.Article{}, errs: map[string]error{}},
		transport: &captureTransport{failTo: map[string]error{}},
	}
}

func (f *digestFixture) orchestrator() *DigestOrchestrator {
	logger := quietLogger()
	return NewDigestOrchestrator(DigestDeps{
		Directory:   NewUserDirectory(f.store, logger),
		Watchlists:  NewWatchlistService(f.store, f.store, logger),
		News:        f.news,
		Summarizer:  summarizer.New(f.completer, summarizer.Options{}, logger),
		Mailer:      mailer.New(f.transport, mailer.Config{FromAddress: "news@signalist.app"}, logger),
		Concurrency: 2,
		Logger:      logger,
		Now:         func() time.Time { return runDay },
	})
}

func article(id, headline string, datetime int64) domain.Article {
	return domain.Article{ID: id, Headline: headline, URL: "https://example.com/" + id, Datetime: datetime}
}

func TestDigestRunIsolatesUsers(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.users = []domain.User{
		{ID: "a", Email: "a@example.com", Name: "Ada"},
		{ID: "b", Email: "b@example.com", Name: "Bob"},
		{ID: "c", Email: "c@example.com", Name: "Cy"},
	}
	f.store.watchlist = []domain.WatchlistEntry{
		{UserID: "a", Symbol: "AAPL"},
		{UserID: "c", Symbol: "MSFT"},
	}
	f.news.bySymbol["AAPL"] = []domain.Article{
		article("1", "Apple ships", 30),
		article("2", "Apple buys back", 20),
		article("3", "Apple older story", 10),
	}
	f.news.bySymbol["MSFT"] = []domain.Article{article("9", "Microsoft outage", 15)}
	f.completer = promptCompleter{failOn: "Microsoft outage"}

	report, err := f.orchestrator().Run(context.Background(), TriggerManual)
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, domain.StageDone, report.Stage)
	assert.Equal(t, 3, report.Users)
	assert.Equal(t, 2, report.WithArticles)
	assert.Equal(t, 2, report.Summarized)
	assert.Equal(t, 1, report.Fallbacks)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 0, report.Failed)

	sent := f.transport.byRecipient()
	require.Len(t, sent, 2)
	assert.NotContains(t, sent, "b@example.com")

	a := sent["a@example.com"]
	assert.Contains(t, a.HTML, "Market Highlights")
	assert.Equal(t, "Market News Summary Today - Saturday, October 17, 2026", a.Subject)

	c := sent["c@example.com"]
	assert.Contains(t, c.HTML, "Microsoft outage")
	assert.Contains(t, c.HTML, "Read more")
}

func TestDigestTruncatesToTwoArticles(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.users = []domain.User{{ID: "a", Email: "a@example.com", Name: "Ada"}}
	f.store.watchlist = []domain.WatchlistEntry{{UserID: "a", Symbol: "AAPL"}}
	f.news.bySymbol["AAPL"] = []domain.Article{
		article("1", "First", 30),
		article("2", "Second", 20),
		article("3", "Third", 10),
	}
	// every prompt fails so the fallback shows exactly what was summarized
	f.completer = promptCompleter{failOn: `"headline"`}
	_, err := f.orchestrator().Run(context.Background(), TriggerManual)
	require.NoError(t, err)

	html := f.transport.byRecipient()["a@example.com"].HTML
	assert.Contains(t, html, "First")
	assert.Contains(t, html, "Second")
	assert.NotContains(t, html, "Third")
}

func TestDigestFallsBackToGeneralNews(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.users = []domain.User{{ID: "a", Email: "a@example.com", Name: "Ada"}}
	f.store.watchlist = []domain.WatchlistEntry{{UserID: "a", Symbol: "AAPL"}}
	f.news.bySymbol[""] = []domain.Article{article("g1", "Markets rally", 5)}

	report, err := f.orchestrator().Run(context.Background(), TriggerEvent)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", ""}, f.news.calls)
	assert.Equal(t, 1, report.Sent)
}

func TestDigestNewsFailureSkipsUser(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.users = []domain.User{{ID: "a", Email: "a@example.com", Name: "Ada"}}
	f.store.watchlist = []domain.WatchlistEntry{{UserID: "a", Symbol: "AAPL"}}
	f.news.errs["AAPL"] = domain.ErrMissingAPIKey
	f.news.bySymbol[""] = []domain.Article{article("g1", "Markets rally", 5)}

	report, err := f.orchestrator().Run(context.Background(), TriggerCron)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, f.news.calls)
	assert.True(t, report.Success)
	assert.Equal(t, 0, report.WithArticles)
	assert.Equal(t, 0, report.Sent)
	assert.Empty(t, f.transport.sent)
}

func TestDigestSendFailureIsCounted(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.users = []domain.User{
		{ID: "a", Email: "a@example.com", Name: "Ada"},
		{ID: "b", Email: "b@example.com", Name: "Bob"},
	}
	f.news.bySymbol[""] = []domain.Article{article("g1", "Markets rally", 5)}
	f.transport.failTo["a@example.com"] = errors.New("mailbox unavailable")

	report, err := f.orchestrator().Run(context.Background(), TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, f.transport.byRecipient(), "b@example.com")
}

func TestDigestNoUsers(t *testing.T) {
	t.Parallel()

	f := newFixture()
	report, err := f.orchestrator().Run(context.Background(), TriggerManual)
	require.NoError(t, err)

	assert.False(t, report.Success)
	assert.Equal(t, "no users found for news email", report.Message)
	assert.Empty(t, f.news.calls)
}

func TestDigestDirectoryFailureIsFatal(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.listErr = errors.New("db down")

	report, err := f.orchestrator().Run(context.Background(), TriggerManual)
	require.Error(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, domain.StageCollectingUsers, report.Stage)
}

func TestDigestRejectsOverlappingRuns(t *testing.T) {
	t.Parallel()

	o := newFixture().orchestrator()
	o.running.Store(true)

	_, err := o.Run(context.Background(), TriggerCron)
	require.ErrorIs(t, err, ErrRunInProgress)

	o.running.Store(false)
	_, err = o.Run(context.Background(), TriggerCron)
	require.NoError(t, err)
}

func TestDigestRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := NewDigestOrchestrator(DigestDeps{}).Run(context.Background(), TriggerManual)
	require.ErrorIs(t, err, domain.ErrNotConfigured)
}
