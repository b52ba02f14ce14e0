package summarizer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Signalist/internal/domain"
	"Signalist/internal/ports"
)

type fakeCompleter struct {
	reply string
	err   error
	reqs  []ports.CompletionRequest
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, req ports.CompletionRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	return f.reply, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var articles = []domain.Article{
	{ID: "1", Headline: "Apple <beats>", Summary: "long summary text", URL: "https://example.com/a?x=1&y=2", Datetime: 2},
	{ID: "2", Headline: "Fed holds", Summary: "another", URL: "https://example.com/b", Datetime: 1},
}

func TestSummarizeSendsMinimalPayload(t *testing.T) {
	t.Parallel()

	c := &fakeCompleter{reply: "```html\n<h3>Apple</h3><p>Up.</p><script>alert(1)</script>\n```"}
	s := New(c, Options{}, quietLogger())

	got, err := s.Summarize(context.Background(), articles)
	require.NoError(t, err)

	assert.Contains(t, got, "<h3>Apple</h3>")
	assert.NotContains(t, got, "script")
	assert.NotContains(t, got, "```")

	require.Len(t, c.reqs, 1)
	req := c.reqs[0]
	assert.Equal(t, 2048, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.7, *req.Temperature, 1e-9)
	assert.Contains(t, req.Prompt, `"headline":"Fed holds","url":"https://example.com/b"`)
	assert.NotContains(t, req.Prompt, "long summary text")
	assert.NotContains(t, req.Prompt, newsDataPlaceholder)
}

func TestSummarizeErrors(t *testing.T) {
	t.Parallel()

	var sumErr *domain.SummarizationError

	_, err := New(&fakeCompleter{err: errors.New("rate limited")}, Options{}, quietLogger()).Summarize(context.Background(), articles)
	require.ErrorAs(t, err, &sumErr)

	_, err = New(&fakeCompleter{reply: "  <script>x</script> "}, Options{}, quietLogger()).Summarize(context.Background(), articles)
	require.ErrorAs(t, err, &sumErr)

	_, err = New(nil, Options{}, quietLogger()).Summarize(context.Background(), articles)
	require.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestSummarizeOrFallback(t *testing.T) {
	t.Parallel()

	s := New(&fakeCompleter{err: errors.New("down")}, Options{}, quietLogger())
	got, usedFallback := s.SummarizeOrFallback(context.Background(), articles)

	assert.True(t, usedFallback)
	assert.Equal(t, Fallback(articles), got)
	assert.Equal(t, 2, strings.Count(got, "Read more"))
	assert.Contains(t, got, "Apple &lt;beats&gt;")
	assert.Contains(t, got, `href="https://example.com/a?x=1&amp;y=2"`)

	ok := New(&fakeCompleter{reply: "<p>fine</p>"}, Options{}, quietLogger())
	got, usedFallback = ok.SummarizeOrFallback(context.Background(), articles)
	assert.False(t, usedFallback)
	assert.Equal(t, "<p>fine</p>", got)
}

func TestWelcomeIntro(t *testing.T) {
	t.Parallel()

	profile := domain.Profile{Country: "US", InvestmentGoals: "Growth", RiskTolerance: "Medium", PreferredIndustry: "Technology"}

	c := &fakeCompleter{reply: " Welcome aboard, growth investor. "}
	got := New(c, Options{}, quietLogger()).WelcomeIntro(context.Background(), profile)
	assert.Equal(t, "Welcome aboard, growth investor.", got)
	require.Len(t, c.reqs, 1)
	assert.Contains(t, c.reqs[0].Prompt, "- Preferred industry: Technology")

	failing := New(&fakeCompleter{err: errors.New("down")}, Options{}, quietLogger())
	assert.Equal(t, defaultWelcomeIntro, failing.WelcomeIntro(context.Background(), profile))
}

func TestZeroTemperatureIsKept(t *testing.T) {
	t.Parallel()

	zero := 0.0
	c := &fakeCompleter{reply: "<p>ok</p>"}
	_, err := New(c, Options{Temperature: &zero}, quietLogger()).Summarize(context.Background(), articles)
	require.NoError(t, err)

	require.Len(t, c.reqs, 1)
	require.NotNil(t, c.reqs[0].Temperature)
	assert.Zero(t, *c.reqs[0].Temperature)
}
