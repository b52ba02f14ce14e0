package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"Signalist/internal/domain"
	"Signalist/internal/mailer"
	"Signalist/internal/metrics"
	"Signalist/internal/summarizer"
	"Signalist/internal/taskgroup"
)

// MaxArticlesPerDigest bounds the summarizer payload for one user.
const MaxArticlesPerDigest = 2

const defaultConcurrency = 8

// ErrRunInProgress is returned when a digest run is requested while another is active.
var ErrRunInProgress = errors.New("digest run already in progress")

// Trigger names what started a digest run.
type Trigger string

const (
	TriggerCron   Trigger = "cron"
	TriggerEvent  Trigger = "event"
	TriggerManual Trigger = "manual"
)

// TargetLoader lists digest recipients.
type TargetLoader interface {
	Load(ctx context.Context) ([]domain.DigestTarget, error)
}

// SymbolResolver maps a user email to watched symbols.
type SymbolResolver interface {
	Resolve(ctx context.Context, email string) ([]string, error)
}

// NewsSource returns articles for a set of symbols.
type NewsSource interface {
	GetNews(ctx context.Context, symbols []string) ([]domain.Article, error)
}

// DigestSummarizer renders articles to an HTML fragment and never fails.
type DigestSummarizer interface {
	SummarizeOrFallback(ctx context.Context, articles []domain.Article) (string, bool)
}

// DigestSender delivers one digest email.
type DigestSender interface {
	SendNewsSummaryEmail(ctx context.Context, data mailer.NewsSummaryEmail) error
}

// DigestDeps wires the orchestrator to its collaborators.
type DigestDeps struct {
	Directory   TargetLoader
	Watchlists  SymbolResolver
	News        NewsSource
	Summarizer  DigestSummarizer
	Mailer      DigestSender
	Concurrency int
	Logger      *slog.Logger
	Now         func() time.Time
}

// RunReport describes one finished (or aborted) digest run.
type RunReport struct {
	Trigger      Trigger      `json:"trigger"`
	Stage        domain.Stage `json:"stage"`
	Users        int          `json:"users"`
	WithArticles int          `json:"withArticles"`
	Summarized   int          `json:"summarized"`
	Fallbacks    int          `json:"fallbacks"`
	Sent         int          `json:"sent"`
	Failed       int          `json:"failed"`
	Success      bool         `json:"success"`
	Message      string       `json:"message"`
}

// DigestOrchestrator runs the daily news summary batch.
type DigestOrchestrator struct {
	directory   TargetLoader
	watchlists  SymbolResolver
	news        NewsSource
	summarizer  DigestSummarizer
	mailer      DigestSender
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
	running     atomic.Bool
}

// NewDigestOrchestrator constructs the orchestrator.
func NewDigestOrchestrator(deps DigestDeps) *DigestOrchestrator {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &DigestOrchestrator{
		directory:   deps.Directory,
		watchlists:  deps.Watchlists,
		news:        deps.News,
		summarizer:  deps.Summarizer,
		mailer:      deps.Mailer,
		concurrency: concurrency,
		logger:      logger.With("component", "digest"),
		now:         now,
	}
}

// Run executes one batch. Only a directory failure or a missing collaborator
// returns an error; per-user failures are logged and counted in the report.
func (o *DigestOrchestrator) Run(ctx context.Context, trigger Trigger) (report RunReport, err error) {
	report.Trigger = trigger
	if !o.running.CompareAndSwap(false, true) {
		o.logger.Warn("digest run skipped, previous run still active", "trigger", trigger)
		report.Message = ErrRunInProgress.Error()
		return report, ErrRunInProgress
	}
	defer o.running.Store(false)

	started := time.Now()
	defer func() {
		metrics.DigestRunDuration.Observe(time.Since(started).Seconds())
		metrics.DigestRuns.WithLabelValues(string(trigger), runOutcome(report, err)).Inc()
	}()

	if o.directory == nil || o.news == nil || o.summarizer == nil || o.mailer == nil {
		return report, fmt.Errorf("digest run: %w", domain.ErrNotConfigured)
	}

	o.enter(&report, domain.StageCollectingUsers)
	targets, err := o.directory.Load(ctx)
	if err != nil {
		report.Message = "failed to load users for news email"
		return report, err
	}
	report.Users = len(targets)
	if len(targets) == 0 {
		o.enter(&report, domain.StageDone)
		report.Message = "no users found for news email"
		return report, nil
	}

	o.enter(&report, domain.StageResolvingWatchlists)
	symbols := make([][]string, len(targets))
	for i, target := range targets {
		symbols[i] = o.resolveSymbols(ctx, target)
	}

	o.enter(&report, domain.StageFetchingNews)
	digests := make([]domain.Digest, 0, len(targets))
	for i, target := range targets {
		d := domain.Digest{Target: target, Articles: o.collectArticles(ctx, target, symbols[i])}
		if len(d.Articles) > 0 {
			report.WithArticles++
		}
		digests = append(digests, d)
	}

	o.enter(&report, domain.StageSummarizing)
	summarized := o.summarize(ctx, digests)
	report.Summarized = len(summarized)
	for _, d := range summarized {
		if d.UsedFallback {
			report.Fallbacks++
		}
	}

	o.enter(&report, domain.StageSending)
	report.Sent, report.Failed = o.send(ctx, summarized)

	o.enter(&report, domain.StageDone)
	report.Success = true
	report.Message = "daily news summary emails sent successfully"
	o.logger.Info("digest run finished",
		"trigger", trigger,
		"users", report.Users,
		"with_articles", report.WithArticles,
		"fallbacks", report.Fallbacks,
		"sent", report.Sent,
		"failed", report.Failed,
	)
	return report, nil
}

func (o *DigestOrchestrator) enter(report *RunReport, stage domain.Stage) {
	report.Stage = stage
	o.logger.Debug("digest stage", "stage", stage)
}

// resolveSymbols treats every failure as an empty watchlist.
func (o *DigestOrchestrator) resolveSymbols(ctx context.Context, target domain.DigestTarget) []string {
	if o.watchlists == nil {
		return nil
	}
	symbols, err := o.watchlists.Resolve(ctx, target.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			o.logger.Warn("resolve watchlist failed", "email", target.Email, "error", err)
		}
		return nil
	}
	return symbols
}

// collectArticles fetches news scoped to symbols and retries with general
// news when that yields nothing. A failing fetch leaves the user empty.
func (o *DigestOrchestrator) collectArticles(ctx context.Context, target domain.DigestTarget, symbols []string) []domain.Article {
	articles, err := o.news.GetNews(ctx, symbols)
	if err != nil {
		o.logger.Error("error preparing user news", "email", target.Email, "error", err)
		return nil
	}
	articles = truncate(articles, MaxArticlesPerDigest)
	if len(articles) > 0 {
		return articles
	}

	articles, err = o.news.GetNews(ctx, nil)
	if err != nil {
		o.logger.Error("error fetching general news fallback", "email", target.Email, "error", err)
		return nil
	}
	return truncate(articles, MaxArticlesPerDigest)
}

func (o *DigestOrchestrator) summarize(ctx context.Context, digests []domain.Digest) []domain.Digest {
	group := taskgroup.New[domain.Digest](o.concurrency)
	for _, d := range digests {
		if len(d.Articles) == 0 {
			continue
		}
		group.Go(func(ctx context.Context) (domain.Digest, error) {
			d.NewsContent, d.UsedFallback = o.summarizer.SummarizeOrFallback(ctx, d.Articles)
			return d, nil
		})
	}

	pending := make([]domain.Digest, 0, group.Len())
	for _, d := range digests {
		if len(d.Articles) > 0 {
			pending = append(pending, d)
		}
	}

	out := make([]domain.Digest, 0, group.Len())
	for _, res := range group.Wait(ctx) {
		d := res.Value
		if !res.OK() {
			d = pending[res.Index]
			o.logger.Error("summarizer crashed, using fallback", "email", d.Target.Email, "error", res.Err)
			d.NewsContent, d.UsedFallback = summarizer.Fallback(d.Articles), true
		}
		out = append(out, d)
	}
	return out
}

func (o *DigestOrchestrator) send(ctx context.Context, digests []domain.Digest) (sent, failed int) {
	date := mailer.FormattedDate(o.now())

	group := taskgroup.New[string](o.concurrency)
	for _, d := range digests {
		if strings.TrimSpace(d.NewsContent) == "" {
			continue
		}
		group.Go(func(ctx context.Context) (string, error) {
			return d.Target.Email, o.mailer.SendNewsSummaryEmail(ctx, mailer.NewsSummaryEmail{
				Email:       d.Target.Email,
				Date:        date,
				NewsContent: d.NewsContent,
			})
		})
	}

	results := group.Wait(ctx)
	for _, res := range results {
		if !res.OK() {
			o.logger.Error("failed to send news summary", "email", res.Value, "error", res.Err)
		}
	}
	sent = taskgroup.Succeeded(results)
	return sent, len(results) - sent
}

func truncate(articles []domain.Article, n int) []domain.Article {
	if len(articles) > n {
		return articles[:n]
	}
	return articles
}

func runOutcome(report RunReport, err error) string {
	switch {
	case errors.Is(err, ErrRunInProgress):
		return "skipped"
	case err != nil:
		return "error"
	case report.Users == 0:
		return "no_users"
	case report.Failed > 0:
		return "partial"
	default:
		return "ok"
	}
}
