package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"Signalist/internal/auth"
	"Signalist/internal/config"
	"Signalist/internal/events"
	"Signalist/internal/httpapi"
	"Signalist/internal/infrastructure/cache"
	"Signalist/internal/infrastructure/finnhub"
	"Signalist/internal/infrastructure/llm"
	"Signalist/internal/infrastructure/scheduler"
	"Signalist/internal/infrastructure/smtp"
	"Signalist/internal/infrastructure/storage"
	"Signalist/internal/logging"
	"Signalist/internal/mailer"
	"Signalist/internal/news"
	"Signalist/internal/ports"
	"Signalist/internal/summarizer"
	"Signalist/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     ports.DocumentStore
	bus       *events.Bus
	digest    *usecase.DigestOrchestrator
	scheduler *usecase.Scheduler
	server    *httpapi.Server
	closers   []func() error
}

// New builds the application. Background event handlers run on ctx.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger.With("component", "app")}

	store, err := openStore(ctx, cfg.Database, a.logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	newsCache, err := a.openCache(ctx, cfg.Cache)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	provider := finnhub.NewClient(finnhub.Config{
		APIKey:            cfg.Finnhub.APIKey,
		BaseURL:           cfg.Finnhub.BaseURL,
		RequestsPerMinute: cfg.Finnhub.RequestsPerMinute,
		Timeout:           cfg.Finnhub.Timeout,
	}, nil)
	if cfg.Finnhub.APIKey == "" {
		a.logger.Warn("FINNHUB_API_KEY is not set, news requests will fail")
	}
	aggregator := news.NewAggregator(news.AggregatorDeps{
		Provider: news.NewCachedProvider(provider, newsCache, cfg.Cache.GeneralNewsTTL, baseLogger.With("component", "news.cache")),
		Logger:   baseLogger.With("component", "news"),
	})

	completer, err := selectCompleter(cfg.AI)
	if err != nil {
		a.logger.Warn("AI summaries disabled, using fallback renderer", "provider", cfg.AI.Provider, "error", err)
	}
	summary := summarizer.New(completer, summarizer.Options{
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: &cfg.AI.Temperature,
	}, baseLogger.With("component", "summarizer"))

	transport := smtp.NewTransport(smtp.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		Security: smtp.Security(cfg.Mail.Security),
		Timeout:  cfg.Mail.Timeout,
	})
	mail := mailer.New(transport, mailer.Config{
		FromAddress: cfg.Mail.Username,
		BaseURL:     cfg.Auth.BaseURL,
	}, baseLogger.With("component", "mailer"))

	watchlists := usecase.NewWatchlistService(store, store, baseLogger)
	a.digest = usecase.NewDigestOrchestrator(usecase.DigestDeps{
		Directory:   usecase.NewUserDirectory(store, baseLogger),
		Watchlists:  watchlists,
		News:        aggregator,
		Summarizer:  summary,
		Mailer:      mail,
		Concurrency: cfg.Digest.Concurrency,
		Logger:      baseLogger,
	})
	welcome := usecase.NewWelcomeFlow(summary, mail, baseLogger)

	cron, err := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), baseLogger.With("component", "cron"))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.scheduler = usecase.NewScheduler(cron, a.digest, welcome, baseLogger)

	a.bus = events.NewBus(ctx, baseLogger.With("component", "events"))
	if err := a.scheduler.Subscribe(a.bus); err != nil {
		_ = a.Close()
		return nil, err
	}

	authSvc := auth.NewService(auth.Config{
		Secret:     cfg.Auth.Secret,
		BaseURL:    cfg.Auth.BaseURL,
		SessionTTL: cfg.Auth.SessionTTL,
	}, store, store, baseLogger)
	if cfg.Auth.Secret == "" {
		a.logger.Warn("BETTER_AUTH_SECRET is not set, auth endpoints will return 503")
	}

	a.server = httpapi.NewServer(httpapi.Deps{
		Auth:         authSvc,
		News:         aggregator,
		Watchlists:   watchlists,
		Events:       a.bus,
		Logger:       baseLogger,
		SecureCookie: cfg.Server.SecureCookie,
	})

	return a, nil
}

// RunOnce executes a single digest run.
func (a *Application) RunOnce(ctx context.Context) (usecase.RunReport, error) {
	return a.digest.Run(ctx, usecase.TriggerManual)
}

// Run starts the cron schedule and, when serve is set, the HTTP server. It
// blocks until ctx is cancelled.
func (a *Application) Run(ctx context.Context, serve bool) error {
	g, gCtx := errgroup.WithContext(ctx)

	if err := a.scheduler.Start(gCtx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	if serve {
		g.Go(func() error {
			return a.server.Start(a.cfg.Server.Addr)
		})
		g.Go(func() error {
			<-gCtx.Done()
			a.logger.Info("shutting down http server")
			return a.server.Shutdown(context.Background())
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return a.scheduler.Stop(stopCtx)
	})

	err := g.Wait()
	a.bus.Wait()
	return err
}

// Close releases stores and caches.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (ports.DocumentStore, error) {
	switch cfg.Driver {
	case "postgres":
		version, dirty, err := storage.Migrate(cfg.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("database migrated", "version", version, "dirty", dirty)
		store, err := storage.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		logger.Info("opening badger store", "path", cfg.BadgerPath)
		store, err := storage.OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func (a *Application) openCache(ctx context.Context, cfg config.CacheConfig) (ports.NewsCache, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache(cfg.Size, cfg.GeneralNewsTTL), nil
	}
	rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rc.Close)
	a.logger.Info("using redis news cache", "addr", cfg.RedisAddr)
	return rc, nil
}

// selectCompleter builds every provider that has a key and resolves the
// configured one.
func selectCompleter(cfg config.AIConfig) (ports.Completer, error) {
	registry := llm.NewRegistry()

	if cfg.OpenAIAPIKey != "" {
		c, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      modelFor(cfg, llm.ProviderOpenAI),
			BaseURL:    baseURLFor(cfg, llm.ProviderOpenAI),
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(c)
	}
	if cfg.AnthropicAPIKey != "" {
		c, err := llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey:     cfg.AnthropicAPIKey,
			Model:      modelFor(cfg, llm.ProviderAnthropic),
			BaseURL:    baseURLFor(cfg, llm.ProviderAnthropic),
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(c)
	}

	c, err := registry.Resolve(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %v)", err, registry.Names())
	}
	return c, nil
}

func modelFor(cfg config.AIConfig, provider string) string {
	if cfg.Provider == provider {
		return cfg.Model
	}
	return ""
}

func baseURLFor(cfg config.AIConfig, provider string) string {
	if cfg.Provider == provider {
		return cfg.BaseURL
	}
	return ""
}
