// Package httpapi exposes auth, news, watchlist and event endpoints over echo.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"Signalist/internal/auth"
	"Signalist/internal/domain"
	"Signalist/internal/events"
)

const (
	authRequestsPerMinute = 30
	authBurst             = 20
)

// Authenticator is the auth surface the handlers use.
type Authenticator interface {
	CreateUser(ctx context.Context, in auth.SignUp) (auth.Result, error)
	Authenticate(ctx context.Context, email, password string) (auth.Result, error)
	CurrentSession(ctx context.Context, token string) (domain.Session, error)
	InvalidateSession(ctx context.Context, token string) error
}

// NewsSource returns articles for a set of symbols.
type NewsSource interface {
	GetNews(ctx context.Context, symbols []string) ([]domain.Article, error)
}

// WatchlistEditor reads and edits a user's watchlist.
type WatchlistEditor interface {
	SymbolsForUser(ctx context.Context, userID string) ([]string, error)
	Add(ctx context.Context, userID, symbol string) (string, error)
	Remove(ctx context.Context, userID, symbol string) error
}

// Publisher dispatches application events.
type Publisher interface {
	Publish(event events.Event)
}

// Deps wires the server to the application services.
type Deps struct {
	Auth         Authenticator
	News         NewsSource
	Watchlists   WatchlistEditor
	Events       Publisher
	Logger       *slog.Logger
	SecureCookie bool
}

// Server is the HTTP surface of the application.
type Server struct {
	echo         *echo.Echo
	auth         Authenticator
	news         NewsSource
	watchlists   WatchlistEditor
	events       Publisher
	logger       *slog.Logger
	secureCookie bool
}

type requestValidator struct {
	v *validator.Validate
}

func (r *requestValidator) Validate(i any) error {
	if err := r.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// NewServer builds the router.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		echo:         echo.New(),
		auth:         deps.Auth,
		news:         deps.News,
		watchlists:   deps.Watchlists,
		events:       deps.Events,
		logger:       logger.With("component", "http"),
		secureCookie: deps.SecureCookie,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New()}

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/healthz"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			rctx := c.Request().Context()
			if v.Error == nil {
				s.logger.InfoContext(rctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				s.logger.ErrorContext(rctx, "request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")

	authLimiter := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(authRequestsPerMinute / 60.0),
		Burst:     authBurst,
		ExpiresIn: 3 * time.Minute,
	})
	authGroup := api.Group("/auth", middleware.RateLimiter(authLimiter))
	authGroup.POST("/sign-up", s.signUp)
	authGroup.POST("/sign-in", s.signIn)
	authGroup.POST("/sign-out", s.signOut)
	authGroup.GET("/session", s.session, s.requireSession)

	api.GET("/news", s.getNews)

	watchlist := api.Group("/watchlist", s.requireSession)
	watchlist.GET("", s.listWatchlist)
	watchlist.POST("", s.addToWatchlist)
	watchlist.DELETE("/:symbol", s.removeFromWatchlist)

	api.POST("/events", s.publishEvent, s.requireSession)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting http server", "address", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
