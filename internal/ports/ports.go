package ports

import (
	"context"
	"time"

	"Signalist/internal/domain"
)

// NewsProvider pulls raw articles from the upstream market-news API.
type NewsProvider interface {
	CompanyNews(ctx context.Context, symbol, from, to string) ([]domain.RawArticle, error)
	MarketNews(ctx context.Context, category string) ([]domain.RawArticle, error)
}

// NewsCache stores encoded provider responses for a bounded time.
type NewsCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CompletionRequest is a single-prompt chat completion.
type CompletionRequest struct {
	Prompt      string
	MaxTokens   int
	// Temperature is left to the provider default when nil.
	Temperature *float64
}

// Completer sends prompts to an LLM API and returns the first choice's text.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// MailTransport delivers a composed message.
type MailTransport interface {
	Send(ctx context.Context, msg domain.MailMessage) error
}

// UserStore reads and writes the user collection.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	FindUserByID(ctx context.Context, id string) (domain.User, error)
	ListUsersWithEmail(ctx context.Context) ([]domain.User, error)
	InsertUser(ctx context.Context, user domain.User) error
}

// WatchlistStore reads and writes the watchlist collection.
type WatchlistStore interface {
	SymbolsByUserID(ctx context.Context, userID string) ([]string, error)
	AddToWatchlist(ctx context.Context, entry domain.WatchlistEntry) error
	RemoveFromWatchlist(ctx context.Context, userID, symbol string) error
}

// SessionStore persists sign-in sessions so they can be revoked.
type SessionStore interface {
	InsertSession(ctx context.Context, session domain.Session) error
	FindSession(ctx context.Context, id string) (domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// DocumentStore is the full persistence surface a backend provides.
type DocumentStore interface {
	UserStore
	WatchlistStore
	SessionStore
	Close() error
}

// Scheduler controls when jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
