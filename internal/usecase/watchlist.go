package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"Signalist/internal/domain"
	"Signalist/internal/ports"
)

// WatchlistService resolves and edits the symbols a user tracks.
type WatchlistService struct {
	users      ports.UserStore
	watchlists ports.WatchlistStore
	logger     *slog.Logger
	now        func() time.Time
}

// NewWatchlistService constructs the service.
func NewWatchlistService(users ports.UserStore, watchlists ports.WatchlistStore, logger *slog.Logger) *WatchlistService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchlistService{
		users:      users,
		watchlists: watchlists,
		logger:     logger.With("component", "watchlist"),
		now:        time.Now,
	}
}

// Resolve returns the symbols watched by the user with the given email.
// Watchlists are keyed by the store id, the same id sessions carry.
// domain.ErrNotFound is returned when the user is unknown or has no id.
func (s *WatchlistService) Resolve(ctx context.Context, email string) ([]string, error) {
	if s.users == nil || s.watchlists == nil {
		return nil, fmt.Errorf("resolve watchlist: %w", domain.ErrNotConfigured)
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("resolve watchlist: %w", domain.ErrNotFound)
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", email, err)
	}

	if user.ID == "" {
		return nil, fmt.Errorf("user %s has no id: %w", email, domain.ErrNotFound)
	}

	return s.SymbolsForUser(ctx, user.ID)
}

// SymbolsForUser returns the symbols watched by userID, never nil.
func (s *WatchlistService) SymbolsForUser(ctx context.Context, userID string) ([]string, error) {
	symbols, err := s.watchlists.SymbolsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load watchlist for %s: %w", userID, err)
	}
	if symbols == nil {
		symbols = []string{}
	}
	return symbols, nil
}

// GetWatchlistSymbolsByEmail is Resolve with every failure logged and
// reported as an empty list.
func (s *WatchlistService) GetWatchlistSymbolsByEmail(ctx context.Context, email string) []string {
	symbols, err := s.Resolve(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("getWatchlistSymbolsByEmail error", "email", email, "error", err)
		}
		return []string{}
	}
	return symbols
}

// Add puts symbol on the user's watchlist. Adding a tracked symbol is a no-op.
// The user must exist.
func (s *WatchlistService) Add(ctx context.Context, userID, symbol string) (string, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return "", fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}
	if _, err := s.users.FindUserByID(ctx, userID); err != nil {
		return "", fmt.Errorf("find user %s: %w", userID, err)
	}
	err := s.watchlists.AddToWatchlist(ctx, domain.WatchlistEntry{
		ID:      uuid.NewString(),
		UserID:  userID,
		Symbol:  symbol,
		AddedAt: s.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("add %s to watchlist: %w", symbol, err)
	}
	return symbol, nil
}

// Remove drops symbol from the user's watchlist.
func (s *WatchlistService) Remove(ctx context.Context, userID, symbol string) error {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}
	if err := s.watchlists.RemoveFromWatchlist(ctx, userID, symbol); err != nil {
		return fmt.Errorf("remove %s from watchlist: %w", symbol, err)
	}
	return nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
