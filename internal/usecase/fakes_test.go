package usecase

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"Signalist/internal/domain"
	"Signalist/internal/ports"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memStore struct {
	mu        sync.Mutex
	users     []domain.User
	watchlist []domain.WatchlistEntry
	listErr   error
	findErr   error
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (domain.User, error) {
	if m.findErr != nil {
		return domain.User{}, m.findErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (m *memStore) FindUserByID(_ context.Context, id string) (domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (m *memStore) ListUsersWithEmail(context.Context) ([]domain.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.User
	for _, u := range m.users {
		if u.Email != "" {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) InsertUser(_ context.Context, user domain.User) error {
	m.users = append(m.users, user)
	return nil
}

func (m *memStore) SymbolsByUserID(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.watchlist {
		if e.UserID == userID {
			out = append(out, e.Symbol)
		}
	}
	return out, nil
}

func (m *memStore) AddToWatchlist(_ context.Context, entry domain.WatchlistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.watchlist {
		if e.UserID == entry.UserID && e.Symbol == entry.Symbol {
			return nil
		}
	}
	m.watchlist = append(m.watchlist, entry)
	return nil
}

func (m *memStore) RemoveFromWatchlist(_ context.Context, userID, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.watchlist[:0]
	for _, e := range m.watchlist {
		if e.UserID != userID || e.Symbol != symbol {
			kept = append(kept, e)
		}
	}
	m.watchlist = kept
	return nil
}

// stubNews serves articles keyed by the comma-joined symbol list; the empty
// key is the general-news answer.
type stubNews struct {
	mu       sync.Mutex
	bySymbol map[string][]domain.Article
	errs     map[string]error
	calls    []string
}

func (s *stubNews) GetNews(_ context.Context, symbols []string) ([]domain.Article, error) {
	key := strings.Join(symbols, ",")
	s.mu.Lock()
	s.calls = append(s.calls, key)
	s.mu.Unlock()
	if err := s.errs[key]; err != nil {
		return nil, &domain.NewsFetchError{Err: err}
	}
	return s.bySymbol[key], nil
}

// promptCompleter fails whenever the prompt mentions failOn.
type promptCompleter struct {
	failOn string
}

func (p promptCompleter) Name() string { return "prompt" }

func (p promptCompleter) Complete(_ context.Context, req ports.CompletionRequest) (string, error) {
	if p.failOn != "" && strings.Contains(req.Prompt, p.failOn) {
		return "", io.ErrUnexpectedEOF
	}
	return "<h3>Market Highlights</h3><p>summary</p>", nil
}

type captureTransport struct {
	mu     sync.Mutex
	sent   []domain.MailMessage
	failTo map[string]error
}

func (c *captureTransport) Send(_ context.Context, msg domain.MailMessage) error {
	if err := c.failTo[msg.To]; err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureTransport) byRecipient() map[string]domain.MailMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]domain.MailMessage, len(c.sent))
	for _, m := range c.sent {
		out[m.To] = m
	}
	return out
}
