package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"Signalist/internal/domain"
	"Signalist/internal/ports"
)

// BadgerStore keeps users, watchlists and sessions in an embedded badgerhold
// database. It is the default backend for single-node deployments.
type BadgerStore struct {
	store *badgerhold.Store
}

var _ ports.DocumentStore = (*BadgerStore)(nil)

// OpenBadger opens (or creates) the database at path.
func OpenBadger(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerStore{store: store}, nil
}

type userRecord struct {
	ID                string
	ExternalID        string
	Email             string
	Name              string
	PasswordHash      string
	Country           string
	InvestmentGoals   string
	RiskTolerance     string
	PreferredIndustry string
	CreatedAt         time.Time
}

func (userRecord) Type() string { return domain.CollectionUser }

func (userRecord) Indexes() map[string]badgerhold.Index {
	return map[string]badgerhold.Index{
		"Email": {
			IndexFunc: func(_ string, value interface{}) ([]byte, error) {
				switch r := value.(type) {
				case *userRecord:
					return badgerhold.DefaultEncode(r.Email)
				case userRecord:
					return badgerhold.DefaultEncode(r.Email)
				}
				return nil, fmt.Errorf("unexpected user record %T", value)
			},
		},
	}
}

func (r userRecord) toDomain() domain.User {
	return domain.User(r)
}

type watchlistRecord struct {
	ID      string
	UserID  string
	Symbol  string
	AddedAt time.Time
}

func (watchlistRecord) Type() string { return domain.CollectionWatchlist }

func (watchlistRecord) Indexes() map[string]badgerhold.Index { return nil }

type sessionRecord struct {
	ID        string
	UserID    string
	Email     string
	Name      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (sessionRecord) Type() string { return domain.CollectionSession }

func (sessionRecord) Indexes() map[string]badgerhold.Index { return nil }

func (s *BadgerStore) FindUserByEmail(_ context.Context, email string) (domain.User, error) {
	var recs []userRecord
	if err := s.store.Find(&recs, badgerhold.Where("Email").Eq(email).Limit(1)); err != nil {
		return domain.User{}, fmt.Errorf("failed to find user: %w", err)
	}
	if len(recs) == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	return recs[0].toDomain(), nil
}

func (s *BadgerStore) FindUserByID(_ context.Context, id string) (domain.User, error) {
	var rec userRecord
	if err := s.store.Get(id, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return rec.toDomain(), nil
}

// ListUsersWithEmail returns users with a non-empty email, oldest first.
func (s *BadgerStore) ListUsersWithEmail(_ context.Context) ([]domain.User, error) {
	var recs []userRecord
	if err := s.store.Find(&recs, badgerhold.Where("Email").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })

	users := make([]domain.User, 0, len(recs))
	for _, r := range recs {
		users = append(users, r.toDomain())
	}
	return users, nil
}

// InsertUser returns domain.ErrUserExists on a duplicate email or id.
func (s *BadgerStore) InsertUser(ctx context.Context, u domain.User) error {
	if u.ID == "" {
		return fmt.Errorf("user ID is required")
	}
	if u.Email != "" {
		if _, err := s.FindUserByEmail(ctx, u.Email); err == nil {
			return domain.ErrUserExists
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}

	if err := s.store.Insert(u.ID, userRecord(u)); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}

func (s *BadgerStore) SymbolsByUserID(_ context.Context, userID string) ([]string, error) {
	var recs []watchlistRecord
	if err := s.store.Find(&recs, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to find watchlist: %w", err)
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].AddedAt.Before(recs[j].AddedAt) })

	symbols := make([]string, 0, len(recs))
	for _, r := range recs {
		symbols = append(symbols, r.Symbol)
	}
	return symbols, nil
}

// AddToWatchlist keys entries by user and symbol so repeats are no-ops.
func (s *BadgerStore) AddToWatchlist(_ context.Context, e domain.WatchlistEntry) error {
	err := s.store.Insert(watchlistKey(e.UserID, e.Symbol), watchlistRecord(e))
	if err != nil && !errors.Is(err, badgerhold.ErrKeyExists) {
		return fmt.Errorf("failed to store watchlist entry: %w", err)
	}
	return nil
}

func (s *BadgerStore) RemoveFromWatchlist(_ context.Context, userID, symbol string) error {
	err := s.store.Delete(watchlistKey(userID, symbol), &watchlistRecord{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete watchlist entry: %w", err)
	}
	return nil
}

func (s *BadgerStore) InsertSession(_ context.Context, sess domain.Session) error {
	rec := sessionRecord{
		ID:        sess.ID,
		UserID:    sess.UserID,
		Email:     sess.Email,
		Name:      sess.Name,
		ExpiresAt: sess.ExpiresAt,
		CreatedAt: sess.CreatedAt,
	}
	if err := s.store.Upsert(sess.ID, rec); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *BadgerStore) FindSession(_ context.Context, id string) (domain.Session, error) {
	var rec sessionRecord
	if err := s.store.Get(id, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("failed to get session: %w", err)
	}
	return domain.Session{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Email:     rec.Email,
		Name:      rec.Name,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (s *BadgerStore) DeleteSession(_ context.Context, id string) error {
	err := s.store.Delete(id, &sessionRecord{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func watchlistKey(userID, symbol string) string {
	return userID + "/" + symbol
}
