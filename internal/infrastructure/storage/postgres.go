package storage

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"Signalist/internal/domain"
	"Signalist/internal/ports"
)

const uniqueViolation = "23505"

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	userTable    = `"user"`
	userColumns  = []string{"id", "external_id", "email", "name", "password_hash", "country", "investment_goals", "risk_tolerance", "preferred_industry", "created_at"}
	sessionTable = domain.CollectionSession
	sessionCols  = []string{"id", "user_id", "email", "name", "expires_at", "created_at"}
)

// PostgresStore persists users, watchlists and sessions in Postgres.
type PostgresStore struct {
	db DB
}

var _ ports.DocumentStore = (*PostgresStore)(nil)

// NewPostgresStore wires a pool implementation.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(pool), nil
}

// FindUserByEmail returns domain.ErrNotFound when no user has email.
func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.findUser(ctx, sq.Eq{"email": email})
}

func (s *PostgresStore) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	return s.findUser(ctx, sq.Eq{"id": id})
}

func (s *PostgresStore) findUser(ctx context.Context, where sq.Eq) (domain.User, error) {
	query, args, err := psql.Select(userColumns...).From(userTable).Where(where).Limit(1).ToSql()
	if err != nil {
		return domain.User{}, fmt.Errorf("build user query: %w", err)
	}

	u, err := scanUser(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// ListUsersWithEmail returns every user whose email is set.
func (s *PostgresStore) ListUsersWithEmail(ctx context.Context) ([]domain.User, error) {
	query, args, err := psql.Select(userColumns...).
		From(userTable).
		Where(sq.NotEq{"email": ""}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build users query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return users, nil
}

// InsertUser returns domain.ErrUserExists on a duplicate email.
func (s *PostgresStore) InsertUser(ctx context.Context, u domain.User) error {
	query, args, err := psql.Insert(userTable).
		Columns(userColumns...).
		Values(u.ID, u.ExternalID, u.Email, u.Name, u.PasswordHash, u.Country, u.InvestmentGoals, u.RiskTolerance, u.PreferredIndustry, u.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// SymbolsByUserID projects the symbol column of the user's watchlist.
func (s *PostgresStore) SymbolsByUserID(ctx context.Context, userID string) ([]string, error) {
	query, args, err := psql.Select("symbol").
		From(domain.CollectionWatchlist).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("added_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build watchlist query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	symbols := []string{}
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return symbols, nil
}

// AddToWatchlist is a no-op when the symbol is already tracked.
func (s *PostgresStore) AddToWatchlist(ctx context.Context, e domain.WatchlistEntry) error {
	query, args, err := psql.Insert(domain.CollectionWatchlist).
		Columns("id", "user_id", "symbol", "added_at").
		Values(e.ID, e.UserID, e.Symbol, e.AddedAt).
		Suffix("ON CONFLICT (user_id, symbol) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert watchlist: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert watchlist: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveFromWatchlist(ctx context.Context, userID, symbol string) error {
	query, args, err := psql.Delete(domain.CollectionWatchlist).
		Where(sq.And{sq.Eq{"user_id": userID}, sq.Eq{"symbol": symbol}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete watchlist: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete watchlist: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertSession(ctx context.Context, sess domain.Session) error {
	query, args, err := psql.Insert(sessionTable).
		Columns(sessionCols...).
		Values(sess.ID, sess.UserID, sess.Email, sess.Name, sess.ExpiresAt, sess.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FindSession returns domain.ErrNotFound for unknown ids.
func (s *PostgresStore) FindSession(ctx context.Context, id string) (domain.Session, error) {
	query, args, err := psql.Select(sessionCols...).From(sessionTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.Session{}, fmt.Errorf("build session query: %w", err)
	}

	var sess domain.Session
	err = s.db.QueryRow(ctx, query, args...).Scan(&sess.ID, &sess.UserID, &sess.Email, &sess.Name, &sess.ExpiresAt, &sess.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("query session: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	query, args, err := psql.Delete(sessionTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete session: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.PasswordHash,
		&u.Country, &u.InvestmentGoals, &u.RiskTolerance, &u.PreferredIndustry, &u.CreatedAt)
	return u, err
}
