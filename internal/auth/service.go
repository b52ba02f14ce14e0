// Package auth owns sign-up, sign-in and session checks. A single Service is
// built at startup and shared by every request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"Signalist/internal/domain"
	"Signalist/internal/ports"
)

const (
	defaultSessionTTL = 7 * 24 * time.Hour
	minPasswordLen    = 8
	maxPasswordLen    = 72
)

// Config carries the signing secret and issuer.
type Config struct {
	Secret     string
	BaseURL    string
	SessionTTL time.Duration
	BcryptCost int
}

// SignUp is the sign-up form.
type SignUp struct {
	Email             string `json:"email" validate:"required,email"`
	Password          string `json:"password" validate:"required"`
	FullName          string `json:"fullName" validate:"required,max=100"`
	Country           string `json:"country"`
	InvestmentGoals   string `json:"investmentGoals"`
	RiskTolerance     string `json:"riskTolerance"`
	PreferredIndustry string `json:"preferredIndustry"`
}

// Result is a signed-in user with the bearer token for the new session.
type Result struct {
	User    domain.User
	Session domain.Session
	Token   string
}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Service authenticates users and manages their sessions.
type Service struct {
	cfg      Config
	users    ports.UserStore
	sessions ports.SessionStore
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds the service; zero TTL and cost take defaults.
func NewService(cfg Config, users ports.UserStore, sessions ports.SessionStore, logger *slog.Logger) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		validate: validator.New(),
		logger:   logger.With("component", "auth"),
		now:      time.Now,
	}
}

// CreateUser registers a new account and signs it in.
func (s *Service) CreateUser(ctx context.Context, in SignUp) (Result, error) {
	if err := s.ready(); err != nil {
		return Result{}, err
	}

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.validate.Struct(in); err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if n := len(in.Password); n < minPasswordLen || n > maxPasswordLen {
		return Result{}, fmt.Errorf("%w: password must be between %d and %d bytes", domain.ErrInvalidInput, minPasswordLen, maxPasswordLen)
	}

	if _, err := s.users.FindUserByEmail(ctx, in.Email); err == nil {
		return Result{}, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return Result{}, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:                uuid.NewString(),
		Email:             in.Email,
		Name:              in.FullName,
		PasswordHash:      string(hash),
		Country:           in.Country,
		InvestmentGoals:   in.InvestmentGoals,
		RiskTolerance:     in.RiskTolerance,
		PreferredIndustry: in.PreferredIndustry,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.users.InsertUser(ctx, user); err != nil {
		return Result{}, err
	}
	s.logger.Info("user created", "user_id", user.ID, "email", user.Email)

	return s.startSession(ctx, user)
}

// Authenticate checks credentials and opens a session.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Result, error) {
	if err := s.ready(); err != nil {
		return Result{}, err
	}

	user, err := s.users.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrNotFound) {
		return Result{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Result{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Result{}, domain.ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

// CurrentSession resolves a bearer token to its live session.
func (s *Service) CurrentSession(ctx context.Context, token string) (domain.Session, error) {
	if err := s.ready(); err != nil {
		return domain.Session{}, err
	}

	c, err := s.parse(token, jwt.WithTimeFunc(s.now))
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrSessionExpired, err)
	}

	sess, err := s.sessions.FindSession(ctx, c.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Session{}, domain.ErrSessionExpired
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("find session: %w", err)
	}

	if sess.Expired(s.now()) {
		if err := s.sessions.DeleteSession(ctx, sess.ID); err != nil {
			s.logger.Warn("failed to delete expired session", "session_id", sess.ID, "error", err)
		}
		return domain.Session{}, domain.ErrSessionExpired
	}
	return sess, nil
}

// InvalidateSession deletes the session behind token. Unknown or malformed
// tokens are ignored.
func (s *Service) InvalidateSession(ctx context.Context, token string) error {
	if err := s.ready(); err != nil {
		return err
	}

	c, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil || c.ID == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, c.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) startSession(ctx context.Context, user domain.User) (Result, error) {
	now := s.now().UTC()
	sess := domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.InsertSession(ctx, sess); err != nil {
		return Result{}, fmt.Errorf("store session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Issuer:    s.cfg.BaseURL,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return Result{}, fmt.Errorf("sign token: %w", err)
	}

	sess.Token = signed
	return Result{User: user, Session: sess, Token: signed}, nil
}

func (s *Service) parse(token string, opts ...jwt.ParserOption) (*claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ready() error {
	if s.cfg.Secret == "" || s.users == nil || s.sessions == nil {
		return fmt.Errorf("auth: %w", domain.ErrNotConfigured)
	}
	return nil
}
