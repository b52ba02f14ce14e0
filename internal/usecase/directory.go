package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"Signalist/internal/domain"
	"Signalist/internal/ports"
)

// UserDirectory lists the users eligible for the news digest.
type UserDirectory struct {
	users  ports.UserStore
	logger *slog.Logger
}

// NewUserDirectory constructs the directory.
func NewUserDirectory(users ports.UserStore, logger *slog.Logger) *UserDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserDirectory{users: users, logger: logger.With("component", "user_directory")}
}

// Load returns every user with both an email and a name. Store failures are
// returned to the caller.
func (d *UserDirectory) Load(ctx context.Context) ([]domain.DigestTarget, error) {
	if d.users == nil {
		return nil, fmt.Errorf("load users: %w", domain.ErrNotConfigured)
	}

	users, err := d.users.ListUsersWithEmail(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	targets := make([]domain.DigestTarget, 0, len(users))
	for _, u := range users {
		email := strings.TrimSpace(u.Email)
		name := strings.TrimSpace(u.Name)
		if email == "" || name == "" {
			continue
		}
		targets = append(targets, domain.DigestTarget{ID: targetID(u), Email: email, Name: name})
	}
	return targets, nil
}

// GetAllUsersForNewsEmail is Load with failures logged and reported as an
// empty list.
func (d *UserDirectory) GetAllUsersForNewsEmail(ctx context.Context) []domain.DigestTarget {
	targets, err := d.Load(ctx)
	if err != nil {
		d.logger.Error("error fetching users for news email", "error", err)
		return []domain.DigestTarget{}
	}
	return targets
}

// targetID is the id reported on a DigestTarget: the record's "id" field
// when present, else the store id.
func targetID(u domain.User) string {
	if u.ExternalID != "" {
		return u.ExternalID
	}
	return u.ID
}
