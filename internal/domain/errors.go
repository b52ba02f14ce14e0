package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks an absent user, watchlist or session.
	ErrNotFound = errors.New("not found")
	// ErrMissingAPIKey is returned by the news provider when no key is configured.
	ErrMissingAPIKey = errors.New("news api key is not configured")
	// ErrUserExists is returned on sign-up with an email already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionExpired is returned for tokens whose session is gone or stale.
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidInput marks a request that failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotConfigured is returned by a component whose required settings are absent.
	ErrNotConfigured = errors.New("component not configured")
)

// FetchError is a provider failure for one symbol or category.
type FetchError struct {
	Symbol   string
	Category string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("fetch company news %s: %v", e.Symbol, e.Err)
	}
	return fmt.Sprintf("fetch %s news: %v", e.Category, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewsFetchError is the aggregator-level failure callers must handle.
type NewsFetchError struct {
	Err error
}

func (e *NewsFetchError) Error() string {
	return fmt.Sprintf("failed to fetch news: %v", e.Err)
}

func (e *NewsFetchError) Unwrap() error { return e.Err }

// SummarizationError wraps a completion failure.
type SummarizationError struct {
	Err error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarize news: %v", e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }

// DeliveryError wraps a mail transport failure for one recipient.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver mail to %s: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
