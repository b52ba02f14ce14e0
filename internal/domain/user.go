package domain

import "time"

// Logical collection names shared by every store backend.
const (
	CollectionUser      = "user"
	CollectionWatchlist = "watchlist"
	CollectionSession   = "session"
)

// User is a stored account. ID is the store's internal identifier; ExternalID
// is the optional "id" field some records carry alongside it.
type User struct {
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

// Profile holds the onboarding answers used to personalise the welcome email.
type Profile struct {
	Country           string `json:"country"`
	InvestmentGoals   string `json:"investmentGoals"`
	RiskTolerance     string `json:"riskTolerance"`
	PreferredIndustry string `json:"preferredIndustry"`
}

// Profile returns the onboarding fields of the user.
func (u User) Profile() Profile {
	return Profile{
		Country:           u.Country,
		InvestmentGoals:   u.InvestmentGoals,
		RiskTolerance:     u.RiskTolerance,
		PreferredIndustry: u.PreferredIndustry,
	}
}

// DigestTarget is a user eligible for the news digest. Built fresh every run.
type DigestTarget struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// WatchlistEntry associates a user with an uppercase ticker symbol.
type WatchlistEntry struct {
	ID      string
	UserID  string
	Symbol  string
	AddedAt time.Time
}

// Session is a signed-in user session.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
