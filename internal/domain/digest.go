package domain

// Digest pairs one user with the articles and rendered content of a single run.
// It lives only for the duration of that run.
type Digest struct {
	Target       DigestTarget
	Articles     []Article
	NewsContent  string
	UsedFallback bool
}

// MailMessage is what the mail transport delivers.
type MailMessage struct {
	FromName    string
	FromAddress string
	To          string
	Subject     string
	Text        string
	HTML        string
}

// Stage enumerates the steps of one digest run.
type Stage string

const (
	StageCollectingUsers     Stage = "collecting_users"
	StageResolvingWatchlists Stage = "resolving_watchlists"
	StageFetchingNews        Stage = "fetching_news"
	StageSummarizing         Stage = "summarizing"
	StageSending             Stage = "sending"
	StageDone                Stage = "done"
)
