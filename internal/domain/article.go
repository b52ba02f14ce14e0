package domain

// RawArticle is a provider record before validation. Any field may be missing.
type RawArticle struct {
	ID          int64
	Headline    string
	Summary     string
	Description string
	URL         string
	Datetime    int64
	Source      string
	Image       string
	Category    string
	Related     string
}

// Article is the canonical news record handed to the digest pipeline and the API.
type Article struct {
	ID       string `json:"id"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"`
	Source   string `json:"source"`
	Image    string `json:"image,omitempty"`
	Category string `json:"category,omitempty"`
	Related  string `json:"related,omitempty"`
}

// ArticleBrief is the minimal payload sent to the summarizer.
type ArticleBrief struct {
	Headline string `json:"headline"`
	URL      string `json:"url"`
}

// Brief strips an article down to headline and url.
func (a Article) Brief() ArticleBrief {
	return ArticleBrief{Headline: a.Headline, URL: a.URL}
}
