package news

import (
	"strconv"
	"strings"

	"Signalist/internal/domain"
)

const (
	companySource   = "Company News"
	generalSource   = "Market News"
	companyCategory = "company"
	generalCategory = "general"
)

// Validate reports whether a raw record can become a canonical article:
// it needs a headline, a url and a positive timestamp.
func Validate(raw domain.RawArticle) bool {
	if strings.TrimSpace(raw.Headline) == "" {
		return false
	}
	if !validURL(raw.URL) {
		return false
	}
	return raw.Datetime > 0
}

// Format reshapes a validated record. Company news ids fall back to
// "<SYMBOL>-<ordinal>", general news ids to "general-<ordinal>".
func Format(raw domain.RawArticle, isCompanyNews bool, symbol string, ordinal int) domain.Article {
	article := domain.Article{
		ID:       articleID(raw, isCompanyNews, symbol, ordinal),
		Headline: strings.TrimSpace(raw.Headline),
		Summary:  strings.TrimSpace(raw.Summary),
		URL:      strings.TrimSpace(raw.URL),
		Datetime: raw.Datetime,
		Source:   strings.TrimSpace(raw.Source),
		Image:    raw.Image,
	}

	if article.Summary == "" {
		article.Summary = strings.TrimSpace(raw.Description)
	}

	if isCompanyNews {
		if article.Source == "" {
			article.Source = companySource
		}
		article.Category = companyCategory
		article.Related = symbol
		return article
	}

	if article.Source == "" {
		article.Source = generalSource
	}
	article.Category = raw.Category
	if article.Category == "" {
		article.Category = generalCategory
	}
	article.Related = raw.Related
	return article
}

func articleID(raw domain.RawArticle, isCompanyNews bool, symbol string, ordinal int) string {
	if raw.ID != 0 {
		return strconv.FormatInt(raw.ID, 10)
	}
	if isCompanyNews {
		return symbol + "-" + strconv.Itoa(ordinal)
	}
	return generalCategory + "-" + strconv.Itoa(ordinal)
}

func validURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, " \t\n") {
		return false
	}
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}
