package mailer

import (
	"context"
	"embed"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"Signalist/internal/domain"
	"Signalist/internal/metrics"
	"Signalist/internal/ports"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	defaultBaseURL = "https://signalist.app"
	dateLayout     = "Monday, January 2, 2006"

	welcomeSubject = "Welcome to Signalist - your stock market toolkit is ready"
	welcomeText    = "Thanks for joining Signalist"
	newsSubject    = "Market News Summary Today - %s"
	newsText       = "Today's market news summary from Signalist"
)

var (
	welcomeTemplate = mustTemplate("templates/welcome.html")
	newsTemplate    = mustTemplate("templates/news_summary.html")
)

// Config carries sender identity and the deployment URL links point at.
type Config struct {
	FromAddress string
	BaseURL     string
}

// WelcomeEmail is the data substituted into the welcome template.
type WelcomeEmail struct {
	Email string
	Name  string
	Intro string
}

// NewsSummaryEmail is the data substituted into the digest template.
type NewsSummaryEmail struct {
	Email       string
	Date        string
	NewsContent string
}

// Mailer renders templates and hands messages to the transport. It does not retry.
type Mailer struct {
	transport   ports.MailTransport
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

// New builds a mailer.
func New(transport ports.MailTransport, cfg Config, logger *slog.Logger) *Mailer {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{transport: transport, fromAddress: cfg.FromAddress, baseURL: base, logger: logger}
}

// SendWelcomeEmail sends the onboarding email.
func (m *Mailer) SendWelcomeEmail(ctx context.Context, data WelcomeEmail) error {
	body := fill(welcomeTemplate, map[string]string{
		"{{name}}":  html.EscapeString(data.Name),
		"{{intro}}": html.EscapeString(data.Intro),
	})
	body = m.rewriteURLs(body)

	err := m.send(ctx, domain.MailMessage{
		FromName:    "Signalist",
		FromAddress: m.fromAddress,
		To:          data.Email,
		Subject:     welcomeSubject,
		Text:        welcomeText,
		HTML:        body,
	})
	metrics.RecordEmail("welcome", err)
	return err
}

// SendNewsSummaryEmail sends one digest. newsContent is inserted as-is.
func (m *Mailer) SendNewsSummaryEmail(ctx context.Context, data NewsSummaryEmail) error {
	body := fill(newsTemplate, map[string]string{
		"{{date}}":        html.EscapeString(data.Date),
		"{{newsContent}}": data.NewsContent,
	})
	body = m.rewriteURLs(body)

	text := newsText
	if plain := PlainText(data.NewsContent); plain != "" {
		text += "\n\n" + plain
	}

	err := m.send(ctx, domain.MailMessage{
		FromName:    "Signalist News",
		FromAddress: m.fromAddress,
		To:          data.Email,
		Subject:     fmt.Sprintf(newsSubject, data.Date),
		Text:        text,
		HTML:        body,
	})
	metrics.RecordEmail("news_summary", err)
	return err
}

func (m *Mailer) send(ctx context.Context, msg domain.MailMessage) error {
	if m.transport == nil {
		return &domain.DeliveryError{Recipient: msg.To, Err: domain.ErrNotConfigured}
	}
	if err := m.transport.Send(ctx, msg); err != nil {
		return &domain.DeliveryError{Recipient: msg.To, Err: err}
	}
	m.logger.Debug("email sent", "email", msg.To, "subject", msg.Subject)
	return nil
}

// rewriteURLs points hard-coded deployment links at the configured base URL.
func (m *Mailer) rewriteURLs(body string) string {
	r := strings.NewReplacer(
		"https://stock-market-dev.vercel.app/", m.baseURL+"/",
		"https://stock-market-dev.vercel.app", m.baseURL,
		"https://signalist.app/", m.baseURL+"/",
		"https://signalist.app", m.baseURL,
		`href="/"`, `href="`+m.baseURL+`/"`,
	)
	return r.Replace(body)
}

// FormattedDate renders the digest date, e.g. "Saturday, October 17, 2026".
func FormattedDate(t time.Time) string {
	return t.Format(dateLayout)
}

// PlainText extracts readable text from an HTML fragment.
func PlainText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var lines []string
	doc.Find("h1, h2, h3, h4, p, li, strong, a").Each(func(_ int, sel *goquery.Selection) {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" {
			return
		}
		if href, ok := sel.Attr("href"); ok && sel.Is("a") {
			text += " (" + href + ")"
		}
		lines = append(lines, text)
	})
	return strings.Join(lines, "\n")
}

func fill(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, k, v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func mustTemplate(name string) string {
	raw, err := templateFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("mailer: missing template %s: %v", name, err))
	}
	return string(raw)
}
