package smtp

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Signalist/internal/domain"
)

func TestComposeMultipartAlternative(t *testing.T) {
	t.Parallel()

	msg := domain.MailMessage{
		FromName:    "Signalist News",
		FromAddress: "news@signalist.app",
		To:          "ada@example.com",
		Subject:     "Market News Summary Today - Saturday, October 17, 2026",
		Text:        "Today's market news summary from Signalist",
		HTML:        `<div style="color: #FDD458;">Apple rises</div>`,
	}

	raw, err := Compose(msg, time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	r, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := r.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, msg.Subject, subject)

	from, err := r.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "Signalist News", from[0].Name)
	assert.Equal(t, "news@signalist.app", from[0].Address)

	parts := map[string]string{}
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		h, ok := p.Header.(*mail.InlineHeader)
		require.True(t, ok)
		ct, _, err := h.ContentType()
		require.NoError(t, err)
		body, err := io.ReadAll(p.Body)
		require.NoError(t, err)
		parts[ct] = string(body)
	}

	assert.Equal(t, msg.Text, parts["text/plain"])
	assert.Equal(t, msg.HTML, parts["text/html"])
}

func TestSendRequiresCredentials(t *testing.T) {
	t.Parallel()

	tr := NewTransport(Config{Host: "smtp.gmail.com"})
	err := tr.Send(context.Background(), domain.MailMessage{To: "a@example.com"})
	require.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestNewTransportDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, SecurityTLS, NewTransport(Config{}).cfg.Security)
	assert.Equal(t, 465, NewTransport(Config{}).cfg.Port)
	assert.Equal(t, SecuritySTARTTLS, NewTransport(Config{Port: 587}).cfg.Security)
	assert.Equal(t, SecurityNone, NewTransport(Config{Port: 25, Security: SecurityNone}).cfg.Security)
}
