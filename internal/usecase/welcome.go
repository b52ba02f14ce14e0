package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"Signalist/internal/domain"
	"Signalist/internal/mailer"
)

// IntroWriter produces the personalised welcome intro.
type IntroWriter interface {
	WelcomeIntro(ctx context.Context, profile domain.Profile) string
}

// WelcomeSender delivers the welcome email.
type WelcomeSender interface {
	SendWelcomeEmail(ctx context.Context, data mailer.WelcomeEmail) error
}

// WelcomeFlow sends the onboarding email after sign-up.
type WelcomeFlow struct {
	intro  IntroWriter
	mailer WelcomeSender
	logger *slog.Logger
}

// NewWelcomeFlow constructs the flow.
func NewWelcomeFlow(intro IntroWriter, sender WelcomeSender, logger *slog.Logger) *WelcomeFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &WelcomeFlow{intro: intro, mailer: sender, logger: logger.With("component", "welcome")}
}

// Send generates the intro for user and emails it.
func (w *WelcomeFlow) Send(ctx context.Context, user domain.User) error {
	if w.mailer == nil {
		return fmt.Errorf("send welcome email: %w", domain.ErrNotConfigured)
	}

	intro := ""
	if w.intro != nil {
		intro = w.intro.WelcomeIntro(ctx, user.Profile())
	}

	err := w.mailer.SendWelcomeEmail(ctx, mailer.WelcomeEmail{
		Email: user.Email,
		Name:  user.Name,
		Intro: intro,
	})
	if err != nil {
		return err
	}
	w.logger.Info("welcome email sent", "email", user.Email)
	return nil
}
