package email

import (
	"context"
	"fmt"

	"github.com/unclebandit/emailace-backend/internal/config"
)

// NewSender builds the configured provider. Missing credentials yield a
// configuration error; callers may keep running without a sender and let
// send operations fail fast.
func NewSender(ctx context.Context, cfg config.MailConfig) (Sender, error) {
	switch cfg.Provider {
	case "", "smtp":
		s, err := NewSMTPSender(SMTPConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.User,
			Password:   cfg.AppPassword,
			SenderName: cfg.SenderName,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "gmail":
		g, err := NewGmailSender(ctx, GmailConfig{
			ClientID:      cfg.Gmail.ClientID,
			ClientSecret:  cfg.Gmail.ClientSecret,
			RefreshToken:  cfg.Gmail.RefreshToken,
			SenderAddress: cfg.User,
			SenderName:    cfg.SenderName,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
