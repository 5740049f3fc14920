package email

import (
	"context"
	"fmt"

	"github.com/iuliaszarics/WhiskersWonderland/internal/config"
	"github.com/iuliaszarics/WhiskersWonderland/internal/logger"
)

// Sender delivers a single message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message represents an email message to be sent.
type Message struct {
	To       string // recipient email address
	Subject  string
	HTMLBody string
	TextBody string // plain-text fallback body
}

// NewSender picks the provider named in cfg. Gmail needs either service
// account credentials or an OAuth2 client with a refresh token.
func NewSender(ctx context.Context, cfg config.EmailConfig, log *logger.Logger) (Sender, error) {
	switch cfg.Provider {
	case "gmail":
		g := cfg.Gmail
		if g.CredentialsJSON != "" {
			return NewGmailSender(ctx, GmailConfig{
				CredentialsJSON: g.CredentialsJSON,
				SenderAddress:   g.SenderAddress,
				SenderName:      g.SenderName,
			})
		}
		return NewGmailSenderWithToken(ctx, g.ClientID, g.ClientSecret, g.RefreshToken, g.SenderAddress, g.SenderName)
	case "log", "":
		return NewLogSender(log), nil
	case "none":
		return NopSender{}, nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

// LogSender writes messages to the log instead of delivering them
type LogSender struct {
	log *logger.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log.WithComponent("email")}
}

// Send logs the recipient and subject
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email not delivered (log provider)")
	return nil
}

// NopSender drops every message
type NopSender struct{}

// Send does nothing
func (NopSender) Send(context.Context, Message) error { return nil }
