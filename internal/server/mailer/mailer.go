// Package mailer delivers one-time codes by email.
package mailer

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/blogkeeper/internal/logging"
	"github.com/dmitrijs2005/blogkeeper/internal/server/config"
)

// Sender dispatches a one-time code to an address. An error means the
// message was not handed to the provider.
type Sender interface {
	SendOTP(ctx context.Context, to, code string) error
}

const otpSubject = "Your blogkeeper verification code"

func otpBody(code string) (html, text string) {
	html = fmt.Sprintf(`<p>Your verification code is</p><h2 style="letter-spacing:4px">%s</h2><p>It expires in 10 minutes.</p>`, code)
	text = fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code)
	return html, text
}

// New returns the sender selected by cfg.MailProvider.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (Sender, error) {
	switch cfg.MailProvider {
	case config.MailProviderSES:
		return NewSESSender(ctx, cfg)
	case config.MailProviderLog:
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.MailProvider)
	}
}

// LogSender writes codes to the log instead of sending them. Meant for local
// development only.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendOTP(ctx context.Context, to, code string) error {
	s.logger.Info(ctx, "otp issued", "to", to, "code", code)
	return nil
}
