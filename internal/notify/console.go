package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/foodkeeper/foodkeeper/internal/models"
)

// ConsoleNotifier logs deliveries instead of sending email. Intended for
// local development without an SMTP relay. One-time codes are never logged.
type ConsoleNotifier struct {
	log *zap.Logger
}

func NewConsoleNotifier(log *zap.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{log: log}
}

func (n *ConsoleNotifier) SendOTP(ctx context.Context, email, code string, purpose models.OTPType) error {
	n.log.Info("otp_email_skipped",
		zap.String("email", email),
		zap.String("purpose", string(purpose)))
	return nil
}

func (n *ConsoleNotifier) SendWelcome(ctx context.Context, email, firstName string) error {
	n.log.Info("welcome_email_skipped", zap.String("email", email))
	return nil
}

var _ Notifier = (*ConsoleNotifier)(nil)
