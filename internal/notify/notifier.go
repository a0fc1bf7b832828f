package notify

import (
	"context"

	"github.com/foodkeeper/foodkeeper/internal/models"
)

// Notifier delivers out-of-band email notifications. Both methods are
// fire-and-forget from the caller's perspective: a returned error is a
// diagnostic, never a reason to fail the flow that triggered the send.
type Notifier interface {
	// SendOTP delivers a one-time code. The code travels only through this
	// channel; it must never appear in logs or API responses.
	SendOTP(ctx context.Context, email, code string, purpose models.OTPType) error

	// SendWelcome delivers the post-verification welcome message.
	SendWelcome(ctx context.Context, email, firstName string) error
}
