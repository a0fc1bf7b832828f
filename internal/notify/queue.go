package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/foodkeeper/foodkeeper/internal/queue"
)

// QueueNotifier publishes email jobs to the job queue for asynchronous
// delivery by the worker. Publishing is the only blocking step the request
// path pays for; actual SMTP delivery happens out-of-process.
type QueueNotifier struct {
	jobs    queue.JobQueue
	codeTTL time.Duration
}

// NewQueueNotifier creates a queue-backed notifier. codeTTL bounds how long
// an undelivered OTP email stays useful; it should match the OTP lifetime.
func NewQueueNotifier(jobs queue.JobQueue, codeTTL time.Duration) *QueueNotifier {
	return &QueueNotifier{jobs: jobs, codeTTL: codeTTL}
}

// SendOTP enqueues a one-time code email
func (n *QueueNotifier) SendOTP(ctx context.Context, email, code string, purpose models.OTPType) error {
	job := queue.NewOTPEmailJob(email, code, purpose, time.Now().Add(n.codeTTL))
	if err := n.jobs.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue otp email: %w", err)
	}
	return nil
}

// SendWelcome enqueues a welcome email
func (n *QueueNotifier) SendWelcome(ctx context.Context, email, firstName string) error {
	job := queue.NewWelcomeEmailJob(email, firstName)
	if err := n.jobs.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue welcome email: %w", err)
	}
	return nil
}

var _ Notifier = (*QueueNotifier)(nil)
