package workers

import (
	"context"
	"fmt"
	"log"

	"github.com/foodkeeper/foodkeeper/internal/notify"
	"github.com/foodkeeper/foodkeeper/internal/queue"
)

// MailWorker processes email delivery jobs
type MailWorker struct {
	mailer notify.Notifier
}

// NewMailWorker creates a new mail worker
func NewMailWorker(mailer notify.Notifier) *MailWorker {
	return &MailWorker{mailer: mailer}
}

// ProcessOTPEmailJob delivers a one-time code email
func (w *MailWorker) ProcessOTPEmailJob(ctx context.Context, job *queue.Job) error {
	if job.Code == "" {
		return fmt.Errorf("code is required for otp email job")
	}
	if err := w.mailer.SendOTP(ctx, job.Email, job.Code, job.Purpose); err != nil {
		return fmt.Errorf("failed to send otp email: %w", err)
	}
	return nil
}

// ProcessWelcomeEmailJob delivers the post-verification welcome email
func (w *MailWorker) ProcessWelcomeEmailJob(ctx context.Context, job *queue.Job) error {
	if err := w.mailer.SendWelcome(ctx, job.Email, job.FirstName); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

// ProcessJob processes a job based on its type
func (w *MailWorker) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	// Drop jobs whose code has already expired; the user will have
	// requested a fresh one by now.
	if job.IsExpired() {
		log.Printf("Job %s expired (NotAfter: %v), discarding", job.ID, job.NotAfter)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack expired job: %v", ackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeOTPEmail:
		if err := w.ProcessOTPEmailJob(ctx, job); err != nil {
			return w.handleJobError(msg, job, err, "otp email")
		}
	case queue.JobTypeWelcomeEmail:
		if err := w.ProcessWelcomeEmailJob(ctx, job); err != nil {
			return w.handleJobError(msg, job, err, "welcome email")
		}
	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// handleJobError applies the standard retry policy: requeue until the
// retry budget runs out, then dead-letter.
func (w *MailWorker) handleJobError(msg queue.MessageInterface, job *queue.Job, err error, jobType string) error {
	if job.CanRetry() {
		job.IncrementRetry()
		log.Printf("%s job %s failed (attempt %d/%d): %v, will retry", jobType, job.ID, job.RetryCount, job.MaxRetries, err)
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to nack job: %v", nackErr)
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	log.Printf("%s job %s failed after %d retries: %v, sending to DLQ", jobType, job.ID, job.MaxRetries, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack job to DLQ: %v", nackErr)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}
