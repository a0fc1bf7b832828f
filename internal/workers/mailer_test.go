package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/foodkeeper/foodkeeper/internal/queue"
)

// mockMessage implements queue.MessageInterface and records the outcome
type mockMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job { return m.job }

var _ queue.MessageInterface = (*mockMessage)(nil)

// mockMailer is a Notifier with injectable failures
type mockMailer struct {
	otpErr     error
	welcomeErr error
	otpSent    int
	welcome    int
}

func (m *mockMailer) SendOTP(ctx context.Context, email, code string, purpose models.OTPType) error {
	if m.otpErr != nil {
		return m.otpErr
	}
	m.otpSent++
	return nil
}

func (m *mockMailer) SendWelcome(ctx context.Context, email, firstName string) error {
	if m.welcomeErr != nil {
		return m.welcomeErr
	}
	m.welcome++
	return nil
}

func TestProcessJob_OTPEmailSuccess(t *testing.T) {
	t.Parallel()
	mailer := &mockMailer{}
	worker := NewMailWorker(mailer)

	expiry := time.Now().Add(10 * time.Minute)
	msg := &mockMessage{job: queue.NewOTPEmailJob("jane@example.com", "123456", models.OTPTypeEmailVerification, expiry)}

	if err := worker.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}
	if mailer.otpSent != 1 {
		t.Errorf("otp deliveries = %d, want 1", mailer.otpSent)
	}
	if !msg.acked || msg.nacked {
		t.Errorf("message outcome acked=%v nacked=%v, want ack only", msg.acked, msg.nacked)
	}
}

func TestProcessJob_WelcomeEmailSuccess(t *testing.T) {
	t.Parallel()
	mailer := &mockMailer{}
	worker := NewMailWorker(mailer)

	msg := &mockMessage{job: queue.NewWelcomeEmailJob("jane@example.com", "Jane")}

	if err := worker.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}
	if mailer.welcome != 1 {
		t.Errorf("welcome deliveries = %d, want 1", mailer.welcome)
	}
	if !msg.acked {
		t.Error("message was not acked")
	}
}

func TestProcessJob_ExpiredJobDiscarded(t *testing.T) {
	t.Parallel()
	mailer := &mockMailer{}
	worker := NewMailWorker(mailer)

	expiry := time.Now().Add(-time.Minute)
	msg := &mockMessage{job: queue.NewOTPEmailJob("jane@example.com", "123456", models.OTPTypeEmailVerification, expiry)}

	if err := worker.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}
	if mailer.otpSent != 0 {
		t.Error("expired job was delivered")
	}
	if !msg.acked || msg.nacked {
		t.Errorf("message outcome acked=%v nacked=%v, want ack (discard)", msg.acked, msg.nacked)
	}
}

func TestProcessJob_FailureRequeuesWithinBudget(t *testing.T) {
	t.Parallel()
	mailer := &mockMailer{otpErr: errors.New("smtp down")}
	worker := NewMailWorker(mailer)

	expiry := time.Now().Add(10 * time.Minute)
	job := queue.NewOTPEmailJob("jane@example.com", "123456", models.OTPTypeEmailVerification, expiry)
	msg := &mockMessage{job: job}

	if err := worker.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("ProcessJob() returned nil for a failed delivery")
	}
	if !msg.nacked || !msg.requeue {
		t.Errorf("message outcome nacked=%v requeue=%v, want requeue", msg.nacked, msg.requeue)
	}
	if job.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", job.RetryCount)
	}
}

func TestProcessJob_ExhaustedRetriesDeadLetter(t *testing.T) {
	t.Parallel()
	mailer := &mockMailer{welcomeErr: errors.New("smtp down")}
	worker := NewMailWorker(mailer)

	job := queue.NewWelcomeEmailJob("jane@example.com", "Jane")
	job.RetryCount = job.MaxRetries
	msg := &mockMessage{job: job}

	if err := worker.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("ProcessJob() returned nil for an exhausted job")
	}
	if !msg.nacked || msg.requeue {
		t.Errorf("message outcome nacked=%v requeue=%v, want dead-letter", msg.nacked, msg.requeue)
	}
}

func TestProcessJob_UnknownTypeDeadLetter(t *testing.T) {
	t.Parallel()
	worker := NewMailWorker(&mockMailer{})

	msg := &mockMessage{job: &queue.Job{Type: "carrier_pigeon", Email: "jane@example.com"}}

	if err := worker.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("ProcessJob() returned nil for an unknown job type")
	}
	if !msg.nacked || msg.requeue {
		t.Errorf("message outcome nacked=%v requeue=%v, want dead-letter", msg.nacked, msg.requeue)
	}
}

func TestProcessOTPEmailJob_RequiresCode(t *testing.T) {
	t.Parallel()
	worker := NewMailWorker(&mockMailer{})

	job := &queue.Job{Type: queue.JobTypeOTPEmail, Email: "jane@example.com"}
	if err := worker.ProcessOTPEmailJob(context.Background(), job); err == nil {
		t.Error("ProcessOTPEmailJob() accepted a job without a code")
	}
}
