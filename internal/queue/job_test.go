package queue

import (
	"testing"
	"time"

	"github.com/foodkeeper/foodkeeper/internal/models"
)

func TestNewOTPEmailJob(t *testing.T) {
	t.Parallel()
	expiry := time.Now().Add(10 * time.Minute)
	job := NewOTPEmailJob("jane@example.com", "123456", models.OTPTypeEmailVerification, expiry)

	if job.Type != JobTypeOTPEmail {
		t.Errorf("Type = %q, want %q", job.Type, JobTypeOTPEmail)
	}
	if job.Email != "jane@example.com" || job.Code != "123456" {
		t.Errorf("payload = (%q, %q)", job.Email, job.Code)
	}
	if job.Purpose != models.OTPTypeEmailVerification {
		t.Errorf("Purpose = %q", job.Purpose)
	}
	if job.NotAfter == nil || !job.NotAfter.Equal(expiry) {
		t.Errorf("NotAfter = %v, want %v", job.NotAfter, expiry)
	}
	if job.MaxRetries != 3 || job.RetryCount != 0 {
		t.Errorf("retry budget = %d/%d", job.RetryCount, job.MaxRetries)
	}
}

func TestNewWelcomeEmailJob(t *testing.T) {
	t.Parallel()
	job := NewWelcomeEmailJob("jane@example.com", "Jane")

	if job.Type != JobTypeWelcomeEmail {
		t.Errorf("Type = %q, want %q", job.Type, JobTypeWelcomeEmail)
	}
	if job.FirstName != "Jane" {
		t.Errorf("FirstName = %q", job.FirstName)
	}
	if job.NotAfter != nil {
		t.Error("welcome jobs must not expire")
	}
	if job.IsExpired() {
		t.Error("IsExpired() = true for a job without NotAfter")
	}
}

func TestJobIsExpired(t *testing.T) {
	t.Parallel()
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Minute)

	tests := []struct {
		name     string
		notAfter *time.Time
		want     bool
	}{
		{"no deadline", nil, false},
		{"future deadline", &future, false},
		{"past deadline", &past, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := &Job{NotAfter: tt.notAfter}
			if got := job.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJobRetryBudget(t *testing.T) {
	t.Parallel()
	job := NewWelcomeEmailJob("jane@example.com", "Jane")

	for i := 0; i < job.MaxRetries; i++ {
		if !job.CanRetry() {
			t.Fatalf("CanRetry() = false at attempt %d of %d", i, job.MaxRetries)
		}
		job.IncrementRetry()
	}
	if job.CanRetry() {
		t.Errorf("CanRetry() = true after %d retries", job.RetryCount)
	}
}
