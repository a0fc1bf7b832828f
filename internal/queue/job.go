package queue

import (
	"time"

	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeOTPEmail is a job for delivering a one-time code email
	JobTypeOTPEmail JobType = "otp_email"
	// JobTypeWelcomeEmail is a job for delivering the post-verification welcome email
	JobTypeWelcomeEmail JobType = "welcome_email"
)

// Job represents an email delivery job in the queue
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	Email      string         `json:"email"`
	FirstName  string         `json:"first_name,omitempty"`
	Code       string         `json:"code,omitempty"`
	Purpose    models.OTPType `json:"purpose,omitempty"`
	NotAfter   *time.Time     `json:"not_after,omitempty"` // Latest time to deliver (nil = no expiration)
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewOTPEmailJob creates a delivery job for a one-time code. The job
// expires with the code: delivering it later would only confuse the user.
func NewOTPEmailJob(email, code string, purpose models.OTPType, codeExpiry time.Time) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeOTPEmail,
		Email:      email,
		Code:       code,
		Purpose:    purpose,
		NotAfter:   &codeExpiry,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// NewWelcomeEmailJob creates a delivery job for the welcome email
func NewWelcomeEmailJob(email, firstName string) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeWelcomeEmail,
		Email:      email,
		FirstName:  firstName,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
