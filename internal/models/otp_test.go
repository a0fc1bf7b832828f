package models

import (
	"testing"
	"time"
)

func TestOTPRecordState(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		verified  bool
		expiresAt time.Time
		expected  OTPState
	}{
		{
			name:      "unconsumed before expiry is active",
			verified:  false,
			expiresAt: now.Add(5 * time.Minute),
			expected:  OTPStateActive,
		},
		{
			name:      "unconsumed past expiry is expired",
			verified:  false,
			expiresAt: now.Add(-time.Second),
			expected:  OTPStateExpired,
		},
		{
			name:      "consumed before expiry is consumed",
			verified:  true,
			expiresAt: now.Add(5 * time.Minute),
			expected:  OTPStateConsumed,
		},
		{
			name:      "consumed past expiry stays consumed",
			verified:  true,
			expiresAt: now.Add(-time.Minute),
			expected:  OTPStateConsumed,
		},
		{
			name:      "exactly at expiry is still active",
			verified:  false,
			expiresAt: now,
			expected:  OTPStateActive,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := &OTPRecord{Verified: tt.verified, ExpiresAt: tt.expiresAt}
			if got := rec.State(now); got != tt.expected {
				t.Errorf("State() = %s, want %s", got, tt.expected)
			}
		})
	}
}
