package auth

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// OTPSweeper runs periodic expired-OTP purges. It only removes rows that
// are already inert, so it never blocks or races concurrent Generate and
// Verify calls.
type OTPSweeper struct {
	otp      *OTPManager
	interval time.Duration
	log      *zap.Logger
}

// NewOTPSweeper creates a new sweeper running every interval.
func NewOTPSweeper(otp *OTPManager, interval time.Duration, log *zap.Logger) *OTPSweeper {
	return &OTPSweeper{
		otp:      otp,
		interval: interval,
		log:      log,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *OTPSweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *OTPSweeper) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	n, err := s.otp.SweepExpired(ctx)
	if err != nil {
		s.log.Error("otp_sweep_failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("otp_sweep_completed", zap.Int64("removed", n))
	}
}
