package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/foodkeeper/foodkeeper/internal/auth"
	"github.com/foodkeeper/foodkeeper/internal/database"
	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/foodkeeper/foodkeeper/internal/validation"
)

// NewOTPCmd creates the otp command group
func NewOTPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otp",
		Short: "Maintain the one-time code ledger",
	}

	cmd.AddCommand(newOTPSweepCmd())
	cmd.AddCommand(newOTPRevokeCmd())

	return cmd
}

func newOTPRevokeCmd() *cobra.Command {
	var otpType string

	cmd := &cobra.Command{
		Use:   "revoke <email>",
		Short: "Revoke outstanding codes for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateOTPType(otpType); err != nil {
				return err
			}

			db, cleanup, err := openDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			email := auth.NormalizeEmail(args[0])
			repo := database.NewOTPRepository(db)
			if err := repo.DeleteActive(context.Background(), email, models.OTPType(otpType)); err != nil {
				return fmt.Errorf("failed to revoke codes: %w", err)
			}

			fmt.Printf("Revoked %s codes for %s\n", otpType, email)
			return nil
		},
	}

	cmd.Flags().StringVar(&otpType, "type", string(models.OTPTypeEmailVerification), "Code type to revoke (EMAIL_VERIFICATION or PASSWORD_RESET)")
	return cmd
}

func newOTPSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired, unconsumed codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := openDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			removed, err := database.NewOTPRepository(db).DeleteExpired(context.Background(), time.Now())
			if err != nil {
				return fmt.Errorf("failed to sweep expired codes: %w", err)
			}

			fmt.Printf("Removed %d expired code(s)\n", removed)
			return nil
		},
	}
}
