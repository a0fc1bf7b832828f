package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/foodkeeper/foodkeeper/internal/auth"
	"github.com/foodkeeper/foodkeeper/internal/config"
	"github.com/foodkeeper/foodkeeper/internal/database"
	"github.com/foodkeeper/foodkeeper/internal/models"
)

// NewUsersCmd creates the users command group
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and maintain user accounts",
	}

	cmd.AddCommand(newUsersListCmd())
	cmd.AddCommand(newUsersLookupCmd())
	cmd.AddCommand(newUsersVerifyCmd())
	cmd.AddCommand(newUsersDisableCmd())

	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := openDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			users, err := database.NewUserRepository(db).List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			if len(users) == 0 {
				fmt.Println("No users found")
				return nil
			}

			for _, u := range users {
				fmt.Printf("  - Email: %s\n", u.Email)
				fmt.Printf("    Provider: %s\n", u.Provider)
				fmt.Printf("    Verified: %t\n", u.EmailVerified)
				fmt.Printf("    Enabled: %t\n", u.Enabled)
				fmt.Printf("    Created: %s\n", u.CreatedAt.Format(time.RFC3339))
				fmt.Println()
			}
			return nil
		},
	}
}

func newUsersLookupCmd() *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:   "lookup [email]",
		Short: "Look up an account by email or by provider subject id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && providerID == "" {
				return fmt.Errorf("provide an email argument or --provider-id")
			}

			db, cleanup, err := openDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			repo := database.NewUserRepository(db)

			var user *models.User
			if len(args) > 0 {
				user, err = repo.GetByEmail(ctx, auth.NormalizeEmail(args[0]))
			} else {
				user, err = repo.GetByProviderIdentity(ctx, models.ProviderGoogle, providerID)
			}
			if err != nil {
				return fmt.Errorf("failed to load user: %w", err)
			}

			fmt.Printf("Email: %s\n", user.Email)
			fmt.Printf("Name: %s %s\n", user.FirstName, user.LastName)
			fmt.Printf("Provider: %s\n", user.Provider)
			if user.ProviderID != nil {
				fmt.Printf("Provider ID: %s\n", *user.ProviderID)
			}
			fmt.Printf("Verified: %t\n", user.EmailVerified)
			fmt.Printf("Enabled: %t\n", user.Enabled)
			fmt.Printf("Created: %s\n", user.CreatedAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&providerID, "provider-id", "", "Google subject id to look up instead of an email")
	return cmd
}

func newUsersVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <email>",
		Short: "Mark an account's email as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setUserFlags(args[0], func(verified, enabled *bool) {
				*verified = true
			})
		},
	}
}

func newUsersDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <email>",
		Short: "Disable an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setUserFlags(args[0], func(verified, enabled *bool) {
				*enabled = false
			})
		},
	}
}

func setUserFlags(email string, apply func(verified, enabled *bool)) error {
	db, cleanup, err := openDatabase()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	repo := database.NewUserRepository(db)

	user, err := repo.GetByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	apply(&user.EmailVerified, &user.Enabled)
	if err := repo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	fmt.Printf("Updated %s (verified=%t, enabled=%t)\n", user.Email, user.EmailVerified, user.Enabled)
	return nil
}

// openDatabase connects using the standard environment configuration
func openDatabase() (*database.DB, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}
	return db, cleanup, nil
}
