package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foodkeeper/foodkeeper/cmd/admin/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "foodkeeper-admin",
		Short: "Administration tool for the FoodKeeper API",
		Long:  "CLI tool for inspecting accounts and maintaining the OTP ledger",
	}

	rootCmd.AddCommand(commands.NewUsersCmd())
	rootCmd.AddCommand(commands.NewOTPCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
