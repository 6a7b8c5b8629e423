package main

import (
	"errors"
	"fmt"

	"github.com/ashureev/fitfusion/internal/domain"
	"github.com/ashureev/fitfusion/internal/store"
	"github.com/spf13/cobra"
)

var signupCmd = &cobra.Command{
	Use:   "signup <username> <email>",
	Short: "Register a new gym member",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, email := args[0], args[1]
		if !domain.ValidUsername(username) {
			return fmt.Errorf("invalid username %q: use 3-32 letters, digits, '.', '_' or '-'", username)
		}
		if !domain.ValidEmail(email) {
			return fmt.Errorf("invalid email %q", email)
		}

		repo, err := openRepo(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer repo.Close()

		user, err := repo.CreateUser(cmd.Context(), username, email)
		if errors.Is(err, store.ErrUserExists) {
			return fmt.Errorf("username %q is already taken", username)
		}
		if err != nil {
			return fmt.Errorf("create member: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Welcome to FitFusion, %s! Member #%d.\n", user.Username, user.ID)
		return nil
	},
}
