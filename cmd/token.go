package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/assessd/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a development bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		sub, _ := cmd.Flags().GetString("sub")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if sub == "" {
			return errors.New("--sub is required")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Auth.Secret == "" {
			return errors.New("auth.secret is not configured")
		}
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTL
		}

		tok, err := auth.NewService(cfg.Auth.Secret, ttl).Issue(sub, role)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("sub", "", "User id to place in the token subject")
	tokenCmd.Flags().String("role", auth.RoleLearner, "Role: learner or instructor")
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to auth.token_ttl)")
}
