package main

import (
	"fmt"
	"time"

	"github.com/alexbotov/slotsrv/internal/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		ttl      time.Duration
		operator bool
	)
	cmd := &cobra.Command{
		Use:   "token <player-id>",
		Short: "Issue a bearer token for a player or operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc := auth.New(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
			issue := svc.Issue
			if operator {
				issue = svc.IssueOperator
			}
			token, err := issue(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().BoolVar(&operator, "operator", false, "Allow the operator endpoints")
	return cmd
}
