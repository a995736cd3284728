package main

import (
	"fmt"

	"github.com/go-community-notifier/internal/config"
	"github.com/go-community-notifier/internal/domain"
	jwtinfra "github.com/go-community-notifier/internal/infrastructure/jwt"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var subject, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an internal caller of /v1/dispatch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if role != domain.RoleService && role != domain.RoleAdmin {
				return fmt.Errorf("role must be %q or %q", domain.RoleService, domain.RoleAdmin)
			}
			p, err := jwtinfra.NewProvider(config.Load())
			if err != nil {
				return err
			}
			signed, err := p.Sign(subject, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Caller identity, e.g. feed-service")
	cmd.Flags().StringVar(&role, "role", domain.RoleService, "service or admin")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
