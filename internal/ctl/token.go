package ctl

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/fedinode/internal/server/auth"
	"github.com/spf13/cobra"
)

func tokenCmd(env *Env) *cobra.Command {
	var (
		subject  string
		validFor time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := env.LoadConfig()
			if validFor <= 0 {
				validFor = cfg.AdminTokenValidityDuration
			}

			token, err := auth.GenerateToken(subject, []byte(cfg.SecretKey), validFor)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(env.Out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "admin", "token subject")
	cmd.Flags().DurationVar(&validFor, "valid-for", 0, "token lifetime (defaults to the configured validity)")
	return cmd
}
