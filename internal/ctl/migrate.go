package ctl

import (
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fedinode/internal/server/config"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
)

func migrateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withDB(cmd.Context(), func(_ *config.Config, db *sql.DB, rm repomanager.RepositoryManager) error {
				if err := rm.RunMigrations(cmd.Context(), db); err != nil {
					return fmt.Errorf("migrations failed: %w", err)
				}
				fmt.Fprintln(env.Out, "schema is up to date")
				return nil
			})
		},
	}
}
