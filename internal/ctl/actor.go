package ctl

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/fedinode/internal/server/config"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fedinode/internal/server/services"
	"github.com/spf13/cobra"
)

func actorCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actor",
		Short: "Provision local actors and rotate their keys",
	}

	ensure := &cobra.Command{
		Use:   "ensure <username>",
		Short: "Create the local actor if missing and print its document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withDB(cmd.Context(), func(cfg *config.Config, db *sql.DB, rm repomanager.RepositoryManager) error {
				doc, err := services.NewActorService(db, rm, cfg, env.Logger).EnsureLocalActor(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(env.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			})
		},
	}

	rotate := &cobra.Command{
		Use:   "rotate <username>",
		Short: "Replace the signing key of a local actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withDB(cmd.Context(), func(cfg *config.Config, db *sql.DB, rm repomanager.RepositoryManager) error {
				actor, err := services.NewActorService(db, rm, cfg, env.Logger).Lookup(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("actor %q: %w", args[0], err)
				}
				key, err := services.NewKeyService(db, rm, cfg, env.Logger).Rotate(cmd.Context(), actor.ID)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "KEY ID\tSERIAL\tBITS\tFINGERPRINT")
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", key.KeyID, key.Serial, key.BitLength, key.Fingerprint)
				return w.Flush()
			})
		},
	}

	cmd.AddCommand(ensure, rotate)
	return cmd
}
