// Package ctl implements fedinodectl, the operator command line: admin
// tokens, schema migrations and local actor provisioning straight against
// the database.
package ctl

import (
	"context"
	"database/sql"
	"io"
	"os"

	"github.com/dmitrijs2005/fedinode/internal/logging"
	"github.com/dmitrijs2005/fedinode/internal/server/config"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
)

// Env is what commands run against. Tests replace the loaders.
type Env struct {
	Out        io.Writer
	LoadConfig func() *config.Config
	OpenDB     func(ctx context.Context, dsn string) (*sql.DB, error)
	Repos      func() repomanager.RepositoryManager
	Logger     logging.Logger
}

// DefaultEnv reads the node configuration the same way the server does.
func DefaultEnv() *Env {
	return &Env{
		Out:        os.Stdout,
		LoadConfig: config.LoadConfig,
		OpenDB:     repomanager.OpenDB,
		Repos:      repomanager.NewPostgresRepositoryManager,
		Logger:     logging.New(os.Stderr, "warn"),
	}
}

func NewRootCmd(env *Env) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "fedinodectl",
		Short:         "Operate a fedinode instance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// read by flagx.ConfigFilePath; declared so cobra accepts it
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")

	root.AddCommand(
		tokenCmd(env),
		migrateCmd(env),
		actorCmd(env),
	)
	root.SetOut(env.Out)
	return root
}

// withDB opens the configured database for the duration of fn.
func (env *Env) withDB(ctx context.Context, fn func(cfg *config.Config, db *sql.DB, rm repomanager.RepositoryManager) error) error {
	cfg := env.LoadConfig()
	db, err := env.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(cfg, db, env.Repos())
}
