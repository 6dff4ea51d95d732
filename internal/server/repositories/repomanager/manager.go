package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fedinode/internal/dbx"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/actors"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/followers"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/keys"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/outbox"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Actors(db dbx.DBTX) actors.Repository
	Keys(db dbx.DBTX) keys.Repository
	Followers(db dbx.DBTX) followers.Repository
	Outbox(db dbx.DBTX) outbox.Repository
}
