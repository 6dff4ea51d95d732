package actors

import (
	"context"

	"github.com/dmitrijs2005/fedinode/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.Actor) (*models.Actor, error)
	FindByID(ctx context.Context, id string) (*models.Actor, error)
	FindByIDForUpdate(ctx context.Context, id string) (*models.Actor, error)
	FindByUsername(ctx context.Context, username, domain string) (*models.Actor, error)
	UpdateEndpoints(ctx context.Context, a *models.Actor) error
	UpdateKeys(ctx context.Context, id, publicKey, privateKey string) error
	UpsertRemote(ctx context.Context, a *models.Actor) (*models.Actor, error)
}
