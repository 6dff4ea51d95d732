package keys

import (
	"context"

	"github.com/dmitrijs2005/fedinode/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, k *models.Key) (*models.Key, error)
	NextSerial(ctx context.Context, actorID string) (int, error)
	DeactivateAll(ctx context.Context, actorID string) error
	FindActive(ctx context.Context, actorID string) (*models.Key, error)
	FindByKeyID(ctx context.Context, keyID string) (*models.Key, error)
	Revoke(ctx context.Context, keyID string) error
}
