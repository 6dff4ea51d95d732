package outbox

import (
	"context"

	"github.com/dmitrijs2005/fedinode/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.OutboxEntry) (*models.OutboxEntry, error)
	FindByActivityID(ctx context.Context, activityID string) (*models.OutboxEntry, error)
	FindByObjectID(ctx context.Context, objectID string) (*models.OutboxEntry, error)
	FindByLocalPostID(ctx context.Context, localPostID string) (*models.OutboxEntry, error)
	Count(ctx context.Context, actorID string) (int64, error)
	List(ctx context.Context, actorID string, limit, offset int) ([]models.OutboxEntry, error)
}
