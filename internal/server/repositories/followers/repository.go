package followers

import (
	"context"

	"github.com/dmitrijs2005/fedinode/internal/server/models"
)

type Repository interface {
	Add(ctx context.Context, targetActorID, followerActorID string) (bool, error)
	Remove(ctx context.Context, targetActorID, followerActorID string) error
	Count(ctx context.Context, targetActorID string) (int64, error)
	List(ctx context.Context, targetActorID string, limit, offset int) ([]models.FollowerView, error)
	Inboxes(ctx context.Context, targetActorID string) ([]string, error)
	DeliveryInboxes(ctx context.Context, targetActorID string) ([]string, error)
}
