package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fedinode/internal/activitypub"
	"github.com/dmitrijs2005/fedinode/internal/common"
	"github.com/dmitrijs2005/fedinode/internal/logging"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/repomanager"
)

// OutboxService is the durable log of published activities.
type OutboxService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewOutboxService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *OutboxService {
	return &OutboxService{
		db:          db,
		repomanager: m,
		logger:      l.With("module", "outbox"),
	}
}

// Save stores activity for actorID. Entries are never updated: saving a
// second activity for the same localPostID fails with
// common.ErrorAlreadyExists.
func (s *OutboxService) Save(ctx context.Context, activity *activitypub.Activity, actorID string, localPostID *string) (*models.OutboxEntry, error) {
	if err := activity.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	publishedAt, err := publishedTime(activity.Published)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	data, err := json.Marshal(activity)
	if err != nil {
		return nil, fmt.Errorf("error encoding activity: %w", err)
	}

	entry, err := s.repomanager.Outbox(s.db).Create(ctx, &models.OutboxEntry{
		ActivityID:    activity.ID,
		ActorID:       actorID,
		ObjectID:      activity.Object.ID,
		ObjectType:    activity.Object.Type,
		ObjectContent: activity.Object.Content,
		Data:          data,
		LocalPostID:   localPostID,
		PublishedAt:   publishedAt,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "activity saved", "actor_id", actorID, "activity_id", activity.ID)
	return entry, nil
}

func (s *OutboxService) FindByLocalPostID(ctx context.Context, localPostID string) (*models.OutboxEntry, error) {
	return s.repomanager.Outbox(s.db).FindByLocalPostID(ctx, localPostID)
}

func (s *OutboxService) FindByObjectID(ctx context.Context, objectID string) (*models.OutboxEntry, error) {
	return s.repomanager.Outbox(s.db).FindByObjectID(ctx, objectID)
}

func (s *OutboxService) FindByActivityID(ctx context.Context, activityID string) (*models.OutboxEntry, error) {
	return s.repomanager.Outbox(s.db).FindByActivityID(ctx, activityID)
}

// List pages through the actor's outbox, newest first.
func (s *OutboxService) List(ctx context.Context, actorID string, page, limit int, countOnly bool) (*models.OutboxPage, error) {
	page, limit = normalizePage(page, limit)
	repo := s.repomanager.Outbox(s.db)

	total, err := repo.Count(ctx, actorID)
	if err != nil {
		return nil, err
	}
	out := &models.OutboxPage{Total: total, Page: page, Limit: limit}
	if countOnly {
		return out, nil
	}

	items, err := repo.List(ctx, actorID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.OutboxEntry{}
	}
	out.Items = items
	return out, nil
}

// publishedTime reads the activity's own timestamp so outbox order follows
// the documents. An empty stamp leaves the choice to the database.
func publishedTime(published string) (time.Time, error) {
	if published == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, published)
	if err != nil {
		return time.Time{}, fmt.Errorf("published: %w", err)
	}
	return t.UTC(), nil
}
