package services

import (
	"context"

	"github.com/dmitrijs2005/fedinode/internal/activitypub"
	"github.com/dmitrijs2005/fedinode/internal/logging"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
)

// MediaResolver turns stored media references into public attachments.
type MediaResolver interface {
	Enrich(ctx context.Context, media []activitypub.Media) ([]activitypub.Media, error)
}

// PublishService turns local posts into outbox entries.
type PublishService struct {
	actors *ActorService
	outbox *OutboxService
	media  MediaResolver
	logger logging.Logger
}

// NewPublishService wires the publisher; media may be nil when attachments
// always carry absolute URLs.
func NewPublishService(as *ActorService, ob *OutboxService, media MediaResolver, l logging.Logger) *PublishService {
	return &PublishService{
		actors: as,
		outbox: ob,
		media:  media,
		logger: l.With("module", "publish"),
	}
}

// Publish composes a Create/Note for username's post and stores it. The
// actor must already exist. A non-empty post.ID is recorded as the local post
// reference.
func (s *PublishService) Publish(ctx context.Context, username string, post activitypub.Post) (*activitypub.Activity, *models.OutboxEntry, error) {
	actor, err := s.actors.Lookup(ctx, username)
	if err != nil {
		return nil, nil, err
	}

	if s.media != nil && len(post.Media) > 0 {
		post.Media, err = s.media.Enrich(ctx, post.Media)
		if err != nil {
			return nil, nil, err
		}
	}

	activity := activitypub.NewNoteActivity(ToDocument(actor, nil), post)

	var localPostID *string
	if post.ID != "" {
		id := post.ID
		localPostID = &id
	}

	entry, err := s.outbox.Save(ctx, activity, actor.ID, localPostID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info(ctx, "post published", "username", username, "activity_id", activity.ID, "local_post_id", post.ID)
	return activity, entry, nil
}
