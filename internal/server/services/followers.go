package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fedinode/internal/dbx"
	"github.com/dmitrijs2005/fedinode/internal/logging"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/repomanager"
)

// FollowerService tracks who follows local actors.
type FollowerService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewFollowerService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *FollowerService {
	return &FollowerService{
		db:          db,
		repomanager: m,
		logger:      l.With("module", "followers"),
	}
}

// AddFollower records that username@domain follows targetActorID. The
// follower gets a shell actor row (no key) whose inbox is refreshed. When
// the handle names one of this node's own actors only the edge is written;
// its endpoints are left alone. A repeated follow is a no-op. Storage
// failures are logged and reported as false after rollback.
func (s *FollowerService) AddFollower(ctx context.Context, targetActorID, username, domain, inbox string) bool {
	var created bool
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		follower, err := s.repomanager.Actors(tx).UpsertRemote(ctx, &models.Actor{
			Username: username,
			Domain:   domain,
			InboxURL: inbox,
		})
		if err != nil {
			return err
		}
		created, err = s.repomanager.Followers(tx).Add(ctx, targetActorID, follower.ID)
		return err
	})
	if err != nil {
		s.logger.Error(ctx, "add follower failed", "target", targetActorID, "follower", username+"@"+domain, "error", err)
		return false
	}

	if created {
		s.logger.Info(ctx, "follower added", "target", targetActorID, "follower", username+"@"+domain)
	}
	return true
}

// RemoveFollower deletes the edge. An unknown follower counts as removed.
func (s *FollowerService) RemoveFollower(ctx context.Context, targetActorID, followerActorID string) bool {
	follower, err := s.repomanager.Actors(s.db).FindByID(ctx, followerActorID)
	if err != nil {
		if isNotFound(err) {
			return true
		}
		s.logger.Error(ctx, "follower lookup failed", "follower_id", followerActorID, "error", err)
		return false
	}
	return s.removeEdge(ctx, targetActorID, follower)
}

// RemoveFollowerByHandle is RemoveFollower for callers that only know the
// follower's handle.
func (s *FollowerService) RemoveFollowerByHandle(ctx context.Context, targetActorID, username, domain string) bool {
	follower, err := s.repomanager.Actors(s.db).FindByUsername(ctx, username, domain)
	if err != nil {
		if isNotFound(err) {
			return true
		}
		s.logger.Error(ctx, "follower lookup failed", "follower", username+"@"+domain, "error", err)
		return false
	}
	return s.removeEdge(ctx, targetActorID, follower)
}

// GetFollowers returns one page of followers, or only the total when
// countOnly is set.
func (s *FollowerService) GetFollowers(ctx context.Context, actorID string, page, limit int, countOnly bool) (*models.FollowerPage, error) {
	page, limit = normalizePage(page, limit)
	repo := s.repomanager.Followers(s.db)

	total, err := repo.Count(ctx, actorID)
	if err != nil {
		return nil, err
	}
	out := &models.FollowerPage{Total: total, Page: page, Limit: limit}
	if countOnly {
		return out, nil
	}

	items, err := repo.List(ctx, actorID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.FollowerView{}
	}
	out.Items = items
	return out, nil
}

// GetAllFollowerInboxes returns the distinct personal inboxes of every
// follower. Followers with no known inbox are skipped.
func (s *FollowerService) GetAllFollowerInboxes(ctx context.Context, actorID string) ([]string, error) {
	return s.repomanager.Followers(s.db).Inboxes(ctx, actorID)
}

// GetDeliveryInboxes collapses followers on the same server onto their
// shared inbox, so a delivery worker posts once per server.
func (s *FollowerService) GetDeliveryInboxes(ctx context.Context, actorID string) ([]string, error) {
	return s.repomanager.Followers(s.db).DeliveryInboxes(ctx, actorID)
}

func (s *FollowerService) removeEdge(ctx context.Context, targetActorID string, follower *models.Actor) bool {
	if err := s.repomanager.Followers(s.db).Remove(ctx, targetActorID, follower.ID); err != nil {
		s.logger.Error(ctx, "remove follower failed", "target", targetActorID, "follower_id", follower.ID, "error", err)
		return false
	}
	s.logger.Info(ctx, "follower removed", "target", targetActorID, "follower_id", follower.ID)
	return true
}
