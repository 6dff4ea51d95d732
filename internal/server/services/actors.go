package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fedinode/internal/activitypub"
	"github.com/dmitrijs2005/fedinode/internal/common"
	"github.com/dmitrijs2005/fedinode/internal/dbx"
	"github.com/dmitrijs2005/fedinode/internal/logging"
	"github.com/dmitrijs2005/fedinode/internal/server/config"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/repomanager"
)

// ActorService manages local actors and renders their public documents.
//
// Lookups never create state. Local identities come into existence only
// through EnsureLocalActor / CreateOrUpdate at the account boundary.
type ActorService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	baseURL     string
	domain      string
	keyBits     int
	logger      logging.Logger
}

func NewActorService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger) *ActorService {
	return &ActorService{
		db:          db,
		repomanager: m,
		baseURL:     cfg.BaseURL,
		domain:      cfg.Domain,
		keyBits:     cfg.KeyBits,
		logger:      l.With("module", "actors"),
	}
}

// Domain is the host part of local acct: handles.
func (s *ActorService) Domain() string { return s.domain }

// CreateOrUpdate finds or creates the actor (username, domain). A new actor
// gets canonical endpoints (unless overridden) and its first key in one
// transaction. For an existing actor only endpoint fields change.
func (s *ActorService) CreateOrUpdate(ctx context.Context, username, domain string, ov models.ActorOverrides) (*activitypub.Actor, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if domain == "" {
		domain = s.domain
	}

	existing, err := s.repomanager.Actors(s.db).FindByUsername(ctx, username, domain)
	switch {
	case err == nil:
		return s.update(ctx, existing, ov)
	case !isNotFound(err):
		return nil, err
	}

	doc, err := s.create(ctx, username, domain, ov)
	if errors.Is(err, common.ErrorAlreadyExists) {
		// lost a creation race; the winner's row is there now
		existing, err = s.repomanager.Actors(s.db).FindByUsername(ctx, username, domain)
		if err != nil {
			return nil, err
		}
		return s.update(ctx, existing, ov)
	}
	return doc, err
}

// EnsureLocalActor provisions username on this node's domain if needed.
func (s *ActorService) EnsureLocalActor(ctx context.Context, username string) (*activitypub.Actor, error) {
	return s.CreateOrUpdate(ctx, username, s.domain, models.ActorOverrides{})
}

// FindByUsername returns the local actor's document. Unknown users yield
// common.ErrorNotFound.
func (s *ActorService) FindByUsername(ctx context.Context, username string) (*activitypub.Actor, error) {
	a, err := s.Lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, a)
}

// FindByID resolves a full actor address of this node.
func (s *ActorService) FindByID(ctx context.Context, actorURL string) (*activitypub.Actor, error) {
	username, err := ParseLocalActorURL(s.baseURL, actorURL)
	if err != nil {
		return nil, err
	}
	return s.FindByUsername(ctx, username)
}

// Lookup returns the stored row of a local actor.
func (s *ActorService) Lookup(ctx context.Context, username string) (*models.Actor, error) {
	if ValidateUsername(username) != nil {
		return nil, common.ErrorNotFound
	}
	a, err := s.repomanager.Actors(s.db).FindByUsername(ctx, username, s.domain)
	if err != nil {
		return nil, err
	}
	if !a.IsLocal() {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

// GetActiveKey returns the usable key of the actor, newest first.
func (s *ActorService) GetActiveKey(ctx context.Context, actorID string) (*models.Key, error) {
	return s.repomanager.Keys(s.db).FindActive(ctx, actorID)
}

// GenerateWebFinger builds the discovery document of a local user. It never
// provisions: unknown users yield common.ErrorNotFound.
func (s *ActorService) GenerateWebFinger(ctx context.Context, username string) (*activitypub.WebFinger, error) {
	a, err := s.Lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	return activitypub.NewWebFinger(a.Username, s.domain, a.ActorURL), nil
}

func (s *ActorService) create(ctx context.Context, username, domain string, ov models.ActorOverrides) (*activitypub.Actor, error) {
	pair, err := generateKeyPair(s.keyBits)
	if err != nil {
		return nil, fmt.Errorf("error generating key pair: %w", err)
	}

	actor := CanonicalActor(s.baseURL, username, domain)
	ov.Apply(actor)
	actor.PublicKey = pair.PublicKey
	actor.PrivateKey = pair.PrivateKey

	var key *models.Key
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Actors(tx).Create(ctx, actor)
		if err != nil {
			return err
		}
		k, err := newKeyRecord(created, 1, pair)
		if err != nil {
			return err
		}
		key, err = s.repomanager.Keys(tx).Create(ctx, k)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "actor created", "username", username, "domain", domain, "key_id", key.KeyID)
	return ToDocument(actor, key), nil
}

func (s *ActorService) update(ctx context.Context, a *models.Actor, ov models.ActorOverrides) (*activitypub.Actor, error) {
	before := *a
	ov.Apply(a)
	if *a != before {
		if err := s.repomanager.Actors(s.db).UpdateEndpoints(ctx, a); err != nil {
			return nil, err
		}
		s.logger.Info(ctx, "actor endpoints updated", "username", a.Username, "domain", a.Domain)
	}
	return s.render(ctx, a)
}

func (s *ActorService) render(ctx context.Context, a *models.Actor) (*activitypub.Actor, error) {
	key, err := s.repomanager.Keys(s.db).FindActive(ctx, a.ID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	return ToDocument(a, key), nil
}

// ToDocument renders a stored actor. key may be nil (revoked or remote
// actors); the key id then comes from the row, or falls back to the
// conventional #main-key when the row has none.
func ToDocument(a *models.Actor, key *models.Key) *activitypub.Actor {
	keyID := a.KeyID
	switch {
	case key != nil:
		keyID = key.KeyID
	case keyID == "":
		keyID = KeyIDFor(a.ActorURL, 1)
	}
	actorType := a.ActorType
	if actorType == "" {
		actorType = "Person"
	}

	doc := &activitypub.Actor{
		Context:           activitypub.DefaultContext(),
		ID:                a.ActorURL,
		Type:              actorType,
		PreferredUsername: a.Username,
		Inbox:             a.InboxURL,
		Outbox:            a.OutboxURL,
		Followers:         a.FollowersURL,
		Following:         a.FollowingURL,
		PublicKey: activitypub.PublicKey{
			ID:           keyID,
			Owner:        a.ActorURL,
			PublicKeyPem: a.PublicKey,
		},
		PrivateKeyPem: a.PrivateKey,
	}
	if a.SharedInboxURL != "" {
		doc.Endpoints = &activitypub.Endpoints{SharedInbox: a.SharedInboxURL}
	}
	return doc
}
