package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fedinode/internal/common"
	"github.com/dmitrijs2005/fedinode/internal/cryptox"
	"github.com/dmitrijs2005/fedinode/internal/dbx"
	"github.com/dmitrijs2005/fedinode/internal/logging"
	"github.com/dmitrijs2005/fedinode/internal/server/config"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/repomanager"
)

// generateKeyPair is a seam for tests; RSA generation dominates test time.
var generateKeyPair = cryptox.GenerateKeyPair

// KeyService owns the signing key lifecycle of local actors: rotation,
// revocation and lookup by key id for signature verifiers.
type KeyService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	keyBits     int
	logger      logging.Logger
}

func NewKeyService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger) *KeyService {
	return &KeyService{
		db:          db,
		repomanager: m,
		keyBits:     cfg.KeyBits,
		logger:      l.With("module", "keys"),
	}
}

// Rotate replaces the actor's active key in a single transaction. Previous
// keys stay in place, inactive, so that older signatures still verify.
func (s *KeyService) Rotate(ctx context.Context, actorID string) (*models.Key, error) {
	pair, err := generateKeyPair(s.keyBits)
	if err != nil {
		return nil, fmt.Errorf("error generating key pair: %w", err)
	}

	key, err := dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*models.Key, error) {
		actor, err := s.repomanager.Actors(tx).FindByIDForUpdate(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if !actor.IsLocal() {
			return nil, common.ErrForeignActor
		}

		keys := s.repomanager.Keys(tx)
		if err := keys.DeactivateAll(ctx, actor.ID); err != nil {
			return nil, err
		}
		serial, err := keys.NextSerial(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if err := s.repomanager.Actors(tx).UpdateKeys(ctx, actor.ID, pair.PublicKey, pair.PrivateKey); err != nil {
			return nil, err
		}

		k, err := newKeyRecord(actor, serial, pair)
		if err != nil {
			return nil, err
		}
		return keys.Create(ctx, k)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "key rotated", "actor_id", actorID, "key_id", key.KeyID, "serial", key.Serial)
	return key, nil
}

// Revoke marks the key unusable. Revoking the active key leaves the actor
// without one until the next rotation.
func (s *KeyService) Revoke(ctx context.Context, keyID string) error {
	if err := s.repomanager.Keys(s.db).Revoke(ctx, keyID); err != nil {
		return err
	}
	s.logger.Info(ctx, "key revoked", "key_id", keyID)
	return nil
}

// FindByKeyID returns any unrevoked key, active or not.
func (s *KeyService) FindByKeyID(ctx context.Context, keyID string) (*models.Key, error) {
	k, err := s.repomanager.Keys(s.db).FindByKeyID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if k.Revoked {
		return nil, common.ErrKeyRevoked
	}
	return k, nil
}

func newKeyRecord(actor *models.Actor, serial int, pair *cryptox.KeyPair) (*models.Key, error) {
	fp, err := cryptox.Fingerprint(pair.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("error fingerprinting key: %w", err)
	}
	return &models.Key{
		ActorID:     actor.ID,
		KeyID:       KeyIDFor(actor.ActorURL, serial),
		Serial:      serial,
		PublicKey:   pair.PublicKey,
		PrivateKey:  pair.PrivateKey,
		Algorithm:   pair.Algorithm,
		BitLength:   pair.Bits,
		Fingerprint: fp,
		IsActive:    true,
	}, nil
}

func isNotFound(err error) bool { return errors.Is(err, common.ErrorNotFound) }
