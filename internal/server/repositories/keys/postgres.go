package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fedinode/internal/common"
	"github.com/dmitrijs2005/fedinode/internal/dbx"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
)

const columns = `id, actor_id, key_id, serial, public_key, private_key, algorithm, bit_length,
		 fingerprint, is_active, expires_at, revoked, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, k *models.Key) (*models.Key, error) {
	query :=
		`INSERT INTO actor_keys (actor_id, key_id, serial, public_key, private_key, algorithm,
		 bit_length, fingerprint, is_active, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at
		 `

	var expires sql.NullTime
	if k.ExpiresAt != nil {
		expires = sql.NullTime{Time: *k.ExpiresAt, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		k.ActorID, k.KeyID, k.Serial, k.PublicKey, k.PrivateKey, k.Algorithm,
		k.BitLength, k.Fingerprint, k.IsActive, expires,
	).Scan(&k.ID, &k.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return k, nil
}

// NextSerial returns the serial the actor's next key generation gets.
func (r *PostgresRepository) NextSerial(ctx context.Context, actorID string) (int, error) {
	query := `SELECT COALESCE(MAX(serial), 0) + 1 FROM actor_keys WHERE actor_id = $1`

	var serial int
	if err := r.db.QueryRowContext(ctx, query, actorID).Scan(&serial); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return serial, nil
}

func (r *PostgresRepository) DeactivateAll(ctx context.Context, actorID string) error {
	query := `UPDATE actor_keys SET is_active = false WHERE actor_id = $1 AND is_active`

	if _, err := r.db.ExecContext(ctx, query, actorID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindActive returns the newest active, unrevoked and unexpired key.
func (r *PostgresRepository) FindActive(ctx context.Context, actorID string) (*models.Key, error) {
	query :=
		`SELECT ` + columns + ` FROM actor_keys
		 WHERE actor_id = $1 AND is_active AND NOT revoked
		 AND (expires_at IS NULL OR expires_at > now())
		 ORDER BY created_at DESC
		 LIMIT 1
		 `
	return r.findOne(ctx, query, actorID)
}

func (r *PostgresRepository) FindByKeyID(ctx context.Context, keyID string) (*models.Key, error) {
	query := `SELECT ` + columns + ` FROM actor_keys WHERE key_id = $1`
	return r.findOne(ctx, query, keyID)
}

func (r *PostgresRepository) Revoke(ctx context.Context, keyID string) error {
	query := `UPDATE actor_keys SET revoked = true WHERE key_id = $1`

	res, err := r.db.ExecContext(ctx, query, keyID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (*models.Key, error) {
	k := &models.Key{}
	var expires sql.NullTime

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&k.ID, &k.ActorID, &k.KeyID, &k.Serial, &k.PublicKey, &k.PrivateKey, &k.Algorithm,
		&k.BitLength, &k.Fingerprint, &k.IsActive, &expires, &k.Revoked, &k.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if expires.Valid {
		t := expires.Time
		k.ExpiresAt = &t
	}
	return k, nil
}
