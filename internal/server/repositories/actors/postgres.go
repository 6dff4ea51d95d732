package actors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fedinode/internal/common"
	"github.com/dmitrijs2005/fedinode/internal/dbx"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
)

const columns = `id, username, domain, actor_url, inbox_url, outbox_url, following_url,
		 followers_url, shared_inbox_url, public_key, private_key, created_at, updated_at,
		 actor_type, key_id`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Actor) (*models.Actor, error) {
	query :=
		`INSERT INTO actors (username, domain, actor_url, inbox_url, outbox_url, following_url,
		 followers_url, shared_inbox_url, public_key, private_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		a.Username, a.Domain, a.ActorURL,
		nullable(a.InboxURL), nullable(a.OutboxURL), nullable(a.FollowingURL),
		nullable(a.FollowersURL), nullable(a.SharedInboxURL),
		nullable(a.PublicKey), nullable(a.PrivateKey),
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Actor, error) {
	query := `SELECT ` + columns + ` FROM actors WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// FindByIDForUpdate locks the row until the surrounding transaction ends.
func (r *PostgresRepository) FindByIDForUpdate(ctx context.Context, id string) (*models.Actor, error) {
	query := `SELECT ` + columns + ` FROM actors WHERE id = $1 FOR UPDATE`
	return r.findOne(ctx, query, id)
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username, domain string) (*models.Actor, error) {
	query := `SELECT ` + columns + ` FROM actors WHERE username = $1 AND domain = $2`
	return r.findOne(ctx, query, username, domain)
}

func (r *PostgresRepository) UpdateEndpoints(ctx context.Context, a *models.Actor) error {
	query :=
		`UPDATE actors SET actor_url = $2, inbox_url = $3, outbox_url = $4, following_url = $5,
		 followers_url = $6, shared_inbox_url = $7, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, a.ID, a.ActorURL,
		nullable(a.InboxURL), nullable(a.OutboxURL), nullable(a.FollowingURL),
		nullable(a.FollowersURL), nullable(a.SharedInboxURL))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) UpdateKeys(ctx context.Context, id, publicKey, privateKey string) error {
	query :=
		`UPDATE actors SET public_key = $2, private_key = $3, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, publicKey, privateKey)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

// UpsertRemote inserts or refreshes a remote actor keyed by (username, domain).
// Empty fields never overwrite known values. A row holding a private key
// belongs to this node and is returned unchanged.
func (r *PostgresRepository) UpsertRemote(ctx context.Context, a *models.Actor) (*models.Actor, error) {
	query :=
		`INSERT INTO actors (username, domain, actor_url, inbox_url, outbox_url, following_url,
		 followers_url, shared_inbox_url, public_key, actor_type, key_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (username, domain) DO UPDATE SET
		 actor_url = COALESCE(NULLIF(EXCLUDED.actor_url, ''), actors.actor_url),
		 inbox_url = COALESCE(EXCLUDED.inbox_url, actors.inbox_url),
		 outbox_url = COALESCE(EXCLUDED.outbox_url, actors.outbox_url),
		 following_url = COALESCE(EXCLUDED.following_url, actors.following_url),
		 followers_url = COALESCE(EXCLUDED.followers_url, actors.followers_url),
		 shared_inbox_url = COALESCE(EXCLUDED.shared_inbox_url, actors.shared_inbox_url),
		 public_key = COALESCE(EXCLUDED.public_key, actors.public_key),
		 actor_type = COALESCE(EXCLUDED.actor_type, actors.actor_type),
		 key_id = COALESCE(EXCLUDED.key_id, actors.key_id),
		 updated_at = now()
		 WHERE actors.private_key IS NULL
		 RETURNING ` + columns

	row := r.db.QueryRowContext(ctx, query,
		a.Username, a.Domain, a.ActorURL,
		nullable(a.InboxURL), nullable(a.OutboxURL), nullable(a.FollowingURL),
		nullable(a.FollowersURL), nullable(a.SharedInboxURL), nullable(a.PublicKey),
		nullable(a.ActorType), nullable(a.KeyID))

	out, err := scanActor(row)
	if errors.Is(err, sql.ErrNoRows) {
		// conflict with a local actor: DO UPDATE was skipped
		return r.FindByUsername(ctx, a.Username, a.Domain)
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (*models.Actor, error) {
	a, err := scanActor(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func scanActor(row *sql.Row) (*models.Actor, error) {
	a := &models.Actor{}
	var inbox, outbox, following, followers, shared, pub, priv, typ, keyID sql.NullString
	err := row.Scan(&a.ID, &a.Username, &a.Domain, &a.ActorURL,
		&inbox, &outbox, &following, &followers, &shared, &pub, &priv,
		&a.CreatedAt, &a.UpdatedAt, &typ, &keyID)
	if err != nil {
		return nil, err
	}
	a.InboxURL = inbox.String
	a.OutboxURL = outbox.String
	a.FollowingURL = following.String
	a.FollowersURL = followers.String
	a.SharedInboxURL = shared.String
	a.PublicKey = pub.String
	a.PrivateKey = priv.String
	a.ActorType = typ.String
	a.KeyID = keyID.String
	return a, nil
}

// nullable maps "" to SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
