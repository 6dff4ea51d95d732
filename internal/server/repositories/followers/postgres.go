package followers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fedinode/internal/dbx"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Add inserts the edge and reports whether it was new.
func (r *PostgresRepository) Add(ctx context.Context, targetActorID, followerActorID string) (bool, error) {
	query :=
		`INSERT INTO followers (target_actor_id, follower_actor_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, targetActorID, followerActorID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) Remove(ctx context.Context, targetActorID, followerActorID string) error {
	query := `DELETE FROM followers WHERE target_actor_id = $1 AND follower_actor_id = $2`

	if _, err := r.db.ExecContext(ctx, query, targetActorID, followerActorID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Count(ctx context.Context, targetActorID string) (int64, error) {
	query := `SELECT COUNT(*) FROM followers WHERE target_actor_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, targetActorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// List returns followers joined with their actor rows, newest edge first.
func (r *PostgresRepository) List(ctx context.Context, targetActorID string, limit, offset int) ([]models.FollowerView, error) {
	query :=
		`SELECT a.id, a.username, a.domain, a.actor_url, a.inbox_url, a.shared_inbox_url, f.created_at
		 FROM followers f
		 JOIN actors a ON a.id = f.follower_actor_id
		 WHERE f.target_actor_id = $1
		 ORDER BY f.created_at DESC, a.id
		 LIMIT $2 OFFSET $3
		 `

	rows, err := r.db.QueryContext(ctx, query, targetActorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.FollowerView
	for rows.Next() {
		var v models.FollowerView
		var inbox, shared sql.NullString
		if err := rows.Scan(&v.ID, &v.Username, &v.Domain, &v.ActorURL, &inbox, &shared, &v.FollowedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		v.InboxURL = inbox.String
		v.SharedInboxURL = shared.String
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Inboxes returns the distinct personal inboxes of all followers.
func (r *PostgresRepository) Inboxes(ctx context.Context, targetActorID string) ([]string, error) {
	return r.inboxes(ctx, `a.inbox_url`, targetActorID)
}

// DeliveryInboxes is Inboxes with a follower's shared inbox, when known,
// standing in for the personal one.
func (r *PostgresRepository) DeliveryInboxes(ctx context.Context, targetActorID string) ([]string, error) {
	return r.inboxes(ctx, `COALESCE(NULLIF(a.shared_inbox_url, ''), a.inbox_url)`, targetActorID)
}

func (r *PostgresRepository) inboxes(ctx context.Context, expr, targetActorID string) ([]string, error) {
	query :=
		`SELECT DISTINCT ` + expr + ` AS inbox
		 FROM followers f
		 JOIN actors a ON a.id = f.follower_actor_id
		 WHERE f.target_actor_id = $1
		 AND ` + expr + ` <> ''
		 ORDER BY inbox
		 `

	rows, err := r.db.QueryContext(ctx, query, targetActorID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var inbox string
		if err := rows.Scan(&inbox); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, inbox)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
