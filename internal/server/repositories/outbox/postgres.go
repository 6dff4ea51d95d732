package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fedinode/internal/common"
	"github.com/dmitrijs2005/fedinode/internal/dbx"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
)

const columns = `id, activity_id, actor_id, object_id, object_type, object_content, data,
		 local_post_id, published_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create stores an entry. A zero PublishedAt is stamped by the database. A
// repeated activity id or local post id yields common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, e *models.OutboxEntry) (*models.OutboxEntry, error) {
	query :=
		`INSERT INTO outbox (activity_id, actor_id, object_id, object_type, object_content, data, local_post_id,
		 published_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
		 RETURNING id, published_at
		 `

	var localPostID sql.NullString
	if e.LocalPostID != nil {
		localPostID = sql.NullString{String: *e.LocalPostID, Valid: true}
	}
	publishedAt := sql.NullTime{Time: e.PublishedAt, Valid: !e.PublishedAt.IsZero()}

	err := r.db.QueryRowContext(ctx, query,
		e.ActivityID, e.ActorID, e.ObjectID, e.ObjectType, e.ObjectContent, []byte(e.Data), localPostID, publishedAt,
	).Scan(&e.ID, &e.PublishedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) FindByActivityID(ctx context.Context, activityID string) (*models.OutboxEntry, error) {
	return r.findOne(ctx, `SELECT `+columns+` FROM outbox WHERE activity_id = $1`, activityID)
}

func (r *PostgresRepository) FindByObjectID(ctx context.Context, objectID string) (*models.OutboxEntry, error) {
	query := `SELECT ` + columns + ` FROM outbox WHERE object_id = $1 ORDER BY published_at DESC LIMIT 1`
	return r.findOne(ctx, query, objectID)
}

func (r *PostgresRepository) FindByLocalPostID(ctx context.Context, localPostID string) (*models.OutboxEntry, error) {
	return r.findOne(ctx, `SELECT `+columns+` FROM outbox WHERE local_post_id = $1`, localPostID)
}

func (r *PostgresRepository) Count(ctx context.Context, actorID string) (int64, error) {
	query := `SELECT COUNT(*) FROM outbox WHERE actor_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, actorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// List returns the actor's entries, newest first.
func (r *PostgresRepository) List(ctx context.Context, actorID string, limit, offset int) ([]models.OutboxEntry, error) {
	query :=
		`SELECT ` + columns + ` FROM outbox
		 WHERE actor_id = $1
		 ORDER BY published_at DESC, id
		 LIMIT $2 OFFSET $3
		 `

	rows, err := r.db.QueryContext(ctx, query, actorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.OutboxEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (*models.OutboxEntry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.OutboxEntry, error) {
	e := &models.OutboxEntry{}
	var content, localPostID sql.NullString
	var data []byte

	err := s.Scan(&e.ID, &e.ActivityID, &e.ActorID, &e.ObjectID, &e.ObjectType,
		&content, &data, &localPostID, &e.PublishedAt)
	if err != nil {
		return nil, err
	}

	e.ObjectContent = content.String
	e.Data = data
	if localPostID.Valid {
		id := localPostID.String
		e.LocalPostID = &id
	}
	return e, nil
}
