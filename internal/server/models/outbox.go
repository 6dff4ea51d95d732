package models

import (
	"encoding/json"
	"time"
)

// OutboxEntry is an immutable record of a published activity.
type OutboxEntry struct {
	ID            string
	ActivityID    string
	ActorID       string
	ObjectID      string
	ObjectType    string
	ObjectContent string
	Data          json.RawMessage
	LocalPostID   *string
	PublishedAt   time.Time
}

// OutboxPage is one page of an actor's outbox, newest first.
type OutboxPage struct {
	Total int64
	Page  int
	Limit int
	Items []OutboxEntry
}
