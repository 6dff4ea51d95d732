package models

import "time"

// FollowerView is a follow edge joined with the follower's actor row.
type FollowerView struct {
	Actor
	FollowedAt time.Time
}

// FollowerPage is one page of a follower listing. Items is nil when only
// the total was requested.
type FollowerPage struct {
	Total int64
	Page  int
	Limit int
	Items []FollowerView
}
