// Package models defines server-side data models persisted in the database.
package models

import "time"

// Actor is a row of the actors table. Local actors carry a private key,
// remote ones (resolved or follower shells) never do.
type Actor struct {
	ID             string
	Username       string
	Domain         string
	ActorURL       string
	InboxURL       string
	OutboxURL      string
	FollowingURL   string
	FollowersURL   string
	SharedInboxURL string
	PublicKey      string
	PrivateKey     string
	// ActorType and KeyID are what a remote server published. Empty for
	// local actors, whose key id comes from the keys table.
	ActorType      string
	KeyID          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsLocal reports whether the node holds the actor's private key.
func (a *Actor) IsLocal() bool { return a.PrivateKey != "" }

// ActorOverrides replaces the canonical endpoints of a local actor.
// Empty fields keep the derived value.
type ActorOverrides struct {
	ActorURL       string
	InboxURL       string
	OutboxURL      string
	FollowingURL   string
	FollowersURL   string
	SharedInboxURL string
}

// Apply copies every non-empty override onto a.
func (o ActorOverrides) Apply(a *Actor) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&a.ActorURL, o.ActorURL)
	set(&a.InboxURL, o.InboxURL)
	set(&a.OutboxURL, o.OutboxURL)
	set(&a.FollowingURL, o.FollowingURL)
	set(&a.FollowersURL, o.FollowersURL)
	set(&a.SharedInboxURL, o.SharedInboxURL)
}
