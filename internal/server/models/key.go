package models

import "time"

// Key is one generation of an actor's signing key pair.
type Key struct {
	ID          string
	ActorID     string
	KeyID       string
	Serial      int
	PublicKey   string
	PrivateKey  string
	Algorithm   string
	BitLength   int
	Fingerprint string
	IsActive    bool
	ExpiresAt   *time.Time
	Revoked     bool
	CreatedAt   time.Time
}

// Usable reports whether the key may sign at moment t.
func (k *Key) Usable(t time.Time) bool {
	if !k.IsActive || k.Revoked {
		return false
	}
	return k.ExpiresAt == nil || k.ExpiresAt.After(t)
}
