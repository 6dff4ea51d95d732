package activitypub

import (
	"errors"
	"fmt"
	"net/url"
)

var ErrInvalidDocument = errors.New("invalid document")

// actorTypes are the actor kinds accepted from remote servers.
var actorTypes = map[string]struct{}{
	"Person":       {},
	"Service":      {},
	"Application":  {},
	"Group":        {},
	"Organization": {},
}

// PublicKey is the key block embedded in an actor document.
type PublicKey struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

// Endpoints carries optional server-wide endpoints of an actor.
type Endpoints struct {
	SharedInbox string `json:"sharedInbox,omitempty"`
}

// Actor is the public identity document of a local or remote actor.
//
// PrivateKeyPem is only populated for local actors and never serialized; it
// is carried for the signing collaborator inside this process.
type Actor struct {
	Context           any        `json:"@context,omitempty"`
	ID                string     `json:"id"`
	Type              string     `json:"type"`
	PreferredUsername string     `json:"preferredUsername"`
	Name              string     `json:"name,omitempty"`
	Summary           string     `json:"summary,omitempty"`
	URL               string     `json:"url,omitempty"`
	Inbox             string     `json:"inbox"`
	Outbox            string     `json:"outbox"`
	Followers         string     `json:"followers"`
	Following         string     `json:"following"`
	Endpoints         *Endpoints `json:"endpoints,omitempty"`
	PublicKey         PublicKey  `json:"publicKey"`

	PrivateKeyPem string `json:"-"`
}

// SharedInbox returns the actor's shared inbox, or "" when it has none.
func (a *Actor) SharedInbox() string {
	if a == nil || a.Endpoints == nil {
		return ""
	}
	return a.Endpoints.SharedInbox
}

// Validate checks the fields a remote actor document must carry before it
// is trusted for storage: an absolute id, a known actor type and an inbox.
func (a *Actor) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: empty actor", ErrInvalidDocument)
	}
	if _, err := absoluteURL(a.ID); err != nil {
		return fmt.Errorf("%w: actor id: %v", ErrInvalidDocument, err)
	}
	if _, ok := actorTypes[a.Type]; !ok {
		return fmt.Errorf("%w: unsupported actor type %q", ErrInvalidDocument, a.Type)
	}
	if _, err := absoluteURL(a.Inbox); err != nil {
		return fmt.Errorf("%w: inbox: %v", ErrInvalidDocument, err)
	}
	if a.PublicKey.PublicKeyPem != "" && a.PublicKey.Owner != "" && a.PublicKey.Owner != a.ID {
		return fmt.Errorf("%w: public key owner %q does not match actor", ErrInvalidDocument, a.PublicKey.Owner)
	}
	return nil
}

func absoluteURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("missing")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}
