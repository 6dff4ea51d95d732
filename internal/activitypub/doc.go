// Package activitypub contains the wire documents this node exchanges with
// other federation servers (actors, WebFinger descriptors, activities and
// collections) and the pure helpers that build them.
//
// Nothing here performs I/O. Stores and resolvers live under
// internal/server; they render into and parse from these types.
package activitypub

const (
	// ContentType is the media type used for actor and activity documents.
	ContentType = "application/activity+json"

	// LDContentType is the JSON-LD form some servers send and accept.
	LDContentType = `application/ld+json; profile="https://www.w3.org/ns/activitystreams"`

	ContextActivityStreams = "https://www.w3.org/ns/activitystreams"
	ContextSecurity        = "https://w3id.org/security/v1"

	// PublicAddress is the special collection meaning "everyone".
	PublicAddress = ContextActivityStreams + "#Public"
)

// DefaultContext is the @context used on documents rendered by this node.
func DefaultContext() []any {
	return []any{ContextActivityStreams, ContextSecurity}
}
