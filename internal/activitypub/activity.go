package activitypub

import "fmt"

// Activity is a Create envelope around a Note, the only activity shape this
// node publishes.
type Activity struct {
	Context   any      `json:"@context"`
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Actor     string   `json:"actor"`
	Published string   `json:"published"`
	To        []string `json:"to"`
	Cc        []string `json:"cc"`
	Object    *Note    `json:"object"`
}

// Note is the content object of a published post.
type Note struct {
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	Published    string       `json:"published"`
	AttributedTo string       `json:"attributedTo"`
	Name         string       `json:"name,omitempty"`
	Summary      string       `json:"summary,omitempty"`
	Content      string       `json:"content"`
	URL          string       `json:"url,omitempty"`
	Sensitive    bool         `json:"sensitive,omitempty"`
	To           []string     `json:"to"`
	Cc           []string     `json:"cc"`
	Attachment   []Attachment `json:"attachment"`
	Tag          []Tag        `json:"tag"`
}

// Tag is a hashtag reference.
type Tag struct {
	Type string `json:"type"`
	Href string `json:"href"`
	Name string `json:"name"`
}

// Attachment describes a media file attached to a note.
type Attachment struct {
	Type      string `json:"type"`
	MediaType string `json:"mediaType"`
	URL       string `json:"url"`
	Name      string `json:"name,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// Validate checks the invariants of a Create/Note pair before it is stored.
func (a *Activity) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: empty activity", ErrInvalidDocument)
	}
	if a.Type != "Create" {
		return fmt.Errorf("%w: unsupported activity type %q", ErrInvalidDocument, a.Type)
	}
	if _, err := absoluteURL(a.ID); err != nil {
		return fmt.Errorf("%w: activity id: %v", ErrInvalidDocument, err)
	}
	if _, err := absoluteURL(a.Actor); err != nil {
		return fmt.Errorf("%w: activity actor: %v", ErrInvalidDocument, err)
	}
	if len(a.To) == 0 {
		return fmt.Errorf("%w: activity has no recipients", ErrInvalidDocument)
	}
	o := a.Object
	if o == nil {
		return fmt.Errorf("%w: activity has no object", ErrInvalidDocument)
	}
	if o.Type != "Note" {
		return fmt.Errorf("%w: unsupported object type %q", ErrInvalidDocument, o.Type)
	}
	if _, err := absoluteURL(o.ID); err != nil {
		return fmt.Errorf("%w: object id: %v", ErrInvalidDocument, err)
	}
	if o.ID == a.ID {
		return fmt.Errorf("%w: object id equals activity id", ErrInvalidDocument)
	}
	if o.AttributedTo != a.Actor {
		return fmt.Errorf("%w: object attributed to %q, activity actor is %q", ErrInvalidDocument, o.AttributedTo, a.Actor)
	}
	return nil
}
