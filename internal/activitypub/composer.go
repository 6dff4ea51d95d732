package activitypub

import (
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Seams for tests.
var (
	newID = uuid.NewString
	now   = time.Now
)

// Post is the local blog/diary data handed over for federation.
type Post struct {
	// ID is the local post identifier (outbox back-reference); may be empty.
	ID        string
	Title     string
	Summary   string
	Content   string
	URL       string
	Sensitive bool
	Tags      []string
	Media     []Media
}

// Media is a reference to a stored file attached to a post.
type Media struct {
	URL       string
	MediaType string
	Name      string
	Width     int
	Height    int
}

// NewNoteActivity wraps post into a Create/Note pair published by actor.
//
// Both documents get fresh identifiers under the actor's origin and share a
// single timestamp. Addressing is always public with the actor's followers
// in cc. Tags are the union of post.Tags and #hashtags found in the content.
func NewNoteActivity(actor *Actor, post Post) *Activity {
	origin := originOf(actor.ID)
	published := now().UTC().Format(time.RFC3339)

	to := []string{PublicAddress}
	cc := []string{}
	if actor.Followers != "" {
		cc = append(cc, actor.Followers)
	}

	tags := []Tag{}
	for _, t := range normalizeTags(post.Tags, post.Content) {
		tags = append(tags, hashtag(origin, t))
	}

	attachments := []Attachment{}
	for _, m := range post.Media {
		if m.URL == "" {
			continue
		}
		mt := mediaTypeOf(m)
		kind := "Document"
		if strings.HasPrefix(mt, "image/") {
			kind = "Image"
		}
		attachments = append(attachments, Attachment{
			Type:      kind,
			MediaType: mt,
			URL:       m.URL,
			Name:      m.Name,
			Width:     m.Width,
			Height:    m.Height,
		})
	}

	note := &Note{
		ID:           origin + "/notes/" + newID(),
		Type:         "Note",
		Published:    published,
		AttributedTo: actor.ID,
		Name:         post.Title,
		Summary:      post.Summary,
		Content:      post.Content,
		URL:          post.URL,
		Sensitive:    post.Sensitive,
		To:           append([]string(nil), to...),
		Cc:           append([]string{}, cc...),
		Attachment:   attachments,
		Tag:          tags,
	}

	return &Activity{
		Context:   DefaultContext(),
		ID:        origin + "/activities/" + newID(),
		Type:      "Create",
		Actor:     actor.ID,
		Published: published,
		To:        to,
		Cc:        cc,
		Object:    note,
	}
}

func originOf(actorID string) string {
	u, err := url.Parse(actorID)
	if err != nil || u.Host == "" {
		return strings.TrimRight(actorID, "/")
	}
	return u.Scheme + "://" + u.Host
}

func mediaTypeOf(m Media) string {
	if m.MediaType != "" {
		return m.MediaType
	}
	p := m.URL
	if u, err := url.Parse(m.URL); err == nil {
		p = u.Path
	}
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(p))); t != "" {
		// drop parameters such as "; charset=utf-8"
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = strings.TrimSpace(t[:i])
		}
		return t
	}
	return "application/octet-stream"
}
