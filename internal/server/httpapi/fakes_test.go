package httpapi

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dmitrijs2005/fedinode/internal/activitypub"
	"github.com/dmitrijs2005/fedinode/internal/common"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
)

const testBase = "https://example.test"

func localActor(username string) *models.Actor {
	u := testBase + "/users/" + username
	return &models.Actor{
		ID:           "id-" + username,
		Username:     username,
		Domain:       "example.test",
		ActorURL:     u,
		InboxURL:     u + "/inbox",
		OutboxURL:    u + "/outbox",
		FollowersURL: u + "/followers",
		FollowingURL: u + "/following",
		PublicKey:    "pub",
		PrivateKey:   "priv",
	}
}

type fakeActors struct {
	actors   map[string]*models.Actor
	ensured  []string
	ensureFn func(string) error
}

func (f *fakeActors) Domain() string { return "example.test" }

func (f *fakeActors) EnsureLocalActor(_ context.Context, username string) (*activitypub.Actor, error) {
	if f.ensureFn != nil {
		if err := f.ensureFn(username); err != nil {
			return nil, err
		}
	}
	f.ensured = append(f.ensured, username)
	f.actors[username] = localActor(username)
	return document(f.actors[username]), nil
}

func (f *fakeActors) FindByUsername(ctx context.Context, username string) (*activitypub.Actor, error) {
	a, err := f.Lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	return document(a), nil
}

func (f *fakeActors) Lookup(_ context.Context, username string) (*models.Actor, error) {
	a, ok := f.actors[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (f *fakeActors) GenerateWebFinger(ctx context.Context, username string) (*activitypub.WebFinger, error) {
	a, err := f.Lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	return activitypub.NewWebFinger(a.Username, a.Domain, a.ActorURL), nil
}

func document(a *models.Actor) *activitypub.Actor {
	return &activitypub.Actor{
		Context:           activitypub.DefaultContext(),
		ID:                a.ActorURL,
		Type:              "Person",
		PreferredUsername: a.Username,
		Inbox:             a.InboxURL,
		Outbox:            a.OutboxURL,
		Followers:         a.FollowersURL,
		Following:         a.FollowingURL,
		PublicKey:         activitypub.PublicKey{ID: a.ActorURL + "#main-key", Owner: a.ActorURL, PublicKeyPem: a.PublicKey},
		PrivateKeyPem:     a.PrivateKey,
	}
}

type fakeKeys struct {
	keys    map[string]*models.Key
	rotated []string
}

func (f *fakeKeys) Rotate(_ context.Context, actorID string) (*models.Key, error) {
	f.rotated = append(f.rotated, actorID)
	k := &models.Key{KeyID: testBase + "/users/alice#key-2", Serial: 2, PublicKey: "pub2", PrivateKey: "secret", IsActive: true, CreatedAt: time.Now()}
	f.keys[k.KeyID] = k
	return k, nil
}

func (f *fakeKeys) Revoke(_ context.Context, keyID string) error {
	k, ok := f.keys[keyID]
	if !ok {
		return common.ErrorNotFound
	}
	k.Revoked = true
	return nil
}

func (f *fakeKeys) FindByKeyID(_ context.Context, keyID string) (*models.Key, error) {
	k, ok := f.keys[keyID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if k.Revoked {
		return nil, common.ErrKeyRevoked
	}
	return k, nil
}

type edge struct{ target, username, domain, inbox string }

type fakeFollowers struct {
	edges   []edge
	failAdd bool
}

func (f *fakeFollowers) AddFollower(_ context.Context, target, username, domain, inbox string) bool {
	if f.failAdd {
		return false
	}
	f.edges = append(f.edges, edge{target, username, domain, inbox})
	return true
}

func (f *fakeFollowers) RemoveFollowerByHandle(_ context.Context, target, username, domain string) bool {
	out := f.edges[:0]
	for _, e := range f.edges {
		if e.target == target && e.username == username && e.domain == domain {
			continue
		}
		out = append(out, e)
	}
	f.edges = out
	return true
}

func (f *fakeFollowers) GetFollowers(_ context.Context, actorID string, page, limit int, countOnly bool) (*models.FollowerPage, error) {
	var items []models.FollowerView
	for _, e := range f.edges {
		if e.target != actorID {
			continue
		}
		v := models.FollowerView{Actor: models.Actor{Username: e.username, Domain: e.domain, InboxURL: e.inbox}}
		if strings.HasPrefix(e.username, "resolved") {
			v.ActorURL = "https://" + e.domain + "/users/" + e.username
		}
		items = append(items, v)
	}
	p := &models.FollowerPage{Total: int64(len(items)), Page: page, Limit: limit}
	if !countOnly {
		p.Items = items
	}
	return p, nil
}

func (f *fakeFollowers) GetDeliveryInboxes(_ context.Context, actorID string) ([]string, error) {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range f.edges {
		shared := "https://" + e.domain + "/shared-inbox"
		if e.target == actorID && !seen[shared] {
			seen[shared] = true
			out = append(out, shared)
		}
	}
	return out, nil
}

func (f *fakeFollowers) GetAllFollowerInboxes(_ context.Context, actorID string) ([]string, error) {
	out := []string{}
	for _, e := range f.edges {
		if e.target == actorID {
			out = append(out, e.inbox)
		}
	}
	return out, nil
}

type fakeOutbox struct {
	entries []models.OutboxEntry
}

func (f *fakeOutbox) find(match func(models.OutboxEntry) bool) (*models.OutboxEntry, error) {
	for _, e := range f.entries {
		if match(e) {
			e := e
			return &e, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeOutbox) FindByLocalPostID(_ context.Context, id string) (*models.OutboxEntry, error) {
	return f.find(func(e models.OutboxEntry) bool { return e.LocalPostID != nil && *e.LocalPostID == id })
}

func (f *fakeOutbox) FindByObjectID(_ context.Context, id string) (*models.OutboxEntry, error) {
	return f.find(func(e models.OutboxEntry) bool { return e.ObjectID == id })
}

func (f *fakeOutbox) FindByActivityID(_ context.Context, id string) (*models.OutboxEntry, error) {
	return f.find(func(e models.OutboxEntry) bool { return e.ActivityID == id })
}

func (f *fakeOutbox) List(_ context.Context, actorID string, page, limit int, countOnly bool) (*models.OutboxPage, error) {
	p := &models.OutboxPage{Total: int64(len(f.entries)), Page: page, Limit: limit}
	if !countOnly {
		p.Items = f.entries
	}
	return p, nil
}

type fakePublisher struct {
	actors *fakeActors
	posts  []activitypub.Post
}

func (f *fakePublisher) Publish(ctx context.Context, username string, post activitypub.Post) (*activitypub.Activity, *models.OutboxEntry, error) {
	a, err := f.actors.Lookup(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	f.posts = append(f.posts, post)
	act := activitypub.NewNoteActivity(document(a), post)
	data, _ := json.Marshal(act)
	return act, &models.OutboxEntry{ID: "entry-1", ActivityID: act.ID, Data: data}, nil
}

type fakeResolver struct {
	docs   map[string]*activitypub.Actor
	forced bool
}

func (f *fakeResolver) Fetch(_ context.Context, actorURL string, force bool) *activitypub.Actor {
	f.forced = force
	return f.docs[actorURL]
}
