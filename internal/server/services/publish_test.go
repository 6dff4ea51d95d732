package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/fedinode/internal/activitypub"
	"github.com/dmitrijs2005/fedinode/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMedia struct {
	calls int
	err   error
}

func (m *fakeMedia) Enrich(_ context.Context, media []activitypub.Media) ([]activitypub.Media, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]activitypub.Media, len(media))
	for i, x := range media {
		x.URL = "https://cdn.example/" + x.URL
		x.MediaType = "image/webp"
		out[i] = x
	}
	return out, nil
}

func newPublisher(f *fixture, m MediaResolver) *PublishService {
	return NewPublishService(f.actorSvc(), f.outboxSvc(), m, f.log)
}

func TestPublish_ComposesAndStores(t *testing.T) {
	f := newFixture(t)
	alice := f.seedLocal(t, "alice")
	media := &fakeMedia{}

	act, entry, err := newPublisher(f, media).Publish(context.Background(), "alice", activitypub.Post{
		ID:      "42",
		Title:   "Trip",
		Content: "hello #world",
		Media:   []activitypub.Media{{URL: "2024/pic.webp"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/users/alice", act.Actor)
	assert.Equal(t, []string{"https://example.test/users/alice/followers"}, act.Cc)
	require.Len(t, act.Object.Tag, 1)
	assert.Equal(t, "#world", act.Object.Tag[0].Name)
	require.Len(t, act.Object.Attachment, 1)
	assert.Equal(t, "https://cdn.example/2024/pic.webp", act.Object.Attachment[0].URL)
	assert.Equal(t, "Image", act.Object.Attachment[0].Type)
	assert.Equal(t, 1, media.calls)

	assert.Equal(t, alice.ID, entry.ActorID)
	require.NotNil(t, entry.LocalPostID)
	assert.Equal(t, "42", *entry.LocalPostID)
}

func TestPublish_UnknownActor(t *testing.T) {
	f := newFixture(t)

	_, _, err := newPublisher(f, nil).Publish(context.Background(), "ghost", activitypub.Post{Content: "x"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Empty(t, f.store.actors)
}

func TestPublish_WithoutMediaSkipsResolver(t *testing.T) {
	f := newFixture(t)
	f.seedLocal(t, "alice")
	media := &fakeMedia{}

	_, entry, err := newPublisher(f, media).Publish(context.Background(), "alice", activitypub.Post{Content: "x"})
	require.NoError(t, err)
	assert.Nil(t, entry.LocalPostID)
	assert.Zero(t, media.calls)
}

func TestPublish_MediaError(t *testing.T) {
	f := newFixture(t)
	f.seedLocal(t, "alice")
	media := &fakeMedia{err: errors.New("missing object")}

	_, _, err := newPublisher(f, media).Publish(context.Background(), "alice", activitypub.Post{
		Content: "x",
		Media:   []activitypub.Media{{URL: "k"}},
	})
	require.Error(t, err)
	assert.Empty(t, f.store.outbox)
}
