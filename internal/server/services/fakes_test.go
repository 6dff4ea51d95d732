package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/fedinode/internal/common"
	"github.com/dmitrijs2005/fedinode/internal/cryptox"
	"github.com/dmitrijs2005/fedinode/internal/dbx"
	"github.com/dmitrijs2005/fedinode/internal/logging"
	"github.com/dmitrijs2005/fedinode/internal/server/config"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/actors"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/followers"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/keys"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/outbox"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BaseURL = "https://example.test"
	cfg.Normalize()
	return cfg
}

var (
	pairOnce  sync.Once
	testPairs []*cryptox.KeyPair
)

// stubKeyGen replaces RSA generation with a small pool of pre-generated
// pairs handed out round-robin.
func stubKeyGen(t *testing.T) {
	t.Helper()
	pairOnce.Do(func() {
		for i := 0; i < 3; i++ {
			p, err := cryptox.GenerateKeyPair(cryptox.MinKeyBits)
			if err != nil {
				panic(err)
			}
			testPairs = append(testPairs, p)
		}
	})
	orig := generateKeyPair
	n := 0
	generateKeyPair = func(bits int) (*cryptox.KeyPair, error) {
		p := testPairs[n%len(testPairs)]
		n++
		return p, nil
	}
	t.Cleanup(func() { generateKeyPair = orig })
}

// --- in-memory repositories ---

type memStore struct {
	mu     sync.Mutex
	seq    int
	actors map[string]*models.Actor
	keys   []*models.Key
	edges  map[[2]string]time.Time
	outbox []*models.OutboxEntry
	fail   map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		actors: map[string]*models.Actor{},
		edges:  map[[2]string]time.Time{},
		fail:   map[string]error{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) failure(op string) error { return m.fail[op] }

func (m *memStore) byHandle(username, domain string) *models.Actor {
	for _, a := range m.actors {
		if a.Username == username && a.Domain == domain {
			return a
		}
	}
	return nil
}

func (m *memStore) activeKeys(actorID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, k := range m.keys {
		if k.ActorID == actorID && k.IsActive && !k.Revoked {
			n++
		}
	}
	return n
}

type fakeRepoManager struct{ s *memStore }

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Actors(dbx.DBTX) actors.Repository           { return memActors{f.s} }
func (f *fakeRepoManager) Keys(dbx.DBTX) keys.Repository               { return memKeys{f.s} }
func (f *fakeRepoManager) Followers(dbx.DBTX) followers.Repository     { return memFollowers{f.s} }
func (f *fakeRepoManager) Outbox(dbx.DBTX) outbox.Repository           { return memOutbox{f.s} }

type memActors struct{ *memStore }

func (m memActors) Create(_ context.Context, a *models.Actor) (*models.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Actors.Create"); err != nil {
		return nil, err
	}
	if m.byHandle(a.Username, a.Domain) != nil {
		return nil, common.ErrorAlreadyExists
	}
	a.ID = m.nextID("actor")
	a.CreatedAt, a.UpdatedAt = time.Now(), time.Now()
	cp := *a
	m.actors[a.ID] = &cp
	return a, nil
}

func (m memActors) FindByID(_ context.Context, id string) (*models.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Actors.FindByID"); err != nil {
		return nil, err
	}
	a, ok := m.actors[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (m memActors) FindByIDForUpdate(ctx context.Context, id string) (*models.Actor, error) {
	return m.FindByID(ctx, id)
}

func (m memActors) FindByUsername(_ context.Context, username, domain string) (*models.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Actors.FindByUsername"); err != nil {
		return nil, err
	}
	a := m.byHandle(username, domain)
	if a == nil {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (m memActors) UpdateEndpoints(_ context.Context, a *models.Actor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.actors[a.ID]
	if !ok {
		return common.ErrorNotFound
	}
	cur.ActorURL, cur.InboxURL, cur.OutboxURL = a.ActorURL, a.InboxURL, a.OutboxURL
	cur.FollowingURL, cur.FollowersURL, cur.SharedInboxURL = a.FollowingURL, a.FollowersURL, a.SharedInboxURL
	return nil
}

func (m memActors) UpdateKeys(_ context.Context, id, pub, priv string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Actors.UpdateKeys"); err != nil {
		return err
	}
	cur, ok := m.actors[id]
	if !ok {
		return common.ErrorNotFound
	}
	cur.PublicKey, cur.PrivateKey = pub, priv
	return nil
}

func (m memActors) UpsertRemote(_ context.Context, a *models.Actor) (*models.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Actors.UpsertRemote"); err != nil {
		return nil, err
	}
	cur := m.byHandle(a.Username, a.Domain)
	if cur == nil {
		cp := *a
		cp.ID = m.nextID("actor")
		m.actors[cp.ID] = &cp
		out := cp
		return &out, nil
	}
	if cur.IsLocal() {
		out := *cur
		return &out, nil
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cur.ActorURL, a.ActorURL)
	set(&cur.InboxURL, a.InboxURL)
	set(&cur.OutboxURL, a.OutboxURL)
	set(&cur.FollowingURL, a.FollowingURL)
	set(&cur.FollowersURL, a.FollowersURL)
	set(&cur.SharedInboxURL, a.SharedInboxURL)
	set(&cur.PublicKey, a.PublicKey)
	set(&cur.ActorType, a.ActorType)
	set(&cur.KeyID, a.KeyID)
	out := *cur
	return &out, nil
}

type memKeys struct{ *memStore }

func (m memKeys) Create(_ context.Context, k *models.Key) (*models.Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Keys.Create"); err != nil {
		return nil, err
	}
	for _, e := range m.keys {
		if e.KeyID == k.KeyID {
			return nil, common.ErrorAlreadyExists
		}
		if k.IsActive && e.ActorID == k.ActorID && e.IsActive && !e.Revoked {
			return nil, common.ErrorAlreadyExists
		}
	}
	k.ID = m.nextID("key")
	k.CreatedAt = time.Now()
	cp := *k
	m.keys = append(m.keys, &cp)
	return k, nil
}

func (m memKeys) NextSerial(_ context.Context, actorID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, k := range m.keys {
		if k.ActorID == actorID && k.Serial > max {
			max = k.Serial
		}
	}
	return max + 1, nil
}

func (m memKeys) DeactivateAll(_ context.Context, actorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Keys.DeactivateAll"); err != nil {
		return err
	}
	for _, k := range m.keys {
		if k.ActorID == actorID {
			k.IsActive = false
		}
	}
	return nil
}

func (m memKeys) FindActive(_ context.Context, actorID string) (*models.Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for i := len(m.keys) - 1; i >= 0; i-- {
		k := m.keys[i]
		if k.ActorID == actorID && k.Usable(now) {
			cp := *k
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m memKeys) FindByKeyID(_ context.Context, keyID string) (*models.Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.keys {
		if k.KeyID == keyID {
			cp := *k
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m memKeys) Revoke(_ context.Context, keyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.keys {
		if k.KeyID == keyID {
			k.Revoked = true
			return nil
		}
	}
	return common.ErrorNotFound
}

type memFollowers struct{ *memStore }

func (m memFollowers) Add(_ context.Context, target, follower string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Followers.Add"); err != nil {
		return false, err
	}
	key := [2]string{target, follower}
	if _, ok := m.edges[key]; ok {
		return false, nil
	}
	m.edges[key] = time.Now().Add(time.Duration(len(m.edges)) * time.Millisecond)
	return true, nil
}

func (m memFollowers) Remove(_ context.Context, target, follower string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Followers.Remove"); err != nil {
		return err
	}
	delete(m.edges, [2]string{target, follower})
	return nil
}

func (m memFollowers) Count(_ context.Context, target string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.edges {
		if k[0] == target {
			n++
		}
	}
	return n, nil
}

func (m memFollowers) List(_ context.Context, target string, limit, offset int) ([]models.FollowerView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.FollowerView
	for k, at := range m.edges {
		if k[0] == target {
			all = append(all, models.FollowerView{Actor: *m.actors[k[1]], FollowedAt: at})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].FollowedAt.After(all[j].FollowedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m memFollowers) Inboxes(ctx context.Context, target string) ([]string, error) {
	return m.inboxes(target, false)
}

func (m memFollowers) DeliveryInboxes(ctx context.Context, target string) ([]string, error) {
	return m.inboxes(target, true)
}

func (m memFollowers) inboxes(target string, preferShared bool) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for k := range m.edges {
		if k[0] != target {
			continue
		}
		a := m.actors[k[1]]
		inbox := a.InboxURL
		if preferShared && a.SharedInboxURL != "" {
			inbox = a.SharedInboxURL
		}
		if inbox != "" && !seen[inbox] {
			seen[inbox] = true
			out = append(out, inbox)
		}
	}
	sort.Strings(out)
	return out, nil
}

type memOutbox struct{ *memStore }

func (m memOutbox) Create(_ context.Context, e *models.OutboxEntry) (*models.OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Outbox.Create"); err != nil {
		return nil, err
	}
	for _, x := range m.outbox {
		if x.ActivityID == e.ActivityID {
			return nil, common.ErrorAlreadyExists
		}
		if e.LocalPostID != nil && x.LocalPostID != nil && *x.LocalPostID == *e.LocalPostID {
			return nil, common.ErrorAlreadyExists
		}
	}
	e.ID = m.nextID("outbox")
	if e.PublishedAt.IsZero() {
		e.PublishedAt = time.Now().Add(time.Duration(len(m.outbox)) * time.Millisecond)
	}
	cp := *e
	m.outbox = append(m.outbox, &cp)
	return e, nil
}

func (m memOutbox) find(match func(*models.OutboxEntry) bool) (*models.OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.outbox) - 1; i >= 0; i-- {
		if match(m.outbox[i]) {
			cp := *m.outbox[i]
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m memOutbox) FindByActivityID(_ context.Context, id string) (*models.OutboxEntry, error) {
	return m.find(func(e *models.OutboxEntry) bool { return e.ActivityID == id })
}

func (m memOutbox) FindByObjectID(_ context.Context, id string) (*models.OutboxEntry, error) {
	return m.find(func(e *models.OutboxEntry) bool { return e.ObjectID == id })
}

func (m memOutbox) FindByLocalPostID(_ context.Context, id string) (*models.OutboxEntry, error) {
	return m.find(func(e *models.OutboxEntry) bool { return e.LocalPostID != nil && *e.LocalPostID == id })
}

func (m memOutbox) Count(_ context.Context, actorID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.outbox {
		if e.ActorID == actorID {
			n++
		}
	}
	return n, nil
}

func (m memOutbox) List(_ context.Context, actorID string, limit, offset int) ([]models.OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.OutboxEntry
	for i := len(m.outbox) - 1; i >= 0; i-- {
		if m.outbox[i].ActorID == actorID {
			all = append(all, *m.outbox[i])
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// --- service constructors ---

type fixture struct {
	db    *sql.DB
	mock  sqlmock.Sqlmock
	store *memStore
	rm    *fakeRepoManager
	cfg   *config.Config
	log   logging.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stubKeyGen(t)
	db, mock := newSQLMockDB(t)
	s := newMemStore()
	return &fixture{db: db, mock: mock, store: s, rm: &fakeRepoManager{s: s}, cfg: testConfig(), log: logging.Discard()}
}

// expectTx registers n successful transactions.
func (f *fixture) expectTx(n int) {
	for i := 0; i < n; i++ {
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
	}
}

func (f *fixture) actorSvc() *ActorService {
	return NewActorService(f.db, f.rm, f.cfg, f.log)
}

func (f *fixture) keySvc() *KeyService {
	return NewKeyService(f.db, f.rm, f.cfg, f.log)
}

func (f *fixture) followerSvc() *FollowerService {
	return NewFollowerService(f.db, f.rm, f.log)
}

func (f *fixture) outboxSvc() *OutboxService {
	return NewOutboxService(f.db, f.rm, f.log)
}

// seedLocal provisions a local actor through the service.
func (f *fixture) seedLocal(t *testing.T, username string) *models.Actor {
	t.Helper()
	f.expectTx(1)
	if _, err := f.actorSvc().EnsureLocalActor(context.Background(), username); err != nil {
		t.Fatalf("EnsureLocalActor(%s): %v", username, err)
	}
	return f.store.byHandle(username, "example.test")
}
