package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/fedinode/internal/activitypub"
	"github.com/dmitrijs2005/fedinode/internal/logging"
	"github.com/dmitrijs2005/fedinode/internal/server/actorcache"
	"github.com/dmitrijs2005/fedinode/internal/server/config"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/repomanager"
	"github.com/go-resty/resty/v2"
)

// AcceptHeader asks for the actor document rather than an HTML profile.
const AcceptHeader = activitypub.ContentType + ", " + activitypub.LDContentType

var errBodyTooLarge = errors.New("response body too large")

// RemoteActorResolver fetches actor documents of other servers, backed by a
// bounded TTL cache and the actors table.
//
// Concurrent misses for the same URL may both fetch; the upsert makes that
// harmless.
type RemoteActorResolver struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       *actorcache.Cache
	client      *resty.Client
	maxBody     int64
	logger      logging.Logger
}

func NewRemoteActorResolver(db *sql.DB, m repomanager.RepositoryManager, cache *actorcache.Cache, cfg *config.Config, l logging.Logger) *RemoteActorResolver {
	timeout := cfg.RemoteFetchTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxBody := cfg.RemoteMaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
		SetHeader("Accept", AcceptHeader).
		SetHeader("User-Agent", "fedinode (+"+cfg.BaseURL+")")

	return &RemoteActorResolver{
		db:          db,
		repomanager: m,
		cache:       cache,
		client:      client,
		maxBody:     maxBody,
		logger:      l.With("module", "resolver"),
	}
}

// Fetch returns the actor document at actorURL, or nil when it cannot be
// obtained. Failures are logged, never returned: a nil result means the
// recipient is unverifiable.
func (r *RemoteActorResolver) Fetch(ctx context.Context, actorURL string, forceUpdate bool) *activitypub.Actor {
	if !forceUpdate {
		if a, ok := r.cache.Get(actorURL); ok {
			return a
		}
	}

	username, domain, err := ParseActorHandle(actorURL)
	if err != nil {
		r.logger.Warn(ctx, "unresolvable actor address", "url", actorURL, "error", err)
		return nil
	}

	if !forceUpdate {
		row, err := r.repomanager.Actors(r.db).FindByUsername(ctx, username, domain)
		switch {
		case err == nil && row.PublicKey != "":
			doc := ToDocument(row, nil)
			doc.PrivateKeyPem = ""
			r.cache.Add(actorURL, doc)
			return doc
		case err != nil && !isNotFound(err):
			r.logger.Warn(ctx, "actor lookup failed", "url", actorURL, "error", err)
		}
	}

	doc, err := r.download(ctx, actorURL)
	if err != nil {
		r.logger.Warn(ctx, "remote actor fetch failed", "url", actorURL, "error", err)
		return nil
	}

	if _, err := r.repomanager.Actors(r.db).UpsertRemote(ctx, remoteRow(username, domain, doc)); err != nil {
		r.logger.Error(ctx, "remote actor upsert failed", "url", actorURL, "error", err)
	}

	r.cache.Add(actorURL, doc)
	r.logger.Debug(ctx, "remote actor fetched", "url", actorURL, "id", doc.ID)
	return doc
}

// Invalidate drops actorURL from the cache.
func (r *RemoteActorResolver) Invalidate(actorURL string) {
	r.cache.Remove(actorURL)
}

// Close releases the cache.
func (r *RemoteActorResolver) Close() {
	r.cache.Purge()
}

func (r *RemoteActorResolver) download(ctx context.Context, actorURL string) (*activitypub.Actor, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(actorURL)
	if err != nil {
		return nil, err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	data, err := io.ReadAll(io.LimitReader(body, r.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > r.maxBody {
		return nil, errBodyTooLarge
	}

	var doc activitypub.Actor
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", activitypub.ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if err := sameHost(actorURL, doc.ID); err != nil {
		return nil, err
	}
	doc.PrivateKeyPem = ""
	return &doc, nil
}

// sameHost rejects documents that claim an id on another server.
func sameHost(requested, id string) error {
	a, err := url.Parse(requested)
	if err != nil {
		return err
	}
	b, err := url.Parse(id)
	if err != nil {
		return err
	}
	if !strings.EqualFold(a.Host, b.Host) {
		return fmt.Errorf("%w: id host %q differs from %q", activitypub.ErrInvalidDocument, b.Host, a.Host)
	}
	return nil
}

func remoteRow(username, domain string, doc *activitypub.Actor) *models.Actor {
	return &models.Actor{
		Username:       username,
		Domain:         domain,
		ActorURL:       doc.ID,
		InboxURL:       doc.Inbox,
		OutboxURL:      doc.Outbox,
		FollowingURL:   doc.Following,
		FollowersURL:   doc.Followers,
		SharedInboxURL: doc.SharedInbox(),
		PublicKey:      doc.PublicKey.PublicKeyPem,
		ActorType:      doc.Type,
		KeyID:          doc.PublicKey.ID,
	}
}
