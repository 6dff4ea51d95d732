package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/fedinode/internal/activitypub"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
	"github.com/labstack/echo/v4"
)

type createActorRequest struct {
	Username string `json:"username"`
}

type keyIDRequest struct {
	KeyID string `json:"key_id" query:"key_id"`
}

type keyResponse struct {
	KeyID       string     `json:"key_id"`
	Serial      int        `json:"serial"`
	PublicKey   string     `json:"public_key"`
	Algorithm   string     `json:"algorithm"`
	BitLength   int        `json:"bit_length"`
	Fingerprint string     `json:"fingerprint"`
	IsActive    bool       `json:"is_active"`
	Revoked     bool       `json:"revoked"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toKeyResponse(k *models.Key) keyResponse {
	return keyResponse{
		KeyID:       k.KeyID,
		Serial:      k.Serial,
		PublicKey:   k.PublicKey,
		Algorithm:   k.Algorithm,
		BitLength:   k.BitLength,
		Fingerprint: k.Fingerprint,
		IsActive:    k.IsActive,
		Revoked:     k.Revoked,
		ExpiresAt:   k.ExpiresAt,
		CreatedAt:   k.CreatedAt,
	}
}

type mediaRequest struct {
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
	Name      string `json:"name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type postRequest struct {
	Username  string         `json:"username"`
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Summary   string         `json:"summary"`
	Content   string         `json:"content"`
	URL       string         `json:"url"`
	Sensitive bool           `json:"sensitive"`
	Tags      []string       `json:"tags"`
	Media     []mediaRequest `json:"media"`
}

func (r postRequest) toPost() activitypub.Post {
	p := activitypub.Post{
		ID:        r.ID,
		Title:     r.Title,
		Summary:   r.Summary,
		Content:   r.Content,
		URL:       r.URL,
		Sensitive: r.Sensitive,
		Tags:      r.Tags,
	}
	for _, m := range r.Media {
		p.Media = append(p.Media, activitypub.Media{
			URL:       m.URL,
			MediaType: m.MediaType,
			Name:      m.Name,
			Width:     m.Width,
			Height:    m.Height,
		})
	}
	return p
}

type publishResponse struct {
	Activity *activitypub.Activity `json:"activity"`
	EntryID  string                `json:"entry_id"`
}

type outboxLookupRequest struct {
	LocalPostID string `query:"local_post_id"`
	ObjectID    string `query:"object_id"`
	ActivityID  string `query:"activity_id"`
}

type outboxEntryResponse struct {
	ID          string          `json:"id"`
	ActivityID  string          `json:"activity_id"`
	ObjectID    string          `json:"object_id"`
	ObjectType  string          `json:"object_type"`
	LocalPostID *string         `json:"local_post_id,omitempty"`
	PublishedAt time.Time       `json:"published_at"`
	Activity    json.RawMessage `json:"activity"`
}

type followerRequest struct {
	Username         string `json:"username" query:"username"`
	FollowerUsername string `json:"follower_username" query:"follower_username"`
	FollowerDomain   string `json:"follower_domain" query:"follower_domain"`
	Inbox            string `json:"inbox" query:"inbox"`
}

type resolveRequest struct {
	ActorURL string `json:"actor_url"`
	Force    bool   `json:"force"`
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	return nil
}

func (s *Server) createActor(c echo.Context) error {
	var req createActorRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	doc, err := s.svc.Actors.EnsureLocalActor(c.Request().Context(), req.Username)
	if err != nil {
		return err
	}
	s.logger.Info(c.Request().Context(), "actor provisioned", "username", req.Username, "by", c.Get(subjectKey))
	return writeDocument(c, http.StatusOK, activitypub.ContentType, doc)
}

func (s *Server) rotateKey(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := s.svc.Actors.Lookup(ctx, c.Param("username"))
	if err != nil {
		return err
	}

	key, err := s.svc.Keys.Rotate(ctx, actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toKeyResponse(key))
}

func (s *Server) findKey(c echo.Context) error {
	var req keyIDRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.KeyID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key_id is required")
	}

	key, err := s.svc.Keys.FindByKeyID(c.Request().Context(), req.KeyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toKeyResponse(key))
}

func (s *Server) revokeKey(c echo.Context) error {
	var req keyIDRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.KeyID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key_id is required")
	}

	if err := s.svc.Keys.Revoke(c.Request().Context(), req.KeyID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) publish(c echo.Context) error {
	var req postRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	activity, entry, err := s.svc.Publisher.Publish(c.Request().Context(), req.Username, req.toPost())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, publishResponse{Activity: activity, EntryID: entry.ID})
}

func (s *Server) findOutboxEntry(c echo.Context) error {
	var req outboxLookupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	var (
		entry *models.OutboxEntry
		err   error
	)
	switch {
	case req.LocalPostID != "":
		entry, err = s.svc.Outbox.FindByLocalPostID(ctx, req.LocalPostID)
	case req.ObjectID != "":
		entry, err = s.svc.Outbox.FindByObjectID(ctx, req.ObjectID)
	case req.ActivityID != "":
		entry, err = s.svc.Outbox.FindByActivityID(ctx, req.ActivityID)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "one of local_post_id, object_id or activity_id is required")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, outboxEntryResponse{
		ID:          entry.ID,
		ActivityID:  entry.ActivityID,
		ObjectID:    entry.ObjectID,
		ObjectType:  entry.ObjectType,
		LocalPostID: entry.LocalPostID,
		PublishedAt: entry.PublishedAt,
		Activity:    entry.Data,
	})
}

func (s *Server) followerTarget(c echo.Context) (*models.Actor, followerRequest, error) {
	var req followerRequest
	if err := bind(c, &req); err != nil {
		return nil, req, err
	}
	if req.FollowerUsername == "" || req.FollowerDomain == "" {
		return nil, req, echo.NewHTTPError(http.StatusBadRequest, "follower_username and follower_domain are required")
	}

	target, err := s.svc.Actors.Lookup(c.Request().Context(), req.Username)
	return target, req, err
}

func (s *Server) addFollower(c echo.Context) error {
	target, req, err := s.followerTarget(c)
	if err != nil {
		return err
	}

	if !s.svc.Followers.AddFollower(c.Request().Context(), target.ID, req.FollowerUsername, req.FollowerDomain, req.Inbox) {
		return echo.NewHTTPError(http.StatusInternalServerError, "follower not stored")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) removeFollower(c echo.Context) error {
	target, req, err := s.followerTarget(c)
	if err != nil {
		return err
	}

	if !s.svc.Followers.RemoveFollowerByHandle(c.Request().Context(), target.ID, req.FollowerUsername, req.FollowerDomain) {
		return echo.NewHTTPError(http.StatusInternalServerError, "follower not removed")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) inboxes(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := s.svc.Actors.Lookup(ctx, c.Param("username"))
	if err != nil {
		return err
	}

	get := s.svc.Followers.GetAllFollowerInboxes
	if raw := c.QueryParam("shared"); raw != "" {
		shared, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "shared must be a boolean")
		}
		if shared {
			get = s.svc.Followers.GetDeliveryInboxes
		}
	}

	inboxes, err := get(ctx, actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]string{"inboxes": inboxes})
}

func (s *Server) resolve(c echo.Context) error {
	var req resolveRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.ActorURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "actor_url is required")
	}

	doc := s.svc.Resolver.Fetch(c.Request().Context(), req.ActorURL, req.Force)
	if doc == nil {
		return echo.NewHTTPError(http.StatusBadGateway, "actor could not be resolved")
	}
	return writeDocument(c, http.StatusOK, activitypub.ContentType, doc)
}
