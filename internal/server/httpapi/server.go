// Package httpapi exposes the federation endpoints (WebFinger, actors,
// outbox and followers collections) and a JWT-guarded admin API over echo.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/fedinode/internal/activitypub"
	"github.com/dmitrijs2005/fedinode/internal/logging"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

type ActorService interface {
	Domain() string
	EnsureLocalActor(ctx context.Context, username string) (*activitypub.Actor, error)
	FindByUsername(ctx context.Context, username string) (*activitypub.Actor, error)
	Lookup(ctx context.Context, username string) (*models.Actor, error)
	GenerateWebFinger(ctx context.Context, username string) (*activitypub.WebFinger, error)
}

type KeyService interface {
	Rotate(ctx context.Context, actorID string) (*models.Key, error)
	Revoke(ctx context.Context, keyID string) error
	FindByKeyID(ctx context.Context, keyID string) (*models.Key, error)
}

type FollowerService interface {
	AddFollower(ctx context.Context, targetActorID, username, domain, inbox string) bool
	RemoveFollowerByHandle(ctx context.Context, targetActorID, username, domain string) bool
	GetFollowers(ctx context.Context, actorID string, page, limit int, countOnly bool) (*models.FollowerPage, error)
	GetAllFollowerInboxes(ctx context.Context, actorID string) ([]string, error)
	GetDeliveryInboxes(ctx context.Context, actorID string) ([]string, error)
}

type OutboxService interface {
	List(ctx context.Context, actorID string, page, limit int, countOnly bool) (*models.OutboxPage, error)
	FindByLocalPostID(ctx context.Context, localPostID string) (*models.OutboxEntry, error)
	FindByObjectID(ctx context.Context, objectID string) (*models.OutboxEntry, error)
	FindByActivityID(ctx context.Context, activityID string) (*models.OutboxEntry, error)
}

type Publisher interface {
	Publish(ctx context.Context, username string, post activitypub.Post) (*activitypub.Activity, *models.OutboxEntry, error)
}

type Resolver interface {
	Fetch(ctx context.Context, actorURL string, forceUpdate bool) *activitypub.Actor
}

// Services bundles what the handlers call into.
type Services struct {
	Actors    ActorService
	Keys      KeyService
	Followers FollowerService
	Outbox    OutboxService
	Publisher Publisher
	Resolver  Resolver
}

type Server struct {
	address   string
	svc       Services
	logger    logging.Logger
	jwtSecret []byte
	echo      *echo.Echo
}

func NewServer(address string, l logging.Logger, svc Services, secretKey string) *Server {
	s := &Server{
		address:   address,
		svc:       svc,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
	}
	s.echo = s.routes()
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(s.requestLogger)

	e.GET("/.well-known/webfinger", s.webFinger)
	e.GET("/users/:username", s.actor)
	e.GET("/users/:username/outbox", s.outbox)
	e.GET("/users/:username/followers", s.followers)

	admin := e.Group("/admin", s.accessTokenMiddleware)
	admin.POST("/actors", s.createActor)
	admin.POST("/actors/:username/rotate", s.rotateKey)
	admin.GET("/actors/:username/inboxes", s.inboxes)
	admin.GET("/keys", s.findKey)
	admin.POST("/keys/revoke", s.revokeKey)
	admin.POST("/posts", s.publish)
	admin.GET("/outbox", s.findOutboxEntry)
	admin.POST("/followers", s.addFollower)
	admin.DELETE("/followers", s.removeFollower)
	admin.POST("/resolve", s.resolve)

	return e
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shCtx); err != nil {
			s.logger.Error(shCtx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
