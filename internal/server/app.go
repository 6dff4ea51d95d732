// Package server wires storage, services and the HTTP surface of the node
// and runs them until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/fedinode/internal/logging"
	"github.com/dmitrijs2005/fedinode/internal/server/actorcache"
	"github.com/dmitrijs2005/fedinode/internal/server/config"
	"github.com/dmitrijs2005/fedinode/internal/server/httpapi"
	"github.com/dmitrijs2005/fedinode/internal/server/media"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fedinode/internal/server/services"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	resolver *services.RemoteActorResolver
	services httpapi.Services
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel)

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := media.NewStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("media store init error: %w", err)
	}

	cache := actorcache.New(c.ActorCacheSize, c.ActorCacheTTL)

	as := services.NewActorService(db, rm, c, logger)
	ks := services.NewKeyService(db, rm, c, logger)
	fs := services.NewFollowerService(db, rm, logger)
	ob := services.NewOutboxService(db, rm, logger)
	ps := services.NewPublishService(as, ob, store, logger)
	rs := services.NewRemoteActorResolver(db, rm, cache, c, logger)

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		resolver: rs,
		services: httpapi.Services{
			Actors:    as,
			Keys:      ks,
			Followers: fs,
			Outbox:    ob,
			Publisher: ps,
			Resolver:  rs,
		},
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.services, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "domain", app.config.Domain, "base_url", app.config.BaseURL)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.resolver.Close()
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close error", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
