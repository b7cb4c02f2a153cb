// Package server wires the gophauth server together: it opens the credential
// store, runs migrations, builds UserService and serves it over gRPC and
// HTTP until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/revocations"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
	hs "github.com/dmitrijs2005/gophauth/internal/server/http"
)

// Seams for tests.
var (
	logOutput          io.Writer = os.Stdout
	sqlOpen                      = sql.Open
	newPostgresManager           = repomanager.NewPostgresRepositoryManager
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redis       *redis.Client
	userService *services.UserService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(logOutput, c.LogLevel)
	app := &App{config: c, logger: logger}

	conn, rm, err := app.openStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	var opts []services.Option
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		store := revocations.NewRedisStore(app.redis, "")
		if err := store.Ping(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		opts = append(opts, services.WithRevocations(store))
		logger.Info(ctx, "Refresh tokens are single-use", "redis", c.RedisAddr)
	}

	us, err := services.NewUserService(conn, rm, c, logger, opts...)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("user service init error: %w", err)
	}
	app.userService = us

	return app, nil
}

func (app *App) openStore(ctx context.Context) (dbx.Conn, repomanager.RepositoryManager, error) {
	if app.config.DatabaseDSN == config.MemoryDSN {
		app.logger.Warn(ctx, "Using in-memory store, data will not survive a restart")
		return dbx.NewMemoryConn(), repomanager.NewMemoryRepositoryManager(), nil
	}

	db, err := sqlOpen("pgx", app.config.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	if err := app.ping(ctx, db); err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newPostgresManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, nil, fmt.Errorf("migrations error: %w", err)
	}

	return dbx.NewSQLConn(db), rm, nil
}

// ping checks db, bounded by StoreTimeout when one is set.
func (app *App) ping(ctx context.Context, db *sql.DB) error {
	var (
		pingCtx context.Context
		cancel  context.CancelFunc
	)
	if app.config.StoreTimeout > 0 {
		pingCtx, cancel = context.WithTimeout(ctx, app.config.StoreTimeout)
	} else {
		pingCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	return db.PingContext(pingCtx)
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run serves the enabled façades until ctx is canceled, a shutdown signal
// arrives, or one of the servers fails. Resources are released on return.
func (app *App) Run(ctx context.Context) error {
	defer app.Close()

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	g, ctx := errgroup.WithContext(ctx)

	if app.config.EndpointAddrGRPC != "" {
		s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService)
		g.Go(func() error { return s.Run(ctx) })
	}

	if app.config.EndpointAddrHTTP != "" {
		s := hs.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.userService, app.config.TokenRateLimit)
		g.Go(func() error { return s.Run(ctx) })
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "Server stopped", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}

// Close releases the database pool and the Redis client.
func (app *App) Close() error {
	var errs []error
	if app.db != nil {
		errs = append(errs, app.db.Close())
		app.db = nil
	}
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
		app.redis = nil
	}
	return errors.Join(errs...)
}
