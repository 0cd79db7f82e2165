// Package app wires configuration, storage, messaging and the HTTP and gRPC
// servers into one runnable process.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/ahinestrog/bookstore/internal/auth"
	"github.com/ahinestrog/bookstore/internal/cart"
	"github.com/ahinestrog/bookstore/internal/catalog"
	"github.com/ahinestrog/bookstore/internal/config"
	"github.com/ahinestrog/bookstore/internal/events"
	"github.com/ahinestrog/bookstore/internal/httpapi"
	"github.com/ahinestrog/bookstore/internal/idempotency"
	"github.com/ahinestrog/bookstore/internal/order"
	"github.com/ahinestrog/bookstore/internal/rpc"
	"github.com/ahinestrog/bookstore/internal/store"
	"github.com/ahinestrog/bookstore/internal/user"
)

const shutdownGrace = 10 * time.Second

type publisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

type App struct {
	cfg  config.Config
	log  zerolog.Logger
	HTTP *http.Server
	GRPC *grpc.Server

	cleanup []func()
}

// New opens every dependency named in cfg. Redis and RabbitMQ are optional.
// Without Redis, idempotency keys are ignored and logouts live in process
// memory; without RabbitMQ events are dropped.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	db, err := store.OpenAndMigrate(cfg.SQLite.Path, cfg.SQLite.BusyTimeout)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { _ = db.Close() })

	var pub publisher = events.Noop{}
	if cfg.Rabbit.URL != "" {
		p, err := events.Dial(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			// events are best effort, the shop still runs without a broker
			log.Warn().Err(err).Msg("rabbitmq unavailable, events disabled")
		} else {
			pub = p
			a.onClose(p.Close)
		}
	}

	var (
		idem    idempotency.Store
		revoked auth.Blacklist = auth.NewMemoryBlacklist(0, cfg.Security.RefreshTTL)
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		idem = idempotency.NewRedisStore(rdb, cfg.Redis.IdempotencyTTL)
		revoked = auth.NewRedisBlacklist(rdb)
		a.onClose(func() { _ = rdb.Close() })
	}

	bookRepo := catalog.NewSQLiteRepo(db)
	catalogSvc, err := catalog.NewService(bookRepo, pub, cfg.Catalog.CacheSize)
	if err != nil {
		a.Close()
		return nil, err
	}
	users := user.NewService(user.NewRepository(db))
	tokens := auth.NewTokens(cfg.Security.JWTSecret, cfg.Security.Issuer, cfg.Security.TTL,
		auth.WithRefreshTTL(cfg.Security.RefreshTTL))
	checkout := order.NewCheckout(db, pub)
	orders := order.NewService(order.NewRepository(db), pub)

	if err := a.seed(ctx, db, bookRepo, users); err != nil {
		a.Close()
		return nil, err
	}

	a.HTTP = &http.Server{
		Addr: cfg.App.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			DB:             db,
			Logger:         log.With().Str("component", "http").Logger(),
			Tokens:         tokens,
			Sessions:       auth.NewSessions(tokens, revoked),
			Users:          users,
			Catalog:        catalogSvc,
			Cart:           cart.NewService(cart.NewSQLiteRepo(db)),
			Checkout:       checkout,
			Orders:         orders,
			Idempotency:    idem,
			RequestTimeout: cfg.HTTP.RequestTimeout,
			CORSOrigins:    cfg.HTTP.CORSOrigins,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	if cfg.App.GRPCAddr != "" {
		a.GRPC = rpc.NewServer(log.With().Str("component", "grpc").Logger(), tokens, rpc.NewOrdersService(checkout, orders))
	}
	return a, nil
}

func (a *App) seed(ctx context.Context, db *sql.DB, books catalog.Repository, users *user.Service) error {
	if a.cfg.SQLite.Seed {
		n, err := seedCatalog(ctx, db, books)
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		if n > 0 {
			a.log.Info().Int("books", n).Msg("seeded catalog")
		}
	}
	created, err := ensureAdmin(ctx, users, a.cfg.Security.AdminEmail, a.cfg.Security.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		a.log.Info().Str("email", a.cfg.Security.AdminEmail).Msg("created admin account")
	}
	return nil
}

func (a *App) onClose(f func()) { a.cleanup = append(a.cleanup, f) }

// Close releases dependencies in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

// Run serves until ctx is cancelled, then shuts both servers down gracefully.
func (a *App) Run(ctx context.Context) error {
	errc := make(chan error, 2)

	go func() {
		a.log.Info().Str("addr", a.HTTP.Addr).Msg("http listening")
		if err := a.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http: %w", err)
		}
	}()

	if a.GRPC != nil {
		lis, err := net.Listen("tcp", a.cfg.App.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		go func() {
			a.log.Info().Str("addr", a.cfg.App.GRPCAddr).Msg("grpc listening")
			if err := a.GRPC.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errc <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Warn().Msg("shutting down...")
	case runErr = <-errc:
		a.log.Error().Err(runErr).Msg("server failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if a.GRPC != nil {
		a.GRPC.GracefulStop()
	}
	if err := a.HTTP.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
