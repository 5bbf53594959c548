package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shopsphere/session-gateway/internal/api"
	"github.com/shopsphere/session-gateway/internal/core/ports"
	"github.com/shopsphere/session-gateway/internal/core/session"
	"github.com/shopsphere/session-gateway/internal/infrastructure/config"
	"github.com/shopsphere/session-gateway/internal/infrastructure/db/memory"
	mongodb "github.com/shopsphere/session-gateway/internal/infrastructure/db/mongo"
	redisdb "github.com/shopsphere/session-gateway/internal/infrastructure/db/redis"
	"github.com/shopsphere/session-gateway/internal/infrastructure/upstream"
	"github.com/shopsphere/session-gateway/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("config error: %v", err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		stores      session.StoreFactory
		rdb         *goredis.Client
		mongoDB     *mongo.Database
		closeStores func()
	)
	switch cfg.CredBackend {
	case "mongo":
		client, db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("mongo connection failed")
		}
		mongoDB = db
		stores = func(sid string) ports.CredentialStore {
			return mongodb.NewCredentialStore(db, sid)
		}
		closeStores = func() { _ = client.Disconnect(context.Background()) }

	case "memory":
		var mu sync.Mutex
		mem := make(map[string]*memory.CredentialStore)
		stores = func(sid string) ports.CredentialStore {
			mu.Lock()
			defer mu.Unlock()
			s, ok := mem[sid]
			if !ok {
				s = memory.NewCredentialStore()
				mem[sid] = s
			}
			return s
		}
		closeStores = func() {}

	default: // redis
		client, err := redisdb.Connect(ctx, redisdb.Config{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		rdb = client
		stores = func(sid string) ports.CredentialStore {
			return redisdb.NewCredentialStore(client, sid, cfg.SessionTTL)
		}
		closeStores = func() { _ = client.Close() }
	}
	defer closeStores()

	sellerClient := upstream.NewSellerStatusClient(cfg.UpstreamBaseURL, nil, log)
	authClient := upstream.NewAuthClient(cfg.UpstreamBaseURL, nil, log)

	mgr := session.NewManager(stores, sellerClient, session.Config{
		JWTSecret:           cfg.JWTSecret,
		TokenTTL:            cfg.SessionTTL,
		PollInterval:        cfg.PollInterval,
		ApprovalNoticeDelay: cfg.ApprovalNoticeDelay,
	}, log)
	defer mgr.Shutdown()

	e := api.NewRouter(mgr, authClient, mongoDB, rdb, log)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("cred_backend", cfg.CredBackend).Msg("session gateway listening")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
