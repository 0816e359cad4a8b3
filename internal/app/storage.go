// Package app wires the storage stack shared by the api server and posctl.
package app

import (
	"context"
	"fmt"

	"github.com/ariefcatur/restobill/internal/config"
	"github.com/ariefcatur/restobill/internal/orders"
	"github.com/ariefcatur/restobill/internal/postgres"
	"github.com/ariefcatur/restobill/internal/redisx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores is the opened storage stack. Redis is nil when REDIS_ADDR is unset
// or unreachable.
type Stores struct {
	Storage orders.Storage
	Tables  orders.TableStore
	Redis   *redis.Client

	closers []func()
}

func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// OpenStores picks memory or Postgres per STORAGE and, when Redis is
// reachable, puts the catalog cache in front.
func OpenStores(ctx context.Context, cfg config.Config, log *zap.Logger) (*Stores, error) {
	s := &Stores{}
	switch cfg.Storage {
	case "memory":
		mem := orders.NewDemoMemStore()
		s.Storage, s.Tables = mem, mem
		log.Info("storage: in-memory demo store")
	case "postgres", "":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			s.Close()
			return nil, err
		}
		s.Storage = &orders.Repo{DB: db}
		s.Tables = &orders.TableRepo{DB: db}
		log.Info("storage: postgres", zap.Int32("max_conns", cfg.PGMaxConns))
	default:
		return nil, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}

	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		if err := redisx.Ping(ctx, rdb); err != nil {
			log.Warn("redis unreachable, cache and idempotency fast-path disabled",
				zap.String("addr", cfg.RedisAddr), zap.Error(err))
			_ = rdb.Close()
		} else {
			s.closers = append(s.closers, func() { _ = rdb.Close() })
			s.Redis = rdb
			s.Storage = redisx.NewCatalogCache(rdb, s.Storage, log)
		}
	}
	return s, nil
}
