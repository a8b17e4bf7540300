// Package storage builds the backing-store clients. Construction is explicit:
// callers receive the client and own its lifecycle, nothing is stashed in a
// package global.
package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vinodkrishna221/nexuschat/config"
	"github.com/vinodkrishna221/nexuschat/tools/errs"
)

const connectTimeout = 3 * time.Second

// NewRedis connects and pings. A dead Redis is fatal at startup, so the
// caller should treat an error here as unrecoverable.
func NewRedis(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errs.WrapMsg(err, "redis ping", "addr", cfg.Addr)
	}
	return rdb, nil
}

// NewMongo connects and pings. Close with client.Disconnect.
func NewMongo(ctx context.Context, cfg config.Mongo) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(connectTimeout)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	}
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{Username: cfg.Username, Password: cfg.Password})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "mongo connect", "uri", cfg.URI)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errs.WrapMsg(err, "mongo ping", "uri", cfg.URI)
	}
	return client, nil
}
