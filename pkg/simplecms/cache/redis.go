package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// Redis is a TreeCache shared between processes. Keys look like
// prefix:generation:mode:pageID; Purge increments the generation.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "simplecms:tree"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisFromURL parses a redis:// URL, connects and pings the server.
func NewRedisFromURL(ctx context.Context, url, prefix string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client, prefix, ttl), nil
}

func (r *Redis) generationKey() string {
	return r.prefix + ":gen"
}

func (r *Redis) Generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, r.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *Redis) key(gen int64, key simplecms.TreeKey) string {
	return fmt.Sprintf("%s:%d:%s:%s", r.prefix, gen, key.Mode, key.PageID)
}

func (r *Redis) Get(ctx context.Context, key simplecms.TreeKey) (*simplecms.PageView, bool, error) {
	gen, err := r.Generation(ctx)
	if err != nil {
		return nil, false, err
	}

	data, err := r.client.Get(ctx, r.key(gen, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var view simplecms.PageView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, false, fmt.Errorf("decode cached tree: %w", err)
	}
	return &view, true, nil
}

// Set writes under gen's keyspace, which Get stops reading once Purge has run.
// A gen that is already stale is skipped outright.
func (r *Redis) Set(ctx context.Context, gen int64, key simplecms.TreeKey, view *simplecms.PageView) error {
	current, err := r.Generation(ctx)
	if err != nil {
		return err
	}
	if current != gen {
		return nil
	}
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	return r.client.Set(ctx, r.key(gen, key), data, r.ttl).Err()
}

func (r *Redis) Purge(ctx context.Context) error {
	return r.client.Incr(ctx, r.generationKey()).Err()
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
