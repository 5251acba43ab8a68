package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "glubblog:page:"

// Redis shares rendered pages between server instances. Pages expire after
// retention, which should be well above the revalidation interval so stale
// pages can still be served while a new one renders.
type Redis struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedis(client *redis.Client, retention time.Duration) *Redis {
	return &Redis{
		client:    client,
		retention: retention,
	}
}

func redisKey(key string) string {
	return fmt.Sprintf("%s%s", keyPrefix, key)
}

func (r *Redis) Get(ctx context.Context, key string) (*Page, error) {
	data, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get from cache")
	}

	var p Page
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal cached page")
	}
	return &p, nil
}

func (r *Redis) Set(ctx context.Context, key string, p *Page) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "failed to marshal page")
	}
	if err := r.client.Set(ctx, redisKey(key), data, r.retention).Err(); err != nil {
		return errors.Wrap(err, "failed to set cache")
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return errors.Wrap(err, "failed to invalidate cache")
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
