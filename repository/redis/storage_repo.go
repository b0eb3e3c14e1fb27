package redis

import (
	"context"
	"fmt"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/blogclient/repository"
)

type storageRepository struct {
	client *redislib.Client
	prefix string
}

// NewStorageRepository creates a Redis-backed client storage. Several client
// processes sharing the prefix share one session.
func NewStorageRepository(client *redislib.Client, prefix string) repository.ClientStorage {
	if prefix == "" {
		prefix = "blogclient:"
	}
	return &storageRepository{
		client: client,
		prefix: prefix,
	}
}

func (r *storageRepository) Load(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := r.client.MGet(ctx, r.keys(keys)...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected value type %T for %s", v, keys[i])
		}
		out[keys[i]] = s
	}
	return out, nil
}

func (r *storageRepository) Save(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, r.key(k), v, 0)
		}
		return nil
	})
	return err
}

func (r *storageRepository) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, r.keys(keys)...).Err()
}

func (r *storageRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *storageRepository) key(name string) string {
	return fmt.Sprintf("%s%s", r.prefix, name)
}

func (r *storageRepository) keys(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = r.key(name)
	}
	return out
}
