package redisstore

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
)

// Store keeps its keys in redis under "<namespace>:<key>".
type Store struct {
	client    *redis.Client
	namespace string
}

var _ core.TokenStore = (*Store)(nil)

func NewStore(client *redis.Client, namespace string) *Store {
	return &Store{client: client, namespace: namespace}
}

func (s *Store) key(key string) string {
	return s.namespace + ":" + key
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, errors.Wrapf(err, "redis GET %s", s.key(key))
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return errors.Wrapf(s.client.Set(ctx, s.key(key), value, 0).Err(), "redis SET %s", s.key(key))
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return errors.Wrapf(s.client.Del(ctx, s.key(key)).Err(), "redis DEL %s", s.key(key))
}
