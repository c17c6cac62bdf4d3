package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danthegoodman1/icetable/utils"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

type (
	RedisKVStore struct {
		client *redis.Client
	}
)

func NewRedisKVStore(ctx context.Context, addr, password string) (*RedisKVStore, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Msg("connecting to redis kv store")
	rks := &RedisKVStore{
		client: redis.NewClient(&redis.Options{
			Addr:        addr,
			Password:    password,
			DB:          0,
			DialTimeout: time.Second * 3,
		}),
	}

	// Ping test first to ensure valid connection
	if utils.REDIS_PING_TEST {
		logger.Debug().Msg("running redis ping test")
		s := time.Now()
		_, err := rks.client.Ping(ctx).Result()
		if err != nil {
			rks.client.Close()
			return nil, fmt.Errorf("error pinging redis: %w", err)
		}
		logger.Debug().Msgf("redis ping test successful in %s", time.Since(s))
	}

	return rks, nil
}

func (rks *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	v, err := rks.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error in redis GET: %w", err)
	}
	return v, nil
}

func (rks *RedisKVStore) Set(ctx context.Context, key, value string) error {
	_, err := rks.client.Set(ctx, key, value, 0).Result()
	if err != nil {
		return fmt.Errorf("error in redis SET: %w", err)
	}
	return nil
}

func (rks *RedisKVStore) Shutdown(_ context.Context) error {
	err := rks.client.Close()
	if err != nil {
		return fmt.Errorf("error closing redis client: %w", err)
	}
	return nil
}
