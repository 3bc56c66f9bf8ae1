package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"medboard/internal/verification/models"
	"medboard/pkg/platform/sentinel"
)

const redisKeyPrefix = "medboard:verification:"

// RedisRecordStore persists verification records with a TTL backstop so
// abandoned records are reclaimed without a background sweep. Verified-state
// expiry stays with the tracker (lazy, on read).
type RedisRecordStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *RedisRecordStore {
	return &RedisRecordStore{client: client, ttl: ttl}
}

func redisKey(channel models.Channel, identifier string) string {
	return redisKeyPrefix + string(channel) + ":" + identifier
}

func (s *RedisRecordStore) Load(ctx context.Context, channel models.Channel, identifier string) (*models.Record, error) {
	raw, err := s.client.Get(ctx, redisKey(channel, identifier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}

	var record models.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *RedisRecordStore) Save(ctx context.Context, record *models.Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(record.Channel, record.Identifier), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisRecordStore) Delete(ctx context.Context, channel models.Channel, identifier string) error {
	if err := s.client.Del(ctx, redisKey(channel, identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}
