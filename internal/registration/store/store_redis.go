package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"medboard/internal/registration/models"
	id "medboard/pkg/domain"
	"medboard/pkg/platform/sentinel"
)

const redisKeyPrefix = "medboard:regsession:"

// RedisSessionStore persists sessions in Redis with a TTL so abandoned
// sessions are reclaimed server-side without a background sweep. Expiry
// semantics for live reads stay with the session manager; the TTL is a
// memory-reclamation backstop, so it is set well beyond the inactivity
// timeout.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func redisKey(sessionID id.SessionID) string {
	return redisKeyPrefix + sessionID.String()
}

func (s *RedisSessionStore) Load(ctx context.Context, sessionID id.SessionID) (*models.RegistrationSession, error) {
	raw, err := s.client.Get(ctx, redisKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}

	var session models.RegistrationSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, session *models.RegistrationSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(session.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	if err := s.client.Del(ctx, redisKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}
