package storage

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	revokedSessionPrefix = "session:revoked:"
	loginFailurePrefix   = "login:fail:"

	// AuditFeedChannel is the Redis Pub/Sub channel carrying audit events.
	AuditFeedChannel = "audit:feed"
)

// RevokeSession remembers a logged-out token id until it would have expired anyway.
func (s *Service) RevokeSession(tokenID string, ttl time.Duration) error {
	if s.Redis == nil || tokenID == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return s.Redis.Set(s.Ctx, revokedSessionPrefix+tokenID, "1", ttl).Err()
}

// IsSessionRevoked is a fast Redis check for a logged-out token id.
func (s *Service) IsSessionRevoked(tokenID string) (bool, error) {
	if s.Redis == nil || tokenID == "" {
		return false, nil
	}
	_, err := s.Redis.Get(s.Ctx, revokedSessionPrefix+tokenID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecordLoginFailure increments the failure counter for key. The counter
// expires window after the first failure.
func (s *Service) RecordLoginFailure(key string, window time.Duration) (int64, error) {
	if s.Redis == nil {
		return 0, nil
	}
	redisKey := loginFailurePrefix + key
	n, err := s.Redis.Incr(s.Ctx, redisKey).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := s.Redis.Expire(s.Ctx, redisKey, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (s *Service) LoginFailures(key string) (int64, error) {
	if s.Redis == nil {
		return 0, nil
	}
	n, err := s.Redis.Get(s.Ctx, loginFailurePrefix+key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (s *Service) ClearLoginFailures(key string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Del(s.Ctx, loginFailurePrefix+key).Err()
}

// PublishAuditEvent publishes an encoded audit event to Redis Pub/Sub.
func (s *Service) PublishAuditEvent(payload []byte) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Publish(s.Ctx, AuditFeedChannel, string(payload)).Err()
}

// SubscribeAuditFeed returns a subscription to AuditFeedChannel, or nil without Redis.
func (s *Service) SubscribeAuditFeed() *redis.PubSub {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Subscribe(s.Ctx, AuditFeedChannel)
}
