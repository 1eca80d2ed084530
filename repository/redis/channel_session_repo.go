package redis

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/repository"
)

type channelSessionRepository struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewChannelSessionRepository creates a Redis-backed mapping from a
// channel-scoped user identifier to its open wizard session. The key TTL is
// the idle expiry: once it lapses, the next inbound message starts a fresh
// session instead of resuming.
func NewChannelSessionRepository(client *redislib.Client, ttl time.Duration) repository.ChannelSessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &channelSessionRepository{
		client: client,
		prefix: "chansess:",
		ttl:    ttl,
	}
}

func (r *channelSessionRepository) ActiveSession(ctx context.Context, channel domain.Channel, userIdentifier string) (string, error) {
	sessionID, err := r.client.Get(ctx, r.key(channel, userIdentifier)).Result()
	if err != nil {
		if err == redislib.Nil {
			return "", domain.ErrStateNotFound
		}
		return "", err
	}
	return sessionID, nil
}

func (r *channelSessionRepository) Bind(ctx context.Context, channel domain.Channel, userIdentifier, sessionID string, ttl time.Duration) error {
	if userIdentifier == "" || sessionID == "" {
		return domain.ErrInvalidPayload
	}
	if ttl <= 0 {
		ttl = r.ttl
	}
	return r.client.Set(ctx, r.key(channel, userIdentifier), sessionID, ttl).Err()
}

func (r *channelSessionRepository) Clear(ctx context.Context, channel domain.Channel, userIdentifier string) error {
	return r.client.Del(ctx, r.key(channel, userIdentifier)).Err()
}

func (r *channelSessionRepository) key(channel domain.Channel, userIdentifier string) string {
	return fmt.Sprintf("%s%s:%s", r.prefix, channel, userIdentifier)
}
