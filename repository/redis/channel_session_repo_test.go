package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/repository"
)

func newTestRepo(t *testing.T) (repository.ChannelSessionRepository, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewChannelSessionRepository(client, time.Hour), server
}

func TestBindAndActiveSessionRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Bind(ctx, domain.ChannelWhatsApp, "+263771234567", "sess-1", 0))

	sessionID, err := repo.ActiveSession(ctx, domain.ChannelWhatsApp, "+263771234567")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sessionID)

	// The binding is scoped per channel.
	_, err = repo.ActiveSession(ctx, domain.ChannelUSSD, "+263771234567")
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}

func TestBindRejectsEmptyValues(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	assert.ErrorIs(t, repo.Bind(ctx, domain.ChannelUSSD, "", "sess-1", 0), domain.ErrInvalidPayload)
	assert.ErrorIs(t, repo.Bind(ctx, domain.ChannelUSSD, "+263771234567", "", 0), domain.ErrInvalidPayload)
}

func TestActiveSessionAfterIdleExpiry(t *testing.T) {
	repo, server := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Bind(ctx, domain.ChannelUSSD, "+263771234567", "sess-1", time.Minute))

	server.FastForward(2 * time.Minute)

	_, err := repo.ActiveSession(ctx, domain.ChannelUSSD, "+263771234567")
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}

func TestClearRemovesBinding(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Bind(ctx, domain.ChannelWhatsApp, "+263771234567", "sess-1", 0))
	require.NoError(t, repo.Clear(ctx, domain.ChannelWhatsApp, "+263771234567"))

	_, err := repo.ActiveSession(ctx, domain.ChannelWhatsApp, "+263771234567")
	assert.ErrorIs(t, err, domain.ErrStateNotFound)

	// Clearing an absent binding is not an error.
	assert.NoError(t, repo.Clear(ctx, domain.ChannelWhatsApp, "+263771234567"))
}
