package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/domain"
)

func TestRepository_SaveAndGet_RoundTrips(t *testing.T) {
	repo := New(NewMemDurable())
	sess := NewSession("sess-1", "user-1", time.Hour)
	sess.AppendMessage(domain.RoleUser, "make a skill for yaml linting")

	require.NoError(t, repo.Save(context.Background(), sess))

	got, err := repo.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "make a skill for yaml linting", got.Messages[0].Content)
}

func TestRepository_Get_FallsBackToDurableOnMirrorMiss(t *testing.T) {
	durable := NewMemDurable()
	sess := NewSession("sess-2", "user-2", 0)
	require.NoError(t, durable.Upsert(context.Background(), sess))

	repo := New(durable)
	got, err := repo.Get(context.Background(), "sess-2")
	require.NoError(t, err)
	assert.Equal(t, "sess-2", got.ID)
}

func TestRepository_Get_NotFound(t *testing.T) {
	repo := New(NewMemDurable())
	_, err := repo.Get(context.Background(), "missing")
	assert.True(t, apierr.Is(err, apierr.NotFound))
}

func TestRepository_Delete_RemovesFromMirrorAndDurable(t *testing.T) {
	durable := NewMemDurable()
	repo := New(durable)
	sess := NewSession("sess-3", "user-3", 0)
	require.NoError(t, repo.Save(context.Background(), sess))

	require.NoError(t, repo.Delete(context.Background(), "sess-3"))

	_, err := repo.Get(context.Background(), "sess-3")
	assert.True(t, apierr.Is(err, apierr.NotFound))
}

func TestNewSession_SetsExpiryOnlyWhenTTLPositive(t *testing.T) {
	withTTL := NewSession("a", "u", time.Minute)
	require.NotNil(t, withTTL.ExpiresAt)

	withoutTTL := NewSession("b", "u", 0)
	assert.Nil(t, withoutTTL.ExpiresAt)
}
