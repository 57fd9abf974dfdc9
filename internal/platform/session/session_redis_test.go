package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cliente_backend/internal/feature/auth/domain/entity"
	"cliente_backend/internal/feature/auth/usecase"
)

// setupTestRedis creates a miniredis instance for testing.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return client, mr
}

// createTestSession creates a session entity for testing.
func createTestSession(id, userID string, expiresIn time.Duration) *entity.Session {
	now := time.Now()
	return &entity.Session{
		ID:        id,
		UserID:    userID,
		UserAgent: "test-agent",
		IPAddress: "127.0.0.1",
		CreatedAt: now,
		ExpiresAt: now.Add(expiresIn),
	}
}

func TestNewSessionRedis(t *testing.T) {
	client, _ := setupTestRedis(t)

	repo := NewSessionRedis(client, "session")
	assert.NotNil(t, repo.client, "client is nil")
	assert.Equal(t, "session", repo.prefix)

	assert.Equal(t, "session", NewSessionRedis(client, "").prefix, "empty prefix falls back to default")
}

func TestSessionRedis_Create(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		session *entity.Session
		wantErr bool
	}{
		{
			name:    "success: create session",
			session: createTestSession("session-001", "u1", 7*24*time.Hour),
			wantErr: false,
		},
		{
			name:    "failure: expired session",
			session: createTestSession("expired-session", "u1", -1*time.Hour),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, mr := setupTestRedis(t)
			repo := NewSessionRedis(client, "session")

			err := repo.Create(context.Background(), tt.session)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, mr.Exists("session:"+tt.session.ID))
			members, err := mr.Members("session:user:" + tt.session.UserID)
			require.NoError(t, err)
			assert.Contains(t, members, tt.session.ID)
			assert.Greater(t, mr.TTL("session:"+tt.session.ID), time.Duration(0), "TTL should follow ExpiresAt")
		})
	}
}

func TestSessionRedis_FindByID(t *testing.T) {
	t.Parallel()

	client, _ := setupTestRedis(t)
	repo := NewSessionRedis(client, "session")
	require.NoError(t, repo.Create(context.Background(), createTestSession("find-session-id", "u1", time.Hour)))

	found, err := repo.FindByID(context.Background(), "find-session-id")
	require.NoError(t, err)
	assert.Equal(t, "u1", found.UserID)
	assert.Equal(t, "test-agent", found.UserAgent)

	found, err = repo.FindByID(context.Background(), "nonexistent-id")
	assert.ErrorIs(t, err, usecase.ErrSessionNotFound)
	assert.Nil(t, found)
}

func TestSessionRedis_FindByUserID(t *testing.T) {
	t.Parallel()

	client, mr := setupTestRedis(t)
	repo := NewSessionRedis(client, "session")
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, createTestSession("session-1", "u1", 7*24*time.Hour)))
	require.NoError(t, repo.Create(ctx, createTestSession("session-2", "u1", 7*24*time.Hour)))
	require.NoError(t, repo.Create(ctx, createTestSession("session-3", "u2", 7*24*time.Hour)))

	sessions, err := repo.FindByUserID(ctx, "u1")
	assert.NoError(t, err)
	assert.Len(t, sessions, 2)

	sessions, err = repo.FindByUserID(ctx, "u2")
	assert.NoError(t, err)
	assert.Len(t, sessions, 1)

	sessions, err = repo.FindByUserID(ctx, "u999")
	assert.NoError(t, err)
	assert.Len(t, sessions, 0)

	// a key that expired is pruned from the user's set
	mr.Del("session:session-1")
	sessions, err = repo.FindByUserID(ctx, "u1")
	assert.NoError(t, err)
	assert.Len(t, sessions, 1)
	members, _ := mr.Members("session:user:u1")
	assert.NotContains(t, members, "session-1")
}

func TestSessionRedis_Revoke(t *testing.T) {
	t.Parallel()

	client, mr := setupTestRedis(t)
	repo := NewSessionRedis(client, "session")
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, createTestSession("revoke-session-id", "u1", 7*24*time.Hour)))

	require.NoError(t, repo.Revoke(ctx, "revoke-session-id"))

	found, err := repo.FindByID(ctx, "revoke-session-id")
	require.NoError(t, err)
	assert.NotNil(t, found.RevokedAt)
	assert.LessOrEqual(t, mr.TTL("session:revoke-session-id"), revokedRetention)

	count, err := repo.CountByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	assert.ErrorIs(t, repo.Revoke(ctx, "nonexistent-id"), usecase.ErrSessionNotFound)
}

func TestSessionRedis_RevokeAllByUserID(t *testing.T) {
	t.Parallel()

	client, _ := setupTestRedis(t)
	repo := NewSessionRedis(client, "session")
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, createTestSession("session-1", "u1", 7*24*time.Hour)))
	require.NoError(t, repo.Create(ctx, createTestSession("session-2", "u1", 7*24*time.Hour)))
	require.NoError(t, repo.Create(ctx, createTestSession("session-3", "u2", 7*24*time.Hour)))

	require.NoError(t, repo.RevokeAllByUserID(ctx, "u1"))

	found1, _ := repo.FindByID(ctx, "session-1")
	found2, _ := repo.FindByID(ctx, "session-2")
	assert.NotNil(t, found1.RevokedAt)
	assert.NotNil(t, found2.RevokedAt)

	found3, _ := repo.FindByID(ctx, "session-3")
	assert.Nil(t, found3.RevokedAt)
}

func TestSessionRedis_CountByUserID(t *testing.T) {
	t.Parallel()

	client, _ := setupTestRedis(t)
	repo := NewSessionRedis(client, "session")
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, createTestSession("active-1", "u1", 7*24*time.Hour)))
	require.NoError(t, repo.Create(ctx, createTestSession("active-2", "u1", 7*24*time.Hour)))
	require.NoError(t, repo.Revoke(ctx, "active-1"))

	count, err := repo.CountByUserID(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count, "should only count active (non-revoked) sessions")
}

func TestSessionRedis_DeleteOldestByUserID(t *testing.T) {
	t.Parallel()

	client, _ := setupTestRedis(t)
	repo := NewSessionRedis(client, "session")
	ctx := context.Background()

	now := time.Now()
	newest := &entity.Session{ID: "newest-session", UserID: "u1", CreatedAt: now.Add(-1 * time.Hour), ExpiresAt: now.Add(time.Hour)}
	oldest := &entity.Session{ID: "oldest-session", UserID: "u1", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, newest))
	require.NoError(t, repo.Create(ctx, oldest))

	require.NoError(t, repo.DeleteOldestByUserID(ctx, "u1"))

	_, err := repo.FindByID(ctx, "oldest-session")
	assert.ErrorIs(t, err, usecase.ErrSessionNotFound)
	found, err := repo.FindByID(ctx, "newest-session")
	assert.NoError(t, err)
	assert.NotNil(t, found)

	assert.NoError(t, repo.DeleteOldestByUserID(ctx, "nobody"))
}

func TestSessionRedis_DeleteExpired(t *testing.T) {
	t.Parallel()

	client, mr := setupTestRedis(t)
	repo := NewSessionRedis(client, "session")
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, createTestSession("keep", "u1", time.Hour)))
	require.NoError(t, repo.Create(ctx, createTestSession("short", "u1", time.Minute)))
	require.NoError(t, repo.Create(ctx, createTestSession("other", "u2", time.Minute)))

	mr.FastForward(2 * time.Minute)

	pruned, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)

	members, _ := mr.Members("session:user:u1")
	assert.Equal(t, []string{"keep"}, members)
}

func TestSessionRedis_KeyGeneration(t *testing.T) {
	t.Parallel()

	client, _ := setupTestRedis(t)
	repo := NewSessionRedis(client, "test-prefix")

	assert.Equal(t, "test-prefix:session-id", repo.sessionKey("session-id"))
	assert.Equal(t, "test-prefix:user:123", repo.userSessionsKey("123"))
}
