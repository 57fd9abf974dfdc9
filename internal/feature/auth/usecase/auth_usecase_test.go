package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cliente_backend/internal/feature/auth/domain"
	"cliente_backend/internal/feature/auth/domain/entity"
)

// mockUserRepository is a mock implementation of the UserRepository interface.
// It keeps users in memory unless a Func field overrides the behaviour.
type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*entity.User

	CreateFunc      func(ctx context.Context, user *entity.User) error
	FindByEmailFunc func(ctx context.Context, email string) (*entity.User, error)
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: map[string]*entity.User{}}
}

func (m *mockUserRepository) Create(ctx context.Context, user *entity.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrEmailAlreadyExists
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

// mockSessionRepository is an in-memory SessionRepository.
type mockSessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*entity.Session
	deleted  int
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{sessions: map[string]*entity.Session{}}
}

func (m *mockSessionRepository) Create(ctx context.Context, s *entity.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*entity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSessionRepository) FindByUserID(ctx context.Context, userID string) ([]*entity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Session
	for _, s := range m.sessions {
		if s.UserID == userID && s.IsValid() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockSessionRepository) Revoke(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	now := time.Now()
	s.RevokedAt = &now
	return nil
}

func (m *mockSessionRepository) RevokeAllByUserID(ctx context.Context, userID string) error {
	active, _ := m.FindByUserID(ctx, userID)
	for _, s := range active {
		_ = m.Revoke(ctx, s.ID)
	}
	return nil
}

func (m *mockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.IsExpired() {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	active, _ := m.FindByUserID(ctx, userID)
	return int64(len(active)), nil
}

func (m *mockSessionRepository) DeleteOldestByUserID(ctx context.Context, userID string) error {
	active, _ := m.FindByUserID(ctx, userID)
	if len(active) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, active[0].ID)
	m.deleted++
	return nil
}

// mockJWTGenerator is a mock implementation of the JWTGenerator interface.
type mockJWTGenerator struct {
	GenerateTokenFunc func(userID, email, sessionID string) (string, error)
}

func (m *mockJWTGenerator) GenerateToken(userID, email, sessionID string) (string, error) {
	if m.GenerateTokenFunc != nil {
		return m.GenerateTokenFunc(userID, email, sessionID)
	}
	return "mock-jwt-token", nil
}

func (m *mockJWTGenerator) Expiration() time.Duration { return time.Hour }

func newTestUsecase() (*authUsecase, *mockUserRepository, *mockSessionRepository) {
	users := newMockUserRepository()
	sessions := newMockSessionRepository()
	return NewAuthUsecase(users, sessions, &mockJWTGenerator{}, 0), users, sessions
}

var meta = SessionMeta{UserAgent: "test-agent", IPAddress: "127.0.0.1"}

func TestNewAuthUsecase_DefaultRefreshTTL(t *testing.T) {
	uc := NewAuthUsecase(nil, nil, nil, 0)
	assert.Equal(t, DefaultRefreshTTL, uc.refreshTTL)

	uc = NewAuthUsecase(nil, nil, nil, time.Hour)
	assert.Equal(t, time.Hour, uc.refreshTTL)
}

func TestAuthUsecase_Signup(t *testing.T) {
	t.Run("successful signup opens a session", func(t *testing.T) {
		uc, users, sessions := newTestUsecase()

		res, err := uc.Signup(context.Background(), " Ana@Example.com ", "secret1", meta)

		require.NoError(t, err)
		assert.NotEmpty(t, res.User.ID)
		assert.Equal(t, "ana@example.com", res.User.Email)
		assert.Equal(t, "mock-jwt-token", res.AccessToken)
		assert.Len(t, res.RefreshToken, 64)
		assert.Equal(t, time.Hour, res.ExpiresIn)

		stored := users.users[res.User.ID]
		require.NotNil(t, stored)
		assert.NotEqual(t, "secret1", stored.Password, "password is not hashed")
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret1")))

		s, err := sessions.FindByID(context.Background(), hashToken(res.RefreshToken))
		require.NoError(t, err)
		assert.Equal(t, res.User.ID, s.UserID)
		assert.Equal(t, "test-agent", s.UserAgent)
	})

	t.Run("short password", func(t *testing.T) {
		uc, _, _ := newTestUsecase()

		_, err := uc.Signup(context.Background(), "a@x.com", "12345", meta)

		assert.ErrorIs(t, err, domain.ErrWeakPassword)
	})

	t.Run("password longer than 72 bytes", func(t *testing.T) {
		uc, users, _ := newTestUsecase()

		// 36 runes of 3 bytes each: short in characters, long in bytes.
		_, err := uc.Signup(context.Background(), "a@x.com", strings.Repeat("パ", 36)+"x", meta)

		assert.ErrorIs(t, err, domain.ErrWeakPassword)
		assert.Empty(t, users.users, "nothing is stored for a rejected password")
	})

	t.Run("password of exactly 72 bytes is accepted", func(t *testing.T) {
		uc, _, _ := newTestUsecase()

		_, err := uc.Signup(context.Background(), "a@x.com", strings.Repeat("p", 72), meta)

		assert.NoError(t, err)
	})

	t.Run("duplicate email", func(t *testing.T) {
		uc, _, _ := newTestUsecase()
		_, err := uc.Signup(context.Background(), "a@x.com", "secret1", meta)
		require.NoError(t, err)

		_, err = uc.Signup(context.Background(), "A@x.com", "secret2", meta)

		assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	})

	t.Run("repository create failure", func(t *testing.T) {
		expectedErr := errors.New("database error")
		users := newMockUserRepository()
		users.CreateFunc = func(ctx context.Context, user *entity.User) error { return expectedErr }
		uc := NewAuthUsecase(users, newMockSessionRepository(), &mockJWTGenerator{}, 0)

		_, err := uc.Signup(context.Background(), "a@x.com", "secret1", meta)

		assert.ErrorIs(t, err, expectedErr)
	})
}

func TestAuthUsecase_Login(t *testing.T) {
	password := "secret1"
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	seed := func() (*authUsecase, *mockSessionRepository) {
		uc, users, sessions := newTestUsecase()
		users.users["u1"] = &entity.User{ID: "u1", Email: "a@x.com", Password: string(hashedPassword)}
		return uc, sessions
	}

	t.Run("successful login", func(t *testing.T) {
		uc, _ := seed()
		var gotUserID, gotSessionID string
		uc.jwtGenerator = &mockJWTGenerator{GenerateTokenFunc: func(userID, email, sessionID string) (string, error) {
			gotUserID, gotSessionID = userID, sessionID
			return "mock-jwt-token", nil
		}}

		res, err := uc.Login(context.Background(), "a@x.com", password, meta)

		require.NoError(t, err)
		assert.Equal(t, "u1", res.User.ID)
		assert.Equal(t, "u1", gotUserID)
		assert.Equal(t, hashToken(res.RefreshToken), gotSessionID)
	})

	t.Run("failures are indistinguishable", func(t *testing.T) {
		tests := []struct {
			name     string
			email    string
			password string
		}{
			{"wrong password", "a@x.com", "wrong-pass"},
			{"unknown user", "nobody@x.com", password},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				uc, _ := seed()

				_, err := uc.Login(context.Background(), tt.email, tt.password, meta)

				assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
			})
		}
	})

	t.Run("lookup error is hidden", func(t *testing.T) {
		uc, _ := seed()
		uc.users.(*mockUserRepository).FindByEmailFunc = func(ctx context.Context, email string) (*entity.User, error) {
			return nil, errors.New("connection refused")
		}

		_, err := uc.Login(context.Background(), "a@x.com", password, meta)

		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("token generation failure", func(t *testing.T) {
		uc, _ := seed()
		uc.jwtGenerator = &mockJWTGenerator{GenerateTokenFunc: func(string, string, string) (string, error) {
			return "", errors.New("signing failed")
		}}

		_, err := uc.Login(context.Background(), "a@x.com", password, meta)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to generate token")
	})

	t.Run("session limit drops the oldest", func(t *testing.T) {
		uc, sessions := seed()
		base := time.Now()
		tick := 0
		uc.now = func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		}

		var first *AuthResult
		for i := 0; i < maxSessionsPerUser+1; i++ {
			res, err := uc.Login(context.Background(), "a@x.com", password, meta)
			require.NoError(t, err)
			if i == 0 {
				first = res
			}
		}

		count, _ := sessions.CountByUserID(context.Background(), "u1")
		assert.Equal(t, int64(maxSessionsPerUser), count)
		assert.Equal(t, 1, sessions.deleted)
		_, err := sessions.FindByID(context.Background(), hashToken(first.RefreshToken))
		assert.ErrorIs(t, err, ErrSessionNotFound, "oldest session should be gone")
	})
}

func TestAuthUsecase_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates the session", func(t *testing.T) {
		uc, _, _ := newTestUsecase()
		first, err := uc.Signup(ctx, "a@x.com", "secret1", meta)
		require.NoError(t, err)

		second, err := uc.Refresh(ctx, first.RefreshToken, meta)

		require.NoError(t, err)
		assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
		assert.Equal(t, first.User.ID, second.User.ID)
		assert.ErrorIs(t, uc.ValidateSession(ctx, hashToken(first.RefreshToken)), ErrSessionRevoked)
		assert.NoError(t, uc.ValidateSession(ctx, hashToken(second.RefreshToken)))

		// the rotated token cannot be replayed
		_, err = uc.Refresh(ctx, first.RefreshToken, meta)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
		assert.ErrorIs(t, err, ErrSessionRevoked)
	})

	t.Run("replaying a rotated token revokes every session of the user", func(t *testing.T) {
		uc, _, _ := newTestUsecase()
		first, err := uc.Signup(ctx, "a@x.com", "secret1", meta)
		require.NoError(t, err)
		other, err := uc.Login(ctx, "a@x.com", "secret1", meta)
		require.NoError(t, err)
		rotated, err := uc.Refresh(ctx, first.RefreshToken, meta)
		require.NoError(t, err)

		_, err = uc.Refresh(ctx, first.RefreshToken, meta)

		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
		assert.ErrorIs(t, uc.ValidateSession(ctx, hashToken(rotated.RefreshToken)), ErrSessionRevoked)
		assert.ErrorIs(t, uc.ValidateSession(ctx, hashToken(other.RefreshToken)), ErrSessionRevoked)
	})

	t.Run("malformed token", func(t *testing.T) {
		uc, _, _ := newTestUsecase()

		_, err := uc.Refresh(ctx, "short", meta)

		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("unknown token", func(t *testing.T) {
		uc, _, _ := newTestUsecase()
		token, _ := newRefreshToken()

		_, err := uc.Refresh(ctx, token, meta)

		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("expired session", func(t *testing.T) {
		uc, _, sessions := newTestUsecase()
		res, err := uc.Signup(ctx, "a@x.com", "secret1", meta)
		require.NoError(t, err)
		sessions.sessions[hashToken(res.RefreshToken)].ExpiresAt = time.Now().Add(-time.Minute)

		_, err = uc.Refresh(ctx, res.RefreshToken, meta)

		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})
}

func TestAuthUsecase_Logout(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newTestUsecase()
	res, err := uc.Signup(ctx, "a@x.com", "secret1", meta)
	require.NoError(t, err)
	sid := hashToken(res.RefreshToken)

	require.NoError(t, uc.Logout(ctx, sid))

	assert.ErrorIs(t, uc.ValidateSession(ctx, sid), ErrSessionRevoked)
	assert.NoError(t, uc.Logout(ctx, "unknown"), "logout of a missing session is a no-op")
}

func TestAuthUsecase_LogoutAll(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newTestUsecase()
	a, err := uc.Signup(ctx, "a@x.com", "secret1", meta)
	require.NoError(t, err)
	b, err := uc.Login(ctx, "a@x.com", "secret1", meta)
	require.NoError(t, err)
	stranger, err := uc.Signup(ctx, "b@x.com", "secret1", meta)
	require.NoError(t, err)

	require.NoError(t, uc.LogoutAll(ctx, a.User.ID))

	assert.ErrorIs(t, uc.ValidateSession(ctx, hashToken(a.RefreshToken)), ErrSessionRevoked)
	assert.ErrorIs(t, uc.ValidateSession(ctx, hashToken(b.RefreshToken)), ErrSessionRevoked)
	assert.NoError(t, uc.ValidateSession(ctx, hashToken(stranger.RefreshToken)), "other users keep their sessions")
}

func TestAuthUsecase_CurrentUser(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newTestUsecase()
	res, err := uc.Signup(ctx, "a@x.com", "secret1", meta)
	require.NoError(t, err)

	u, err := uc.CurrentUser(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)

	_, err = uc.CurrentUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthUsecase_PurgeExpiredSessions(t *testing.T) {
	ctx := context.Background()
	uc, _, sessions := newTestUsecase()
	_ = sessions.Create(ctx, &entity.Session{ID: "old", UserID: "u1", ExpiresAt: time.Now().Add(-time.Hour)})
	_ = sessions.Create(ctx, &entity.Session{ID: "new", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)})

	n, err := uc.PurgeExpiredSessions(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = sessions.FindByID(ctx, "new")
	assert.NoError(t, err)
}
