package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"cliente_backend/internal/feature/auth/domain"
	"cliente_backend/internal/feature/auth/domain/entity"
)

const (
	// minPasswordLength はパスワードの最低文字数を定義します。
	minPasswordLength = 6

	// maxPasswordBytes は bcrypt が受け付ける入力の上限（バイト数）です。
	maxPasswordBytes = 72

	// maxSessionsPerUser を超えると最も古いセッションが削除されます。
	maxSessionsPerUser = 5

	// refreshTokenBytes はリフレッシュトークンの乱数バイト数です（hexで64文字）。
	refreshTokenBytes = 32

	// DefaultRefreshTTL はリフレッシュトークンの既定の有効期間です。
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// UserRepository はユーザーエンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// Create は新しいユーザーをストレージに永続化します。
	// 同じメールアドレスのユーザーが既に存在する場合、ErrEmailAlreadyExistsを返します。
	Create(ctx context.Context, user *entity.User) error

	// FindByEmail は指定されたメールアドレスに一致するユーザーを取得します。
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByID は指定されたIDに一致するユーザーを取得します。
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

// JWTGenerator はアクセストークン生成のインターフェースを定義します。
type JWTGenerator interface {
	// GenerateToken はセッションに紐づく署名済みJWTトークンを生成します。
	GenerateToken(userID, email, sessionID string) (string, error)
	// Expiration はアクセストークンの有効期間を返します。
	Expiration() time.Duration
}

// SessionMeta はセッション作成時に記録するクライアント情報です。
type SessionMeta struct {
	UserAgent string
	IPAddress string
}

// AuthResult は認証成功時に返却されるトークン一式です。
type AuthResult struct {
	User         *entity.User
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// authUsecase は認証ビジネスロジックを実装します。
type authUsecase struct {
	users        UserRepository
	sessions     SessionRepository
	jwtGenerator JWTGenerator
	refreshTTL   time.Duration
	now          func() time.Time
}

// NewAuthUsecase はauthUsecaseの新しいインスタンスを生成します。
// refreshTTLが0以下の場合はDefaultRefreshTTLを使用します。
func NewAuthUsecase(users UserRepository, sessions SessionRepository, jwtGenerator JWTGenerator, refreshTTL time.Duration) *authUsecase {
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &authUsecase{
		users:        users,
		sessions:     sessions,
		jwtGenerator: jwtGenerator,
		refreshTTL:   refreshTTL,
		now:          time.Now,
	}
}

// validatePassword はパスワードがセキュリティ要件を満たしているかチェックします。
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters long", domain.ErrWeakPassword, minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: must be at most %d bytes long", domain.ErrWeakPassword, maxPasswordBytes)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashToken はリフレッシュトークンからセッションIDを導出します。
// ストレージには平文のトークンを保存しません。
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Signup はハッシュ化されたパスワードで新規ユーザーを登録し、そのままセッションを開始します。
func (u *authUsecase) Signup(ctx context.Context, email, password string, meta SessionMeta) (*AuthResult, error) {
	// パスワード強度を検証
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	now := u.now().UTC()
	user := &entity.User{
		ID:        uuid.NewString(),
		Email:     normalizeEmail(email),
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return u.openSession(ctx, user, meta)
}

// Login はユーザーを認証し、成功時にトークン一式を返します。
// タイミング攻撃を防止するため、ユーザーが存在しない場合でもbcrypt比較を実行します。
func (u *authUsecase) Login(ctx context.Context, email, password string, meta SessionMeta) (*AuthResult, error) {
	user, err := u.users.FindByEmail(ctx, normalizeEmail(email))

	// ユーザーが存在しない場合のタイミング攻撃緩和用ダミーハッシュ
	passwordHash := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	if err == nil {
		passwordHash = user.Password
	}

	compareErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))

	// ユーザー未検出またはパスワード不一致の場合、汎用エラーを返す
	if err != nil || compareErr != nil {
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			slog.Error("user lookup failed", "error", err)
		}
		return nil, domain.ErrInvalidCredentials
	}

	return u.openSession(ctx, user, meta)
}

// Refresh はリフレッシュトークンをローテーションします。
// 古いセッションは失効し、新しいセッションが発行されます。
func (u *authUsecase) Refresh(ctx context.Context, refreshToken string, meta SessionMeta) (*AuthResult, error) {
	if len(refreshToken) != refreshTokenBytes*2 {
		return nil, ErrInvalidRefreshToken
	}
	id := hashToken(refreshToken)
	session, err := u.sessions.FindByID(ctx, id)
	if err == nil {
		err = checkSession(session)
	}
	if errors.Is(err, ErrSessionRevoked) {
		// ローテーション済みトークンの再利用は漏洩とみなし、ユーザーの全セッションを失効させる
		slog.Warn("revoked refresh token reused", "user_id", session.UserID)
		if rerr := u.sessions.RevokeAllByUserID(ctx, session.UserID); rerr != nil {
			slog.Error("failed to revoke sessions after token reuse", "error", rerr, "user_id", session.UserID)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}
	user, err := u.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}
	if err := u.sessions.Revoke(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to revoke rotated session: %w", err)
	}
	return u.openSession(ctx, user, meta)
}

// Logout はセッションを失効させます。既に存在しないセッションはエラーにしません。
func (u *authUsecase) Logout(ctx context.Context, sessionID string) error {
	if err := u.sessions.Revoke(ctx, sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// LogoutAll はユーザーの全セッションを失効させます（全端末からのログアウト）。
func (u *authUsecase) LogoutAll(ctx context.Context, userID string) error {
	if err := u.sessions.RevokeAllByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// ValidateSession はセッションが有効かどうかを確認します。
// 失効・期限切れ・未登録の場合はそれぞれのエラーを返します。
func (u *authUsecase) ValidateSession(ctx context.Context, sessionID string) error {
	session, err := u.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	return checkSession(session)
}

func checkSession(s *entity.Session) error {
	if s.IsRevoked() {
		return ErrSessionRevoked
	}
	if s.IsExpired() {
		return ErrSessionExpired
	}
	return nil
}

// CurrentUser はユーザーIDからユーザーを取得します。
func (u *authUsecase) CurrentUser(ctx context.Context, userID string) (*entity.User, error) {
	return u.users.FindByID(ctx, userID)
}

// PurgeExpiredSessions は期限切れセッションを削除し、その件数を返します。
func (u *authUsecase) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := u.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return n, nil
}

// openSession はセッション上限を守りつつ新しいセッションとトークンを発行します。
func (u *authUsecase) openSession(ctx context.Context, user *entity.User, meta SessionMeta) (*AuthResult, error) {
	count, err := u.sessions.CountByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	for ; count >= maxSessionsPerUser; count-- {
		if err := u.sessions.DeleteOldestByUserID(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to drop oldest session: %w", err)
		}
	}

	refreshToken, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	now := u.now()
	session := &entity.Session{
		ID:        hashToken(refreshToken),
		UserID:    user.ID,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		CreatedAt: now,
		ExpiresAt: now.Add(u.refreshTTL),
	}
	if err := u.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// 注入されたジェネレーターを使用してJWTトークンを生成
	token, err := u.jwtGenerator.GenerateToken(user.ID, user.Email, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &AuthResult{
		User:         user,
		AccessToken:  token,
		RefreshToken: refreshToken,
		ExpiresIn:    u.jwtGenerator.Expiration(),
	}, nil
}
