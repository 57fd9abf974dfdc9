package jwtmw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// TestMain sets Gin to test mode before running the tests.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type mockSessionChecker struct {
	validateFn func(ctx context.Context, sessionID string) error
}

func (m *mockSessionChecker) ValidateSession(ctx context.Context, sessionID string) error {
	if m.validateFn != nil {
		return m.validateFn(ctx, sessionID)
	}
	return nil
}

func runMiddleware(mw gin.HandlerFunc, authHeader string) (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		c.Request.Header.Set("Authorization", authHeader)
	}
	mw(c)
	return w, c
}

// TestAuthRequired_MissingBearerToken verifies 401 for absent or malformed Authorization headers.
func TestAuthRequired_MissingBearerToken(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
	}{
		{"no header", ""},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"bearer lowercase", "bearer token123"},
		{"no space after Bearer", "Bearertoken123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, c := runMiddleware(AuthRequired("test-secret", nil), tt.authHeader)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
			}
			if !c.IsAborted() {
				t.Error("expected request to be aborted")
			}
		})
	}
}

// TestAuthRequired_MissingJWTSecret verifies 500 when the server has no secret configured.
func TestAuthRequired_MissingJWTSecret(t *testing.T) {
	w, _ := runMiddleware(AuthRequired("", nil), "Bearer sometoken")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

// TestAuthRequired_InvalidToken verifies 401 for tampered, expired or unsigned tokens.
func TestAuthRequired_InvalidToken(t *testing.T) {
	const testSecret = "test-secret-key-for-invalid"

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noneStr, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"malformed token", "not.a.valid.token"},
		{"random string", "randomstring"},
		{"wrong secret", createTokenWithSecret("wrong-secret", "u1", "sid", time.Hour)},
		{"expired token", createTokenWithSecret(testSecret, "u1", "sid", -time.Hour)},
		{"none algorithm", noneStr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := runMiddleware(AuthRequired(testSecret, nil), "Bearer "+tt.token)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
			}
		})
	}
}

// TestAuthRequired_ValidToken verifies that the principal is stored in the context.
func TestAuthRequired_ValidToken(t *testing.T) {
	const testSecret = "test-secret-key-for-valid"

	var checked string
	sessions := &mockSessionChecker{validateFn: func(ctx context.Context, sessionID string) error {
		checked = sessionID
		return nil
	}}

	token := createTokenWithSecret(testSecret, "user-42", "sid-42", time.Hour)
	w, c := runMiddleware(AuthRequired(testSecret, sessions), "Bearer "+token)

	if c.IsAborted() {
		t.Fatalf("expected request not to be aborted, response: %s", w.Body.String())
	}
	if got := UserID(c); got != "user-42" {
		t.Errorf("expected userID %q, got %q", "user-42", got)
	}
	if got := SessionID(c); got != "sid-42" {
		t.Errorf("expected sessionID %q, got %q", "sid-42", got)
	}
	if got := c.GetString(ContextEmail); got != "test@example.com" {
		t.Errorf("unexpected email %q", got)
	}
	if checked != "sid-42" {
		t.Errorf("expected session sid-42 to be checked, got %q", checked)
	}
}

// TestAuthRequired_RevokedSession verifies that a logged-out session is rejected.
func TestAuthRequired_RevokedSession(t *testing.T) {
	const testSecret = "test-secret-key-for-revoked"

	sessions := &mockSessionChecker{validateFn: func(ctx context.Context, sessionID string) error {
		return errors.New("session has been revoked")
	}}

	token := createTokenWithSecret(testSecret, "user-1", "sid-1", time.Hour)
	w, c := runMiddleware(AuthRequired(testSecret, sessions), "Bearer "+token)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
	if !c.IsAborted() {
		t.Error("expected request to be aborted")
	}
}

// TestAuthRequired_TokenWithoutSession verifies that tokens lacking a sid are refused when sessions are enforced.
func TestAuthRequired_TokenWithoutSession(t *testing.T) {
	const testSecret = "test-secret-key-no-sid"

	token := createTokenWithSecret(testSecret, "user-1", "", time.Hour)
	w, _ := runMiddleware(AuthRequired(testSecret, &mockSessionChecker{}), "Bearer "+token)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

// createTokenWithSecret signs a test token with the given secret and claims.
func createTokenWithSecret(secret, userID, sessionID string, expiration time.Duration) string {
	claims := jwt.MapClaims{
		"sub":   userID,
		"exp":   time.Now().Add(expiration).Unix(),
		"iat":   time.Now().Unix(),
		"email": "test@example.com",
	}
	if sessionID != "" {
		claims["sid"] = sessionID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := token.SignedString([]byte(secret))
	return signed
}
