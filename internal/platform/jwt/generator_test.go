package jwtmw

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestNewGenerator verifies that the generator keeps its configuration.
func TestNewGenerator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		secret     string
		expiration time.Duration
	}{
		{"standard config", "my-secret-key", time.Hour},
		{"long expiration", "secret", 24 * time.Hour * 30},
		{"short expiration", "s", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen := NewGenerator(tt.secret, tt.expiration)

			if gen == nil {
				t.Fatal("expected generator to be non-nil")
			}
			if string(gen.secret) != tt.secret {
				t.Errorf("expected secret %q, got %q", tt.secret, string(gen.secret))
			}
			if gen.Expiration() != tt.expiration {
				t.Errorf("expected expiration %v, got %v", tt.expiration, gen.Expiration())
			}
		})
	}
}

// TestGenerator_GenerateToken verifies that generated tokens are valid and carry the expected claims.
func TestGenerator_GenerateToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		userID    string
		email     string
		sessionID string
	}{
		{"basic user", "2b1f0c8e-0000-4000-8000-000000000001", "user@example.com", "sid-1"},
		{"user with special email", "u-42", "user+tag@example.com", "sid-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen := NewGenerator("test-secret", time.Hour)
			tokenStr, err := gen.GenerateToken(tt.userID, tt.email, tt.sessionID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
				return []byte("test-secret"), nil
			})
			if err != nil || !token.Valid {
				t.Fatalf("failed to parse token: %v", err)
			}

			claims := token.Claims.(jwt.MapClaims)
			if claims["sub"] != tt.userID {
				t.Errorf("expected sub %q, got %v", tt.userID, claims["sub"])
			}
			if claims["email"] != tt.email {
				t.Errorf("expected email %q, got %v", tt.email, claims["email"])
			}
			if claims["sid"] != tt.sessionID {
				t.Errorf("expected sid %q, got %v", tt.sessionID, claims["sid"])
			}
			if _, ok := claims["exp"]; !ok {
				t.Error("expected exp claim to be set")
			}
		})
	}
}

// TestGenerator_GenerateToken_Expiration checks exp and iat against a fixed clock.
func TestGenerator_GenerateToken_Expiration(t *testing.T) {
	t.Parallel()

	fixed := time.Now().Truncate(time.Second)
	gen := NewGenerator("test-secret", 2*time.Hour)
	gen.now = func() time.Time { return fixed }

	tokenStr, err := gen.GenerateToken("u1", "test@example.com", "sid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, _ := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	claims := token.Claims.(jwt.MapClaims)

	if exp := int64(claims["exp"].(float64)); exp != fixed.Add(2*time.Hour).Unix() {
		t.Errorf("unexpected exp %d", exp)
	}
	if iat := int64(claims["iat"].(float64)); iat != fixed.Unix() {
		t.Errorf("unexpected iat %d", iat)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	gen := NewGenerator("test-secret", time.Hour)
	valid, _ := gen.GenerateToken("u1", "a@x.com", "sid-1")

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()

		p, err := Parse("test-secret", valid)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.UserID != "u1" || p.Email != "a@x.com" || p.SessionID != "sid-1" {
			t.Errorf("unexpected principal %+v", p)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()

		if _, err := Parse("other-secret", valid); err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		t.Parallel()

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, _ := token.SignedString([]byte("test-secret"))

		if _, err := Parse("test-secret", signed); err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}

// TestGenerator_DifferentUsersProduceDifferentTokens checks that tokens are not shared across users.
func TestGenerator_DifferentUsersProduceDifferentTokens(t *testing.T) {
	t.Parallel()

	gen := NewGenerator("test-secret", time.Hour)

	token1, _ := gen.GenerateToken("u1", "user1@example.com", "s1")
	token2, _ := gen.GenerateToken("u2", "user2@example.com", "s2")

	if token1 == token2 {
		t.Error("expected different tokens for different users")
	}
}
