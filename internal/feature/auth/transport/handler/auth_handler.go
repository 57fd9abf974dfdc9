// Package handler はauthフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"cliente_backend/internal/api"
	"cliente_backend/internal/feature/auth/domain"
	"cliente_backend/internal/feature/auth/domain/entity"
	"cliente_backend/internal/feature/auth/transport/http/dto"
	"cliente_backend/internal/feature/auth/usecase"
	jwtmw "cliente_backend/internal/platform/jwt"
)

// AuthUsecase は認証操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type AuthUsecase interface {
	// Signup は新規ユーザーを登録し、セッションを開始します。
	Signup(ctx context.Context, email, password string, meta usecase.SessionMeta) (*usecase.AuthResult, error)
	// Login はユーザーを認証し、成功時にトークン一式を返します。
	Login(ctx context.Context, email, password string, meta usecase.SessionMeta) (*usecase.AuthResult, error)
	// Refresh はリフレッシュトークンをローテーションします。
	Refresh(ctx context.Context, refreshToken string, meta usecase.SessionMeta) (*usecase.AuthResult, error)
	// Logout はセッションを失効させます。
	Logout(ctx context.Context, sessionID string) error
	// LogoutAll はユーザーの全セッションを失効させます。
	LogoutAll(ctx context.Context, userID string) error
	// CurrentUser はログイン中のユーザーを返します。
	CurrentUser(ctx context.Context, userID string) (*entity.User, error)
}

// AuthHandler は認証操作のHTTPリクエストを処理します。
type AuthHandler struct {
	auth AuthUsecase
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
func NewAuthHandler(auth AuthUsecase) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func sessionMeta(c *gin.Context) usecase.SessionMeta {
	return usecase.SessionMeta{UserAgent: c.Request.UserAgent(), IPAddress: c.ClientIP()}
}

// Signup はユーザー登録APIエンドポイントを処理します。
// - バリデーションエラー時は400を返却
// - メール重複時は409を返却
// - 成功時はトークン付きで201を返却
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("signup validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}
	res, err := h.auth.Signup(c.Request.Context(), req.Email, req.Password, sessionMeta(c))
	if err != nil {
		slog.Warn("signup failed", "error", err, "remote_addr", c.ClientIP())
		switch {
		case errors.Is(err, usecase.ErrEmailAlreadyExists):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "email already exists"})
		case errors.Is(err, domain.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "signup failed"})
		}
		return
	}
	slog.Info("user signup successful", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusCreated, dto.AuthFromResult(res))
}

// Login はユーザーログインAPIエンドポイントを処理します。
// - バリデーションエラー時は400を返却
// - 認証失敗時は401を返却
// - 認証成功時はトークン付きで200を返却
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("login validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, sessionMeta(c))
	if err != nil {
		// ユーザー列挙攻撃を防止するため、実際のエラーを公開しない
		slog.Warn("login failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: domain.ErrInvalidCredentials.Error()})
		return
	}
	slog.Info("user login successful", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.AuthFromResult(res))
}

// Refresh はリフレッシュトークンから新しいトークン一式を発行します。
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}
	res, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, sessionMeta(c))
	if err != nil {
		slog.Warn("refresh failed", "error", err, "remote_addr", c.ClientIP())
		if errors.Is(err, usecase.ErrInvalidRefreshToken) {
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: usecase.ErrInvalidRefreshToken.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, dto.AuthFromResult(res))
}

// Logout は現在のセッションを失効させ、204を返します。
// クエリ all=true の場合はユーザーの全セッションを失効させます。
func (h *AuthHandler) Logout(c *gin.Context) {
	all := c.Query("all") == "true"
	var err error
	if all {
		err = h.auth.LogoutAll(c.Request.Context(), jwtmw.UserID(c))
	} else {
		err = h.auth.Logout(c.Request.Context(), jwtmw.SessionID(c))
	}
	if err != nil {
		slog.Error("logout failed", "error", err, "user_id", jwtmw.UserID(c), "all", all)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "logout failed"})
		return
	}
	slog.Info("user logout", "user_id", jwtmw.UserID(c), "all", all)
	c.Status(http.StatusNoContent)
}

// Me はログイン中のユーザー情報を返します。
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.auth.CurrentUser(c.Request.Context(), jwtmw.UserID(c))
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not found"})
			return
		}
		slog.Error("current user lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, dto.UserFromEntity(u))
}
