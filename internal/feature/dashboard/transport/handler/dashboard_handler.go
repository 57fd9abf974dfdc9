// Package handler serves the aggregated dashboard view.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"cliente_backend/internal/api"
	authentity "cliente_backend/internal/feature/auth/domain/entity"
	authdto "cliente_backend/internal/feature/auth/transport/http/dto"
	authusecase "cliente_backend/internal/feature/auth/usecase"
	"cliente_backend/internal/feature/cliente/domain/entity"
	clientedto "cliente_backend/internal/feature/cliente/transport/http/dto"
	jwtmw "cliente_backend/internal/platform/jwt"
)

// UserReader resolves the signed-in user.
type UserReader interface {
	CurrentUser(ctx context.Context, userID string) (*authentity.User, error)
}

// ClienteLister lists the records of an owner.
type ClienteLister interface {
	List(ctx context.Context, ownerID string) ([]entity.Cliente, error)
}

// DashboardHandler returns everything the dashboard page needs in one call.
type DashboardHandler struct {
	users    UserReader
	clientes ClienteLister
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(users UserReader, clientes ClienteLister) *DashboardHandler {
	return &DashboardHandler{users: users, clientes: clientes}
}

// Get handles GET /dashboard.
func (h *DashboardHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	userID := jwtmw.UserID(c)

	u, err := h.users.CurrentUser(ctx, userID)
	if err != nil {
		if errors.Is(err, authusecase.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not found"})
			return
		}
		slog.Error("dashboard user lookup failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal server error"})
		return
	}

	list, err := h.clientes.List(ctx, userID)
	if err != nil {
		slog.Error("dashboard list failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load clientes"})
		return
	}

	c.JSON(http.StatusOK, api.DashboardResponse{
		User:     authdto.UserFromEntity(u),
		Clientes: clientedto.FromEntities(list),
	})
}
