// Package handler provides the HTTP handlers of the cliente feature.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"cliente_backend/internal/api"
	"cliente_backend/internal/feature/cliente/domain"
	"cliente_backend/internal/feature/cliente/domain/entity"
	"cliente_backend/internal/feature/cliente/transport/http/dto"
	"cliente_backend/internal/feature/cliente/usecase"
	jwtmw "cliente_backend/internal/platform/jwt"
	"cliente_backend/internal/platform/metrics"
)

// ClienteUsecase defines the cliente operations used by the handler.
// Following Go convention, the interface is defined by the consumer (handler).
type ClienteUsecase interface {
	Create(ctx context.Context, ownerID string, in entity.ClienteInput) (*entity.Cliente, error)
	Update(ctx context.Context, ownerID, id string, patch entity.ClientePatch) (*entity.Cliente, error)
	Delete(ctx context.Context, ownerID, id string) error
	Get(ctx context.Context, ownerID, id string) (*entity.Cliente, error)
	List(ctx context.Context, ownerID string) ([]entity.Cliente, error)
	Subscribe(ctx context.Context, ownerID string, onChange func([]entity.Cliente)) (func(), error)
}

// defaultHeartbeat keeps idle SSE connections alive through proxies.
const defaultHeartbeat = 25 * time.Second

// ClienteHandler handles HTTP requests for Cliente records.
// Every route expects jwtmw.AuthRequired to have run; the owner is always the caller.
type ClienteHandler struct {
	uc        ClienteUsecase
	heartbeat time.Duration

	closing   chan struct{}
	closeOnce sync.Once
}

// NewClienteHandler creates a new ClienteHandler.
func NewClienteHandler(uc ClienteUsecase) *ClienteHandler {
	return &ClienteHandler{uc: uc, heartbeat: defaultHeartbeat, closing: make(chan struct{})}
}

// CloseStreams ends every open change feed. http.Server.Shutdown waits for active
// connections to go idle, which a change feed never does on its own; register this
// with RegisterOnShutdown so ordinary requests are still drained with their own context.
func (h *ClienteHandler) CloseStreams() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// List handles GET /clientes.
func (h *ClienteHandler) List(c *gin.Context) {
	list, err := h.uc.List(c.Request.Context(), jwtmw.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromEntities(list))
}

// Get handles GET /clientes/:id.
func (h *ClienteHandler) Get(c *gin.Context) {
	cl, err := h.uc.Get(c.Request.Context(), jwtmw.UserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromEntity(*cl))
}

// Create handles POST /clientes.
// - 400 when a field is missing or the email is malformed
// - 201 with the stored record on success
func (h *ClienteHandler) Create(c *gin.Context) {
	var req dto.CreateClienteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("create cliente validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}
	cl, err := h.uc.Create(c.Request.Context(), jwtmw.UserID(c), req.ToInput())
	if err != nil {
		h.writeError(c, err)
		return
	}
	slog.Info("cliente created", "cliente_id", cl.ID, "user_id", cl.UserID)
	c.JSON(http.StatusCreated, dto.FromEntity(*cl))
}

// Update handles PATCH and PUT /clientes/:id. Only the fields present in the body change.
func (h *ClienteHandler) Update(c *gin.Context) {
	var req dto.UpdateClienteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("update cliente validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}
	cl, err := h.uc.Update(c.Request.Context(), jwtmw.UserID(c), c.Param("id"), req.ToPatch())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromEntity(*cl))
}

// Delete handles DELETE /clientes/:id.
func (h *ClienteHandler) Delete(c *gin.Context) {
	ownerID := jwtmw.UserID(c)
	id := c.Param("id")
	if err := h.uc.Delete(c.Request.Context(), ownerID, id); err != nil {
		h.writeError(c, err)
		return
	}
	slog.Info("cliente deleted", "cliente_id", id, "user_id", ownerID)
	c.Status(http.StatusNoContent)
}

// Events handles GET /clientes/events as a Server-Sent Events stream.
// The first "clientes" event carries the current list; each change pushes the full list again.
func (h *ClienteHandler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	ownerID := jwtmw.UserID(c)

	// latest-wins mailbox between the subscription goroutine and this request
	updates := make(chan []entity.Cliente, 1)
	unsubscribe, err := h.uc.Subscribe(ctx, ownerID, func(list []entity.Cliente) {
		for {
			select {
			case updates <- list:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	if err != nil {
		if errors.Is(err, usecase.ErrNoChangeFeed) {
			c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "change feed unavailable"})
			return
		}
		h.writeError(c, err)
		return
	}
	defer unsubscribe()

	// subscribed before the initial read so no change is lost in between
	initial, err := h.uc.List(ctx, ownerID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	metrics.ActiveSubscriptions.Inc()
	defer metrics.ActiveSubscriptions.Dec()
	slog.Debug("change feed opened", "user_id", ownerID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("clientes", dto.FromEntities(initial))
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("change feed closed", "user_id", ownerID)
			return
		case <-h.closing:
			slog.Debug("change feed closed by shutdown", "user_id", ownerID)
			return
		case list := <-updates:
			c.SSEvent("clientes", dto.FromEntities(list))
			c.Writer.Flush()
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			c.Writer.Flush()
		}
	}
}

func (h *ClienteHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrClienteNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: domain.ErrClienteNotFound.Error()})
	case errors.Is(err, domain.ErrInvalidCliente), errors.Is(err, domain.ErrEmptyPatch):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, context.Canceled):
		// client went away
		c.Status(499)
	default:
		slog.Error("cliente request failed", "error", err, "path", c.FullPath(), "user_id", jwtmw.UserID(c))
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal server error"})
	}
}
