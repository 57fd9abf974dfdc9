// Package router wires the HTTP routes of the API.
package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	authhandler "cliente_backend/internal/feature/auth/transport/handler"
	clientehandler "cliente_backend/internal/feature/cliente/transport/handler"
	dashboardhandler "cliente_backend/internal/feature/dashboard/transport/handler"
	"cliente_backend/internal/platform/http/handler"
	jwtmw "cliente_backend/internal/platform/jwt"
	"cliente_backend/internal/platform/metrics"
	"cliente_backend/internal/shared/ratelimiter"
)

// Handlers groups the feature handlers mounted by NewRouter.
type Handlers struct {
	Auth      *authhandler.AuthHandler
	Cliente   *clientehandler.ClienteHandler
	Dashboard *dashboardhandler.DashboardHandler
	Ready     gin.HandlerFunc // optional /readyz
}

// Options configures the middleware stack.
type Options struct {
	JWTSecret   string
	Sessions    jwtmw.SessionChecker
	AuthLimiter *ratelimiter.RateLimiter // optional, applied to the unauthenticated auth endpoints
	CORSOrigins []string
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// NewRouter builds the gin engine with every API route.
func NewRouter(h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(metrics.Middleware())
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	// 認証不要
	// 導通確認用
	r.GET("/healthz", handler.Health)
	r.HEAD("/healthz", handler.Health)
	r.OPTIONS("/healthz", handler.Health)
	if h.Ready != nil {
		r.GET("/readyz", h.Ready)
	}
	r.GET("/metrics", metrics.Handler())

	public := r.Group("/")
	if opts.AuthLimiter != nil {
		public.Use(opts.AuthLimiter.Middleware())
	}
	{
		// 新規ユーザー登録
		public.POST("/register", h.Auth.Signup)
		public.POST("/signup", h.Auth.Signup)
		// ログイン（JWT 発行）
		public.POST("/login", h.Auth.Login)
		public.POST("/refresh", h.Auth.Refresh)
	}

	// 認証必須のルート
	// → リクエストヘッダーに JWT が必要になる
	auth := r.Group("/")
	auth.Use(jwtmw.AuthRequired(opts.JWTSecret, opts.Sessions))
	{
		auth.POST("/logout", h.Auth.Logout)
		auth.GET("/me", h.Auth.Me)
		auth.GET("/dashboard", h.Dashboard.Get)

		auth.GET("/clientes", h.Cliente.List)
		auth.POST("/clientes", h.Cliente.Create)
		auth.GET("/clientes/events", h.Cliente.Events)
		auth.GET("/clientes/:id", h.Cliente.Get)
		auth.PATCH("/clientes/:id", h.Cliente.Update)
		auth.PUT("/clientes/:id", h.Cliente.Update)
		auth.DELETE("/clientes/:id", h.Cliente.Delete)
	}

	return r
}
