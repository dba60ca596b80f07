package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"campusdelivery/internal/config"
	"campusdelivery/internal/middleware"
	"campusdelivery/internal/models"
	"campusdelivery/internal/repository"
	"campusdelivery/internal/security"
	"campusdelivery/internal/service"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Auth     *service.AuthService
	Orders   *service.OrderService
	Tokens   *security.TokenIssuer
	Accounts repository.CredentialStore
	// DB is nil with the memory driver.
	DB    Pinger
	Cache *redis.Client
}

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	authService  *service.AuthService
	orderService *service.OrderService
	tokens       *security.TokenIssuer
	accounts     repository.CredentialStore
	db           Pinger
	cache        *redis.Client
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Deps) HandlerSet {
	return HandlerSet{
		log:          log,
		cfg:          cfg,
		authService:  deps.Auth,
		orderService: deps.Orders,
		tokens:       deps.Tokens,
		accounts:     deps.Accounts,
		db:           deps.DB,
		cache:        deps.Cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	full := middleware.Authenticate(h.tokens, h.accounts, security.TokenTypeFull)
	pendingOrFull := middleware.Authenticate(h.tokens, h.accounts, security.TokenTypePending2FA, security.TokenTypeFull)
	staffOnly := middleware.RequireRoles(models.RoleStaff)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.RegisterStudent)
		auth.POST("/staff/register", h.RegisterStaff)
		auth.POST("/login", h.rateLimit("login"), h.Login)
		auth.POST("/forgot-password", h.rateLimit("forgot-password"), h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)
		auth.POST("/2fa/verify", h.rateLimit("2fa-verify"), pendingOrFull, h.VerifyTotp)

		protected := v1.Group("/auth")
		protected.Use(full)
		protected.GET("/me", h.Me)
		protected.POST("/2fa/setup", h.SetupTotp)
		protected.POST("/2fa/confirm", h.ConfirmTotp)
		protected.DELETE("/2fa", h.DisableTotp)
	}

	orders := v1.Group("/orders")
	orders.Use(full)
	orders.POST("", h.PlaceOrder)
	orders.GET("", staffOnly, h.ListOrdersByStatus)
	orders.GET("/mine", h.ListMyOrders)
	orders.GET("/active", staffOnly, h.ListActiveOrders)
	orders.GET("/history", staffOnly, h.ListOrderHistory)
	orders.GET("/:id", h.GetOrder)
	orders.GET("/:id/receipt", h.OrderReceipt)
	orders.POST("/:id/items", h.AddOrderItems)
	orders.DELETE("/:id/items/:index", h.RemoveOrderItem)
	orders.POST("/:id/confirm", h.ConfirmOrder)
	orders.POST("/:id/dispatch", staffOnly, h.DispatchOrder)
	orders.POST("/:id/deliver", staffOnly, h.DeliverOrder)
	orders.POST("/:id/cancel", h.CancelOrder)
}

func (h HandlerSet) rateLimit(name string) gin.HandlerFunc {
	rl := h.cfg.Auth.RateLimit
	return middleware.RateLimit(h.cache, name, rl.Requests, rl.Window, h.log)
}
