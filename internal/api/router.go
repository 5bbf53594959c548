package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shopsphere/session-gateway/internal/api/handler"
	"github.com/shopsphere/session-gateway/internal/api/middleware"
	"github.com/shopsphere/session-gateway/internal/core/domain"
	"github.com/shopsphere/session-gateway/internal/core/ports"
	"github.com/shopsphere/session-gateway/internal/core/session"
	"github.com/shopsphere/session-gateway/internal/infrastructure/http/handlers"
)

// NewRouter builds and returns the Echo instance with all routes
// registered. Each protected route declares its required role set through
// the Guard middleware; the guard is the only authority for the decision.
// db and rdb may be nil when the corresponding backend is not configured;
// the readiness probe skips them.
func NewRouter(mgr *session.Manager, authClient ports.AuthClient, db *mongo.Database, rdb *redis.Client, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("session_gateway"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(mgr, authClient, log)
	sellerHandler := handler.NewSellerHandler(log)
	portalHandler := handler.NewPortalHandler(mgr)

	// --- Auth routes (anonymous) ---
	e.POST("/auth/:role/login", authHandler.Login)
	e.POST("/auth/:role/register", authHandler.Register)
	e.POST("/auth/logout", authHandler.Logout)
	e.GET("/session", portalHandler.Session)

	// --- Protected routes, by required role set ---
	seller := e.Group("/seller", middleware.Guard(mgr, domain.RoleSeller))
	seller.GET("/dashboard", sellerHandler.Dashboard)
	seller.POST("/products", sellerHandler.CreateProduct)

	admin := e.Group("/admin", middleware.Guard(mgr, domain.RoleAdmin))
	admin.GET("/overview", portalHandler.AdminOverview)

	e.GET("/account", portalHandler.Account,
		middleware.Guard(mgr, domain.RoleCustomer, domain.RoleSeller, domain.RoleAdmin))

	// --- Observability (no auth required) ---
	e.GET("/metrics", echoprometheus.NewHandler())

	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(db, rdb)
	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	return e
}
