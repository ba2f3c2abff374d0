// Package router builds the echo server: global middleware, the route
// table and the wiring of handlers to repositories and services.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/manufacturer-api/internal/config"
	"github.com/iliyamo/manufacturer-api/internal/handler"
	"github.com/iliyamo/manufacturer-api/internal/metrics"
	"github.com/iliyamo/manufacturer-api/internal/middleware"
	"github.com/iliyamo/manufacturer-api/internal/repository"
	"github.com/iliyamo/manufacturer-api/internal/service"
)

// Deps are the long-lived collaborators shared by every route. Redis may be
// nil, which disables the role cache and response cache and switches rate
// limiting to in-process buckets.
type Deps struct {
	Cfg       config.Config
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Store     repository.Store
	Redis     *redis.Client
	Intents   service.IntentCreator
	Events    service.EventPublisher
}

// New returns a ready-to-start echo instance.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	v := handler.NewValidator()
	e.Validator = v

	// Global middleware runs after routing, so c.Path() is already the
	// matched route. Order matters: the request id must exist before the
	// logger runs, and the limiter answers 429 before any handler work.
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(echomw.CORS())
	e.Use(echomw.BodyLimit("1M"))
	// The limiter sees requests before route-level JWTAuth, so it gets the
	// secret to key buckets by the token's email.
	e.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Cfg.JWTSecret))

	// Users and roles are shared between the user routes and the admin gate
	// so role changes can invalidate the cache the gate reads.
	users := repository.NewUserRepo(d.Store)
	roles := repository.NewRoleResolver(users, d.Redis, d.Cfg.RoleCacheTTL)

	r := &routes{
		e:     e,
		deps:  d,
		auth:  middleware.JWTAuth(d.Cfg.JWTSecret),
		admin: middleware.RequireAdmin(roles),
		cache: middleware.NewRedisCache(d.Cache, d.Redis),
		purge: middleware.PurgeCache(d.Cache, d.Redis),
	}

	// Register every route group with its handler.
	RegisterRoutes(e, handler.NewHealthHandler(d.Store))
	r.users(handler.NewUserHandler(users, roles, d.Cfg.JWTSecret, d.Cfg.TokenTTL, v))
	r.products(handler.NewProductHandler(repository.NewProductRepo(d.Store)))
	r.reviews(handler.NewReviewHandler(repository.NewReviewRepo(d.Store)))

	lifecycle := service.NewOrderLifecycle(d.Store, d.Events)
	r.orders(handler.NewOrderHandler(repository.NewOrderRepo(d.Store), lifecycle,
		d.Cfg.Policy.OrderDelete == config.AccessOwner))
	r.payments(handler.NewPaymentHandler(service.NewPaymentIntents(d.Intents, d.Cfg.Currency)))
	return e
}

// RegisterRoutes registers the unauthenticated service endpoints.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/", h.Root)
	e.GET("/healthz", h.Healthz)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// routes carries the shared middleware instances while registering.
type routes struct {
	e     *echo.Echo
	deps  Deps
	auth  echo.MiddlewareFunc
	admin echo.MiddlewareFunc
	cache echo.MiddlewareFunc
	purge echo.MiddlewareFunc
}

// access turns a configured access level into a middleware chain. Owner
// checks need the document and happen in the handler, so "owner" only
// requires a token here.
func (r *routes) access(level string) []echo.MiddlewareFunc {
	switch level {
	case config.AccessAdmin:
		return []echo.MiddlewareFunc{r.auth, r.admin}
	case config.AccessAuthenticated, config.AccessAny, config.AccessOwner:
		return []echo.MiddlewareFunc{r.auth}
	default:
		return nil
	}
}
