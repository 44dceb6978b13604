// Package router wires HTTP routes to handlers and stacks the middleware
// each group needs: the route guard and role checks for protected
// endpoints, rate limiting on the credential endpoints, response caching on
// the public read endpoints.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/siddharthav19/ToursProj/internal/config"
	"github.com/siddharthav19/ToursProj/internal/handler"
	"github.com/siddharthav19/ToursProj/internal/middleware"
	"github.com/siddharthav19/ToursProj/internal/model"
	"github.com/siddharthav19/ToursProj/internal/repository"
)

// RegisterRoutes registers routes that need no dependencies, currently
// just the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterUsers registers the credential lifecycle and account routes.
// The whole group runs behind the Redis token bucket so credential
// guessing burns through a small budget fast.
func RegisterUsers(e *echo.Echo, cfg config.Config, a *handler.AuthHandler, u *handler.UserHandler, users *repository.UserRepo, rdb *redis.Client) {
	g := e.Group("/v1/users")
	g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	// Anonymous credential flows.
	g.POST("/signup", a.Signup)
	g.POST("/login", a.Login)
	g.POST("/forgot-password", a.ForgotPassword)
	g.PATCH("/reset-password/:token", a.ResetPassword)

	// Self-service account routes; Protect resolves the user for each.
	protect := middleware.Protect(cfg.JWTSecret, users)
	g.PATCH("/update-password", a.UpdatePassword, protect)
	g.GET("/me", u.Me, protect)
	g.PATCH("/me", u.UpdateMe, protect)
	g.DELETE("/me", u.DeleteMe, protect)

	// Admin-only user management, the single pathway to elevated roles.
	admin := []echo.MiddlewareFunc{protect, middleware.RestrictTo(model.RoleAdmin)}
	g.GET("", u.List, admin...)
	g.POST("", u.Create, admin...)
}

// RegisterTours registers tour and review routes. The aggregate and alias
// reads are public and cached; listing requires login as before, and
// writes are for staff.
func RegisterTours(e *echo.Echo, cfg config.Config, t *handler.TourHandler, r *handler.ReviewHandler, users *repository.UserRepo, rdb *redis.Client) {
	protect := middleware.Protect(cfg.JWTSecret, users)
	staff := []echo.MiddlewareFunc{protect, middleware.RestrictTo(model.RoleAdmin, model.RoleLeadGuide)}
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	g := e.Group("/v1/tours")
	g.GET("/top-5", t.TopTours, cache)
	g.GET("/statistics", t.Stats, cache)
	g.GET("/monthly-plan/:year", t.MonthlyPlan, cache)

	g.GET("", t.List, protect)
	g.POST("", t.Create, staff...)
	g.GET("/:id", t.Get)
	g.PATCH("/:id", t.Update, staff...)
	g.DELETE("/:id", t.Delete, staff...)

	// Reviews live under their tour; only plain users may post them.
	g.GET("/:id/reviews", r.ListByTour)
	g.POST("/:id/reviews", r.Create, protect, middleware.RestrictTo(model.RoleUser))
}
