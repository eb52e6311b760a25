// Package router registers every HTTP route on the Echo instance.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/site-reservation/internal/handler"
	"github.com/iliyamo/site-reservation/internal/middleware"
)

// RegisterRoutes registers the operational endpoints: liveness, readiness
// and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo, ready echo.HandlerFunc, metrics http.Handler) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", ready)
	e.GET("/metrics", echo.WrapHandler(metrics))
}

// RegisterAuth registers the token endpoints under /v1/auth and the
// profile endpoint.  Logout runs without JWTAuth so a refresh token alone
// can end a session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)               // rotates the refresh token
	g.POST("/refresh-access", a.RefreshAccess) // keeps it
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// Public groups the unauthenticated read handlers.
type Public struct {
	Sites        *handler.SiteHandler
	Locations    *handler.LocationHandler
	Availability *handler.AvailabilityHandler
	Courses      *handler.CourseHandler
}

// RegisterPublic registers the guest endpoints.  Catalogue reads go
// through cache; availability is computed per request and only rate
// limited, since any booking changes it.
func RegisterPublic(e *echo.Echo, p Public, cache, limit echo.MiddlewareFunc) {
	e.GET("/v1/sites", p.Sites.List, cache)
	e.GET("/v1/sites/:id", p.Sites.Get, cache)
	e.GET("/v1/sites/:id/locations", p.Locations.ListBySite, cache)
	e.GET("/v1/locations/:id", p.Locations.Get, cache)
	e.GET("/v1/courses", p.Courses.List, cache)
	e.GET("/v1/courses/:id", p.Courses.Get, cache)

	e.GET("/v1/availability", p.Availability.Concurrent, limit)
	e.GET("/v1/availability/sequential", p.Availability.Sequential, limit)
	e.GET("/v1/calendar", p.Availability.Calendar, limit)
	e.GET("/v1/locations/:id/reservations", p.Availability.LocationReservations, limit)
}
