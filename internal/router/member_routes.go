package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/site-reservation/internal/handler"
	"github.com/iliyamo/site-reservation/internal/middleware"
	"github.com/iliyamo/site-reservation/internal/model"
)

// RegisterMember registers endpoints open to any signed-in user.  Every
// route requires a valid JWT and a known role; writes are rate limited
// per user.
func RegisterMember(e *echo.Echo, r *handler.ReservationHandler, c *handler.CourseHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleInstructor, model.RoleStudent),
	)
	g.POST("/locations/:id/reservations", r.Create, limit)
	g.DELETE("/locations/:id/reservations/:rid", r.Delete, limit)
	g.GET("/my-reservations", r.Mine)

	g.POST("/courses/:id/register", c.Register, limit)
	g.GET("/my-courses", c.Mine)
}
