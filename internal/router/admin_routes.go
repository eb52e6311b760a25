package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/site-reservation/internal/handler"
	"github.com/iliyamo/site-reservation/internal/middleware"
	"github.com/iliyamo/site-reservation/internal/model"
)

// Admin groups the handlers behind role checks.
type Admin struct {
	Sites     *handler.SiteHandler
	Locations *handler.LocationHandler
	Courses   *handler.CourseHandler
	Users     *handler.UserHandler
}

// RegisterAdmin registers the catalogue writes.  Sites, locations and
// users need ADMIN; courses also accept INSTRUCTOR, who may only edit
// their own.
func RegisterAdmin(e *echo.Echo, a Admin, jwtSecret string) {
	auth := middleware.JWTAuth(jwtSecret)
	admin := middleware.RequireRole(model.RoleAdmin)
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleInstructor)

	// ---- Sites ----
	e.POST("/v1/sites", a.Sites.Create, auth, admin)
	e.PUT("/v1/sites/:id", a.Sites.Update, auth, admin)
	e.PATCH("/v1/sites/:id", a.Sites.Patch, auth, admin)
	e.DELETE("/v1/sites/:id", a.Sites.Delete, auth, admin)

	// ---- Locations ----
	e.POST("/v1/sites/:id/locations", a.Locations.Create, auth, admin)
	e.PUT("/v1/locations/:id", a.Locations.Update, auth, admin)
	e.DELETE("/v1/locations/:id", a.Locations.Delete, auth, admin)

	// ---- Courses ----
	e.POST("/v1/courses", a.Courses.Create, auth, staff)
	e.PUT("/v1/courses/:id", a.Courses.Update, auth, staff)
	e.DELETE("/v1/courses/:id", a.Courses.Delete, auth, staff)

	// ---- Users ----
	e.GET("/v1/users", a.Users.List, auth, admin)
	e.GET("/v1/users/:id", a.Users.Get, auth, admin)
}
