package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/site-reservation/internal/model"
)

// UserDirectory is the read side of repository.UserRepo used by admins.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	ListAll(ctx context.Context, role string) ([]model.User, error)
}

// UserHandler serves the admin-only /v1/users endpoints.
type UserHandler struct {
	Users   UserDirectory
	Courses CourseStore
	Logger  *zap.Logger
}

func NewUserHandler(u UserDirectory, courses CourseStore, logger *zap.Logger) *UserHandler {
	return &UserHandler{Users: u, Courses: courses, Logger: logger}
}

// List handles GET /v1/users?role=.
func (h *UserHandler) List(c echo.Context) error {
	role := strings.ToUpper(strings.TrimSpace(c.QueryParam("role")))
	if role != "" && !model.ValidRole(role) {
		return badRequest(c, "role must be ADMIN, INSTRUCTOR or STUDENT")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	users, err := h.Users.ListAll(ctx, role)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users, "count": len(users)})
}

// Get handles GET /v1/users/:id and includes the courses the user is
// registered for.
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	courses, err := h.Courses.ListByUser(ctx, id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u, "courses": courses})
}
