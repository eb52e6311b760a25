package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/site-reservation/internal/middleware"
	"github.com/iliyamo/site-reservation/internal/model"
	"github.com/iliyamo/site-reservation/internal/repository"
	"github.com/iliyamo/site-reservation/internal/scheduling"
)

// CourseStore is implemented by repository.CourseRepo.
type CourseStore interface {
	List(ctx context.Context, f repository.CourseFilter) ([]model.Course, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Course, error)
	GetByID(ctx context.Context, id uint64) (*model.Course, error)
	Create(ctx context.Context, c *model.Course) error
	Update(ctx context.Context, c *model.Course) error
	Delete(ctx context.Context, id uint64) error
}

// Registrar is implemented by service.CourseService.
type Registrar interface {
	Register(ctx context.Context, courseID, userID uint64) (*model.Course, error)
}

type CourseHandler struct {
	Courses   CourseStore
	Registrar Registrar
	Cache     Purger
	Logger    *zap.Logger
}

func NewCourseHandler(store CourseStore, registrar Registrar, cache Purger, logger *zap.Logger) *CourseHandler {
	return &CourseHandler{Courses: store, Registrar: registrar, Cache: cache, Logger: logger}
}

// courseReq is the write body.  Dates are YYYY-MM-DD and times HH:MM.
type courseReq struct {
	CourseCode      string  `json:"course_code"`
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	ClassName       string  `json:"class_name"`
	LocationID      *uint64 `json:"location_id"`
	Capacity        uint32  `json:"capacity"`
	Status          string  `json:"status"`
	DurationMinutes uint32  `json:"duration_minutes"`
	DateFrom        string  `json:"date_from"`
	DateTo          string  `json:"date_to"`
	TimeFrom        string  `json:"time_from"`
	TimeTo          string  `json:"time_to"`
	Repeats         string  `json:"repeats"`
	RepeatUntil     string  `json:"repeat_until"`
	Credits         uint32  `json:"credits"`
	AmountCents     uint32  `json:"amount_cents"`
}

func optionalDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return nil, &scheduling.InvalidParameterError{Field: field, Reason: "want YYYY-MM-DD"}
	}
	return &d, nil
}

func optionalClock(field, s string) (*string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	ct, err := scheduling.ParseClock(s)
	if err != nil {
		return nil, &scheduling.InvalidParameterError{Field: field, Reason: "want HH:MM"}
	}
	v := ct.String()
	return &v, nil
}

// toModel validates r and converts it.  An empty status means OPEN and an
// empty repeats means none.
func (r courseReq) toModel() (*model.Course, error) {
	c := &model.Course{
		CourseCode:      strings.TrimSpace(r.CourseCode),
		Title:           strings.TrimSpace(r.Title),
		Description:     r.Description,
		ClassName:       strings.TrimSpace(r.ClassName),
		LocationID:      r.LocationID,
		Capacity:        r.Capacity,
		Status:          strings.ToUpper(strings.TrimSpace(r.Status)),
		DurationMinutes: r.DurationMinutes,
		Repeats:         strings.ToLower(strings.TrimSpace(r.Repeats)),
		Credits:         r.Credits,
		AmountCents:     r.AmountCents,
	}
	switch {
	case c.CourseCode == "":
		return nil, &scheduling.InvalidParameterError{Field: "course_code", Reason: "required"}
	case c.Title == "":
		return nil, &scheduling.InvalidParameterError{Field: "title", Reason: "required"}
	}
	switch c.Status {
	case "":
		c.Status = model.CourseOpen
	case model.CourseOpen, model.CourseClosed, model.CourseCancelled:
	default:
		return nil, &scheduling.InvalidParameterError{Field: "status", Reason: "want OPEN, CLOSED or CANCELLED"}
	}
	if c.Repeats == "" {
		c.Repeats = "none"
	}

	var err error
	if c.DateFrom, err = optionalDate("date_from", r.DateFrom); err != nil {
		return nil, err
	}
	if c.DateTo, err = optionalDate("date_to", r.DateTo); err != nil {
		return nil, err
	}
	if c.RepeatUntil, err = optionalDate("repeat_until", r.RepeatUntil); err != nil {
		return nil, err
	}
	if c.DateFrom != nil && c.DateTo != nil && c.DateTo.Before(*c.DateFrom) {
		return nil, &scheduling.InvalidParameterError{Field: "date_to", Reason: "before date_from"}
	}
	if c.TimeFrom, err = optionalClock("time_from", r.TimeFrom); err != nil {
		return nil, err
	}
	if c.TimeTo, err = optionalClock("time_to", r.TimeTo); err != nil {
		return nil, err
	}
	if c.TimeFrom != nil && c.TimeTo != nil && *c.TimeTo <= *c.TimeFrom {
		return nil, &scheduling.InvalidParameterError{Field: "time_to", Reason: "must be after time_from"}
	}
	return c, nil
}

// List handles GET /v1/courses?status=&location=&q=.
func (h *CourseHandler) List(c echo.Context) error {
	f := repository.CourseFilter{Status: c.QueryParam("status"), Query: c.QueryParam("q")}
	if v := c.QueryParam("location"); v != "" {
		ids, err := parseIDList(v)
		if err != nil || len(ids) != 1 {
			return badRequest(c, "invalid location")
		}
		f.LocationID = ids[0]
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	list, err := h.Courses.List(ctx, f)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list, "count": len(list)})
}

func (h *CourseHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid course id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	course, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, course)
}

// Create handles POST /v1/courses (admin or instructor).
func (h *CourseHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	}
	var req courseReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	course, err := req.toModel()
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	course.CreatedBy = &uid

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Courses.Create(ctx, course); err != nil {
		return respondError(c, h.Logger, err)
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusCreated, course)
}

// authorize loads the course and lets instructors touch only the courses
// they created.  Admins may edit any course.
func (h *CourseHandler) authorize(ctx context.Context, c echo.Context, id uint64) error {
	existing, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role, _ := c.Get(middleware.ContextRole).(string); role == model.RoleAdmin {
		return nil
	}
	uid, err := getUserID(c)
	if err != nil || existing.CreatedBy == nil || *existing.CreatedBy != uid {
		return repository.ErrForbidden
	}
	return nil
}

// Update handles PUT /v1/courses/:id.
func (h *CourseHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid course id")
	}
	var req courseReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	course, err := req.toModel()
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	course.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.authorize(ctx, c, id); err != nil {
		return respondError(c, h.Logger, err)
	}
	if err := h.Courses.Update(ctx, course); err != nil {
		return respondError(c, h.Logger, err)
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusOK, course)
}

// Delete handles DELETE /v1/courses/:id.
func (h *CourseHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid course id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.authorize(ctx, c, id); err != nil {
		return respondError(c, h.Logger, err)
	}
	if err := h.Courses.Delete(ctx, id); err != nil {
		return respondError(c, h.Logger, err)
	}
	purge(ctx, h.Cache)
	return c.NoContent(http.StatusNoContent)
}

// Register handles POST /v1/courses/:id/register for the caller.
func (h *CourseHandler) Register(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid course id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	course, err := h.Registrar.Register(ctx, id, uid)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusCreated, echo.Map{"registered": true, "course": course})
}

// Mine handles GET /v1/my-courses.
func (h *CourseHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	list, err := h.Courses.ListByUser(ctx, uid)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list, "count": len(list)})
}
