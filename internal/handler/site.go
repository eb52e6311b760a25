package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/site-reservation/internal/model"
	"github.com/iliyamo/site-reservation/internal/repository"
)

// SiteStore is implemented by repository.SiteRepo.
type SiteStore interface {
	List(ctx context.Context, f repository.SiteFilter) ([]model.Site, error)
	GetByID(ctx context.Context, id uint64) (*model.Site, error)
	Create(ctx context.Context, s *model.Site) error
	Update(ctx context.Context, s *model.Site) error
	Patch(ctx context.Context, id uint64, fields map[string]any) error
	Delete(ctx context.Context, id uint64) error
}

// Purger drops cached public listings after a write.
// *middleware.CachePurger implements it.
type Purger interface {
	Purge(ctx context.Context)
}

func purge(ctx context.Context, p Purger) {
	if p != nil {
		p.Purge(ctx)
	}
}

// SiteHandler serves /v1/sites.
type SiteHandler struct {
	Sites  SiteStore
	Cache  Purger
	Logger *zap.Logger
}

func NewSiteHandler(s SiteStore, cache Purger, logger *zap.Logger) *SiteHandler {
	return &SiteHandler{Sites: s, Cache: cache, Logger: logger}
}

const maxPageSize = 200

// List handles GET /v1/sites?type=&q=&limit=&offset=.
func (h *SiteHandler) List(c echo.Context) error {
	f := repository.SiteFilter{
		Type:  c.QueryParam("type"),
		Query: c.QueryParam("q"),
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 {
			return badRequest(c, "invalid limit")
		}
		f.Limit = min(n, maxPageSize)
	}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid offset")
		}
		f.Offset = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	sites, err := h.Sites.List(ctx, f)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": sites, "count": len(sites)})
}

// Get handles GET /v1/sites/:id.
func (h *SiteHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid site id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	s, err := h.Sites.GetByID(ctx, id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, s)
}

func validateSite(s *model.Site) string {
	s.SiteCode = strings.TrimSpace(s.SiteCode)
	s.Name = strings.TrimSpace(s.Name)
	switch {
	case s.SiteCode == "":
		return "site_code required"
	case s.Name == "":
		return "name required"
	}
	return ""
}

// Create handles POST /v1/sites (admin).
func (h *SiteHandler) Create(c echo.Context) error {
	var s model.Site
	if err := c.Bind(&s); err != nil {
		return badRequest(c, "invalid body")
	}
	if msg := validateSite(&s); msg != "" {
		return badRequest(c, msg)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Sites.Create(ctx, &s); err != nil {
		return respondError(c, h.Logger, err)
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusCreated, s)
}

// Update handles PUT /v1/sites/:id (admin).  Every editable field is
// replaced.
func (h *SiteHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid site id")
	}
	var s model.Site
	if err := c.Bind(&s); err != nil {
		return badRequest(c, "invalid body")
	}
	s.ID = id
	if msg := validateSite(&s); msg != "" {
		return badRequest(c, msg)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Sites.Update(ctx, &s); err != nil {
		return respondError(c, h.Logger, err)
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusOK, s)
}

// Patch handles PATCH /v1/sites/:id (admin) with a JSON object of the
// columns to change.
func (h *SiteHandler) Patch(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid site id")
	}
	fields := map[string]any{}
	if err := c.Bind(&fields); err != nil {
		return badRequest(c, "invalid body")
	}
	if len(fields) == 0 {
		return badRequest(c, "no fields to update")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Sites.Patch(ctx, id, fields); err != nil {
		return respondError(c, h.Logger, err)
	}
	purge(ctx, h.Cache)
	s, err := h.Sites.GetByID(ctx, id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Delete handles DELETE /v1/sites/:id (admin).  A site that still has
// locations answers 409.
func (h *SiteHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid site id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Sites.Delete(ctx, id); err != nil {
		return respondError(c, h.Logger, err)
	}
	purge(ctx, h.Cache)
	return c.NoContent(http.StatusNoContent)
}
