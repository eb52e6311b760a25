package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/site-reservation/internal/model"
)

// LocationStore is implemented by repository.LocationRepo.
type LocationStore interface {
	ListBySite(ctx context.Context, siteID uint64) ([]model.Location, error)
	GetByID(ctx context.Context, id uint64) (*model.Location, error)
	Create(ctx context.Context, l *model.Location) error
	Update(ctx context.Context, l *model.Location) error
	Delete(ctx context.Context, id uint64) error
}

type LocationHandler struct {
	Locations LocationStore
	Sites     SiteStore
	Cache     Purger
	Logger    *zap.Logger
}

func NewLocationHandler(l LocationStore, s SiteStore, cache Purger, logger *zap.Logger) *LocationHandler {
	return &LocationHandler{Locations: l, Sites: s, Cache: cache, Logger: logger}
}

// ListBySite handles GET /v1/sites/:id/locations.  An unknown site is 404
// rather than an empty list.
func (h *LocationHandler) ListBySite(c echo.Context) error {
	siteID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid site id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if _, err := h.Sites.GetByID(ctx, siteID); err != nil {
		return respondError(c, h.Logger, err)
	}
	list, err := h.Locations.ListBySite(ctx, siteID)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"site_id": siteID, "items": list, "count": len(list)})
}

func (h *LocationHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid location id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	l, err := h.Locations.GetByID(ctx, id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, l)
}

// Create handles POST /v1/sites/:id/locations (admin).
func (h *LocationHandler) Create(c echo.Context) error {
	siteID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid site id")
	}
	var l model.Location
	if err := c.Bind(&l); err != nil {
		return badRequest(c, "invalid body")
	}
	l.SiteID = siteID
	if l.Name = strings.TrimSpace(l.Name); l.Name == "" {
		return badRequest(c, "name required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Locations.Create(ctx, &l); err != nil {
		return respondError(c, h.Logger, err)
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusCreated, l)
}

// Update handles PUT /v1/locations/:id (admin).  The owning site cannot
// change.
func (h *LocationHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid location id")
	}
	var l model.Location
	if err := c.Bind(&l); err != nil {
		return badRequest(c, "invalid body")
	}
	l.ID = id
	if l.Name = strings.TrimSpace(l.Name); l.Name == "" {
		return badRequest(c, "name required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Locations.Update(ctx, &l); err != nil {
		return respondError(c, h.Logger, err)
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusOK, l)
}

// Delete handles DELETE /v1/locations/:id (admin); 409 while reservations
// remain.
func (h *LocationHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid location id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Locations.Delete(ctx, id); err != nil {
		return respondError(c, h.Logger, err)
	}
	purge(ctx, h.Cache)
	return c.NoContent(http.StatusNoContent)
}
