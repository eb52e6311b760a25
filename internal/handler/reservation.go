package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/site-reservation/internal/model"
	"github.com/iliyamo/site-reservation/internal/scheduling"
	"github.com/iliyamo/site-reservation/internal/service"
)

// ReservationWriter is implemented by service.ReservationService.
type ReservationWriter interface {
	Create(ctx context.Context, in service.CreateReservationInput) (*model.Reservation, error)
	Delete(ctx context.Context, locationID, reservationID, actor uint64) error
}

// ReservationHandler serves the authenticated booking endpoints.
type ReservationHandler struct {
	Writer       ReservationWriter
	Reservations ReservationLister
	Logger       *zap.Logger
}

func NewReservationHandler(w ReservationWriter, r ReservationLister, logger *zap.Logger) *ReservationHandler {
	return &ReservationHandler{Writer: w, Reservations: r, Logger: logger}
}

type createReservationReq struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Create handles POST /v1/locations/:id/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	}
	locationID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid location id")
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	start, err := parseWallClock("start", req.Start)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	end, err := parseWallClock("end", req.End)
	if err != nil {
		return respondError(c, h.Logger, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	res, err := h.Writer.Create(ctx, service.CreateReservationInput{
		LocationID: locationID,
		Interval:   scheduling.Interval{Start: start, End: end},
		Actor:      uid,
	})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Delete handles DELETE /v1/locations/:id/reservations/:rid.  Only the
// user who booked may delete.
func (h *ReservationHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	}
	locationID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid location id")
	}
	reservationID, ok := parseID(c, "rid")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Writer.Delete(ctx, locationID, reservationID, uid); err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Mine handles GET /v1/my-reservations.
func (h *ReservationHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	list, err := h.Reservations.ListByUser(ctx, uid)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list, "count": len(list)})
}
