package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/site-reservation/internal/config"
	"github.com/iliyamo/site-reservation/internal/model"
	"github.com/iliyamo/site-reservation/internal/scheduling"
	"github.com/iliyamo/site-reservation/internal/service"
)

// AvailabilityQuerier is implemented by service.AvailabilityService.
type AvailabilityQuerier interface {
	Concurrent(ctx context.Context, req service.ConcurrentRequest) ([]scheduling.Slot, error)
	Sequential(ctx context.Context, req service.SequentialRequest) ([]scheduling.Slot, error)
	Schedule() config.ScheduleConfig
}

// ReservationLister is implemented by repository.ReservationRepo.
type ReservationLister interface {
	ListByLocationOnDate(ctx context.Context, locationID uint64, day time.Time) ([]model.Reservation, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.ReservationDetail, error)
}

// AvailabilityHandler serves the public availability, calendar and
// booked-interval endpoints.
type AvailabilityHandler struct {
	Avail        AvailabilityQuerier
	Reservations ReservationLister
	Logger       *zap.Logger
	Now          func() time.Time
}

func NewAvailabilityHandler(a AvailabilityQuerier, r ReservationLister, logger *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{Avail: a, Reservations: r, Logger: logger, Now: time.Now}
}

type availabilityResp struct {
	Date            string            `json:"date"`
	Window          string            `json:"window"`
	DurationMinutes int               `json:"duration_minutes,omitempty"`
	Slots           []scheduling.Slot `json:"slots"`
}

// durationParam reads ?duration= in minutes, falling back to the
// configured default when absent.
func (h *AvailabilityHandler) durationParam(c echo.Context) (int, error) {
	raw := strings.TrimSpace(c.QueryParam("duration"))
	if raw == "" {
		return h.Avail.Schedule().DefaultDurationMinutes, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &scheduling.InvalidParameterError{Field: "duration", Reason: "want minutes"}
	}
	return n, nil
}

// Concurrent handles GET /v1/availability?locations=1,2&date=&duration=.
// Slots are intervals in which every listed location is free.
func (h *AvailabilityHandler) Concurrent(c echo.Context) error {
	ids, err := parseIDList(c.QueryParam("locations"))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	day, err := parseDay(c.QueryParam("date"), h.Now)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	minutes, err := h.durationParam(c)
	if err != nil {
		return respondError(c, h.Logger, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	slots, err := h.Avail.Concurrent(ctx, service.ConcurrentRequest{LocationIDs: ids, Day: day, DurationMinutes: minutes})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, availabilityResp{
		Date:            day.Format(dateLayout),
		Window:          h.Avail.Schedule().OperatingWindow.String(),
		DurationMinutes: minutes,
		Slots:           slots,
	})
}

const minutesPerDay = 24 * 60

// parseChain reads "locationID:minutes,..." in booking order.
func parseChain(s string) ([]scheduling.ChainStep, error) {
	var out []scheduling.ChainStep
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idStr, minStr, ok := strings.Cut(part, ":")
		id, err1 := strconv.ParseUint(strings.TrimSpace(idStr), 10, 64)
		minutes, err2 := strconv.Atoi(strings.TrimSpace(minStr))
		if !ok || err1 != nil || err2 != nil {
			return nil, &scheduling.InvalidParameterError{Field: "chain", Reason: "want location:minutes,..."}
		}
		// A step longer than a day never fits; zero marks it invalid
		// without overflowing the conversion below.
		if minutes < 0 || minutes > minutesPerDay {
			minutes = 0
		}
		out = append(out, scheduling.ChainStep{LocationID: id, Duration: time.Duration(minutes) * time.Minute})
	}
	return out, nil
}

// Sequential handles GET /v1/availability/sequential?chain=1:30,2:45&date=.
func (h *AvailabilityHandler) Sequential(c echo.Context) error {
	chain, err := parseChain(c.QueryParam("chain"))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	day, err := parseDay(c.QueryParam("date"), h.Now)
	if err != nil {
		return respondError(c, h.Logger, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	slots, err := h.Avail.Sequential(ctx, service.SequentialRequest{Chain: chain, Day: day})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, availabilityResp{
		Date:   day.Format(dateLayout),
		Window: h.Avail.Schedule().OperatingWindow.String(),
		Slots:  slots,
	})
}

type calendarResp struct {
	Date        string            `json:"date"`
	View        scheduling.View   `json:"view"`
	DateChanged bool              `json:"date_changed"`
	From        string            `json:"from"`
	To          string            `json:"to"`
	Slots       []scheduling.Slot `json:"slots,omitempty"`
}

// Calendar handles GET /v1/calendar.  It rebuilds the date cursor from
// ?date and ?view, applies ?action (PREVIOUS, NEXT, TODAY, SET_DATE or
// SET_VIEW with ?target holding the new date or view) and, when the date
// moved or no action was given, recomputes availability for ?locations.
func (h *AvailabilityHandler) Calendar(c echo.Context) error {
	view, err := scheduling.ParseView(c.QueryParam("view"))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	opts := []scheduling.NavigatorOption{scheduling.WithClock(func() time.Time { return h.Now().UTC() })}
	if raw := c.QueryParam("date"); raw != "" {
		day, err := parseDay(raw, h.Now)
		if err != nil {
			return respondError(c, h.Logger, err)
		}
		opts = append(opts, scheduling.WithDate(day))
	}
	nav := scheduling.NewNavigator(view, opts...)

	change := scheduling.Change{Date: nav.Date(), View: nav.View()}
	if raw := c.QueryParam("action"); raw != "" {
		kind, err := scheduling.ParseActionKind(raw)
		if err != nil {
			return respondError(c, h.Logger, err)
		}
		action := scheduling.Action{Kind: kind}
		switch kind {
		case scheduling.ActionSetDate:
			target := c.QueryParam("target")
			if target == "" {
				return respondError(c, h.Logger, &scheduling.InvalidParameterError{Field: "target", Reason: "SET_DATE needs YYYY-MM-DD"})
			}
			if action.Date, err = parseDay(target, h.Now); err != nil {
				return respondError(c, h.Logger, err)
			}
		case scheduling.ActionSetView:
			action.View = scheduling.View(c.QueryParam("target"))
		}
		if change, err = nav.Dispatch(action); err != nil {
			return respondError(c, h.Logger, err)
		}
	}

	from, to := nav.Range()
	resp := calendarResp{
		Date:        change.Date.Format(dateLayout),
		View:        change.View,
		DateChanged: change.DateChanged,
		From:        from.Format(dateLayout),
		To:          to.Format(dateLayout),
	}

	ids, err := parseIDList(c.QueryParam("locations"))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	if len(ids) > 0 && (change.DateChanged || c.QueryParam("action") == "") {
		minutes, err := h.durationParam(c)
		if err != nil {
			return respondError(c, h.Logger, err)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
		defer cancel()
		if resp.Slots, err = h.Avail.Concurrent(ctx, service.ConcurrentRequest{LocationIDs: ids, Day: change.Date, DurationMinutes: minutes}); err != nil {
			return respondError(c, h.Logger, err)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

type bookedInterval struct {
	ID    uint64    `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LocationReservations handles GET /v1/locations/:id/reservations?date=.
// Only the intervals are public; who booked them is not.
func (h *AvailabilityHandler) LocationReservations(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid location id")
	}
	day, err := parseDay(c.QueryParam("date"), h.Now)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	list, err := h.Reservations.ListByLocationOnDate(ctx, id, day)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	out := make([]bookedInterval, len(list))
	for i, r := range list {
		out[i] = bookedInterval{ID: r.ID, Start: r.StartsAt, End: r.EndsAt}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"location_id":  id,
		"date":         day.Format(dateLayout),
		"reservations": out,
	})
}
