package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/site-reservation/internal/middleware"
	"github.com/iliyamo/site-reservation/internal/repository"
	"github.com/iliyamo/site-reservation/internal/scheduling"
)

const dateLayout = "2006-01-02"

// requestTimeout bounds every database round trip a handler makes.
const requestTimeout = 5 * time.Second

// getUserID extracts the user_id set by JWTAuth and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.ContextUserID).(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// parseIDList parses "1,2,3".  Blank entries are skipped.
func parseIDList(s string) ([]uint64, error) {
	var out []uint64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseUint(p, 10, 64)
		if err != nil || id == 0 {
			return nil, &scheduling.InvalidParameterError{Field: "locations", Reason: "want comma separated ids"}
		}
		out = append(out, id)
	}
	return out, nil
}

// parseDay reads YYYY-MM-DD as a UTC calendar day.  An empty string is
// today.
func parseDay(s string, now func() time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		t := now().UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, &scheduling.InvalidParameterError{Field: "date", Reason: "want YYYY-MM-DD"}
	}
	return d, nil
}

var wallClockLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}

// parseWallClock accepts RFC 3339 or a zone-less timestamp and keeps only
// its wall-clock reading.  Times are site-local; the reading is carried
// in UTC so comparisons against the operating window and stored rows are
// plain.
func parseWallClock(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range wallClockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, &scheduling.InvalidParameterError{Field: field, Reason: "want YYYY-MM-DDTHH:MM"}
}

// errorResponse is the body of every non-2xx JSON reply.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// respondError maps domain errors to status codes.  Anything it does not
// recognise is logged and reported as 500 without internals.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	var (
		ip *scheduling.InvalidParameterError
		oh *scheduling.OutOfHoursError
		ov *scheduling.OverlapError
		no *scheduling.NotOwnerError
		nf *scheduling.NotFoundError
	)
	switch {
	case errors.As(err, &ip):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_parameter", Message: ip.Error()})
	case errors.As(err, &oh):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{
			Error:   "out_of_hours",
			Message: oh.Error(),
			Details: echo.Map{"open": oh.Window.Open.String(), "close": oh.Window.Close.String()},
		})
	case errors.As(err, &ov):
		return c.JSON(http.StatusConflict, errorResponse{
			Error:   "overlap",
			Message: ov.Error(),
			Details: echo.Map{"location_id": ov.LocationID, "conflict": ov.Conflict},
		})
	case errors.As(err, &no):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "not_owner", Message: no.Error()})
	case errors.As(err, &nf):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "not_found", Message: nf.Error()})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "not_found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, repository.ErrAlreadyRegistered):
		return c.JSON(http.StatusConflict, errorResponse{Error: "already_registered", Message: err.Error()})
	case errors.Is(err, repository.ErrCourseFull):
		return c.JSON(http.StatusConflict, errorResponse{Error: "course_full", Message: err.Error()})
	case errors.Is(err, repository.ErrCourseClosed):
		return c.JSON(http.StatusConflict, errorResponse{Error: "course_closed", Message: err.Error()})
	case errors.Is(err, repository.ErrUnknownField):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_parameter", Message: err.Error()})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, errorResponse{Error: "conflict"})
	}
	logger.Error("request failed",
		zap.String("route", c.Path()),
		zap.Any("request_id", c.Get(middleware.ContextRequestID)),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal", Message: "internal server error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_parameter", Message: msg})
}
