package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HeaderRequestID carries the per-request correlation ID.
const HeaderRequestID = "X-Request-ID"

// ContextRequestID is the echo.Context key holding the same ID.
const ContextRequestID = "request_id"

// RequestLogger assigns a request ID (keeping one supplied by the client)
// and logs one line per request once the handler returns.  5xx responses
// are logged at error level, 4xx at warn.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(HeaderRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(HeaderRequestID, rid)
			c.Set(ContextRequestID, rid)

			start := time.Now()
			err := next(c)
			if err != nil {
				// Let Echo's error handler write the response so the status
				// below is the one the client sees.
				c.Error(err)
			}
			status := c.Response().Status

			fields := []zap.Field{
				zap.String("request_id", rid),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("route", c.Path()),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
				zap.String("actor", actorKey(c)),
			}
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("request", append(fields, zap.Error(err))...)
			case status >= http.StatusBadRequest:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
			return nil
		}
	}
}
