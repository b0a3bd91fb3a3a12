package middleware

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/reshamsu/dlink-colombo/internal/logging"
)

// TraceHeader carries the request trace id in and out.
const TraceHeader = "X-Trace-ID"

// RequestLogger tags each request with a trace id (taken from the incoming
// header or generated), stores a logger carrying it in the request context
// and logs the start and end of the request.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			traceID := req.Header.Get(TraceHeader)
			if traceID == "" {
				traceID = uuid.New().String()
			}
			c.Response().Header().Set(TraceHeader, traceID)

			reqLog := base.With("trace_id", traceID)
			c.SetRequest(req.WithContext(logging.WithLogger(req.Context(), reqLog)))

			httpLog := reqLog.With("http_method", req.Method, "http_path", req.URL.Path, "remote_addr", c.RealIP())
			httpLog.Debug("request started")
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}
			httpLog.Info("request finished",
				"status_code", c.Response().Status,
				"bytes_written", c.Response().Size,
				"duration_ms", time.Since(start).Milliseconds())
			return nil
		}
	}
}
