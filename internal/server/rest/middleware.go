package rest

import (
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophhabits/internal/logging"
	"github.com/dmitrijs2005/gophhabits/internal/server/metrics"
	"github.com/labstack/echo/v4"
)

// observe logs every request and records its metrics. The request id is
// attached to the request context so service logs carry it too.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		rid := c.Response().Header().Get(echo.HeaderXRequestID)
		ctx := logging.ContextWithFields(req.Context(), "request_id", rid)
		c.SetRequest(req.WithContext(ctx))

		if err := next(c); err != nil {
			// resolve the final status before logging
			c.Error(err)
		}

		duration := time.Since(start)
		status := c.Response().Status

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(req.Method, route).Observe(duration.Seconds())

		s.logger.Info(ctx, "http_request",
			"method", req.Method,
			"uri", req.RequestURI,
			"status", status,
			"duration", duration,
		)

		return nil
	}
}
