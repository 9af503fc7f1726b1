package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestObserver receives one observation per request.
type RequestObserver interface {
	ObserveRequest(method, route, status string, d time.Duration)
}

// Metrics reports each request under its route template (c.Path()) so that
// ids in the URL do not create new series. Unmatched routes are reported as
// "unmatched".
func Metrics(obs RequestObserver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status, _ = statusAndMessage(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			obs.ObserveRequest(c.Request().Method, route, strconv.Itoa(status), time.Since(start))
			return err
		}
	}
}
