package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Allower decides whether a request identified by key may proceed.
type Allower interface {
	Allow(key string) bool
}

// RateLimit rejects requests with 429 once the client's bucket is empty.
// Requests are keyed by client IP.
func RateLimit(a Allower) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if a == nil || a.Allow(c.RealIP()) {
				return next(c)
			}
			c.Response().Header().Set("Retry-After", "1")
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"status":  http.StatusTooManyRequests,
				"message": http.StatusText(http.StatusTooManyRequests),
				"data": []map[string]string{{
					"code":    "ERR_RATE_LIMITED",
					"message": "Too many submissions, please retry shortly",
				}},
			})
		}
	}
}
