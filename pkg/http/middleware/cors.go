package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds CORS configuration. An origin of "*" allows any origin.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int
}

func (cfg CORSConfig) allowed(origin string) (string, bool) {
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			return "*", true
		}
		if strings.EqualFold(o, origin) {
			return origin, true
		}
	}
	return "", false
}

// CORS returns CORS middleware. Requests without an Origin header, or from an origin
// that is not allowed, pass through without CORS headers.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req, res := c.Request(), c.Response()
			origin := req.Header.Get(echo.HeaderOrigin)
			res.Header().Add(echo.HeaderVary, echo.HeaderOrigin)
			if origin == "" {
				return next(c)
			}
			allowOrigin, ok := cfg.allowed(origin)
			if !ok {
				return next(c)
			}
			res.Header().Set(echo.HeaderAccessControlAllowOrigin, allowOrigin)

			preflight := req.Method == http.MethodOptions && req.Header.Get(echo.HeaderAccessControlRequestMethod) != ""
			if !preflight {
				return next(c)
			}

			if methods != "" {
				res.Header().Set(echo.HeaderAccessControlAllowMethods, methods)
			}
			if headers != "" {
				res.Header().Set(echo.HeaderAccessControlAllowHeaders, headers)
			}
			if cfg.MaxAge > 0 {
				res.Header().Set(echo.HeaderAccessControlMaxAge, strconv.Itoa(cfg.MaxAge))
			}
			return c.NoContent(http.StatusNoContent)
		}
	}
}
