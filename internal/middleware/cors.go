package middleware

import (
	"github.com/labstack/echo/v4"
)

// CORS sets the CORS headers on every response. An allow-listed Origin is
// echoed back; any other caller gets "null". Preflight requests are left to
// the handler.
func CORS(allowed []string, allowHeaders string) echo.MiddlewareFunc {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if set[origin] {
				h.Set(echo.HeaderAccessControlAllowOrigin, origin)
			} else {
				h.Set(echo.HeaderAccessControlAllowOrigin, "null")
			}
			h.Add(echo.HeaderVary, echo.HeaderOrigin)
			h.Set(echo.HeaderAccessControlAllowMethods, "GET, POST, OPTIONS")
			h.Set(echo.HeaderAccessControlAllowHeaders, allowHeaders)
			return next(c)
		}
	}
}
