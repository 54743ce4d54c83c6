package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/achrefelouafi/evently-booking/internal/utils"
)

// ClientNameKey is the context key under which SessionAuth stores the
// authenticated client name.
const ClientNameKey = "client_name"

// SessionAuth validates a Bearer session token issued by login and stores
// its subject under ClientNameKey.  Requests without a valid token are
// answered with 401.
func SessionAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
			}
			name, err := utils.ParseSessionToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
			}
			c.Set(ClientNameKey, name)
			return next(c)
		}
	}
}
