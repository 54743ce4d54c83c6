package router // package router wires the HTTP API onto an Echo instance

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/achrefelouafi/evently-booking/internal/handler"
	"github.com/achrefelouafi/evently-booking/internal/middleware"
)

// Routes carries the handlers and per-route middleware of the API.  A nil
// middleware is skipped.
type Routes struct {
	Auth      *handler.AuthHandler
	Bookings  *handler.BookingHandler
	LoginRate echo.MiddlewareFunc // rate limit on login
	ListCache echo.MiddlewareFunc // response cache on the exhibitions listing
	Session   echo.MiddlewareFunc // session check on booking
}

// RegisterRoutes registers the API on e.  All routes are matched by path
// suffix, so the API can be mounted under any prefix.
func RegisterRoutes(e *echo.Echo, r Routes) *handler.Gateway {
	gw := handler.NewGateway()
	gw.Handle(http.MethodGet, "/exhibitions", r.Bookings.Exhibitions, present(r.ListCache)...)
	gw.Handle(http.MethodPost, "/login", r.Auth.Login, present(r.LoginRate)...)
	gw.Handle(http.MethodPost, "/booking", r.Bookings.Book, present(r.Session)...)
	gw.Handle(http.MethodGet, "/healthz", handler.Health)

	e.Any("/", gw.Dispatch)
	e.Any("/*", gw.Dispatch)
	return gw
}

// Configure installs the error handler and the middleware every response
// goes through.
func Configure(e *echo.Echo, allowedOrigins []string, allowHeaders string, mw ...echo.MiddlewareFunc) {
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Use(mw...)
	e.Use(middleware.CORS(allowedOrigins, allowHeaders))
}

func present(mw ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := mw[:0:0]
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
