// Package handler exposes the HTTP API.  Every request is served by one
// wildcard route and dispatched on method and path suffix, so the API works
// unchanged behind any mount prefix (for example a serverless function
// path such as /.netlify/functions/api).
package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type route struct {
	method string
	suffix string
	h      echo.HandlerFunc
}

// Gateway is a dispatch table keyed by method and path suffix.  Routes are
// tried in registration order.
type Gateway struct {
	routes []route
}

func NewGateway() *Gateway { return &Gateway{} }

// Handle registers h for requests whose method is method and whose path
// ends with suffix.  mw wrap h in the order given, outermost first.
func (g *Gateway) Handle(method, suffix string, h echo.HandlerFunc, mw ...echo.MiddlewareFunc) {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	g.routes = append(g.routes, route{method: method, suffix: suffix, h: h})
}

// Dispatch serves c.  OPTIONS on any path is a CORS preflight and gets an
// empty object.  Unmatched requests get 404.
func (g *Gateway) Dispatch(c echo.Context) error {
	r := c.Request()
	if r.Method == http.MethodOptions {
		return c.JSON(http.StatusOK, echo.Map{})
	}
	path := r.URL.Path
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	for _, rt := range g.routes {
		if rt.method == r.Method && strings.HasSuffix(path, rt.suffix) {
			return rt.h(c)
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"error": "Not Found"})
}
