package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/achrefelouafi/evently-booking/internal/middleware"
	"github.com/achrefelouafi/evently-booking/internal/model"
	"github.com/achrefelouafi/evently-booking/internal/service"
)

// Bookings lists and reserves stands.
type Bookings interface {
	ListStands(ctx context.Context) ([]model.Stand, error)
	Book(ctx context.Context, standName, clientName string) (service.Booking, error)
}

// BookingHandler serves the exhibitions listing and stand booking.
type BookingHandler struct {
	Bookings Bookings
	Errors   Errors
	// SessionRequired makes Book accept only the client named by the
	// session token SessionAuth put in the context.
	SessionRequired bool
}

type bookingReq struct {
	Name       string `json:"name"`
	ClientName string `json:"clientName"`
}

type bookingResp struct {
	Result     string `json:"result"`
	StandName  string `json:"standName"`
	ClientName string `json:"clientName"`
}

// Exhibitions returns every stand.
func (h *BookingHandler) Exhibitions(c echo.Context) error {
	stands, err := h.Bookings.ListStands(c.Request().Context())
	if err != nil {
		return h.Errors.write(c, err, listMessages)
	}
	return c.JSON(http.StatusOK, stands)
}

// Book reserves a stand for a client.
func (h *BookingHandler) Book(c echo.Context) error {
	var req bookingReq
	if err := bindJSON(c, &req); err != nil {
		return badBody(c)
	}
	if req.Name == "" || req.ClientName == "" {
		return h.Errors.write(c, service.ErrMissingInput, bookingMessages)
	}
	if h.SessionRequired {
		if name, _ := c.Get(middleware.ClientNameKey).(string); name != req.ClientName {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
		}
	}

	b, err := h.Bookings.Book(c.Request().Context(), req.Name, req.ClientName)
	if err != nil {
		return h.Errors.write(c, err, bookingMessages)
	}
	return c.JSON(http.StatusOK, bookingResp{Result: "Booking successful", StandName: b.StandName, ClientName: b.ClientName})
}

// bindJSON decodes the request body into v.  An empty body decodes to the
// zero value so the operation reports its own missing-input error.  The
// Content-Type header is not consulted.
func bindJSON(c echo.Context, v interface{}) error {
	err := json.NewDecoder(c.Request().Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
