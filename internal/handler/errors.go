package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/achrefelouafi/evently-booking/internal/service"
)

const genericError = "An error occurred"

// errorMessages holds the client-facing messages of one operation.
type errorMessages struct {
	missing  string // ErrMissingInput
	internal string // store failures
}

var (
	loginMessages   = errorMessages{missing: "clientCode is required", internal: "Error during login"}
	bookingMessages = errorMessages{missing: "name and clientName are required", internal: "Error during booking"}
	listMessages    = errorMessages{internal: genericError}
)

// Errors maps service errors to HTTP responses.
type Errors struct {
	ConflictStatus int // 400 or 409
}

func (e Errors) status(err error) int {
	switch service.KindOf(err) {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		if e.ConflictStatus == http.StatusConflict {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case service.KindAuth:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func message(err error, msgs errorMessages) string {
	switch {
	case errors.Is(err, service.ErrMissingInput):
		return msgs.missing
	case errors.Is(err, service.ErrInvalidCode):
		return "Invalid code"
	case errors.Is(err, service.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, service.ErrStandNotFound):
		return "Stand not found"
	case errors.Is(err, service.ErrAlreadyReserved):
		return "User has already booked a stand"
	case errors.Is(err, service.ErrStandTaken):
		return "Stand is already reserved"
	case errors.Is(err, service.ErrStoreUnavailable):
		return msgs.internal
	}
	return genericError
}

func (e Errors) write(c echo.Context, err error, msgs errorMessages) error {
	return c.JSON(e.status(err), echo.Map{"error": message(err, msgs)})
}

// HTTPErrorHandler answers errors that escape a handler.  Echo's own
// errors keep their status; anything else becomes a generic 500.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := genericError
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		status = he.Code
		msg = http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, echo.Map{"error": msg})
}
