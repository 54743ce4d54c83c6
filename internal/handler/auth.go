package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/achrefelouafi/evently-booking/internal/service"
	"github.com/achrefelouafi/evently-booking/internal/utils"
)

// Sessions validates client codes.
type Sessions interface {
	Login(ctx context.Context, clientCode string) (service.Session, error)
}

// AuthHandler serves the login endpoint.  When Secret is set a signed
// session token is returned alongside the identity.
type AuthHandler struct {
	Sessions Sessions
	Secret   string
	TTLMin   int
	Errors   Errors
	Log      *zap.Logger
}

type loginReq struct {
	ClientCode string `json:"clientCode"`
}

type loginResp struct {
	Result      string `json:"result"`
	ClientName  string `json:"clientName"`
	HasReserved bool   `json:"hasReserved"`
	Token       string `json:"token,omitempty"`
}

// Login: exchange a client code for the client's identity.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindJSON(c, &req); err != nil {
		return badBody(c)
	}

	s, err := h.Sessions.Login(c.Request().Context(), req.ClientCode)
	if err != nil {
		return h.Errors.write(c, err, loginMessages)
	}

	resp := loginResp{Result: "Logged in", ClientName: s.ClientName, HasReserved: s.HasReserved}
	if h.Secret != "" {
		tok, err := utils.NewSessionToken(h.Secret, s.ClientName, h.TTLMin)
		if err != nil {
			logger(h.Log).Error("issue session token", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": loginMessages.internal})
		}
		resp.Token = tok.Token
	}
	return c.JSON(http.StatusOK, resp)
}
