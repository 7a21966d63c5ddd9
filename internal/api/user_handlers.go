package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) signup(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	credentials, err := s.users.SignUp(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, credentials)
}

func (s *Server) signin(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	credentials, err := s.users.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, credentials)
}

func (s *Server) getNotifications(c echo.Context) error {
	notifications, err := s.users.Notifications(c.Request().Context(), c.Param("email"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": notifications,
	})
}
