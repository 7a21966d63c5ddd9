package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/vendfleet/server/domain/entities"
	"github.com/vendfleet/server/usecase"
)

// respondError maps domain errors onto HTTP statuses. Unknown errors become a
// generic 500 so internal storage details never reach the client; the full
// error goes to the log.
func (s *Server) respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, entities.ErrValidation),
		errors.Is(err, usecase.ErrBadTimeRange):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, entities.ErrMachineNotFound),
		errors.Is(err, entities.ErrSlotNotFound),
		errors.Is(err, entities.ErrUserNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, entities.ErrOutOfStock),
		errors.Is(err, entities.ErrMachineAttached),
		errors.Is(err, entities.ErrEmailTaken),
		errors.Is(err, entities.ErrMachineExists),
		errors.Is(err, entities.ErrRevisionConflict):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, entities.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, usecase.ErrModelUnavailable):
		status, message = http.StatusServiceUnavailable, err.Error()
	default:
		s.logger.Error("Request failed",
			zap.String("path", c.Path()),
			zap.Error(err))
	}

	return c.JSON(status, ErrorResponse{Error: message})
}
