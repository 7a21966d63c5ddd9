package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vendfleet/server/domain/entities"
	"github.com/vendfleet/server/usecase"
)

func (s *Server) createMachine(c echo.Context) error {
	var req CreateMachineRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	machine, created, err := s.machines.Register(c.Request().Context(), req.ID, req.Location, req.Keys)
	if err != nil {
		return s.respondError(c, err)
	}
	if !created {
		return c.JSON(http.StatusOK, MessageResponse{
			Message: "The machine already exists! We've updated the location!",
		})
	}
	return c.JSON(http.StatusOK, machine)
}

func (s *Server) addMachineToUser(c echo.Context) error {
	var req AttachMachineRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	if err := s.machines.AttachToUser(c.Request().Context(), req.Email, req.ID); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Machine added to user!"})
}

func (s *Server) getMachineContent(c echo.Context) error {
	machine, err := s.machines.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, machine)
}

func (s *Server) addItemsToContent(c echo.Context) error {
	var req AddItemsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	machine, err := s.machines.AddStock(c.Request().Context(), req.ID, req.Key, req.Amount)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, machine)
}

// removeItemsFromContent is the sale-recording endpoint: it sells exactly one
// unit from the given slot and returns the receipt.
func (s *Server) removeItemsFromContent(c echo.Context) error {
	var req RemoveItemsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	receipt, err := s.sales.RecordSale(c.Request().Context(), req.ID, req.Key)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, receipt)
}

func (s *Server) setMachineContent(c echo.Context) error {
	var req SetContentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	patch := entities.SlotPatch{
		Name:          req.Name,
		ExpiryDate:    req.ExpiryDate,
		OriginalPrice: req.OriginalPrice,
		RetailPrice:   req.RetailPrice,
		Amount:        req.Amount,
	}
	machine, err := s.machines.SetSlot(c.Request().Context(), req.ID, req.Key, patch)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, machine)
}

func (s *Server) getUserMachines(c echo.Context) error {
	machines, err := s.machines.MachinesByUser(c.Request().Context(), c.Param("email"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, machines)
}

func (s *Server) updateMachineStockMoney(c echo.Context) error {
	var req MarkCashFullRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	if err := s.machines.MarkCashFull(c.Request().Context(), req.ID); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Machine cash flagged for collection!"})
}

func (s *Server) getMachineRecommendations(c echo.Context) error {
	recommendations, err := s.analytics.Recommendations(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrMalformedReply) && recommendations != nil {
			return c.JSON(http.StatusBadGateway, ErrorResponse{
				Error: err.Error(),
				Raw:   recommendations.Raw,
			})
		}
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, recommendations)
}

func (s *Server) getPerformanceMetrics(c echo.Context) error {
	metrics, err := s.analytics.PerformanceMetrics(c.Request().Context(), c.Param("id"), c.Param("timeRange"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, metrics)
}
