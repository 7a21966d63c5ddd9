package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/vendfleet/server/internal/events"
	"github.com/vendfleet/server/usecase"
)

// Server holds the services behind the REST surface.
type Server struct {
	machines  *usecase.MachineService
	sales     *usecase.SaleService
	users     *usecase.UserService
	analytics *usecase.AnalyticsService
	hub       *events.Hub
	logger    *zap.Logger
}

// NewServer creates the API server. The hub may be nil when no live event
// stream is wanted (tests).
func NewServer(
	machines *usecase.MachineService,
	sales *usecase.SaleService,
	users *usecase.UserService,
	analytics *usecase.AnalyticsService,
	hub *events.Hub,
	logger *zap.Logger,
) *Server {
	return &Server{
		machines:  machines,
		sales:     sales,
		users:     users,
		analytics: analytics,
		hub:       hub,
		logger:    logger,
	}
}

// RegisterRoutes wires all API routes onto the echo instance.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "vendfleet-server",
		})
	})

	machine := e.Group("/api/machine")
	machine.POST("/createMachine", s.createMachine)
	machine.POST("/addMachineToUser", s.addMachineToUser)
	machine.GET("/getMachineContent/:id", s.getMachineContent)
	machine.POST("/addItemsToContent", s.addItemsToContent)
	machine.POST("/removeItemsFromContent", s.removeItemsFromContent)
	machine.POST("/setMachineContent", s.setMachineContent)
	machine.GET("/getUserMachines/:email", s.getUserMachines)
	machine.POST("/updateMachineStockMoney", s.updateMachineStockMoney)
	machine.GET("/getMachineRecommendations/:id", s.getMachineRecommendations)
	machine.GET("/getPerformanceMetrics/:id/:timeRange", s.getPerformanceMetrics)

	user := e.Group("/api/user")
	user.POST("/signup", s.signup)
	user.POST("/signin", s.signin)
	user.GET("/getNotifications/:email", s.getNotifications)

	if s.hub != nil {
		e.GET("/ws/fleet", s.hub.Serve)
	}
}
