package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/vendfleet/server/adapters/llm"
	"github.com/vendfleet/server/adapters/mongo"
	"github.com/vendfleet/server/domain/repositories"
	"github.com/vendfleet/server/internal/api"
	"github.com/vendfleet/server/internal/auth"
	"github.com/vendfleet/server/internal/config"
	"github.com/vendfleet/server/internal/events"
	"github.com/vendfleet/server/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Server.AllowedOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	// Storage
	client, err := mongo.NewClient(cfg.Mongo.URI, cfg.Mongo.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}

	machineRepo, err := mongo.NewMachineRepository(client.Database)
	if err != nil {
		logger.Fatal("Failed to initialize machine repository", zap.Error(err))
	}
	userRepo, err := mongo.NewUserRepository(client.Database)
	if err != nil {
		logger.Fatal("Failed to initialize user repository", zap.Error(err))
	}

	// External completion service; without a key the recommendation
	// endpoints report unavailable instead of calling out.
	var model repositories.LanguageModel
	if cfg.Gemini.APIKey != "" {
		gemini, err := llm.NewGeminiLLM(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Gemini client", zap.Error(err))
		}
		model = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, recommendations disabled")
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("Failed to initialize token issuer", zap.Error(err))
	}

	// Live event stream for dashboards
	hub := events.NewHub(cfg.Server.AllowedOrigin, logger)
	go hub.Run()

	// Usecase services
	machineService := usecase.NewMachineService(machineRepo, userRepo, hub, logger)
	saleService := usecase.NewSaleService(machineRepo, userRepo, hub, logger)
	userService := usecase.NewUserService(userRepo, tokens, logger)
	analyticsService := usecase.NewAnalyticsService(machineRepo, model, logger)

	server := api.NewServer(machineService, saleService, userService, analyticsService, hub, logger)
	server.RegisterRoutes(e)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", cfg.Server.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	if err := client.Close(ctx); err != nil {
		logger.Error("Failed to close MongoDB connection", zap.Error(err))
	}

	logger.Info("Server exited")
}
