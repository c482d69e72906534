package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/subcheck/backend/internal/config"
	"github.com/subcheck/backend/internal/core/ports"
	"github.com/subcheck/backend/internal/core/services"
	"github.com/subcheck/backend/internal/infrastructure/db"
	"github.com/subcheck/backend/internal/infrastructure/logger"
	"github.com/subcheck/backend/internal/transport/http/handlers"
	httpmw "github.com/subcheck/backend/internal/transport/http/middleware"
	"gorm.io/gorm"
)

type RouterConfig struct {
	DB     *gorm.DB
	Logger *logger.Logger
	Config *config.Config
}

// SetupRoutes wires repositories, services, and handlers, and returns the
// round and tasking services so the caller can register samplers and drive
// the lifecycle.
func SetupRoutes(app *fiber.App, cfg RouterConfig) (ports.RoundService, ports.TaskingService) {
	// Initialize repositories
	roundRepo := db.NewRoundRepository(cfg.DB, cfg.Logger)
	taskRepo := db.NewTaskRepository(cfg.DB, cfg.Logger)

	// Initialize services
	taskingService := services.NewTaskingService(services.TaskingServiceConfig{
		TaskRepo:          taskRepo,
		Logger:            cfg.Logger,
		MaxTasksPerSubnet: cfg.Config.Checker.MaxTasksPerSubnet,
		MaxTasksPerNode:   cfg.Config.Checker.MaxTasksPerNode,
	})

	roundService := services.NewRoundService(services.RoundServiceConfig{
		RoundRepo:       roundRepo,
		Tasking:         taskingService,
		Logger:          cfg.Logger,
		RoundDuration:   cfg.Config.Checker.RoundDuration,
		CheckInterval:   cfg.Config.Checker.CheckInterval,
		Retention:       cfg.Config.Checker.Retention,
		MaxTasksPerNode: cfg.Config.Checker.MaxTasksPerNode,
	})

	// Initialize handlers
	roundHandler := handlers.NewRoundHandler(roundRepo, taskRepo, cfg.Logger)
	adminHandler := handlers.NewAdminHandler(roundService, taskRepo, cfg.Logger)
	feedHandler := handlers.NewRoundFeedHandler(roundService, cfg.Logger)

	// Read API
	rounds := app.Group("/rounds")
	rounds.Get("/current", roundHandler.GetCurrentRound)
	rounds.Get("/:id", roundHandler.GetRound)

	// Admin API
	admin := app.Group("/api/v1/admin", httpmw.AdminAuth(cfg.Config))
	admin.Post("/rounds/transition", adminHandler.ForceTransition)

	// Live round feed
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws/rounds", websocket.New(feedHandler.Handle))

	return roundService, taskingService
}
