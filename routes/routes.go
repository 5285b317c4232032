package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"

	controller "teamtask/controllers"
	"teamtask/middleware"
	syncengine "teamtask/sync"
)

func SetupAuthRoutes(app *fiber.App) {
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Auth routes group with logging middleware
	auth := app.Group("/api/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/join-team", controller.JoinTeam)
	protectedAuth.Get("/me", controller.GetCurrentUser)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupDataRoutes(app *fiber.App, gateway *syncengine.Gateway, hub *syncengine.Hub) {
	dataController := controller.NewDataController(gateway, log.New(os.Stdout, "DATA: ", log.LstdFlags))
	syncController := controller.NewSyncWSController(hub, gateway, log.New(os.Stdout, "SYNC: ", log.LstdFlags))

	// Data API group with protection and request logging
	data := app.Group("/api/data", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// /all must register before the :dataType wildcard
	data.Get("/all", dataController.GetAllData)
	data.Get("/:dataType", dataController.GetData)
	data.Post("/:dataType", middleware.DataWriteLimiter(), dataController.SaveData)

	// Realtime channel endpoint
	app.Get("/api/sync", middleware.Protected(), websocket.New(func(c *websocket.Conn) {
		syncController.HandleConnection(c)
	}))

	log.Println("Data routes initialized successfully")
}

func SetupRoutes(app *fiber.App, gateway *syncengine.Gateway, hub *syncengine.Hub) {
	// Setup health check endpoint
	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "message": "Server is running"})
	})

	// Setup auth routes
	SetupAuthRoutes(app)

	// Setup data and realtime routes
	SetupDataRoutes(app, gateway, hub)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
