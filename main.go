package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"teamtask/config"
	"teamtask/middleware"
	"teamtask/routes"
	syncengine "teamtask/sync"
	"teamtask/worker"
)

func main() {
	// Load configuration
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize error reporting when a DSN is configured
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			log.Printf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Structured logger for the sync engine
	syncLog := logrus.New()
	syncLog.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if config.AppConfig.Environment == "development" {
		syncLog.SetLevel(logrus.DebugLevel)
	}

	// Sync engine: hub owns the team rooms, the gateway persists and fans out
	hub := syncengine.NewHub(syncLog)
	gateway := syncengine.NewGateway(syncengine.NewGormStore(config.DB), hub, syncLog)

	// Backfill document rows for teams that predate the data table
	backfillWorker := worker.NewBackfillWorker(config.DB, log.New(os.Stdout, "BACKFILL: ", log.LstdFlags))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go backfillWorker.Start(ctx)

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(app, gateway, hub)

	// Start server
	log.Printf("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
