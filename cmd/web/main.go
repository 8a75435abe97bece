package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"datatable-web/internal/config"
	"datatable-web/internal/database"
	"datatable-web/internal/router"
	"datatable-web/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		utils.GetLogger().Fatalf("Failed to load configuration: %v", err)
	}
	log := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)

	// Load table definitions and labels
	tables, err := config.LoadTables(cfg.TablesPath)
	if err != nil {
		log.Fatalf("Failed to load tables: %v", err)
	}
	for _, warning := range tables.Warnings {
		log.Warn(warning)
	}

	labels, err := utils.LoadLabels(cfg.LabelsPath)
	if err != nil {
		log.Fatalf("Failed to load labels: %v", err)
	}

	deps := router.Dependencies{
		Config: cfg,
		Tables: tables,
		Labels: labels,
	}

	// Initialize database (optional - only sql data sources need it)
	if cfg.HasDatabase() {
		db, err := database.NewMySQL(cfg)
		if err != nil {
			log.Warnf("Failed to connect to database: %v", err)
			log.Warn("Application will continue without database (sql data sources disabled)")
		} else {
			defer db.Close()
			deps.DB = db
		}
	}

	// Initialize Redis (optional - for background exports)
	redisClient, err := database.NewRedis(cfg)
	if err != nil {
		log.Warnf("Failed to connect to Redis: %v", err)
		log.Warn("Application will continue without Redis (background exports disabled)")
	} else {
		defer redisClient.Close()
		deps.Redis = redisClient

		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.AsynqRedisAddr,
			Password: cfg.AsynqRedisPassword,
			DB:       cfg.AsynqRedisDB,
		})
		defer asynqClient.Close()
		deps.Queue = asynqClient
	}

	// Initialize template engine
	engine := html.New("./views", ".html")
	engine.Reload(cfg.AppEnv == "development")

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		Views:        engine,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept",
		AllowMethods:  "GET, POST, OPTIONS",
		ExposeHeaders: "Content-Disposition",
	}))

	// Setup routes
	router.Setup(app, deps)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := fmt.Sprintf(":%s", cfg.AppPort)
	log.Infof("Server starting on %s with %d tables", port, len(tables.Names()))
	if err := app.Listen(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Info("Server exited")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Check if request expects JSON
	if c.Accepts("text/html", "application/json") == "application/json" {
		return c.Status(code).JSON(utils.Response{
			Success: false,
			Message: message,
			Error:   err.Error(),
		})
	}

	// Return HTML error page
	return c.Status(code).Render("error", fiber.Map{
		"Code":    code,
		"Message": message,
	})
}
