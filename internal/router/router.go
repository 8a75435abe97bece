package router

import (
	"datatable-web/internal/config"
	"datatable-web/internal/handler"
	"datatable-web/internal/middleware"
	"datatable-web/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Dependencies groups what the routes are built from. DB, Redis and Queue
// are optional.
type Dependencies struct {
	Config *config.Config
	Tables *config.TableRegistry
	Labels utils.Labeler
	DB     *sqlx.DB
	Redis  *redis.Client
	Queue  *asynq.Client
}

func Setup(app *fiber.App, deps Dependencies) {
	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"app":    deps.Config.AppName,
			"tables": len(deps.Tables.Names()),
		})
	})

	tableHandler, exportHandler := newHandlers(deps)

	// Web routes (HTML)
	web := app.Group("")
	setupWebRoutes(web, deps.Tables, tableHandler)

	// API routes (JSON)
	api := app.Group("/api/v1")
	SetupAPIRoutes(api, deps.Tables, tableHandler, exportHandler)
}

func setupWebRoutes(router fiber.Router, tables *config.TableRegistry, tableHandler *handler.TableHandler) {
	router.Get("/", tableHandler.Index)
	router.Get("/tables/:name", middleware.TableLookup(tables), tableHandler.Page)
}
