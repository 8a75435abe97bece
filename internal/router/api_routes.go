package router

import (
	"datatable-web/internal/config"
	"datatable-web/internal/handler"
	"datatable-web/internal/middleware"
	"datatable-web/internal/repository"
	"datatable-web/internal/service"
	"datatable-web/internal/utils"

	"github.com/gofiber/fiber/v2"
)

func newHandlers(deps Dependencies) (*handler.TableHandler, *handler.ExportHandler) {
	logger := utils.GetLogger()

	// Initialize services
	adapterOpts := []service.AdapterOption{service.WithFetchTimeout(deps.Config.FetchTimeout)}
	if deps.DB != nil {
		adapterOpts = append(adapterOpts, service.WithRowQuerier(repository.NewTableRepository(deps.DB)))
	}
	adapter := service.NewDataSourceAdapter(logger, adapterOpts...)
	exporter := service.NewExportService(deps.Labels, logger, nil)

	// Background exports need both the job store and the queue
	var jobs handler.ExportJobStore
	var queue handler.TaskEnqueuer
	if deps.Redis != nil && deps.Queue != nil {
		jobs = repository.NewExportRepository(deps.Redis, deps.Config.ExportTTL)
		queue = deps.Queue
	}

	tableHandler := handler.NewTableHandler(deps.Tables, adapter, exporter, deps.Labels, logger)
	exportHandler := handler.NewExportHandler(tableHandler, jobs, queue, logger)
	return tableHandler, exportHandler
}

func SetupAPIRoutes(
	router fiber.Router,
	tables *config.TableRegistry,
	tableHandler *handler.TableHandler,
	exportHandler *handler.ExportHandler,
) {
	// Table routes
	router.Get("/tables", tableHandler.ListTables)

	table := router.Group("/tables/:name", middleware.TableLookup(tables))
	table.Get("", tableHandler.GetTable)
	table.Get("/rows", tableHandler.GetRows)
	table.Post("/export", exportHandler.Export)
	table.Post("/export/jobs", exportHandler.CreateJob)

	// Export job routes
	exports := router.Group("/exports")
	exports.Get("/:id", exportHandler.GetJob)
	exports.Get("/:id/download", exportHandler.Download)
}
