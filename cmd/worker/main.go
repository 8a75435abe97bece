package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"datatable-web/internal/config"
	"datatable-web/internal/database"
	"datatable-web/internal/repository"
	"datatable-web/internal/service"
	"datatable-web/internal/utils"
	"datatable-web/internal/worker"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		utils.GetLogger().Fatalf("Failed to load configuration: %v", err)
	}
	log := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)

	tables, err := config.LoadTables(cfg.TablesPath)
	if err != nil {
		log.Fatalf("Failed to load tables: %v", err)
	}
	labels, err := utils.LoadLabels(cfg.LabelsPath)
	if err != nil {
		log.Fatalf("Failed to load labels: %v", err)
	}

	// Initialize Redis
	redisClient, err := database.NewRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	adapterOpts := []service.AdapterOption{service.WithFetchTimeout(cfg.FetchTimeout)}
	if cfg.HasDatabase() {
		db, err := database.NewMySQL(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		adapterOpts = append(adapterOpts, service.WithRowQuerier(repository.NewTableRepository(db)))
	}

	handler := worker.NewExportTaskHandler(
		tables,
		service.NewDataSourceAdapter(log, adapterOpts...),
		service.NewExportService(labels, log, nil),
		repository.NewExportRepository(redisClient, cfg.ExportTTL),
		labels,
		log,
	)

	// Create Asynq server
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.AsynqRedisAddr,
			Password: cfg.AsynqRedisPassword,
			DB:       cfg.AsynqRedisDB,
		},
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Logger:      log,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.WithError(err).WithField("task", task.Type()).Error("Error processing task")
			}),
		},
	)

	// Register task handlers
	mux := asynq.NewServeMux()
	worker.RegisterHandlers(mux, handler)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Gracefully shutting down worker...")
		srv.Shutdown()
	}()

	// Start worker
	log.Infof("Worker starting with concurrency: %d", cfg.WorkerConcurrency)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	log.Info("Worker exited")
}
