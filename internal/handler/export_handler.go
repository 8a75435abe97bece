package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"datatable-web/internal/middleware"
	"datatable-web/internal/models"
	"datatable-web/internal/repository"
	"datatable-web/internal/service"
	"datatable-web/internal/utils"
	"datatable-web/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// TaskEnqueuer is the part of the asynq client the export handler uses
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExportJobStore keeps background export jobs and their artifacts
type ExportJobStore interface {
	worker.ExportStore
	GetArtifact(ctx context.Context, id string) (*models.Artifact, error)
}

type ExportHandler struct {
	tables  *TableHandler
	jobs    ExportJobStore
	queue   TaskEnqueuer
	logger  *logrus.Logger
	retries int
}

// NewExportHandler builds the export endpoints. jobs and queue may be nil,
// in which case background exports answer 503.
func NewExportHandler(tables *TableHandler, jobs ExportJobStore, queue TaskEnqueuer, logger *logrus.Logger) *ExportHandler {
	return &ExportHandler{
		tables:  tables,
		jobs:    jobs,
		queue:   queue,
		logger:  logger,
		retries: 3,
	}
}

func (h *ExportHandler) parseRequest(c *fiber.Ctx) (models.ExportRequest, error) {
	var req models.ExportRequest
	if err := c.BodyParser(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if req.Type == "" {
		return req, fmt.Errorf("export type is required")
	}
	req.Table = middleware.Table(c).Name
	return req, nil
}

// Export produces the artifact synchronously and streams it back as a
// download
func (h *ExportHandler) Export(c *fiber.Ctx) error {
	table := middleware.Table(c)

	req, err := h.parseRequest(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid export request", err)
	}

	view := h.tables.newView(table, service.WithAllPages())
	view.SetSelection(req.Selected)
	if err := view.SetState(c.UserContext(), req.Filters, req.Sort, models.PaginationState{}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, view.Snapshot().Error, err)
	}

	artifact, err := view.Export(req.Type)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate export", err)
	}
	if artifact == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}

	h.logger.WithFields(logrus.Fields{
		"table": table.Name,
		"type":  req.Type,
		"file":  artifact.FileName,
		"bytes": len(artifact.Data),
	}).Info("Export generated")

	return sendArtifact(c, artifact)
}

// CreateJob queues an export to run in the worker
func (h *ExportHandler) CreateJob(c *fiber.Ctx) error {
	if h.jobs == nil || h.queue == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Background exports are not available", nil)
	}

	table := middleware.Table(c)
	req, err := h.parseRequest(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid export request", err)
	}
	if !table.HasExport(req.Type) || !h.tables.exporter.Supports(req.Type) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Export type not available for this table",
			fmt.Errorf("%w: %q", service.ErrUnsupportedExport, req.Type))
	}

	now := time.Now()
	job := &models.ExportJob{
		ID:        uuid.New().String(),
		Table:     table.Name,
		Type:      req.Type,
		Status:    models.ExportStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	req.JobID = job.ID

	ctx := c.UserContext()
	if err := h.jobs.SaveJob(ctx, job); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create export job", err)
	}

	task, err := worker.NewExportTask(req)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create export job", err)
	}
	if _, err := h.queue.EnqueueContext(ctx, task, asynq.MaxRetry(h.retries)); err != nil {
		if updateErr := h.jobs.UpdateStatus(ctx, job.ID, models.ExportStatusFailed, err.Error()); updateErr != nil {
			h.logger.WithError(updateErr).WithField("job_id", job.ID).Warn("Failed to record enqueue failure")
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to queue export job", err)
	}

	h.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"table":  table.Name,
		"type":   req.Type,
	}).Info("Export job queued")

	return c.Status(fiber.StatusAccepted).JSON(utils.Response{
		Success: true,
		Message: "Export job queued",
		Data:    job,
	})
}

func (h *ExportHandler) GetJob(c *fiber.Ctx) error {
	if h.jobs == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Background exports are not available", nil)
	}

	job, err := h.jobs.GetJob(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrExportNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Export job not found", err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load export job", err)
	}
	return utils.SuccessResponse(c, "Export job retrieved successfully", job)
}

func (h *ExportHandler) Download(c *fiber.Ctx) error {
	if h.jobs == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Background exports are not available", nil)
	}

	artifact, err := h.jobs.GetArtifact(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrExportNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Export file not found", err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load export file", err)
	}
	return sendArtifact(c, artifact)
}

func sendArtifact(c *fiber.Ctx, artifact *models.Artifact) error {
	c.Set(fiber.HeaderContentType, artifact.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	return c.Send(artifact.Data)
}

var _ ExportJobStore = (*repository.ExportRepository)(nil)
