package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"datatable-web/internal/config"
	"datatable-web/internal/models"
	"datatable-web/internal/repository"
	"datatable-web/internal/service"
	"datatable-web/internal/utils"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// ExportStore is the part of the export repository the task handler needs
type ExportStore interface {
	UpdateStatus(ctx context.Context, id, status, errMsg string) error
	SaveArtifact(ctx context.Context, id string, artifact *models.Artifact) error
	GetJob(ctx context.Context, id string) (*models.ExportJob, error)
	SaveJob(ctx context.Context, job *models.ExportJob) error
}

type ExportTaskHandler struct {
	tables   *config.TableRegistry
	fetcher  service.RowFetcher
	exporter *service.ExportService
	store    ExportStore
	labels   utils.Labeler
	logger   *logrus.Logger
}

func NewExportTaskHandler(
	tables *config.TableRegistry,
	fetcher service.RowFetcher,
	exporter *service.ExportService,
	store ExportStore,
	labels utils.Labeler,
	logger *logrus.Logger,
) *ExportTaskHandler {
	return &ExportTaskHandler{
		tables:   tables,
		fetcher:  fetcher,
		exporter: exporter,
		store:    store,
		labels:   labels,
		logger:   logger,
	}
}

// Handle rebuilds the table view described by the payload, exports it and
// stores the artifact for download
func (h *ExportTaskHandler) Handle(ctx context.Context, task *asynq.Task) error {
	var req models.ExportRequest
	if err := json.Unmarshal(task.Payload(), &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w: %v", asynq.SkipRetry, err)
	}

	log := h.logger.WithFields(logrus.Fields{
		"job_id": req.JobID,
		"table":  req.Table,
		"type":   req.Type,
	})
	log.Info("Starting export")

	if err := h.store.UpdateStatus(ctx, req.JobID, models.ExportStatusProcessing, ""); err != nil {
		return err
	}

	artifact, err := h.generate(ctx, req)
	if err != nil {
		log.WithError(err).Error("Export job failed")
		if updateErr := h.store.UpdateStatus(ctx, req.JobID, models.ExportStatusFailed, err.Error()); updateErr != nil {
			log.WithError(updateErr).Warn("Failed to record export failure")
		}
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := h.store.SaveArtifact(ctx, req.JobID, artifact); err != nil {
		return err
	}

	job, err := h.store.GetJob(ctx, req.JobID)
	if err != nil {
		return err
	}
	job.Status = models.ExportStatusCompleted
	job.Error = ""
	job.FileName = artifact.FileName
	if err := h.store.SaveJob(ctx, job); err != nil {
		return err
	}

	log.WithField("file", artifact.FileName).Info("Export completed")
	return nil
}

func (h *ExportTaskHandler) generate(ctx context.Context, req models.ExportRequest) (*models.Artifact, error) {
	table, err := h.tables.Get(req.Table)
	if err != nil {
		return nil, err
	}

	view := service.NewTableView(table, h.fetcher, h.exporter, h.labels, h.logger, service.WithAllPages())
	view.SetSelection(req.Selected)
	if err := view.SetState(ctx, req.Filters, req.Sort, models.PaginationState{}); err != nil {
		return nil, err
	}

	artifact, err := view.Export(req.Type)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, fmt.Errorf("%w: %q", service.ErrUnsupportedExport, req.Type)
	}
	return artifact, nil
}

// RegisterHandlers wires the task handlers into the asynq mux
func RegisterHandlers(mux *asynq.ServeMux, handler *ExportTaskHandler) {
	mux.HandleFunc(TypeExportGenerate, handler.Handle)
}

var _ ExportStore = (*repository.ExportRepository)(nil)
