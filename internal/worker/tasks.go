package worker

import (
	"encoding/json"
	"fmt"

	"datatable-web/internal/models"

	"github.com/hibiken/asynq"
)

const TypeExportGenerate = "export:generate"

// NewExportTask wraps an export request into an asynq task
func NewExportTask(req models.ExportRequest) (*asynq.Task, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode export payload: %w", err)
	}
	return asynq.NewTask(TypeExportGenerate, payload), nil
}
