package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"datatable-web/internal/models"

	"github.com/redis/go-redis/v9"
)

var ErrExportNotFound = errors.New("export not found")

// ExportRepository keeps background export jobs and their artifacts in Redis
type ExportRepository struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewExportRepository(client *redis.Client, ttl time.Duration) *ExportRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ExportRepository{redis: client, ttl: ttl}
}

func jobKey(id string) string {
	return fmt.Sprintf("export:job:%s", id)
}

func artifactKey(id string) string {
	return fmt.Sprintf("export:artifact:%s", id)
}

// SaveJob stores the job state, refreshing its expiry
func (r *ExportRepository) SaveJob(ctx context.Context, job *models.ExportJob) error {
	job.UpdatedAt = time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = job.UpdatedAt
	}

	key := jobKey(job.ID)
	pipe := r.redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"id":         job.ID,
		"table":      job.Table,
		"type":       string(job.Type),
		"status":     job.Status,
		"error":      job.Error,
		"file_name":  job.FileName,
		"created_at": job.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": job.UpdatedAt.Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save export job: %w", err)
	}
	return nil
}

// UpdateStatus changes the status (and error message) of a stored job
func (r *ExportRepository) UpdateStatus(ctx context.Context, id, status, errMsg string) error {
	job, err := r.GetJob(ctx, id)
	if err != nil {
		return err
	}
	job.Status = status
	job.Error = errMsg
	return r.SaveJob(ctx, job)
}

func (r *ExportRepository) GetJob(ctx context.Context, id string) (*models.ExportJob, error) {
	values, err := r.redis.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load export job: %w", err)
	}
	if len(values) == 0 {
		return nil, ErrExportNotFound
	}

	job := &models.ExportJob{
		ID:       values["id"],
		Table:    values["table"],
		Type:     models.ExportType(values["type"]),
		Status:   values["status"],
		Error:    values["error"],
		FileName: values["file_name"],
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, values["created_at"])
	job.UpdatedAt, _ = time.Parse(time.RFC3339Nano, values["updated_at"])
	return job, nil
}

// SaveArtifact stores a generated file under the job id
func (r *ExportRepository) SaveArtifact(ctx context.Context, id string, artifact *models.Artifact) error {
	key := artifactKey(id)
	pipe := r.redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"file_name":    artifact.FileName,
		"content_type": artifact.ContentType,
		"data":         artifact.Data,
	})
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save export artifact: %w", err)
	}
	return nil
}

func (r *ExportRepository) GetArtifact(ctx context.Context, id string) (*models.Artifact, error) {
	values, err := r.redis.HGetAll(ctx, artifactKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load export artifact: %w", err)
	}
	if len(values) == 0 {
		return nil, ErrExportNotFound
	}

	return &models.Artifact{
		FileName:    values["file_name"],
		ContentType: values["content_type"],
		Data:        []byte(values["data"]),
	}, nil
}
