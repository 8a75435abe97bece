package repository

import (
	"context"
	"fmt"

	"datatable-web/internal/models"

	"github.com/jmoiron/sqlx"
)

// TableRepository serves rows for tables whose data source is a SQL query
type TableRepository struct {
	db *sqlx.DB
}

func NewTableRepository(db *sqlx.DB) *TableRepository {
	return &TableRepository{db: db}
}

// QueryRows runs a read-only query and maps every result row by column
// name. Text columns come back from the driver as bytes and are converted
// to strings.
func (r *TableRepository) QueryRows(ctx context.Context, query string) ([]models.Row, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database is not connected")
	}

	result, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	rows := []models.Row{}
	for result.Next() {
		values := make(map[string]interface{})
		if err := result.MapScan(values); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for k, v := range values {
			if b, ok := v.([]byte); ok {
				values[k] = string(b)
			}
		}
		rows = append(rows, models.Row(values))
	}
	if err := result.Err(); err != nil {
		return nil, err
	}

	return rows, nil
}
