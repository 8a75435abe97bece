package database

import (
	"fmt"

	"datatable-web/internal/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// NewMySQL opens the connection used by sql data sources
func NewMySQL(cfg *config.Config) (*sqlx.DB, error) {
	if !cfg.HasDatabase() {
		return nil, fmt.Errorf("database is not configured")
	}

	db, err := sqlx.Connect("mysql", cfg.GetDSN())
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	return db, nil
}
