package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"datatable-web/internal/models"
)

var ErrTableNotFound = errors.New("table not found")

// TableRegistry holds the table configurations known to the application.
// It is built once at startup and read-only afterwards.
type TableRegistry struct {
	tables map[string]*models.TableConfig
	// Warnings collects non-fatal configuration problems found while loading
	Warnings []string
}

func NewTableRegistry(tables ...*models.TableConfig) (*TableRegistry, error) {
	r := &TableRegistry{tables: make(map[string]*models.TableConfig)}
	for _, t := range tables {
		if err := r.add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadTables reads every *.json file in dir as a table configuration.
// The table name defaults to the file name without extension.
func LoadTables(dir string) (*TableRegistry, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list table configs: %w", err)
	}
	sort.Strings(files)

	r := &TableRegistry{tables: make(map[string]*models.TableConfig)}
	for _, file := range files {
		table, err := LoadTableFile(file)
		if err != nil {
			return nil, err
		}
		if err := r.add(table); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}
	return r, nil
}

// LoadTableFile reads and normalizes a single table configuration
func LoadTableFile(path string) (*models.TableConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table config: %w", err)
	}

	var table models.TableConfig
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse table config %s: %w", path, err)
	}
	if table.Name == "" {
		table.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &table, nil
}

func (r *TableRegistry) add(table *models.TableConfig) error {
	if table == nil || table.Name == "" {
		return errors.New("table config must have a name")
	}
	if _, exists := r.tables[table.Name]; exists {
		return fmt.Errorf("duplicate table %q", table.Name)
	}

	ApplyDefaults(table)
	warnings, err := Validate(table)
	if err != nil {
		return fmt.Errorf("table %q: %w", table.Name, err)
	}
	for _, w := range warnings {
		r.Warnings = append(r.Warnings, fmt.Sprintf("table %q: %s", table.Name, w))
	}

	r.tables[table.Name] = table
	return nil
}

// Get returns the named table configuration
func (r *TableRegistry) Get(name string) (*models.TableConfig, error) {
	table, ok := r.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return table, nil
}

// Names returns the sorted table names
func (r *TableRegistry) Names() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyDefaults fills optional configuration fields
func ApplyDefaults(table *models.TableConfig) {
	if table.RowKey == "" {
		table.RowKey = "id"
	}
	if table.DataSource.Mode == "" {
		if table.DataSource.URL != "" {
			table.DataSource.Mode = models.ModeAPI
		} else {
			table.DataSource.Mode = models.ModeMock
		}
	}
	if table.DataSource.Mode == models.ModeAPI && table.DataSource.Method == "" {
		table.DataSource.Method = "GET"
	}
	if table.Export.FileNameBase == "" {
		table.Export.FileNameBase = table.Name
	}
}

// Validate rejects configurations that cannot work and returns warnings for
// entries that will be ignored at runtime.
func Validate(table *models.TableConfig) ([]string, error) {
	var warnings []string

	switch table.DataSource.Mode {
	case models.ModeMock:
	case models.ModeAPI:
		if table.DataSource.URL == "" {
			return nil, errors.New("api data source requires url")
		}
	case models.ModeSQL:
		if table.DataSource.Query == "" {
			return nil, errors.New("sql data source requires query")
		}
	default:
		return nil, fmt.Errorf("unknown data source mode %q", table.DataSource.Mode)
	}

	if len(table.Columns) == 0 {
		return nil, errors.New("at least one column is required")
	}
	for i, col := range table.Columns {
		if col.Field == "" {
			return nil, fmt.Errorf("column %d has no field", i)
		}
	}

	for _, f := range table.Filters {
		if f.Field == "" {
			return nil, errors.New("filter without field")
		}
		if !knownFilterType(f.Type) {
			warnings = append(warnings, fmt.Sprintf("filter %q has unknown type %q and will be ignored", f.Field, f.Type))
		}
	}

	for _, t := range table.Export.Types {
		if !knownExportType(t) {
			warnings = append(warnings, fmt.Sprintf("unknown export type %q will be ignored", t))
		}
	}

	return warnings, nil
}

func knownFilterType(t models.FilterType) bool {
	for _, known := range models.AllFilterTypes {
		if known == t {
			return true
		}
	}
	return false
}

func knownExportType(t models.ExportType) bool {
	for _, known := range models.AllExportTypes {
		if known == t {
			return true
		}
	}
	return false
}
