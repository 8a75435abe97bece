package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"datatable-web/internal/database"
	"datatable-web/internal/models"
	"datatable-web/internal/repository"
	"datatable-web/internal/service"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var (
		types    []string
		outDir   string
		filters  string
		sortBy   string
		sortDir  string
		selected []string
	)

	cmd := &cobra.Command{
		Use:   "export <table>",
		Short: "Write export files for a table",
		Long: `Fetch the rows of a table, apply the given filters and write one file per
export type. Without --type every type the table offers is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, labels, err := loadTables()
			if err != nil {
				return err
			}
			table, err := tables.Get(args[0])
			if err != nil {
				return err
			}

			var state models.FilterState
			if filters != "" {
				if err := json.Unmarshal([]byte(filters), &state); err != nil {
					return fmt.Errorf("invalid --filters: %w", err)
				}
			}

			exportTypes := table.Export.Types
			if len(types) > 0 {
				exportTypes = make([]models.ExportType, 0, len(types))
				for _, t := range types {
					exportTypes = append(exportTypes, models.ExportType(t))
				}
			}

			if outDir == "" {
				outDir = cfg.ExportPath
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			adapterOpts := []service.AdapterOption{service.WithFetchTimeout(cfg.FetchTimeout)}
			if table.DataSource.Mode == models.ModeSQL {
				db, err := database.NewMySQL(cfg)
				if err != nil {
					return fmt.Errorf("failed to connect to database: %w", err)
				}
				defer db.Close()
				adapterOpts = append(adapterOpts, service.WithRowQuerier(repository.NewTableRepository(db)))
			}

			adapter := service.NewDataSourceAdapter(log, adapterOpts...)
			exporter := service.NewExportService(labels, log, nil)
			view := service.NewTableView(table, adapter, exporter, labels, log, service.WithAllPages())
			view.SetSelection(selected)

			sortState := models.SortState{Field: sortBy, Direction: sortDir}
			if err := view.SetState(cmd.Context(), state, sortState, models.PaginationState{}); err != nil {
				return err
			}
			log.WithField("table", table.Name).Infof("%d rows match the filters", len(view.FilteredRows()))

			for _, t := range exportTypes {
				artifact, err := view.Export(t)
				if err != nil {
					return fmt.Errorf("failed to export %s: %w", t, err)
				}
				if artifact == nil {
					continue
				}

				path := filepath.Join(outDir, artifact.FileName)
				if err := os.WriteFile(path, artifact.Data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
				fmt.Printf("%-12s %s (%d bytes)\n", t, path, len(artifact.Data))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&types, "type", nil, "export types to write (csv, excel, pdf, quickbooks, fmcsa)")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default: EXPORT_PATH)")
	cmd.Flags().StringVar(&filters, "filters", "", "filter state as a JSON object keyed by field")
	cmd.Flags().StringVar(&sortBy, "sort-by", "", "field to sort by")
	cmd.Flags().StringVar(&sortDir, "sort-dir", "asc", "sort direction (asc, desc)")
	cmd.Flags().StringSliceVar(&selected, "select", nil, "row keys to export instead of the filtered rows")

	return cmd
}
