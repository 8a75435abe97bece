package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"datatable-web/internal/config"
	"datatable-web/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	log     *logrus.Logger
	rootCmd = &cobra.Command{
		Use:   "datatable",
		Short: "Inspect table definitions and produce exports offline",
		Long: `datatable loads the same table definitions as the web server and lets you
validate them, list the HTTP routes and write export files to disk.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().String("tables", "", "table definitions directory (default: TABLES_PATH)")
	rootCmd.PersistentFlags().String("labels", "", "label catalog file (default: LABELS_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(routesCmd())
	rootCmd.AddCommand(validateCmd())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if path, _ := cmd.Flags().GetString("tables"); path != "" {
		cfg.TablesPath = path
	}
	if path, _ := cmd.Flags().GetString("labels"); path != "" {
		cfg.LabelsPath = path
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	log = utils.NewLogger(cfg.LogLevel, "text")
	log.SetOutput(os.Stderr)
	return nil
}

func loadTables() (*config.TableRegistry, *utils.Labels, error) {
	tables, err := config.LoadTables(cfg.TablesPath)
	if err != nil {
		return nil, nil, err
	}
	labels, err := utils.LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, nil, err
	}
	return tables, labels, nil
}
