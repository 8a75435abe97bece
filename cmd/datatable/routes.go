package main

import (
	"fmt"

	"datatable-web/internal/router"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
)

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the HTTP routes the web server registers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tables, labels, err := loadTables()
			if err != nil {
				return err
			}

			app := fiber.New()
			router.Setup(app, router.Dependencies{
				Config: cfg,
				Tables: tables,
				Labels: labels,
			})

			fmt.Println("=== Registered Routes ===")
			for _, route := range app.GetRoutes(true) {
				fmt.Printf("%-8s %s\n", route.Method, route.Path)
			}
			return nil
		},
	}
}
