package middleware

import (
	"errors"

	"datatable-web/internal/config"
	"datatable-web/internal/models"
	"datatable-web/internal/utils"

	"github.com/gofiber/fiber/v2"
)

const tableLocalsKey = "table"

// TableLookup resolves the :name route parameter into a table configuration
func TableLookup(tables *config.TableRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		table, err := tables.Get(c.Params("name"))
		if err != nil {
			if errors.Is(err, config.ErrTableNotFound) {
				return utils.ErrorResponse(c, fiber.StatusNotFound, "Table not found", err)
			}
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load table", err)
		}

		c.Locals(tableLocalsKey, table)
		return c.Next()
	}
}

// Table returns the configuration stored by TableLookup
func Table(c *fiber.Ctx) *models.TableConfig {
	table, _ := c.Locals(tableLocalsKey).(*models.TableConfig)
	return table
}
