package utils

import (
	"github.com/gofiber/fiber/v2"
)

// Response is the envelope of every JSON API reply
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func SuccessResponse(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	resp := Response{
		Success: false,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}

	if status >= fiber.StatusInternalServerError {
		entry := GetLogger().WithField("path", c.Path()).WithField("status", status)
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Error(message)
	}

	return c.Status(status).JSON(resp)
}
