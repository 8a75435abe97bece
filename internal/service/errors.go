package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedExport = errors.New("unsupported export type")
	ErrUnknownMode       = errors.New("unknown data source mode")
	ErrMissingURL        = errors.New("api data source has no url")
	ErrMissingQuery      = errors.New("sql data source has no query")
	ErrNoQuerier         = errors.New("sql data source is not available")
)

// HTTPStatusError is returned when a data source answers outside the 2xx range
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected response status %s", e.Status)
}
