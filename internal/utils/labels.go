package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Labeler resolves user visible strings by key
type Labeler interface {
	Lookup(key, fallback string, params map[string]interface{}) string
}

// Labels is a flat key to string catalog. The zero value is usable and
// always answers with the fallback.
type Labels struct {
	entries map[string]string
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

func NewLabels(entries map[string]string) *Labels {
	return &Labels{entries: entries}
}

// LoadLabels reads a JSON object of key/string pairs. A missing file yields
// an empty catalog.
func LoadLabels(path string) (*Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewLabels(nil), nil
		}
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse labels %s: %w", path, err)
	}
	return NewLabels(entries), nil
}

// Lookup returns the catalog entry for key, or fallback when key is unknown
// or empty. {{name}} placeholders are replaced from params; unknown
// placeholders are left untouched.
func (l *Labels) Lookup(key, fallback string, params map[string]interface{}) string {
	text := fallback
	if l != nil && key != "" {
		if value, ok := l.entries[key]; ok && value != "" {
			text = value
		}
	}
	if len(params) == 0 {
		return text
	}

	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholder.FindStringSubmatch(match)[1]
		if value, ok := params[name]; ok {
			return fmt.Sprint(value)
		}
		return match
	})
}
