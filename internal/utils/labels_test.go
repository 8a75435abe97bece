package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelsLookup(t *testing.T) {
	labels := NewLabels(map[string]string{
		"greeting": "Hello {{name}}, you have {{ count }} rows",
		"empty":    "",
	})

	assert.Equal(t, "Hello Ana, you have 3 rows", labels.Lookup("greeting", "fallback", map[string]interface{}{
		"name":  "Ana",
		"count": 3,
	}))
	assert.Equal(t, "Hello {{name}}, you have 1 rows", labels.Lookup("greeting", "", map[string]interface{}{"count": 1}))
	assert.Equal(t, "fallback", labels.Lookup("missing", "fallback", nil))
	assert.Equal(t, "fallback", labels.Lookup("empty", "fallback", nil))
	assert.Equal(t, "fallback", labels.Lookup("", "fallback", nil))
	assert.Equal(t, "Failed: boom", labels.Lookup("missing", "Failed: {{error}}", map[string]interface{}{"error": "boom"}))
}

func TestLabelsNilCatalog(t *testing.T) {
	var labels *Labels
	assert.Equal(t, "x", labels.Lookup("any", "x", nil))
	assert.Equal(t, "y", NewLabels(nil).Lookup("any", "y", nil))
}

func TestLoadLabels(t *testing.T) {
	dir := t.TempDir()

	labels, err := LoadLabels(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "fb", labels.Lookup("k", "fb", nil))

	path := filepath.Join(dir, "en.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"k":"value"}`), 0o644))
	labels, err = LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, "value", labels.Lookup("k", "fb", nil))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"k":`), 0o644))
	_, err = LoadLabels(bad)
	assert.Error(t, err)
}
