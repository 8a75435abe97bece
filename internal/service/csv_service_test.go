package service

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"datatable-web/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exportColumns = []models.ColumnDef{
	{Field: "id", Header: "ID"},
	{Field: "name", Header: "Name"},
	{Field: "note", Header: "Note"},
}

func TestCSVWriteQuotesEveryCell(t *testing.T) {
	var buf bytes.Buffer
	err := NewCSVService().Write(&buf, []models.Row{
		{"id": 1, "name": `A, "B"`, "note": ""},
	}, exportColumns)
	require.NoError(t, err)

	assert.Equal(t, "\"ID\",\"Name\",\"Note\"\n\"1\",\"A, \"\"B\"\"\",\"\"\n", buf.String())
}

func TestCSVRoundTrip(t *testing.T) {
	rows := []models.Row{
		{"id": 1, "name": `A, "B"`, "note": ""},
		{"id": 2, "name": "line\nbreak", "note": nil},
		{"id": 3.5, "name": "plain"},
	}

	var buf bytes.Buffer
	require.NoError(t, NewCSVService().Write(&buf, rows, exportColumns))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"ID", "Name", "Note"},
		{"1", `A, "B"`, ""},
		{"2", "line\nbreak", ""},
		{"3.5", "plain", ""},
	}, records)
}

func TestCSVExportArtifact(t *testing.T) {
	artifact, err := NewCSVService().Export(nil, exportColumns, models.ExportOptions{FileNameBase: "carriers"})
	require.NoError(t, err)

	assert.Equal(t, "carriers.csv", artifact.FileName)
	assert.Equal(t, CSVContentType, artifact.ContentType)
	assert.Equal(t, "\"ID\",\"Name\",\"Note\"\n", string(artifact.Data))
}
