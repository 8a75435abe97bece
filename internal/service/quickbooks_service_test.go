package service

import (
	"encoding/json"
	"testing"

	"datatable-web/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuickBooksRecordNestsAndDrops(t *testing.T) {
	row := models.Row{"status": "x", "createdAt": "2025-01-01", "other": "dropped"}
	mapping := map[string]string{
		"status":    "status",
		"createdAt": "Meta.CreateTime",
	}

	record, conflicts := BuildQuickBooksRecord(row, mapping)

	assert.Empty(t, conflicts)
	assert.Equal(t, map[string]interface{}{
		"status": "x",
		"Meta":   map[string]interface{}{"CreateTime": "2025-01-01"},
	}, record)
	assert.NotContains(t, record, "other")
}

func TestBuildQuickBooksRecordRenamesToDestination(t *testing.T) {
	row := models.Row{"status": "x"}

	record, _ := BuildQuickBooksRecord(row, map[string]string{"status": "Active"})

	assert.Equal(t, map[string]interface{}{"Active": "x"}, record)
}

func TestBuildQuickBooksRecordMissingSourceIsNull(t *testing.T) {
	record, _ := BuildQuickBooksRecord(models.Row{}, map[string]string{"amount": "Line.Amount"})

	line, ok := record["Line"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, line, "Amount")
	assert.Nil(t, line["Amount"])
}

func TestBuildQuickBooksRecordCollisions(t *testing.T) {
	row := models.Row{"vendor": "Acme", "vendorId": 42, "name": "Acme Freight"}

	t.Run("nested path replaces scalar prefix", func(t *testing.T) {
		record, conflicts := BuildQuickBooksRecord(row, map[string]string{
			"vendor":   "Vendor",
			"vendorId": "Vendor.Id",
		})
		assert.Equal(t, map[string]interface{}{
			"Vendor": map[string]interface{}{"Id": 42},
		}, record)
		assert.Len(t, conflicts, 1)
	})

	t.Run("siblings share the parent object", func(t *testing.T) {
		record, conflicts := BuildQuickBooksRecord(row, map[string]string{
			"vendorId": "Vendor.Id",
			"name":     "Vendor.DisplayName",
		})
		assert.Empty(t, conflicts)
		assert.Equal(t, map[string]interface{}{
			"Vendor": map[string]interface{}{"Id": 42, "DisplayName": "Acme Freight"},
		}, record)
	})

	t.Run("result does not depend on map order", func(t *testing.T) {
		mapping := map[string]string{
			"vendor":   "Vendor",
			"vendorId": "Vendor.Id",
			"name":     "Vendor.Name",
		}
		first, _ := BuildQuickBooksRecord(row, mapping)
		for i := 0; i < 20; i++ {
			again, _ := BuildQuickBooksRecord(row, mapping)
			assert.Equal(t, first, again)
		}
	})
}

func TestQuickBooksExport(t *testing.T) {
	logger, hook := test.NewNullLogger()
	svc := NewQuickBooksService(logger)

	rows := []models.Row{
		{"id": 1, "amount": 12.5, "vendor": "Acme"},
		{"id": 2, "amount": 3, "vendor": "Blue"},
	}
	opts := models.ExportOptions{
		FileNameBase: "bills",
		QuickBooksMapping: map[string]string{
			"amount": "Line.Amount",
			"vendor": "VendorRef.name",
		},
	}

	artifact, err := svc.Export(rows, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "bills-quickbooks.json", artifact.FileName)
	assert.Equal(t, "application/json", artifact.ContentType)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(artifact.Data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, map[string]interface{}{
		"Line":      map[string]interface{}{"Amount": 12.5},
		"VendorRef": map[string]interface{}{"name": "Acme"},
	}, decoded[0])

	for _, entry := range hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, entry.Level)
	}
}

func TestQuickBooksExportLogsConflicts(t *testing.T) {
	logger, hook := test.NewNullLogger()
	svc := NewQuickBooksService(logger)

	_, err := svc.Export([]models.Row{{"a": 1, "b": 2}}, nil, models.ExportOptions{
		QuickBooksMapping: map[string]string{"a": "X", "b": "X.Y"},
	})
	require.NoError(t, err)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
