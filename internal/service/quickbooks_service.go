package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"datatable-web/internal/models"
	"datatable-web/internal/utils"

	"github.com/sirupsen/logrus"
)

type QuickBooksService struct {
	logger *logrus.Logger
}

func NewQuickBooksService(logger *logrus.Logger) *QuickBooksService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &QuickBooksService{logger: logger}
}

// Export writes one remapped object per row as a JSON array
func (s *QuickBooksService) Export(rows []models.Row, _ []models.ColumnDef, opts models.ExportOptions) (*models.Artifact, error) {
	records := make([]map[string]interface{}, 0, len(rows))
	for i, row := range rows {
		record, conflicts := BuildQuickBooksRecord(row, opts.QuickBooksMapping)
		if len(conflicts) > 0 {
			s.logger.WithFields(logrus.Fields{
				"row":       i,
				"conflicts": conflicts,
			}).Warn("QuickBooks mapping paths collide")
		}
		records = append(records, record)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode quickbooks export: %w", err)
	}

	return &models.Artifact{
		FileName:    opts.FileNameBase + "-quickbooks.json",
		ContentType: "application/json",
		Data:        data,
	}, nil
}

// BuildQuickBooksRecord places every mapped source field at its dotted
// destination path. Fields outside the mapping are dropped.
//
// Paths are applied shortest first, then lexically. When paths collide an
// object always wins: a deeper path replaces a scalar sitting on its prefix,
// and a scalar is never written over an object. The losing paths are
// returned.
func BuildQuickBooksRecord(row models.Row, mapping map[string]string) (map[string]interface{}, []string) {
	type entry struct {
		source string
		parts  []string
	}

	entries := make([]entry, 0, len(mapping))
	for source, dest := range mapping {
		parts := splitPath(dest)
		if len(parts) == 0 {
			continue
		}
		entries = append(entries, entry{source: source, parts: parts})
	}
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].parts) != len(entries[j].parts) {
			return len(entries[i].parts) < len(entries[j].parts)
		}
		pi, pj := strings.Join(entries[i].parts, "."), strings.Join(entries[j].parts, ".")
		if pi != pj {
			return pi < pj
		}
		return entries[i].source < entries[j].source
	})

	record := make(map[string]interface{})
	var conflicts []string
	for _, e := range entries {
		if lost := setPath(record, e.parts, row[e.source]); lost != "" {
			conflicts = append(conflicts, fmt.Sprintf("%s -> %s: %s", e.source, strings.Join(e.parts, "."), lost))
		}
	}
	return record, conflicts
}

// setPath assigns value at parts inside tree, creating intermediate objects.
// It returns a description of any value that lost a collision.
func setPath(tree map[string]interface{}, parts []string, value interface{}) string {
	lost := ""
	node := tree
	for _, part := range parts[:len(parts)-1] {
		next, exists := node[part]
		child, isObject := next.(map[string]interface{})
		if !isObject {
			if exists {
				lost = fmt.Sprintf("replaced scalar at %q", part)
			}
			child = make(map[string]interface{})
			node[part] = child
		}
		node = child
	}

	leaf := parts[len(parts)-1]
	if _, isObject := node[leaf].(map[string]interface{}); isObject {
		return "object already present, scalar skipped"
	}
	node[leaf] = value
	return lost
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, ".") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
