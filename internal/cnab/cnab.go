// Package cnab reads and writes Brazilian bank clearing files in the two
// fixed-width layouts used for collection: 240-character records (logical
// records split across T/U segment pairs) and 400-character single-line
// records.
package cnab

import (
	"fmt"
	"strings"

	"contratos/internal/models"
)

// Layout identifies one of the two supported fixed-width formats.
type Layout string

const (
	Layout240 Layout = models.LayoutCNAB240
	Layout400 Layout = models.LayoutCNAB400

	lineLen240 = 240
	lineLen400 = 400
)

// DetectLayout inspects the first non-empty line of a return file.
// 240-character lines mean CNAB240; anything else is treated as CNAB400.
func DetectLayout(data []byte) (Layout, error) {
	for _, line := range splitLines(data) {
		trimmed := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		if len(trimmed) == lineLen240 {
			return Layout240, nil
		}
		return Layout400, nil
	}
	return "", fmt.Errorf("empty clearing file")
}

// occurrenceCategories maps bank occurrence codes to the closed category
// set. Unlisted codes classify as OTHER.
var occurrenceCategories = map[string]models.OccurrenceCategory{
	"01": models.OccurrenceEntry,
	"02": models.OccurrenceEntry,
	"03": models.OccurrenceRejection,
	"06": models.OccurrenceSettlement,
	"09": models.OccurrenceWriteOff,
	"10": models.OccurrenceWriteOff,
	"11": models.OccurrenceWriteOff,
	"14": models.OccurrenceWriteOff,
	"17": models.OccurrenceSettlement,
	"19": models.OccurrenceFee,
	"23": models.OccurrenceProtest,
	"25": models.OccurrenceProtest,
	"27": models.OccurrenceFee,
}

// ClassifyOccurrence resolves an occurrence code to its category.
func ClassifyOccurrence(code string) models.OccurrenceCategory {
	if cat, ok := occurrenceCategories[code]; ok {
		return cat
	}
	return models.OccurrenceOther
}

func splitLines(data []byte) []string {
	normalized := strings.ReplaceAll(string(data), "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.Split(normalized, "\n")
}
