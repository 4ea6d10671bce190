package cnab

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"contratos/internal/models"
)

// ReturnRecord is one parsed detail record of a settlement (return) file.
// Err is set when a field of the record could not be decoded; the rest of
// the file still parses.
type ReturnRecord struct {
	SlipNumber     string
	OccurrenceCode string
	Category       models.OccurrenceCategory
	TitleValue     decimal.Decimal
	PaidValue      decimal.Decimal
	OccurrenceDate *time.Time
	CreditDate     *time.Time
	Err            error
}

// ReturnFile is the outcome of a full parse pass.
type ReturnFile struct {
	Layout  Layout
	Records []ReturnRecord
}

// ParseReturn detects the layout and parses every detail record. A record
// with malformed numeric fields is reported with Err set instead of
// aborting the pass.
func ParseReturn(data []byte) (*ReturnFile, error) {
	layout, err := DetectLayout(data)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0)
	for _, line := range splitLines(data) {
		trimmed := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(trimmed) != "" {
			lines = append(lines, trimmed)
		}
	}
	file := &ReturnFile{Layout: layout}
	switch layout {
	case Layout240:
		file.Records = parseReturn240(lines)
	default:
		file.Records = parseReturn400(lines)
	}
	return file, nil
}

// CNAB400: one 400-character line per detail record, record type '1'.
func parseReturn400(lines []string) []ReturnRecord {
	records := make([]ReturnRecord, 0, len(lines))
	for _, line := range lines {
		if len(line) == 0 || line[0] != '1' {
			continue
		}
		rec := ReturnRecord{}
		if len(line) < lineLen400 {
			rec.Err = fmt.Errorf("detail record has %d characters, want %d", len(line), lineLen400)
			records = append(records, rec)
			continue
		}
		rec.SlipNumber = strings.TrimLeft(strings.TrimSpace(line[62:82]), "0")
		rec.OccurrenceCode = line[108:110]
		rec.Category = ClassifyOccurrence(rec.OccurrenceCode)
		rec.OccurrenceDate = parseDate(line[110:116], "020106")
		rec.CreditDate = parseDate(line[175:181], "020106")

		title, err := parseCents(line[152:165])
		if err != nil {
			rec.Err = fmt.Errorf("title value: %w", err)
			records = append(records, rec)
			continue
		}
		rec.TitleValue = title

		paid, err := parseCents(line[253:266])
		if err != nil {
			rec.Err = fmt.Errorf("paid value: %w", err)
			records = append(records, rec)
			continue
		}
		rec.PaidValue = paid
		records = append(records, rec)
	}
	return records
}

// CNAB240: one logical record spans a T segment line and the following U
// segment line. Record type sits at column 8, the segment letter at 14.
func parseReturn240(lines []string) []ReturnRecord {
	records := make([]ReturnRecord, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if len(line) < lineLen240 || line[7] != '3' || line[13] != 'T' {
			continue
		}
		rec := ReturnRecord{}
		rec.SlipNumber = strings.TrimLeft(strings.TrimSpace(line[37:57]), "0")
		rec.OccurrenceCode = line[15:17]
		rec.Category = ClassifyOccurrence(rec.OccurrenceCode)

		title, err := parseCents(line[81:96])
		if err != nil {
			rec.Err = fmt.Errorf("title value: %w", err)
			records = append(records, rec)
			continue
		}
		rec.TitleValue = title

		if i+1 < len(lines) {
			next := lines[i+1]
			if len(next) >= lineLen240 && next[7] == '3' && next[13] == 'U' {
				i++
				paid, err := parseCents(next[77:92])
				if err != nil {
					rec.Err = fmt.Errorf("paid value: %w", err)
					records = append(records, rec)
					continue
				}
				rec.PaidValue = paid
				rec.OccurrenceDate = parseDate(next[137:145], "02012006")
				rec.CreditDate = parseDate(next[145:153], "02012006")
			}
		}
		records = append(records, rec)
	}
	return records
}

// parseCents decodes a zero-padded integer-cents field into a decimal with
// two fractional digits.
func parseCents(field string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(field)
	if cleaned == "" {
		return decimal.Zero, nil
	}
	n, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed numeric field %q", field)
	}
	return n.Shift(-2), nil
}

func parseDate(field, goLayout string) *time.Time {
	cleaned := strings.TrimSpace(field)
	if cleaned == "" || strings.Trim(cleaned, "0") == "" {
		return nil
	}
	t, err := time.Parse(goLayout, cleaned)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
