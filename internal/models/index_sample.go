package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// IndexSample is a monthly percentage value of an economic index series.
// Unique per (type, year, month); a corrective re-import updates in place.
type IndexSample struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	IndexType string `gorm:"type:varchar(10);not null;uniqueIndex:ux_index_samples_type_period"`
	Year      int    `gorm:"not null;uniqueIndex:ux_index_samples_type_period"`
	Month     int    `gorm:"not null;uniqueIndex:ux_index_samples_type_period"`

	Percent decimal.Decimal `gorm:"type:numeric(8,4);not null"`
	Source  string          `gorm:"type:varchar(20)"`

	ImportedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (IndexSample) TableName() string {
	return "index_samples"
}

// Period renders the sample month as MM/YYYY.
func (s *IndexSample) Period() string {
	return fmt.Sprintf("%02d/%04d", s.Month, s.Year)
}
