package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Readjustment records one monetary-correction event over a contract cycle.
// At most one applied row may exist per (contract, cycle); once applied the
// percentage and the affected range are immutable.
type Readjustment struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	ContractID uint64 `gorm:"not null;uniqueIndex:ux_readjustments_contract_cycle;index"`
	Cycle      int    `gorm:"not null;uniqueIndex:ux_readjustments_contract_cycle"`

	IndexType  string          `gorm:"type:varchar(10);not null"`
	Percentage decimal.Decimal `gorm:"type:numeric(8,4);not null"`

	FirstSequence int `gorm:"not null"`
	LastSequence  int `gorm:"not null"`

	Applied   bool       `gorm:"not null;default:false"`
	AppliedAt *time.Time `gorm:"type:timestamptz"`
	Manual    bool       `gorm:"not null;default:false"`
	Notes     string     `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Readjustment) TableName() string {
	return "readjustments"
}
