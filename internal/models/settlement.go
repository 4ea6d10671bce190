package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settlement batch statuses.
const (
	SettlementPending   = "PENDING"
	SettlementProcessed = "PROCESSED"
	SettlementPartial   = "PARTIAL"
	SettlementError     = "ERROR"
)

// Occurrence categories, a closed set mapped from bank occurrence codes.
type OccurrenceCategory string

const (
	OccurrenceEntry      OccurrenceCategory = "ENTRY_CONFIRMED"
	OccurrenceSettlement OccurrenceCategory = "SETTLEMENT"
	OccurrenceWriteOff   OccurrenceCategory = "WRITE_OFF"
	OccurrenceRejection  OccurrenceCategory = "REJECTION"
	OccurrenceProtest    OccurrenceCategory = "PROTEST"
	OccurrenceFee        OccurrenceCategory = "FEE"
	OccurrenceOther      OccurrenceCategory = "OTHER"
)

// SettlementBatch is an incoming clearing (return) file reporting the fate
// of previously remitted slips.
type SettlementBatch struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	BankAccountID uint64 `gorm:"not null;index"`

	Layout string `gorm:"type:varchar(10);not null"`
	Status string `gorm:"type:varchar(10);not null;default:'PENDING'"`

	TotalRecords     int `gorm:"not null;default:0"`
	ProcessedRecords int `gorm:"not null;default:0"`
	ErroredRecords   int `gorm:"not null;default:0"`

	TotalSettled decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`

	ProcessedAt *time.Time `gorm:"type:timestamptz"`
	CreatedAt   time.Time  `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"type:timestamptz;autoUpdateTime"`
}

func (SettlementBatch) TableName() string {
	return "settlement_batches"
}

// SettlementRecord is one detail record of a settlement batch.
// InstallmentID is nil when the slip number could not be matched; the record
// is kept with ErrorText set and the batch continues.
type SettlementRecord struct {
	ID            uint64  `gorm:"primaryKey;autoIncrement"`
	BatchID       uint64  `gorm:"not null;index"`
	InstallmentID *uint64 `gorm:"index"`

	SlipNumber     string             `gorm:"type:varchar(20);not null;index"`
	OccurrenceCode string             `gorm:"type:varchar(2);not null"`
	Category       OccurrenceCategory `gorm:"type:varchar(20);not null"`

	TitleValue decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	PaidValue  *decimal.Decimal `gorm:"type:numeric(12,2)"`

	OccurrenceDate *time.Time `gorm:"type:date"`
	CreditDate     *time.Time `gorm:"type:date"`

	Processed bool   `gorm:"not null;default:false"`
	ErrorText string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (SettlementRecord) TableName() string {
	return "settlement_records"
}
