package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Remittance batch statuses.
const (
	RemittanceGenerated = "GENERATED"
	RemittanceSent      = "SENT"
	RemittanceError     = "ERROR"
)

// RemittanceBatch is an outgoing clearing file: a set of issued slips
// submitted to the bank for registration. Sequence is unique and monotonic
// per bank account.
type RemittanceBatch struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	BankAccountID uint64 `gorm:"not null;uniqueIndex:ux_remittances_account_seq;index"`
	Sequence      uint64 `gorm:"not null;uniqueIndex:ux_remittances_account_seq"`

	Layout   string `gorm:"type:varchar(10);not null"`
	FileName string `gorm:"type:varchar(50);not null"`

	ItemCount  int             `gorm:"not null"`
	TotalValue decimal.Decimal `gorm:"type:numeric(14,2);not null"`

	FileBytes []byte `gorm:"type:bytea"`
	Local     bool   `gorm:"not null;default:false"`
	Status    string `gorm:"type:varchar(10);not null;default:'GENERATED'"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (RemittanceBatch) TableName() string {
	return "remittance_batches"
}

// RemittanceItem links one installment's slip into a remittance batch.
type RemittanceItem struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	BatchID       uint64 `gorm:"not null;index"`
	InstallmentID uint64 `gorm:"not null;index"`

	SlipNumber string          `gorm:"type:varchar(20);not null"`
	Value      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	DueDate    time.Time       `gorm:"type:date;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (RemittanceItem) TableName() string {
	return "remittance_items"
}
