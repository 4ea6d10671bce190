package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Installment is one monthly charge of a contract. CurrentValue starts at
// OriginalValue and only grows through readjustments; it is frozen once the
// installment is paid.
type Installment struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	ContractID uint64 `gorm:"not null;uniqueIndex:ux_installments_contract_seq;index"`
	Sequence   int    `gorm:"not null;uniqueIndex:ux_installments_contract_seq"`

	DueDate time.Time `gorm:"type:date;not null;index"`

	OriginalValue decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CurrentValue  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Interest      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Penalty       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Discount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`

	Paid       bool             `gorm:"not null;default:false;index"`
	PaidAmount *decimal.Decimal `gorm:"type:numeric(12,2)"`
	PaidAt     *time.Time       `gorm:"type:date"`

	SlipState      SlipState      `gorm:"type:varchar(20);not null;default:'NOT_GENERATED'"`
	SlipNumber     string         `gorm:"type:varchar(20);index"`
	Barcode        string         `gorm:"type:varchar(44)"`
	DigitableLine  string         `gorm:"type:varchar(54)"`
	SlipArtifact   datatypes.JSON `gorm:"type:jsonb"`
	SlipLocal      bool           `gorm:"not null;default:false"`
	SlipIssuedAt   *time.Time     `gorm:"type:timestamptz"`
	SlipForceCount int            `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Installment) TableName() string {
	return "installments"
}

// PayableValue is what the debtor owes today for this installment.
func (i *Installment) PayableValue() decimal.Decimal {
	return i.CurrentValue.Add(i.Interest).Add(i.Penalty).Sub(i.Discount)
}

// Overdue reports whether the installment is unpaid and past due on ref.
func (i *Installment) Overdue(ref time.Time) bool {
	return !i.Paid && ref.After(i.DueDate)
}

// DaysLate returns whole days past the due date, zero when not overdue.
func (i *Installment) DaysLate(ref time.Time) int {
	if !i.Overdue(ref) {
		return 0
	}
	return int(ref.Sub(i.DueDate).Hours() / 24)
}
