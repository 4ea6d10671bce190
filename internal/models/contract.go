package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Correction index types. IndexFixed means the contract carries no monetary
// correction and is never subject to readjustment.
const (
	IndexFixed = "FIXED"
	IndexIPCA  = "IPCA"
	IndexIGPM  = "IGPM"
	IndexINPC  = "INPC"
	IndexINCC  = "INCC"
	IndexIGPDI = "IGPDI"
	IndexTR    = "TR"
	IndexSELIC = "SELIC"
)

// Contract is an installment-based sale contract. FinancedValue is always
// TotalValue - DownPayment; installments divide it over InstallmentCount
// months starting at FirstDueDate.
type Contract struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	Number string `gorm:"type:varchar(30);not null;uniqueIndex"`

	BankAccountID uint64 `gorm:"not null;index"`

	TotalValue    decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	DownPayment   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	FinancedValue decimal.Decimal `gorm:"type:numeric(12,2);not null"`

	InstallmentCount int       `gorm:"not null"`
	DueDay           int       `gorm:"not null"`
	FirstDueDate     time.Time `gorm:"type:date;not null"`
	ContractDate     time.Time `gorm:"type:date;not null"`

	IndexType          string `gorm:"type:varchar(10);not null;default:'FIXED'"`
	ReadjustIntervalMo int    `gorm:"not null;default:12"`

	LastReadjustmentAt *time.Time `gorm:"type:date"`
	CurrentCycle       int        `gorm:"not null;default:1"`
	IssuanceBlocked    bool       `gorm:"not null;default:false"`

	// Overdue charges, applied by the overdue sweep and at payment time.
	PenaltyPercent         decimal.Decimal `gorm:"type:numeric(8,4);not null;default:2"`
	MonthlyInterestPercent decimal.Decimal `gorm:"type:numeric(8,4);not null;default:1"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Contract) TableName() string {
	return "contracts"
}

// CycleOf returns the readjustment cycle an installment sequence belongs to.
func (c *Contract) CycleOf(seq int) int {
	if c.ReadjustIntervalMo <= 0 {
		return 1
	}
	return (seq-1)/c.ReadjustIntervalMo + 1
}

// CycleRange returns the first and last installment sequence of a cycle,
// capped at the contract's installment count.
func (c *Contract) CycleRange(cycle int) (first, last int) {
	first = (cycle-1)*c.ReadjustIntervalMo + 1
	last = cycle * c.ReadjustIntervalMo
	if last > c.InstallmentCount {
		last = c.InstallmentCount
	}
	return first, last
}

// ReadjustmentBase is the date the next readjustment period counts from.
func (c *Contract) ReadjustmentBase() time.Time {
	if c.LastReadjustmentAt != nil {
		return *c.LastReadjustmentAt
	}
	return c.ContractDate
}
