package models

import (
	"time"
)

// CNAB layouts supported for remittance/return files.
const (
	LayoutCNAB240 = "CNAB240"
	LayoutCNAB400 = "CNAB400"
)

// BankAccount holds the collection account used to issue slips and exchange
// CNAB files. NextSlipNumber and NextRemittanceSeq are shared counters: they
// are read-incremented only inside the transaction that persists the slip or
// batch depending on them.
type BankAccount struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	BankCode    string `gorm:"type:varchar(3);not null;index"`
	Agency      string `gorm:"type:varchar(10);not null"`
	Number      string `gorm:"type:varchar(20);not null"`
	Wallet      string `gorm:"type:varchar(5);not null;default:'17'"`
	Beneficiary string `gorm:"type:varchar(100);not null"`

	Layout string `gorm:"type:varchar(10);not null;default:'CNAB400'"`

	NextSlipNumber    uint64 `gorm:"not null;default:1"`
	NextRemittanceSeq uint64 `gorm:"not null;default:1"`

	Active bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (BankAccount) TableName() string {
	return "bank_accounts"
}
