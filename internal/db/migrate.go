package db

import (
	"contratos/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.BankAccount{},
		&models.Contract{},
		&models.Installment{},
		&models.Readjustment{},
		&models.IndexSample{},
		&models.RemittanceBatch{},
		&models.RemittanceItem{},
		&models.SettlementBatch{},
		&models.SettlementRecord{},
	)
}
