package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contratos/internal/billing"
	"contratos/internal/cnab"
	"contratos/internal/models"
	"contratos/internal/repository"
)

// SettlementService ingests bank return files. Each detail record is applied
// in its own transaction so one bad record never poisons the batch.
type SettlementService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// Ingest parses a return file and reconciles every record against the
// account's installments. The batch ends PROCESSED, PARTIAL or ERROR
// depending on the per-record outcomes.
func (s *SettlementService) Ingest(ctx context.Context, accountID uint64, data []byte) (*models.SettlementBatch, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("settlement service not configured")
	}
	account, err := s.Repo.GetBankAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: bank account %d", billing.ErrNotFound, accountID)
	}

	file, err := cnab.ParseReturn(data)
	if err != nil {
		return nil, fmt.Errorf("parse return file: %w", err)
	}

	batch := &models.SettlementBatch{
		BankAccountID: accountID,
		Layout:        string(file.Layout),
		Status:        models.SettlementPending,
		TotalRecords:  len(file.Records),
	}
	if err := s.Repo.CreateSettlementBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("create settlement batch: %w", err)
	}

	totalSettled := decimal.Zero
	for _, record := range file.Records {
		settled, err := s.applyRecord(ctx, accountID, batch.ID, record)
		if err != nil {
			batch.ErroredRecords++
			if s.Logger != nil {
				s.Logger.Warn("settlement record failed",
					zap.Uint64("batch_id", batch.ID),
					zap.String("slip_number", record.SlipNumber),
					zap.Error(err))
			}
			continue
		}
		batch.ProcessedRecords++
		totalSettled = totalSettled.Add(settled)
	}

	switch {
	case batch.ErroredRecords == 0:
		batch.Status = models.SettlementProcessed
	case batch.ProcessedRecords == 0:
		batch.Status = models.SettlementError
	default:
		batch.Status = models.SettlementPartial
	}
	batch.TotalSettled = totalSettled
	now := time.Now().UTC()
	batch.ProcessedAt = &now

	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return s.Repo.UpdateSettlementBatchTx(ctx, tx, batch)
	})
	if err != nil {
		return nil, fmt.Errorf("finalize settlement batch: %w", err)
	}

	if s.Logger != nil {
		s.Logger.Info("settlement batch ingested",
			zap.Uint64("batch_id", batch.ID),
			zap.String("status", batch.Status),
			zap.Int("processed", batch.ProcessedRecords),
			zap.Int("errored", batch.ErroredRecords),
			zap.String("total_settled", totalSettled.StringFixed(2)))
	}
	return batch, nil
}

// applyRecord reconciles one return record. The settlement record is always
// stored; a failure to match or apply is stored with error text and counted
// against the batch.
func (s *SettlementService) applyRecord(ctx context.Context, accountID, batchID uint64, record cnab.ReturnRecord) (decimal.Decimal, error) {
	row := &models.SettlementRecord{
		BatchID:        batchID,
		SlipNumber:     record.SlipNumber,
		OccurrenceCode: record.OccurrenceCode,
		Category:       record.Category,
		TitleValue:     record.TitleValue,
		OccurrenceDate: record.OccurrenceDate,
		CreditDate:     record.CreditDate,
	}
	if !record.PaidValue.IsZero() {
		paid := record.PaidValue
		row.PaidValue = &paid
	}

	settled := decimal.Zero
	applyErr := func() error {
		if record.Err != nil {
			return fmt.Errorf("malformed record: %w", record.Err)
		}
		item, err := s.Repo.GetInstallmentBySlipNumber(ctx, accountID, record.SlipNumber)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: no installment with slip number %s", billing.ErrNotFound, record.SlipNumber)
		}
		row.InstallmentID = &item.ID

		return s.Repo.InTx(ctx, func(tx *gorm.DB) error {
			locked, err := s.Repo.GetInstallmentByIDTx(ctx, tx, item.ID, true)
			if err != nil {
				return err
			}
			if locked == nil {
				return fmt.Errorf("%w: installment %d", billing.ErrNotFound, item.ID)
			}
			switch record.Category {
			case models.OccurrenceSettlement:
				if locked.Paid {
					return fmt.Errorf("%w: installment %d", billing.ErrAlreadyPaid, locked.ID)
				}
				paid := record.PaidValue
				if paid.IsZero() {
					paid = record.TitleValue
				}
				when := time.Now().UTC()
				if record.CreditDate != nil {
					when = *record.CreditDate
				} else if record.OccurrenceDate != nil {
					when = *record.OccurrenceDate
				}
				locked.Paid = true
				locked.PaidAmount = &paid
				locked.PaidAt = &when
				locked.SlipState = models.SlipPaid
				settled = paid
			case models.OccurrenceEntry:
				if locked.SlipState.CanTransition(models.SlipRegistered) {
					locked.SlipState = models.SlipRegistered
				}
			case models.OccurrenceWriteOff:
				if !locked.SlipState.CanTransition(models.SlipWrittenOff) {
					return fmt.Errorf("%w: %s -> WRITTEN_OFF", billing.ErrInvalidTransition, locked.SlipState)
				}
				locked.SlipState = models.SlipWrittenOff
			case models.OccurrenceProtest:
				if !locked.SlipState.CanTransition(models.SlipProtested) {
					return fmt.Errorf("%w: %s -> PROTESTED", billing.ErrInvalidTransition, locked.SlipState)
				}
				locked.SlipState = models.SlipProtested
			case models.OccurrenceRejection, models.OccurrenceFee, models.OccurrenceOther:
				// Informational; the record itself is the audit trail.
			}
			return s.Repo.UpdateInstallmentTx(ctx, tx, locked)
		})
	}()

	row.Processed = applyErr == nil
	if applyErr != nil {
		row.ErrorText = applyErr.Error()
	}
	storeErr := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return s.Repo.CreateSettlementRecordTx(ctx, tx, row)
	})
	if storeErr != nil {
		return decimal.Zero, storeErr
	}
	return settled, applyErr
}
