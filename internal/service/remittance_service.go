package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contratos/internal/billing"
	"contratos/internal/client/boletoapi"
	"contratos/internal/cnab"
	"contratos/internal/models"
	"contratos/internal/repository"
)

// RemittanceService builds outgoing clearing files: every generated, unpaid
// slip of an account is bundled under a per-account monotonic sequence.
type RemittanceService struct {
	Repo   repository.Repository
	Client *boletoapi.Client
	Logger *zap.Logger
}

// Generate creates a remittance batch for the account. The sequence is
// reserved in the same transaction that persists the batch and its items;
// the external renderer is tried first and the local fixed-width writer is
// the fallback.
func (s *RemittanceService) Generate(ctx context.Context, accountID uint64) (*models.RemittanceBatch, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("remittance service not configured")
	}
	account, err := s.Repo.GetBankAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: bank account %d", billing.ErrNotFound, accountID)
	}

	items, err := s.Repo.ListInstallmentsForRemittance(ctx, accountID, 500)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: account %d has no generated slips to remit", billing.ErrNoEligible, accountID)
	}

	now := time.Now().UTC()
	details := make([]cnab.RemittanceDetail, 0, len(items))
	slipNumbers := make([]string, 0, len(items))
	total := decimal.Zero
	for idx := range items {
		item := &items[idx]
		value := item.PayableValue()
		total = total.Add(value)
		issueDate := now
		if item.SlipIssuedAt != nil {
			issueDate = *item.SlipIssuedAt
		}
		details = append(details, cnab.RemittanceDetail{
			SlipNumber:     item.SlipNumber,
			DocumentNumber: fmt.Sprintf("%d-%d", item.ContractID, item.Sequence),
			Value:          value,
			DueDate:        item.DueDate,
			IssueDate:      issueDate,
		})
		slipNumbers = append(slipNumbers, item.SlipNumber)
	}

	var batch *models.RemittanceBatch
	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		seq, err := s.Repo.AllocateRemittanceSeqTx(ctx, tx, accountID)
		if err != nil {
			return fmt.Errorf("allocate remittance sequence: %w", err)
		}

		fileName, fileBytes, local := s.renderFile(ctx, account, seq, now, details, slipNumbers)

		batch = &models.RemittanceBatch{
			BankAccountID: accountID,
			Sequence:      seq,
			Layout:        account.Layout,
			FileName:      fileName,
			ItemCount:     len(details),
			TotalValue:    total,
			FileBytes:     fileBytes,
			Local:         local,
			Status:        models.RemittanceGenerated,
		}
		if err := s.Repo.CreateRemittanceBatchTx(ctx, tx, batch); err != nil {
			return fmt.Errorf("create remittance batch: %w", err)
		}

		rows := make([]models.RemittanceItem, 0, len(items))
		for idx := range items {
			item := &items[idx]
			rows = append(rows, models.RemittanceItem{
				BatchID:       batch.ID,
				InstallmentID: item.ID,
				SlipNumber:    item.SlipNumber,
				Value:         item.PayableValue(),
				DueDate:       item.DueDate,
			})
			item.SlipState = models.SlipRegistered
			if err := s.Repo.UpdateInstallmentTx(ctx, tx, item); err != nil {
				return err
			}
		}
		return s.Repo.CreateRemittanceItemsTx(ctx, tx, rows)
	})
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.Info("remittance generated",
			zap.Uint64("account_id", accountID),
			zap.Uint64("sequence", batch.Sequence),
			zap.Int("items", batch.ItemCount),
			zap.Bool("local", batch.Local))
	}
	return batch, nil
}

// renderFile tries the external renderer and falls back to the local writer.
func (s *RemittanceService) renderFile(ctx context.Context, account *models.BankAccount, seq uint64, now time.Time, details []cnab.RemittanceDetail, slipNumbers []string) (string, []byte, bool) {
	if s.Client != nil {
		resp, err := s.Client.GenerateRemittance(ctx, boletoapi.RemittanceRequest{
			Layout:      account.Layout,
			BankCode:    account.BankCode,
			Agency:      account.Agency,
			Account:     account.Number,
			Beneficiary: account.Beneficiary,
			Sequence:    seq,
			SlipNumbers: slipNumbers,
		})
		if err == nil && resp.Content != "" {
			name := resp.FileName
			if name == "" {
				name = cnab.RemittanceFileName(now, seq)
			}
			return name, []byte(resp.Content), false
		}
		if err != nil && s.Logger != nil {
			s.Logger.Warn("external remittance renderer failed, writing locally",
				zap.Uint64("account_id", account.ID),
				zap.Error(err))
		}
	}

	header := cnab.RemittanceHeader{
		BankCode:    account.BankCode,
		Agency:      account.Agency,
		Account:     account.Number,
		Beneficiary: account.Beneficiary,
		Sequence:    seq,
		GeneratedAt: now,
	}
	fileBytes := cnab.WriteRemittance(cnab.Layout(account.Layout), header, details)
	return cnab.RemittanceFileName(now, seq), fileBytes, true
}

// MarkSent flips a batch to SENT after the operator ships the file.
func (s *RemittanceService) MarkSent(ctx context.Context, batchID uint64) error {
	if s == nil || s.Repo == nil {
		return fmt.Errorf("remittance service not configured")
	}
	batch, err := s.Repo.GetRemittanceBatchByID(ctx, batchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return fmt.Errorf("%w: remittance batch %d", billing.ErrNotFound, batchID)
	}
	return s.Repo.UpdateRemittanceBatchStatus(ctx, batchID, models.RemittanceSent)
}
