package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contratos/internal/billing"
	"contratos/internal/config"
	"contratos/internal/models"
	"contratos/internal/repository"
)

// OverdueService recomputes late charges and registers manual payments.
type OverdueService struct {
	Repo   repository.Repository
	Config config.BillingConfig
	Logger *zap.Logger
}

// LateCharges computes the interest and one-time penalty owed on an unpaid
// installment at a reference date. Interest is the contract's monthly rate
// pro-rata by days late over a 30-day month; the penalty applies once.
func LateCharges(contract *models.Contract, item *models.Installment, ref time.Time) (interest, penalty decimal.Decimal) {
	if contract == nil || item == nil || !item.Overdue(ref) {
		return decimal.Zero, decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	days := decimal.NewFromInt(int64(item.DaysLate(ref)))
	monthlyRate := contract.MonthlyInterestPercent.Div(hundred)
	interest = item.CurrentValue.Mul(monthlyRate).Mul(days).Div(decimal.NewFromInt(30)).Round(2)
	penalty = item.CurrentValue.Mul(contract.PenaltyPercent.Div(hundred)).Round(2)
	return interest, penalty
}

// RunOnce is the overdue sweep body: refresh interest/penalty on every
// unpaid overdue installment and flip slip states to OVERDUE.
func (s *OverdueService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	items, err := s.Repo.ListOverdueInstallments(ctx, now, s.Config.SweepBatchSize)
	if err != nil {
		return fmt.Errorf("list overdue installments: %w", err)
	}
	contracts := map[uint64]*models.Contract{}
	updated := 0
	for idx := range items {
		item := &items[idx]
		contract, ok := contracts[item.ContractID]
		if !ok {
			contract, err = s.Repo.GetContractByID(ctx, item.ContractID)
			if err != nil || contract == nil {
				continue
			}
			contracts[item.ContractID] = contract
		}
		interest, penalty := LateCharges(contract, item, now)
		changed := !item.Interest.Equal(interest) || !item.Penalty.Equal(penalty)
		item.Interest = interest
		item.Penalty = penalty
		if item.SlipState.CanTransition(models.SlipOverdue) {
			item.SlipState = models.SlipOverdue
			changed = true
		}
		if !changed {
			continue
		}
		if err := s.Repo.UpdateInstallment(ctx, item); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("overdue sweep update failed",
					zap.Uint64("installment_id", item.ID), zap.Error(err))
			}
			continue
		}
		updated++
	}
	if s.Logger != nil && updated > 0 {
		s.Logger.Info("overdue sweep done", zap.Int("updated", updated))
	}
	return nil
}

// RegisterPayment marks an installment paid. Late charges are recomputed at
// the payment date; amount defaults to the payable value. Paid installments
// are frozen afterwards.
func (s *OverdueService) RegisterPayment(ctx context.Context, installmentID uint64, amount *decimal.Decimal, paidAt time.Time) (*models.Installment, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("overdue service not configured")
	}
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	var out *models.Installment
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		item, err := s.Repo.GetInstallmentByIDTx(ctx, tx, installmentID, true)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: installment %d", billing.ErrNotFound, installmentID)
		}
		if item.Paid {
			return fmt.Errorf("%w: installment %d", billing.ErrAlreadyPaid, installmentID)
		}
		contract, err := s.Repo.GetContractByIDTx(ctx, tx, item.ContractID, false)
		if err != nil {
			return err
		}
		item.Interest, item.Penalty = LateCharges(contract, item, paidAt)

		paid := item.PayableValue()
		if amount != nil && amount.IsPositive() {
			paid = *amount
		}
		item.Paid = true
		item.PaidAmount = &paid
		item.PaidAt = &paidAt
		item.SlipState = models.SlipPaid
		if err := s.Repo.UpdateInstallmentTx(ctx, tx, item); err != nil {
			return err
		}
		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("payment registered",
			zap.Uint64("installment_id", installmentID),
			zap.String("amount", out.PaidAmount.StringFixed(2)))
	}
	return out, nil
}

// CancelPayment reverses a registered payment, restoring the slip state the
// installment held before it was settled.
func (s *OverdueService) CancelPayment(ctx context.Context, installmentID uint64) (*models.Installment, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("overdue service not configured")
	}
	var out *models.Installment
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		item, err := s.Repo.GetInstallmentByIDTx(ctx, tx, installmentID, true)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: installment %d", billing.ErrNotFound, installmentID)
		}
		if !item.Paid {
			return fmt.Errorf("%w: installment %d is not paid", billing.ErrInvalidTerms, installmentID)
		}
		item.Paid = false
		item.PaidAmount = nil
		item.PaidAt = nil
		if item.Barcode != "" {
			item.SlipState = models.SlipGenerated
		} else {
			item.SlipState = models.SlipNotGenerated
		}
		if err := s.Repo.UpdateInstallmentTx(ctx, tx, item); err != nil {
			return err
		}
		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("payment canceled", zap.Uint64("installment_id", installmentID))
	}
	return out, nil
}
