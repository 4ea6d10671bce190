package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contratos/internal/billing"
	"contratos/internal/models"
	"contratos/internal/repository"
	"contratos/internal/schedule"
)

// ContractService creates contracts with their amortization plan and answers
// financial summaries.
type ContractService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// CreateContractInput carries everything needed to open a contract.
type CreateContractInput struct {
	Number        string
	BankAccountID uint64

	TotalValue  decimal.Decimal
	DownPayment decimal.Decimal

	InstallmentCount int
	DueDay           int
	FirstDueDate     time.Time
	ContractDate     time.Time

	IndexType          string
	ReadjustIntervalMo int

	PenaltyPercent         decimal.Decimal
	MonthlyInterestPercent decimal.Decimal
}

var validIndexTypes = map[string]bool{
	models.IndexFixed: true,
	models.IndexIPCA:  true,
	models.IndexIGPM:  true,
	models.IndexINPC:  true,
	models.IndexINCC:  true,
	models.IndexIGPDI: true,
	models.IndexTR:    true,
	models.IndexSELIC: true,
}

// Create validates terms, persists the contract and builds its installment
// plan in one transaction.
func (s *ContractService) Create(ctx context.Context, input CreateContractInput) (*models.Contract, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("contract service not configured")
	}
	input.Number = strings.TrimSpace(input.Number)
	if input.Number == "" {
		return nil, fmt.Errorf("%w: contract number is required", billing.ErrInvalidTerms)
	}
	if input.BankAccountID == 0 {
		return nil, fmt.Errorf("%w: bank account is required", billing.ErrInvalidTerms)
	}
	if input.IndexType == "" {
		input.IndexType = models.IndexFixed
	}
	if !validIndexTypes[input.IndexType] {
		return nil, fmt.Errorf("%w: unknown index type %q", billing.ErrInvalidTerms, input.IndexType)
	}
	if input.DownPayment.IsNegative() {
		return nil, fmt.Errorf("%w: down payment cannot be negative", billing.ErrInvalidTerms)
	}
	financed := input.TotalValue.Sub(input.DownPayment)
	if !financed.IsPositive() {
		return nil, fmt.Errorf("%w: financed value must be positive", billing.ErrInvalidTerms)
	}
	if input.ReadjustIntervalMo <= 0 {
		input.ReadjustIntervalMo = 12
	}
	if input.ContractDate.IsZero() {
		input.ContractDate = time.Now().UTC().Truncate(24 * time.Hour)
	}

	existing, err := s.Repo.GetContractByNumber(ctx, input.Number)
	if err != nil {
		return nil, fmt.Errorf("check contract number: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: contract number %s already exists", billing.ErrInvalidTerms, input.Number)
	}

	account, err := s.Repo.GetBankAccountByID(ctx, input.BankAccountID)
	if err != nil {
		return nil, fmt.Errorf("load bank account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: bank account %d", billing.ErrNotFound, input.BankAccountID)
	}

	plan, err := schedule.BuildPlan(financed, input.InstallmentCount, input.FirstDueDate, input.DueDay)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrInvalidTerms, err)
	}

	contract := &models.Contract{
		Number:                 input.Number,
		BankAccountID:          input.BankAccountID,
		TotalValue:             input.TotalValue,
		DownPayment:            input.DownPayment,
		FinancedValue:          financed,
		InstallmentCount:       input.InstallmentCount,
		DueDay:                 input.DueDay,
		FirstDueDate:           plan[0].DueDate,
		ContractDate:           input.ContractDate,
		IndexType:              input.IndexType,
		ReadjustIntervalMo:     input.ReadjustIntervalMo,
		CurrentCycle:           1,
		PenaltyPercent:         input.PenaltyPercent,
		MonthlyInterestPercent: input.MonthlyInterestPercent,
	}
	if contract.PenaltyPercent.IsZero() {
		contract.PenaltyPercent = decimal.NewFromInt(2)
	}
	if contract.MonthlyInterestPercent.IsZero() {
		contract.MonthlyInterestPercent = decimal.NewFromInt(1)
	}

	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Repo.CreateContractTx(ctx, tx, contract); err != nil {
			return fmt.Errorf("create contract: %w", err)
		}
		items := make([]models.Installment, 0, len(plan))
		for _, p := range plan {
			items = append(items, models.Installment{
				ContractID:    contract.ID,
				Sequence:      p.Sequence,
				DueDate:       p.DueDate,
				OriginalValue: p.Value,
				CurrentValue:  p.Value,
				SlipState:     models.SlipNotGenerated,
			})
		}
		if err := s.Repo.CreateInstallmentsTx(ctx, tx, items); err != nil {
			return fmt.Errorf("create installments: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.Info("contract created",
			zap.String("number", contract.Number),
			zap.Int("installments", contract.InstallmentCount),
			zap.String("financed", financed.StringFixed(2)))
	}
	return contract, nil
}

// CreateInstallments rebuilds the plan for a contract that has none yet.
// Guarded by a count check inside a contract-locked transaction so the plan
// is only ever written once.
func (s *ContractService) CreateInstallments(ctx context.Context, contractID uint64) (int, error) {
	if s == nil || s.Repo == nil {
		return 0, fmt.Errorf("contract service not configured")
	}
	created := 0
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		contract, err := s.Repo.GetContractByIDTx(ctx, tx, contractID, true)
		if err != nil {
			return err
		}
		if contract == nil {
			return fmt.Errorf("%w: contract %d", billing.ErrNotFound, contractID)
		}
		count, err := s.Repo.CountInstallmentsByContract(ctx, contractID)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: contract %s already has %d installments", billing.ErrInvalidTerms, contract.Number, count)
		}
		plan, err := schedule.BuildPlan(contract.FinancedValue, contract.InstallmentCount, contract.FirstDueDate, contract.DueDay)
		if err != nil {
			return fmt.Errorf("%w: %v", billing.ErrInvalidTerms, err)
		}
		items := make([]models.Installment, 0, len(plan))
		for _, p := range plan {
			items = append(items, models.Installment{
				ContractID:    contract.ID,
				Sequence:      p.Sequence,
				DueDate:       p.DueDate,
				OriginalValue: p.Value,
				CurrentValue:  p.Value,
				SlipState:     models.SlipNotGenerated,
			})
		}
		if err := s.Repo.CreateInstallmentsTx(ctx, tx, items); err != nil {
			return err
		}
		created = len(items)
		return nil
	})
	return created, err
}

// ContractSummary is the financial position of one contract.
type ContractSummary struct {
	Contract         *models.Contract `json:"contract"`
	InstallmentCount int64            `json:"installment_count"`
	PaidCount        int64            `json:"paid_count"`
	OverdueCount     int64            `json:"overdue_count"`
	OpenCount        int64            `json:"open_count"`
	TotalPaid        decimal.Decimal  `json:"total_paid"`
	TotalOpen        decimal.Decimal  `json:"total_open"`
	ProgressPercent  decimal.Decimal  `json:"progress_percent"`
}

// Summary aggregates installment state for a contract. TotalPaid includes
// the down payment; progress measures paid value over the total value.
func (s *ContractService) Summary(ctx context.Context, contractID uint64) (*ContractSummary, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("contract service not configured")
	}
	contract, err := s.Repo.GetContractByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, fmt.Errorf("%w: contract %d", billing.ErrNotFound, contractID)
	}
	agg, err := s.Repo.ContractFinancialSummary(ctx, contractID)
	if err != nil {
		return nil, err
	}
	totalPaid := agg.TotalPaid.Add(contract.DownPayment)
	progress := decimal.Zero
	if contract.TotalValue.IsPositive() {
		progress = totalPaid.Div(contract.TotalValue).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return &ContractSummary{
		Contract:         contract,
		InstallmentCount: agg.InstallmentCount,
		PaidCount:        agg.PaidCount,
		OverdueCount:     agg.OverdueCount,
		OpenCount:        agg.OpenCount,
		TotalPaid:        totalPaid,
		TotalOpen:        agg.TotalOpen,
		ProgressPercent:  progress,
	}, nil
}
