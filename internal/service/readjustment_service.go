package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contratos/internal/billing"
	"contratos/internal/config"
	"contratos/internal/models"
	"contratos/internal/repository"
	"contratos/internal/schedule"
)

// ReadjustmentService applies cycle-based monetary correction to the unpaid
// installments of a contract.
type ReadjustmentService struct {
	Repo    repository.Repository
	Indices *IndexService
	Config  config.BillingConfig
	Logger  *zap.Logger
}

// ApplyInput selects the readjustment to perform. When Percentage is nil the
// index accumulation over the elapsed period is used.
type ApplyInput struct {
	ContractID uint64
	Cycle      int
	Percentage *decimal.Decimal
	Manual     bool
	Notes      string
}

// InstallmentDelta is one before/after row of a readjustment.
type InstallmentDelta struct {
	Sequence int             `json:"sequence"`
	Before   decimal.Decimal `json:"before"`
	After    decimal.Decimal `json:"after"`
}

// ApplyResult reports an applied (or simulated) readjustment.
type ApplyResult struct {
	Readjustment  *models.Readjustment `json:"readjustment"`
	AffectedCount int                  `json:"affected_count"`
	SkippedPaid   int                  `json:"skipped_paid"`
	TotalBefore   decimal.Decimal      `json:"total_before"`
	TotalAfter    decimal.Decimal      `json:"total_after"`
	Deltas        []InstallmentDelta   `json:"deltas"`
}

// DueCycle reports the next cycle owed by the contract as of a date. FIXED
// contracts are never due.
func (s *ReadjustmentService) DueCycle(contract *models.Contract, asOf time.Time) (int, bool) {
	if contract == nil || contract.IndexType == models.IndexFixed || contract.ReadjustIntervalMo <= 0 {
		return 0, false
	}
	base := contract.ReadjustmentBase()
	due := schedule.AddMonths(base, contract.ReadjustIntervalMo)
	if due.After(asOf) {
		return 0, false
	}
	cycle := contract.CurrentCycle + 1
	if cycle > contract.CycleOf(contract.InstallmentCount) {
		return 0, false
	}
	return cycle, true
}

// periodWindow is the month range whose index samples feed an automatic
// readjustment: the interval months ending the month before the cycle is due.
func (s *ReadjustmentService) periodWindow(contract *models.Contract) (YearMonth, YearMonth) {
	base := YearMonthOf(contract.ReadjustmentBase())
	to := base
	for i := 1; i < contract.ReadjustIntervalMo; i++ {
		to = to.Next()
	}
	return base, to
}

// Apply performs the readjustment inside a contract-locked transaction.
func (s *ReadjustmentService) Apply(ctx context.Context, input ApplyInput) (*ApplyResult, error) {
	return s.run(ctx, input, false)
}

// Simulate runs the same arithmetic without writing anything.
func (s *ReadjustmentService) Simulate(ctx context.Context, input ApplyInput) (*ApplyResult, error) {
	return s.run(ctx, input, true)
}

func (s *ReadjustmentService) run(ctx context.Context, input ApplyInput, dryRun bool) (*ApplyResult, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("readjustment service not configured")
	}
	var result *ApplyResult
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		contract, err := s.Repo.GetContractByIDTx(ctx, tx, input.ContractID, !dryRun)
		if err != nil {
			return err
		}
		if contract == nil {
			return fmt.Errorf("%w: contract %d", billing.ErrNotFound, input.ContractID)
		}
		if contract.IndexType == models.IndexFixed {
			return fmt.Errorf("%w: contract %s carries no correction index", billing.ErrInvalidTerms, contract.Number)
		}

		cycle := input.Cycle
		if cycle <= 0 {
			cycle = contract.CurrentCycle + 1
		}
		if cycle < 2 {
			return fmt.Errorf("%w: cycle %d, first readjustable cycle is 2", billing.ErrInvalidTerms, cycle)
		}
		if existing, err := s.Repo.GetReadjustmentByContractCycle(ctx, contract.ID, cycle); err != nil {
			return err
		} else if existing != nil && existing.Applied {
			return fmt.Errorf("%w: contract %s cycle %d", billing.ErrDuplicateReadjustment, contract.Number, cycle)
		}

		pct, err := s.resolvePercent(ctx, contract, input.Percentage)
		if err != nil {
			return err
		}

		first, last := contract.CycleRange(cycle)
		items, err := s.Repo.ListInstallmentsBySequenceRangeTx(ctx, tx, contract.ID, first, last)
		if err != nil {
			return err
		}

		factor := decimal.NewFromInt(1).Add(pct.Div(decimal.NewFromInt(100)))
		res := &ApplyResult{
			TotalBefore: decimal.Zero,
			TotalAfter:  decimal.Zero,
		}
		for idx := range items {
			item := &items[idx]
			if item.Paid {
				res.SkippedPaid++
				continue
			}
			before := item.CurrentValue
			after := before.Mul(factor).Round(2)
			res.TotalBefore = res.TotalBefore.Add(before)
			res.TotalAfter = res.TotalAfter.Add(after)
			res.Deltas = append(res.Deltas, InstallmentDelta{
				Sequence: item.Sequence,
				Before:   before,
				After:    after,
			})
			res.AffectedCount++
			if dryRun {
				continue
			}
			item.CurrentValue = after
			if err := s.Repo.UpdateInstallmentTx(ctx, tx, item); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		readj := &models.Readjustment{
			ContractID:    contract.ID,
			Cycle:         cycle,
			IndexType:     contract.IndexType,
			Percentage:    pct,
			FirstSequence: first,
			LastSequence:  last,
			Applied:       !dryRun,
			Manual:        input.Manual,
			Notes:         input.Notes,
		}
		if !dryRun {
			readj.AppliedAt = &now
			if err := s.Repo.CreateReadjustmentTx(ctx, tx, readj); err != nil {
				return err
			}
			nextBase := schedule.AddMonths(contract.ReadjustmentBase(), contract.ReadjustIntervalMo)
			contract.LastReadjustmentAt = &nextBase
			contract.CurrentCycle = cycle
			contract.IssuanceBlocked = false
			if err := s.Repo.UpdateContractTx(ctx, tx, contract); err != nil {
				return err
			}
		}
		res.Readjustment = readj
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !dryRun && s.Logger != nil && result != nil {
		s.Logger.Info("readjustment applied",
			zap.Uint64("contract_id", input.ContractID),
			zap.Int("cycle", result.Readjustment.Cycle),
			zap.String("percent", result.Readjustment.Percentage.String()),
			zap.Int("affected", result.AffectedCount))
	}
	return result, nil
}

func (s *ReadjustmentService) resolvePercent(ctx context.Context, contract *models.Contract, override *decimal.Decimal) (decimal.Decimal, error) {
	if override != nil {
		return override.Round(4), nil
	}
	if s.Indices == nil {
		return decimal.Zero, fmt.Errorf("index service unavailable and no percentage given")
	}
	from, to := s.periodWindow(contract)
	pct, err := s.Indices.AccumulatedPercent(ctx, contract.IndexType, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return pct.Round(4), nil
}

// PendingContract is one row of the pending-readjustment listing.
type PendingContract struct {
	Contract      *models.Contract `json:"contract"`
	Cycle         int              `json:"cycle"`
	DueDate       time.Time        `json:"due_date"`
	DaysRemaining int              `json:"days_remaining"`
	Urgent        bool             `json:"urgent"`
	MissingMonths []string         `json:"missing_months,omitempty"`
}

// PendingList returns the contracts whose next readjustment falls inside the
// configured lead window, flagging overdue ones urgent and naming missing
// index months.
func (s *ReadjustmentService) PendingList(ctx context.Context, asOf time.Time) ([]PendingContract, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("readjustment service not configured")
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	leadDays := s.Config.ReadjustmentLeadDays
	if leadDays <= 0 {
		leadDays = 30
	}
	contracts, err := s.Repo.ListContractsDueForReadjustment(ctx, asOf, leadDays, s.Config.SweepBatchSize)
	if err != nil {
		return nil, err
	}
	out := make([]PendingContract, 0, len(contracts))
	for idx := range contracts {
		contract := &contracts[idx]
		cycle := contract.CurrentCycle + 1
		if cycle > contract.CycleOf(contract.InstallmentCount) {
			continue
		}
		due := schedule.AddMonths(contract.ReadjustmentBase(), contract.ReadjustIntervalMo)
		days := int(due.Sub(asOf).Hours() / 24)
		row := PendingContract{
			Contract:      contract,
			Cycle:         cycle,
			DueDate:       due,
			DaysRemaining: days,
			Urgent:        days <= 0,
		}
		if s.Indices != nil {
			from, to := s.periodWindow(contract)
			if missing, err := s.Indices.MissingMonths(ctx, contract.IndexType, from, to); err == nil {
				row.MissingMonths = missing
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// RunOnce is the sweep body: applies every due automatic readjustment and
// blocks issuance on contracts whose index window has gaps.
func (s *ReadjustmentService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	contracts, err := s.Repo.ListContractsDueForReadjustment(ctx, now, 0, s.Config.SweepBatchSize)
	if err != nil {
		return fmt.Errorf("list due contracts: %w", err)
	}
	for idx := range contracts {
		contract := &contracts[idx]
		cycle, due := s.DueCycle(contract, now)
		if !due {
			continue
		}
		_, err := s.Apply(ctx, ApplyInput{
			ContractID: contract.ID,
			Cycle:      cycle,
			Notes:      "automatic sweep",
		})
		switch {
		case err == nil:
		case errors.Is(err, billing.ErrMissingIndexSample):
			if uerr := s.Repo.SetContractIssuanceBlocked(ctx, contract.ID, true); uerr != nil && s.Logger != nil {
				s.Logger.Warn("failed to block issuance", zap.Uint64("contract_id", contract.ID), zap.Error(uerr))
			}
			if s.Logger != nil {
				s.Logger.Warn("readjustment waiting on index samples",
					zap.String("contract", contract.Number),
					zap.Int("cycle", cycle),
					zap.Error(err))
			}
		case errors.Is(err, billing.ErrDuplicateReadjustment):
			// Another worker got there first.
		default:
			if s.Logger != nil {
				s.Logger.Error("readjustment sweep failed",
					zap.String("contract", contract.Number),
					zap.Int("cycle", cycle),
					zap.Error(err))
			}
		}
	}
	return nil
}
