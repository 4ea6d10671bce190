package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"contratos/internal/billing"
	"contratos/internal/boleto"
	"contratos/internal/client/boletoapi"
	"contratos/internal/config"
	"contratos/internal/models"
	"contratos/internal/repository"
)

// SlipService issues payment slips. It prefers the external registration
// service and falls back to deterministic local encoding when the service
// fails, in a single attempt.
type SlipService struct {
	Repo   repository.Repository
	Client *boletoapi.Client
	Config config.BillingConfig
	Logger *zap.Logger
}

// SlipResult reports one issuance.
type SlipResult struct {
	Installment *models.Installment `json:"installment"`
	Local       bool                `json:"local"`
	Reused      bool                `json:"reused"`
}

// IssueSlip issues (or returns) the slip of one installment. Existing
// identifiers are returned idempotently unless force is set; force also
// bypasses the readjustment gate with a logged warning.
func (s *SlipService) IssueSlip(ctx context.Context, installmentID uint64, force bool) (*SlipResult, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("slip service not configured")
	}
	item, err := s.Repo.GetInstallmentByID(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: installment %d", billing.ErrNotFound, installmentID)
	}
	if item.Paid || item.SlipState == models.SlipPaid {
		return nil, fmt.Errorf("%w: installment %d/%d", billing.ErrAlreadyPaid, item.ContractID, item.Sequence)
	}

	contract, err := s.Repo.GetContractByID(ctx, item.ContractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, fmt.Errorf("%w: contract %d", billing.ErrNotFound, item.ContractID)
	}
	account, err := s.Repo.GetBankAccountByID(ctx, contract.BankAccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: bank account %d", billing.ErrNotFound, contract.BankAccountID)
	}

	if item.Barcode != "" && !force {
		return &SlipResult{Installment: item, Local: item.SlipLocal, Reused: true}, nil
	}
	if !item.SlipState.CanGenerate() && !force {
		return nil, fmt.Errorf("%w: slip state %s does not admit generation", billing.ErrInvalidTransition, item.SlipState)
	}

	decision, err := billing.CanIssue(contract, item.Sequence, func(cycle int) (*models.Readjustment, error) {
		return s.Repo.GetReadjustmentByContractCycle(ctx, contract.ID, cycle)
	})
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		if !force {
			return nil, fmt.Errorf("%w: contract %s, %s", billing.ErrIssuanceBlocked, contract.Number, decision.Reason)
		}
		item.SlipForceCount++
		if s.Logger != nil {
			s.Logger.Warn("issuance gate bypassed by force",
				zap.String("contract", contract.Number),
				zap.Int("sequence", item.Sequence),
				zap.Int("cycle", decision.Cycle),
				zap.Int("force_count", item.SlipForceCount))
		}
	}

	// The slip number is reserved inside the transaction that persists it on
	// the installment, so concurrent issuers never share a number.
	if item.SlipNumber == "" {
		err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
			number, err := s.Repo.AllocateSlipNumbersTx(ctx, tx, account.ID, 1)
			if err != nil {
				return fmt.Errorf("allocate slip number: %w", err)
			}
			item.SlipNumber = fmt.Sprintf("%011d", number)
			return s.Repo.UpdateInstallmentTx(ctx, tx, item)
		})
		if err != nil {
			return nil, err
		}
	}

	local := false
	resp, err := s.callExternal(ctx, account, item)
	if err == nil && resp.Barcode == "" {
		// A 2xx payload without identifiers is as useless as a failure.
		err = fmt.Errorf("external slip service returned no barcode")
	}
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("external slip service failed, generating locally",
				zap.String("contract", contract.Number),
				zap.Int("sequence", item.Sequence),
				zap.Error(err))
		}
		encoded, encErr := boleto.Encode(boleto.Fields{
			BankCode:   account.BankCode,
			Agency:     account.Agency,
			Account:    account.Number,
			Wallet:     account.Wallet,
			SlipNumber: item.SlipNumber,
			DueDate:    item.DueDate,
			Value:      item.PayableValue(),
		})
		if encErr != nil {
			return nil, fmt.Errorf("local slip encoding: %w", encErr)
		}
		item.Barcode = encoded.Barcode
		item.DigitableLine = encoded.DigitableLine
		item.SlipArtifact = datatypes.JSON(fmt.Sprintf(
			`{"origin":"local","formatted_line":%q,"due_date_factor":%d}`,
			encoded.FormattedDigitable, encoded.DueDateFactor))
		local = true
	} else {
		item.Barcode = resp.Barcode
		item.DigitableLine = resp.DigitableLine
		if resp.SlipNumber != "" {
			item.SlipNumber = resp.SlipNumber
		}
		item.SlipArtifact = datatypes.JSON(resp.RawBody)
	}

	now := time.Now().UTC()
	var reused bool
	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		current, err := s.Repo.GetInstallmentByIDTx(ctx, tx, item.ID, true)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: installment %d", billing.ErrNotFound, item.ID)
		}
		// A concurrent issuer may have committed since the unlocked read;
		// keep its identifiers instead of overwriting them.
		if current.Barcode != "" && !force {
			item = current
			local = current.SlipLocal
			reused = true
			return nil
		}
		current.SlipNumber = item.SlipNumber
		current.SlipForceCount = item.SlipForceCount
		current.Barcode = item.Barcode
		current.DigitableLine = item.DigitableLine
		current.SlipArtifact = item.SlipArtifact
		current.SlipLocal = local
		current.SlipIssuedAt = &now
		current.SlipState = models.SlipGenerated
		item = current
		return s.Repo.UpdateInstallmentTx(ctx, tx, current)
	})
	if err != nil {
		return nil, fmt.Errorf("persist slip: %w", err)
	}
	if reused {
		return &SlipResult{Installment: item, Local: local, Reused: true}, nil
	}

	if s.Logger != nil {
		s.Logger.Info("slip issued",
			zap.String("contract", contract.Number),
			zap.Int("sequence", item.Sequence),
			zap.String("slip_number", item.SlipNumber),
			zap.Bool("local", local))
	}
	return &SlipResult{Installment: item, Local: local}, nil
}

func (s *SlipService) callExternal(ctx context.Context, account *models.BankAccount, item *models.Installment) (*boletoapi.SlipResponse, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("external slip client not configured")
	}
	return s.Client.GenerateSlip(ctx, boletoapi.SlipRequest{
		BankCode:    account.BankCode,
		Agency:      account.Agency,
		Account:     account.Number,
		Wallet:      account.Wallet,
		Beneficiary: account.Beneficiary,
		SlipNumber:  item.SlipNumber,
		DueDate:     item.DueDate.Format("2006-01-02"),
		ValueCents:  item.PayableValue().Shift(2).IntPart(),
	})
}

// BatchResult summarizes a contract-wide issuance.
type BatchResult struct {
	Issued  int          `json:"issued"`
	Blocked int          `json:"blocked"`
	Errors  int          `json:"errors"`
	Results []SlipResult `json:"results"`
}

// IssueBatch issues slips for every unpaid installment of a contract whose
// slip state admits generation, fresh and overdue alike. Gate blocks and
// per-item failures are counted, not fatal.
func (s *SlipService) IssueBatch(ctx context.Context, contractID uint64) (*BatchResult, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("slip service not configured")
	}
	all, err := s.Repo.ListInstallments(ctx, repository.ListInstallmentsParams{
		ContractID: &contractID,
		Limit:      500,
		OrderBy:    "sequence",
		Asc:        boolPtr(true),
	})
	if err != nil {
		return nil, err
	}
	var items []models.Installment
	for idx := range all {
		if all[idx].Paid || !all[idx].SlipState.CanGenerate() {
			continue
		}
		items = append(items, all[idx])
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: contract %d", billing.ErrNoEligible, contractID)
	}
	out := &BatchResult{}
	for idx := range items {
		res, err := s.IssueSlip(ctx, items[idx].ID, false)
		switch {
		case err == nil:
			out.Issued++
			out.Results = append(out.Results, *res)
		case errors.Is(err, billing.ErrIssuanceBlocked):
			out.Blocked++
		default:
			out.Errors++
			if s.Logger != nil {
				s.Logger.Warn("batch issuance item failed",
					zap.Uint64("installment_id", items[idx].ID),
					zap.Error(err))
			}
		}
	}
	return out, nil
}

// RunOnce is the issuance sweep body: issue slips for installments falling
// due within the next month whose contracts are not blocked.
func (s *SlipService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	horizon := time.Now().UTC().AddDate(0, 1, 0)
	items, err := s.Repo.ListInstallmentsAwaitingIssuance(ctx, horizon, s.Config.SweepBatchSize)
	if err != nil {
		return fmt.Errorf("list awaiting issuance: %w", err)
	}
	for idx := range items {
		if _, err := s.IssueSlip(ctx, items[idx].ID, false); err != nil {
			if errors.Is(err, billing.ErrIssuanceBlocked) {
				continue
			}
			if s.Logger != nil {
				s.Logger.Warn("issuance sweep item failed",
					zap.Uint64("installment_id", items[idx].ID),
					zap.Error(err))
			}
		}
	}
	return nil
}

func boolPtr(v bool) *bool {
	return &v
}
