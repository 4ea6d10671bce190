package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"contratos/internal/models"
	"contratos/internal/repository"
	"contratos/internal/schedule"
)

// stubRepo is an in-memory Repository used by the service tests. Tx variants
// ignore the (nil) gorm handle; InTx just runs the callback.
type stubRepo struct {
	nextID uint64

	accounts      map[uint64]*models.BankAccount
	contracts     map[uint64]*models.Contract
	installments  map[uint64]*models.Installment
	readjustments map[uint64]*models.Readjustment
	samples       map[string]*models.IndexSample

	remittanceBatches map[uint64]*models.RemittanceBatch
	remittanceItems   []models.RemittanceItem
	settlementBatches map[uint64]*models.SettlementBatch
	settlementRecords []models.SettlementRecord
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		accounts:          map[uint64]*models.BankAccount{},
		contracts:         map[uint64]*models.Contract{},
		installments:      map[uint64]*models.Installment{},
		readjustments:     map[uint64]*models.Readjustment{},
		samples:           map[string]*models.IndexSample{},
		remittanceBatches: map[uint64]*models.RemittanceBatch{},
		settlementBatches: map[uint64]*models.SettlementBatch{},
	}
}

func (r *stubRepo) id() uint64 {
	r.nextID++
	return r.nextID
}

func sampleKey(indexType string, year, month int) string {
	return fmt.Sprintf("%s/%04d/%02d", indexType, year, month)
}

func (r *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// --- Bank accounts ----------------------------------------------------------

func (r *stubRepo) CreateBankAccount(ctx context.Context, item *models.BankAccount) error {
	if item.ID == 0 {
		item.ID = r.id()
	}
	r.accounts[item.ID] = item
	return nil
}

func (r *stubRepo) GetBankAccountByID(ctx context.Context, id uint64) (*models.BankAccount, error) {
	return r.accounts[id], nil
}

func (r *stubRepo) ListBankAccounts(ctx context.Context, params repository.ListBankAccountsParams) ([]models.BankAccount, error) {
	out := make([]models.BankAccount, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubRepo) AllocateSlipNumbersTx(ctx context.Context, tx *gorm.DB, accountID uint64, n int) (uint64, error) {
	account := r.accounts[accountID]
	if account == nil {
		return 0, fmt.Errorf("account %d not found", accountID)
	}
	if n <= 0 {
		n = 1
	}
	first := account.NextSlipNumber
	account.NextSlipNumber += uint64(n)
	return first, nil
}

func (r *stubRepo) AllocateRemittanceSeqTx(ctx context.Context, tx *gorm.DB, accountID uint64) (uint64, error) {
	account := r.accounts[accountID]
	if account == nil {
		return 0, fmt.Errorf("account %d not found", accountID)
	}
	seq := account.NextRemittanceSeq
	account.NextRemittanceSeq++
	return seq, nil
}

// --- Contracts --------------------------------------------------------------

func (r *stubRepo) CreateContract(ctx context.Context, item *models.Contract) error {
	if item.ID == 0 {
		item.ID = r.id()
	}
	r.contracts[item.ID] = item
	return nil
}

func (r *stubRepo) CreateContractTx(ctx context.Context, tx *gorm.DB, item *models.Contract) error {
	return r.CreateContract(ctx, item)
}

func (r *stubRepo) GetContractByID(ctx context.Context, id uint64) (*models.Contract, error) {
	return r.contracts[id], nil
}

func (r *stubRepo) GetContractByIDTx(ctx context.Context, tx *gorm.DB, id uint64, forUpdate bool) (*models.Contract, error) {
	return r.contracts[id], nil
}

func (r *stubRepo) GetContractByNumber(ctx context.Context, number string) (*models.Contract, error) {
	for _, c := range r.contracts {
		if c.Number == number {
			return c, nil
		}
	}
	return nil, nil
}

func (r *stubRepo) ListContracts(ctx context.Context, params repository.ListContractsParams) ([]models.Contract, error) {
	out := make([]models.Contract, 0, len(r.contracts))
	for _, c := range r.contracts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubRepo) CountContracts(ctx context.Context, params repository.ListContractsParams) (int64, error) {
	return int64(len(r.contracts)), nil
}

func (r *stubRepo) UpdateContractTx(ctx context.Context, tx *gorm.DB, item *models.Contract) error {
	r.contracts[item.ID] = item
	return nil
}

func (r *stubRepo) SetContractIssuanceBlocked(ctx context.Context, id uint64, blocked bool) error {
	if c := r.contracts[id]; c != nil {
		c.IssuanceBlocked = blocked
	}
	return nil
}

func (r *stubRepo) ListContractsDueForReadjustment(ctx context.Context, ref time.Time, leadDays int, limit int) ([]models.Contract, error) {
	horizon := ref.AddDate(0, 0, leadDays)
	out := make([]models.Contract, 0)
	for _, c := range r.contracts {
		if c.IndexType == models.IndexFixed || c.ReadjustIntervalMo <= 0 {
			continue
		}
		due := schedule.AddMonths(c.ReadjustmentBase(), c.ReadjustIntervalMo)
		if !due.After(horizon) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Installments -----------------------------------------------------------

func (r *stubRepo) CreateInstallmentsTx(ctx context.Context, tx *gorm.DB, items []models.Installment) error {
	for i := range items {
		item := items[i]
		if item.ID == 0 {
			item.ID = r.id()
		}
		r.installments[item.ID] = &item
	}
	return nil
}

func (r *stubRepo) GetInstallmentByID(ctx context.Context, id uint64) (*models.Installment, error) {
	return r.installments[id], nil
}

func (r *stubRepo) GetInstallmentByIDTx(ctx context.Context, tx *gorm.DB, id uint64, forUpdate bool) (*models.Installment, error) {
	return r.installments[id], nil
}

func (r *stubRepo) GetInstallmentBySlipNumber(ctx context.Context, accountID uint64, slipNumber string) (*models.Installment, error) {
	for _, item := range r.installments {
		trimmed := trimZeros(item.SlipNumber)
		if trimmed != "" && trimmed == trimZeros(slipNumber) {
			return item, nil
		}
	}
	return nil, nil
}

func trimZeros(s string) string {
	for len(s) > 0 && s[0] == '0' {
		s = s[1:]
	}
	return s
}

func (r *stubRepo) sortedInstallments(filter func(*models.Installment) bool) []models.Installment {
	out := make([]models.Installment, 0)
	for _, item := range r.installments {
		if filter == nil || filter(item) {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ContractID != out[j].ContractID {
			return out[i].ContractID < out[j].ContractID
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

func (r *stubRepo) ListInstallments(ctx context.Context, params repository.ListInstallmentsParams) ([]models.Installment, error) {
	return r.sortedInstallments(func(item *models.Installment) bool {
		if params.ContractID != nil && item.ContractID != *params.ContractID {
			return false
		}
		if params.SlipState != nil && string(item.SlipState) != *params.SlipState {
			return false
		}
		return true
	}), nil
}

func (r *stubRepo) CountInstallments(ctx context.Context, params repository.ListInstallmentsParams) (int64, error) {
	items, _ := r.ListInstallments(ctx, params)
	return int64(len(items)), nil
}

func (r *stubRepo) CountInstallmentsByContract(ctx context.Context, contractID uint64) (int64, error) {
	return int64(len(r.sortedInstallments(func(item *models.Installment) bool {
		return item.ContractID == contractID
	}))), nil
}

func (r *stubRepo) ListInstallmentsBySequenceRangeTx(ctx context.Context, tx *gorm.DB, contractID uint64, first, last int) ([]models.Installment, error) {
	return r.sortedInstallments(func(item *models.Installment) bool {
		return item.ContractID == contractID && item.Sequence >= first && item.Sequence <= last
	}), nil
}

func (r *stubRepo) UpdateInstallment(ctx context.Context, item *models.Installment) error {
	clone := *item
	r.installments[item.ID] = &clone
	return nil
}

func (r *stubRepo) UpdateInstallmentTx(ctx context.Context, tx *gorm.DB, item *models.Installment) error {
	return r.UpdateInstallment(ctx, item)
}

func (r *stubRepo) ListOverdueInstallments(ctx context.Context, ref time.Time, limit int) ([]models.Installment, error) {
	return r.sortedInstallments(func(item *models.Installment) bool {
		return item.Overdue(ref) && !item.SlipState.Terminal()
	}), nil
}

func (r *stubRepo) ListInstallmentsForRemittance(ctx context.Context, accountID uint64, limit int) ([]models.Installment, error) {
	return r.sortedInstallments(func(item *models.Installment) bool {
		contract := r.contracts[item.ContractID]
		if contract == nil || contract.BankAccountID != accountID {
			return false
		}
		return !item.Paid && item.SlipState == models.SlipGenerated
	}), nil
}

func (r *stubRepo) ListInstallmentsAwaitingIssuance(ctx context.Context, horizon time.Time, limit int) ([]models.Installment, error) {
	return r.sortedInstallments(func(item *models.Installment) bool {
		contract := r.contracts[item.ContractID]
		if contract == nil || contract.IssuanceBlocked {
			return false
		}
		return !item.Paid && item.SlipState == models.SlipNotGenerated && !item.DueDate.After(horizon)
	}), nil
}

func (r *stubRepo) ContractFinancialSummary(ctx context.Context, contractID uint64) (repository.ContractFinancialSummary, error) {
	out := repository.ContractFinancialSummary{
		TotalCurrent: decimal.Zero,
		TotalPaid:    decimal.Zero,
		TotalOpen:    decimal.Zero,
	}
	now := time.Now().UTC()
	for _, item := range r.installments {
		if item.ContractID != contractID {
			continue
		}
		out.InstallmentCount++
		out.TotalCurrent = out.TotalCurrent.Add(item.CurrentValue)
		if item.Paid {
			out.PaidCount++
			if item.PaidAmount != nil {
				out.TotalPaid = out.TotalPaid.Add(*item.PaidAmount)
			}
			continue
		}
		out.OpenCount++
		out.TotalOpen = out.TotalOpen.Add(item.PayableValue())
		if item.Overdue(now) {
			out.OverdueCount++
		}
	}
	return out, nil
}

// --- Readjustments ----------------------------------------------------------

func (r *stubRepo) CreateReadjustmentTx(ctx context.Context, tx *gorm.DB, item *models.Readjustment) error {
	for _, existing := range r.readjustments {
		if existing.ContractID == item.ContractID && existing.Cycle == item.Cycle {
			return fmt.Errorf("duplicate key ux_readjustments_contract_cycle")
		}
	}
	if item.ID == 0 {
		item.ID = r.id()
	}
	r.readjustments[item.ID] = item
	return nil
}

func (r *stubRepo) GetReadjustmentByContractCycle(ctx context.Context, contractID uint64, cycle int) (*models.Readjustment, error) {
	for _, item := range r.readjustments {
		if item.ContractID == contractID && item.Cycle == cycle {
			return item, nil
		}
	}
	return nil, nil
}

func (r *stubRepo) ListReadjustments(ctx context.Context, params repository.ListReadjustmentsParams) ([]models.Readjustment, error) {
	out := make([]models.Readjustment, 0)
	for _, item := range r.readjustments {
		if params.ContractID != nil && item.ContractID != *params.ContractID {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cycle < out[j].Cycle })
	return out, nil
}

// --- Index samples ----------------------------------------------------------

func (r *stubRepo) UpsertIndexSample(ctx context.Context, item *models.IndexSample) error {
	key := sampleKey(item.IndexType, item.Year, item.Month)
	if existing := r.samples[key]; existing != nil {
		existing.Percent = item.Percent
		existing.Source = item.Source
		return nil
	}
	if item.ID == 0 {
		item.ID = r.id()
	}
	r.samples[key] = item
	return nil
}

func (r *stubRepo) GetIndexSample(ctx context.Context, indexType string, year, month int) (*models.IndexSample, error) {
	return r.samples[sampleKey(indexType, year, month)], nil
}

func (r *stubRepo) ListIndexSamples(ctx context.Context, params repository.ListIndexSamplesParams) ([]models.IndexSample, error) {
	out := make([]models.IndexSample, 0, len(r.samples))
	for _, item := range r.samples {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

// --- Remittances ------------------------------------------------------------

func (r *stubRepo) CreateRemittanceBatchTx(ctx context.Context, tx *gorm.DB, item *models.RemittanceBatch) error {
	if item.ID == 0 {
		item.ID = r.id()
	}
	r.remittanceBatches[item.ID] = item
	return nil
}

func (r *stubRepo) CreateRemittanceItemsTx(ctx context.Context, tx *gorm.DB, items []models.RemittanceItem) error {
	r.remittanceItems = append(r.remittanceItems, items...)
	return nil
}

func (r *stubRepo) GetRemittanceBatchByID(ctx context.Context, id uint64) (*models.RemittanceBatch, error) {
	return r.remittanceBatches[id], nil
}

func (r *stubRepo) ListRemittanceBatches(ctx context.Context, params repository.ListRemittanceBatchesParams) ([]models.RemittanceBatch, error) {
	out := make([]models.RemittanceBatch, 0, len(r.remittanceBatches))
	for _, item := range r.remittanceBatches {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubRepo) UpdateRemittanceBatchStatus(ctx context.Context, id uint64, status string) error {
	if batch := r.remittanceBatches[id]; batch != nil {
		batch.Status = status
	}
	return nil
}

// --- Settlements ------------------------------------------------------------

func (r *stubRepo) CreateSettlementBatch(ctx context.Context, item *models.SettlementBatch) error {
	if item.ID == 0 {
		item.ID = r.id()
	}
	r.settlementBatches[item.ID] = item
	return nil
}

func (r *stubRepo) UpdateSettlementBatchTx(ctx context.Context, tx *gorm.DB, item *models.SettlementBatch) error {
	r.settlementBatches[item.ID] = item
	return nil
}

func (r *stubRepo) CreateSettlementRecordTx(ctx context.Context, tx *gorm.DB, item *models.SettlementRecord) error {
	if item.ID == 0 {
		item.ID = r.id()
	}
	r.settlementRecords = append(r.settlementRecords, *item)
	return nil
}

func (r *stubRepo) GetSettlementBatchByID(ctx context.Context, id uint64) (*models.SettlementBatch, error) {
	return r.settlementBatches[id], nil
}

func (r *stubRepo) ListSettlementBatches(ctx context.Context, params repository.ListSettlementBatchesParams) ([]models.SettlementBatch, error) {
	out := make([]models.SettlementBatch, 0, len(r.settlementBatches))
	for _, item := range r.settlementBatches {
		if params.BankAccountID != nil && item.BankAccountID != *params.BankAccountID {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubRepo) ListSettlementRecordsByBatch(ctx context.Context, batchID uint64) ([]models.SettlementRecord, error) {
	out := make([]models.SettlementRecord, 0)
	for _, item := range r.settlementRecords {
		if item.BatchID == batchID {
			out = append(out, item)
		}
	}
	return out, nil
}

var _ repository.Repository = (*stubRepo)(nil)

// --- fixtures ---------------------------------------------------------------

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedAccount(r *stubRepo) *models.BankAccount {
	account := &models.BankAccount{
		BankCode:          "001",
		Agency:            "1234",
		Number:            "00567890",
		Wallet:            "17",
		Beneficiary:       "Incorporadora Horizonte",
		Layout:            models.LayoutCNAB400,
		NextSlipNumber:    1,
		NextRemittanceSeq: 1,
		Active:            true,
	}
	_ = r.CreateBankAccount(context.Background(), account)
	return account
}

func seedContract(r *stubRepo, account *models.BankAccount, count, intervalMo int, indexType string) *models.Contract {
	contract := &models.Contract{
		Number:                 fmt.Sprintf("CT-%d", r.nextID+1),
		BankAccountID:          account.ID,
		TotalValue:             dec("120000"),
		DownPayment:            dec("20000"),
		FinancedValue:          dec("100000"),
		InstallmentCount:       count,
		DueDay:                 10,
		FirstDueDate:           date(2025, time.February, 10),
		ContractDate:           date(2025, time.January, 15),
		IndexType:              indexType,
		ReadjustIntervalMo:     intervalMo,
		CurrentCycle:           1,
		PenaltyPercent:         dec("2"),
		MonthlyInterestPercent: dec("1"),
	}
	_ = r.CreateContract(context.Background(), contract)
	return contract
}

func seedInstallment(r *stubRepo, contract *models.Contract, seq int, due time.Time, value string) *models.Installment {
	item := &models.Installment{
		ID:            r.id(),
		ContractID:    contract.ID,
		Sequence:      seq,
		DueDate:       due,
		OriginalValue: dec(value),
		CurrentValue:  dec(value),
		SlipState:     models.SlipNotGenerated,
	}
	r.installments[item.ID] = item
	return item
}
