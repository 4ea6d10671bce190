package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"contratos/internal/models"
	"contratos/internal/repository"
)

type Store struct {
	db *gorm.DB
}

var _ repository.Repository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Bank accounts ----------------------------------------------------------

func (s *Store) CreateBankAccount(ctx context.Context, item *models.BankAccount) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetBankAccountByID(ctx context.Context, id uint64) (*models.BankAccount, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.BankAccount
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListBankAccounts(ctx context.Context, params repository.ListBankAccountsParams) ([]models.BankAccount, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.BankAccount{})
	if params.Active != nil {
		query = query.Where("active = ?", *params.Active)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "id")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.BankAccount
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) AllocateSlipNumbersTx(ctx context.Context, tx *gorm.DB, accountID uint64, n int) (uint64, error) {
	if s == nil || tx == nil {
		return 0, nil
	}
	if n <= 0 {
		n = 1
	}
	var account models.BankAccount
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&account, "id = ?", accountID).Error; err != nil {
		return 0, err
	}
	first := account.NextSlipNumber
	if err := tx.WithContext(ctx).
		Model(&models.BankAccount{}).
		Where("id = ?", accountID).
		Update("next_slip_number", first+uint64(n)).Error; err != nil {
		return 0, err
	}
	return first, nil
}

func (s *Store) AllocateRemittanceSeqTx(ctx context.Context, tx *gorm.DB, accountID uint64) (uint64, error) {
	if s == nil || tx == nil {
		return 0, nil
	}
	var account models.BankAccount
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&account, "id = ?", accountID).Error; err != nil {
		return 0, err
	}
	seq := account.NextRemittanceSeq
	if err := tx.WithContext(ctx).
		Model(&models.BankAccount{}).
		Where("id = ?", accountID).
		Update("next_remittance_seq", seq+1).Error; err != nil {
		return 0, err
	}
	return seq, nil
}

// --- Contracts --------------------------------------------------------------

func (s *Store) CreateContract(ctx context.Context, item *models.Contract) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) CreateContractTx(ctx context.Context, tx *gorm.DB, item *models.Contract) error {
	if s == nil || tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) GetContractByID(ctx context.Context, id uint64) (*models.Contract, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Contract
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetContractByIDTx(ctx context.Context, tx *gorm.DB, id uint64, forUpdate bool) (*models.Contract, error) {
	if s == nil || tx == nil {
		return nil, nil
	}
	query := tx.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var item models.Contract
	err := query.First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetContractByNumber(ctx context.Context, number string) (*models.Contract, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, nil
	}
	var item models.Contract
	err := s.db.WithContext(ctx).First(&item, "number = ?", number).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListContracts(ctx context.Context, params repository.ListContractsParams) ([]models.Contract, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.applyContractFilters(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Contract
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountContracts(ctx context.Context, params repository.ListContractsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.applyContractFilters(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) applyContractFilters(ctx context.Context, params repository.ListContractsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Contract{})
	if params.Number != nil && strings.TrimSpace(*params.Number) != "" {
		query = query.Where("number = ?", strings.TrimSpace(*params.Number))
	}
	if params.IndexType != nil && strings.TrimSpace(*params.IndexType) != "" {
		query = query.Where("index_type = ?", strings.TrimSpace(*params.IndexType))
	}
	if params.BankAccountID != nil && *params.BankAccountID > 0 {
		query = query.Where("bank_account_id = ?", *params.BankAccountID)
	}
	if params.Blocked != nil {
		query = query.Where("issuance_blocked = ?", *params.Blocked)
	}
	return query
}

func (s *Store) UpdateContractTx(ctx context.Context, tx *gorm.DB, item *models.Contract) error {
	if s == nil || tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Save(item).Error
}

func (s *Store) SetContractIssuanceBlocked(ctx context.Context, id uint64, blocked bool) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("id = ?", id).
		Update("issuance_blocked", blocked).Error
}

func (s *Store) ListContractsDueForReadjustment(ctx context.Context, ref time.Time, leadDays int, limit int) ([]models.Contract, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if ref.IsZero() {
		ref = time.Now().UTC()
	}
	if leadDays < 0 {
		leadDays = 0
	}
	limit = normalizeLimit(limit, 200)
	horizon := ref.AddDate(0, 0, leadDays)
	var items []models.Contract
	err := s.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("index_type <> ?", models.IndexFixed).
		Where("readjust_interval_mo > 0").
		Where("coalesce(last_readjustment_at, contract_date) + (readjust_interval_mo || ' months')::interval <= ?", horizon).
		Order("id asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Installments -----------------------------------------------------------

func (s *Store) CreateInstallmentsTx(ctx context.Context, tx *gorm.DB, items []models.Installment) error {
	if s == nil || tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).CreateInBatches(items, 100).Error
}

func (s *Store) GetInstallmentByID(ctx context.Context, id uint64) (*models.Installment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Installment
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetInstallmentByIDTx(ctx context.Context, tx *gorm.DB, id uint64, forUpdate bool) (*models.Installment, error) {
	if s == nil || tx == nil {
		return nil, nil
	}
	query := tx.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var item models.Installment
	err := query.First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetInstallmentBySlipNumber(ctx context.Context, accountID uint64, slipNumber string) (*models.Installment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	slipNumber = strings.TrimLeft(strings.TrimSpace(slipNumber), "0")
	if slipNumber == "" {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Joins("JOIN contracts ON contracts.id = installments.contract_id").
		Where("ltrim(installments.slip_number, '0') = ?", slipNumber)
	if accountID > 0 {
		query = query.Where("contracts.bank_account_id = ?", accountID)
	}
	var item models.Installment
	err := query.First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListInstallments(ctx context.Context, params repository.ListInstallmentsParams) ([]models.Installment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.applyInstallmentFilters(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "due_date")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Installment
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountInstallments(ctx context.Context, params repository.ListInstallmentsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.applyInstallmentFilters(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) applyInstallmentFilters(ctx context.Context, params repository.ListInstallmentsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Installment{})
	if params.ContractID != nil && *params.ContractID > 0 {
		query = query.Where("contract_id = ?", *params.ContractID)
	}
	if params.SlipState != nil && strings.TrimSpace(*params.SlipState) != "" {
		query = query.Where("slip_state = ?", strings.TrimSpace(*params.SlipState))
	}
	if params.DueBefore != nil && !params.DueBefore.IsZero() {
		query = query.Where("due_date <= ?", *params.DueBefore)
	}
	if params.DueAfter != nil && !params.DueAfter.IsZero() {
		query = query.Where("due_date >= ?", *params.DueAfter)
	}
	return query
}

func (s *Store) CountInstallmentsByContract(ctx context.Context, contractID uint64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.Installment{}).
		Where("contract_id = ?", contractID).
		Count(&total).Error
	return total, err
}

func (s *Store) ListInstallmentsBySequenceRangeTx(ctx context.Context, tx *gorm.DB, contractID uint64, first, last int) ([]models.Installment, error) {
	if s == nil || tx == nil {
		return nil, nil
	}
	var items []models.Installment
	err := tx.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Where("sequence BETWEEN ? AND ?", first, last).
		Order("sequence asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateInstallment(ctx context.Context, item *models.Installment) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) UpdateInstallmentTx(ctx context.Context, tx *gorm.DB, item *models.Installment) error {
	if s == nil || tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Save(item).Error
}

func (s *Store) ListOverdueInstallments(ctx context.Context, ref time.Time, limit int) ([]models.Installment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if ref.IsZero() {
		ref = time.Now().UTC()
	}
	limit = normalizeLimit(limit, 500)
	var items []models.Installment
	err := s.db.WithContext(ctx).
		Model(&models.Installment{}).
		Where("paid = false").
		Where("due_date < ?", ref).
		Where("slip_state NOT IN ?", []string{
			string(models.SlipPaid),
			string(models.SlipCanceled),
			string(models.SlipWrittenOff),
		}).
		Order("due_date asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListInstallmentsForRemittance(ctx context.Context, accountID uint64, limit int) ([]models.Installment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 500)
	var items []models.Installment
	err := s.db.WithContext(ctx).
		Model(&models.Installment{}).
		Joins("JOIN contracts ON contracts.id = installments.contract_id").
		Where("contracts.bank_account_id = ?", accountID).
		Where("installments.paid = false").
		Where("installments.slip_state = ?", string(models.SlipGenerated)).
		Order("installments.due_date asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListInstallmentsAwaitingIssuance(ctx context.Context, horizon time.Time, limit int) ([]models.Installment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if horizon.IsZero() {
		horizon = time.Now().UTC().AddDate(0, 1, 0)
	}
	limit = normalizeLimit(limit, 500)
	var items []models.Installment
	err := s.db.WithContext(ctx).
		Model(&models.Installment{}).
		Joins("JOIN contracts ON contracts.id = installments.contract_id").
		Where("installments.paid = false").
		Where("installments.slip_state IN ?", []string{string(models.SlipNotGenerated), ""}).
		Where("installments.due_date <= ?", horizon).
		Where("contracts.issuance_blocked = false").
		Order("installments.due_date asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ContractFinancialSummary(ctx context.Context, contractID uint64) (repository.ContractFinancialSummary, error) {
	var out repository.ContractFinancialSummary
	if s == nil || s.db == nil {
		return out, nil
	}
	row := struct {
		InstallmentCount int64
		PaidCount        int64
		OverdueCount     int64
		TotalCurrent     decimal.Decimal
		TotalPaid        decimal.Decimal
		TotalOpen        decimal.Decimal
	}{}
	err := s.db.WithContext(ctx).
		Model(&models.Installment{}).
		Select(`
			count(*) AS installment_count,
			count(*) FILTER (WHERE paid) AS paid_count,
			count(*) FILTER (WHERE NOT paid AND due_date < now()) AS overdue_count,
			coalesce(sum(current_value), 0) AS total_current,
			coalesce(sum(paid_amount) FILTER (WHERE paid), 0) AS total_paid,
			coalesce(sum(current_value + interest + penalty - discount) FILTER (WHERE NOT paid), 0) AS total_open`).
		Where("contract_id = ?", contractID).
		Scan(&row).Error
	if err != nil {
		return out, err
	}
	out.InstallmentCount = row.InstallmentCount
	out.PaidCount = row.PaidCount
	out.OverdueCount = row.OverdueCount
	out.OpenCount = row.InstallmentCount - row.PaidCount
	out.TotalCurrent = row.TotalCurrent
	out.TotalPaid = row.TotalPaid
	out.TotalOpen = row.TotalOpen
	return out, nil
}

// --- Readjustments ----------------------------------------------------------

func (s *Store) CreateReadjustmentTx(ctx context.Context, tx *gorm.DB, item *models.Readjustment) error {
	if s == nil || tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) GetReadjustmentByContractCycle(ctx context.Context, contractID uint64, cycle int) (*models.Readjustment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Readjustment
	err := s.db.WithContext(ctx).
		First(&item, "contract_id = ? AND cycle = ?", contractID, cycle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListReadjustments(ctx context.Context, params repository.ListReadjustmentsParams) ([]models.Readjustment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Readjustment{})
	if params.ContractID != nil && *params.ContractID > 0 {
		query = query.Where("contract_id = ?", *params.ContractID)
	}
	if params.Applied != nil {
		query = query.Where("applied = ?", *params.Applied)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "cycle")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Readjustment
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Index samples ----------------------------------------------------------

func (s *Store) UpsertIndexSample(ctx context.Context, item *models.IndexSample) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "index_type"}, {Name: "year"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"percent",
			"source",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetIndexSample(ctx context.Context, indexType string, year, month int) (*models.IndexSample, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.IndexSample
	err := s.db.WithContext(ctx).
		First(&item, "index_type = ? AND year = ? AND month = ?", indexType, year, month).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListIndexSamples(ctx context.Context, params repository.ListIndexSamplesParams) ([]models.IndexSample, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.IndexSample{})
	if params.IndexType != nil && strings.TrimSpace(*params.IndexType) != "" {
		query = query.Where("index_type = ?", strings.TrimSpace(*params.IndexType))
	}
	if params.Year != nil && *params.Year > 0 {
		query = query.Where("year = ?", *params.Year)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "year, month")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.IndexSample
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Remittances ------------------------------------------------------------

func (s *Store) CreateRemittanceBatchTx(ctx context.Context, tx *gorm.DB, item *models.RemittanceBatch) error {
	if s == nil || tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) CreateRemittanceItemsTx(ctx context.Context, tx *gorm.DB, items []models.RemittanceItem) error {
	if s == nil || tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).CreateInBatches(items, 200).Error
}

func (s *Store) GetRemittanceBatchByID(ctx context.Context, id uint64) (*models.RemittanceBatch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.RemittanceBatch
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListRemittanceBatches(ctx context.Context, params repository.ListRemittanceBatchesParams) ([]models.RemittanceBatch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.RemittanceBatch{})
	if params.BankAccountID != nil && *params.BankAccountID > 0 {
		query = query.Where("bank_account_id = ?", *params.BankAccountID)
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.RemittanceBatch
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateRemittanceBatchStatus(ctx context.Context, id uint64, status string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.RemittanceBatch{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// --- Settlements ------------------------------------------------------------

func (s *Store) CreateSettlementBatch(ctx context.Context, item *models.SettlementBatch) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateSettlementBatchTx(ctx context.Context, tx *gorm.DB, item *models.SettlementBatch) error {
	if s == nil || tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Save(item).Error
}

func (s *Store) CreateSettlementRecordTx(ctx context.Context, tx *gorm.DB, item *models.SettlementRecord) error {
	if s == nil || tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) GetSettlementBatchByID(ctx context.Context, id uint64) (*models.SettlementBatch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SettlementBatch
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSettlementBatches(ctx context.Context, params repository.ListSettlementBatchesParams) ([]models.SettlementBatch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SettlementBatch{})
	if params.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *params.BankAccountID)
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Layout != nil && strings.TrimSpace(*params.Layout) != "" {
		query = query.Where("layout = ?", strings.TrimSpace(*params.Layout))
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.SettlementBatch
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListSettlementRecordsByBatch(ctx context.Context, batchID uint64) ([]models.SettlementRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SettlementRecord
	err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
