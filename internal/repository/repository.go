package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"contratos/internal/models"
)

// Repository is the persistence surface for the billing core. All blocking
// operations take a context; mutations that must be atomic with a counter
// allocation run inside InTx via the *Tx variants.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Bank accounts
	CreateBankAccount(ctx context.Context, item *models.BankAccount) error
	GetBankAccountByID(ctx context.Context, id uint64) (*models.BankAccount, error)
	ListBankAccounts(ctx context.Context, params ListBankAccountsParams) ([]models.BankAccount, error)
	// AllocateSlipNumbersTx reserves n sequential slip numbers on the account
	// row under a FOR UPDATE lock and returns the first reserved number.
	AllocateSlipNumbersTx(ctx context.Context, tx *gorm.DB, accountID uint64, n int) (uint64, error)
	// AllocateRemittanceSeqTx reserves the next remittance sequence likewise.
	AllocateRemittanceSeqTx(ctx context.Context, tx *gorm.DB, accountID uint64) (uint64, error)

	// Contracts
	CreateContract(ctx context.Context, item *models.Contract) error
	CreateContractTx(ctx context.Context, tx *gorm.DB, item *models.Contract) error
	GetContractByID(ctx context.Context, id uint64) (*models.Contract, error)
	GetContractByIDTx(ctx context.Context, tx *gorm.DB, id uint64, forUpdate bool) (*models.Contract, error)
	GetContractByNumber(ctx context.Context, number string) (*models.Contract, error)
	ListContracts(ctx context.Context, params ListContractsParams) ([]models.Contract, error)
	CountContracts(ctx context.Context, params ListContractsParams) (int64, error)
	UpdateContractTx(ctx context.Context, tx *gorm.DB, item *models.Contract) error
	SetContractIssuanceBlocked(ctx context.Context, id uint64, blocked bool) error
	ListContractsDueForReadjustment(ctx context.Context, ref time.Time, leadDays int, limit int) ([]models.Contract, error)

	// Installments
	CreateInstallmentsTx(ctx context.Context, tx *gorm.DB, items []models.Installment) error
	GetInstallmentByID(ctx context.Context, id uint64) (*models.Installment, error)
	GetInstallmentByIDTx(ctx context.Context, tx *gorm.DB, id uint64, forUpdate bool) (*models.Installment, error)
	GetInstallmentBySlipNumber(ctx context.Context, accountID uint64, slipNumber string) (*models.Installment, error)
	ListInstallments(ctx context.Context, params ListInstallmentsParams) ([]models.Installment, error)
	CountInstallments(ctx context.Context, params ListInstallmentsParams) (int64, error)
	CountInstallmentsByContract(ctx context.Context, contractID uint64) (int64, error)
	ListInstallmentsBySequenceRangeTx(ctx context.Context, tx *gorm.DB, contractID uint64, first, last int) ([]models.Installment, error)
	UpdateInstallment(ctx context.Context, item *models.Installment) error
	UpdateInstallmentTx(ctx context.Context, tx *gorm.DB, item *models.Installment) error
	ListOverdueInstallments(ctx context.Context, ref time.Time, limit int) ([]models.Installment, error)
	// ListInstallmentsForRemittance returns unpaid installments of the
	// account with generated, not yet remitted, slips.
	ListInstallmentsForRemittance(ctx context.Context, accountID uint64, limit int) ([]models.Installment, error)
	ListInstallmentsAwaitingIssuance(ctx context.Context, horizon time.Time, limit int) ([]models.Installment, error)
	ContractFinancialSummary(ctx context.Context, contractID uint64) (ContractFinancialSummary, error)

	// Readjustments
	CreateReadjustmentTx(ctx context.Context, tx *gorm.DB, item *models.Readjustment) error
	GetReadjustmentByContractCycle(ctx context.Context, contractID uint64, cycle int) (*models.Readjustment, error)
	ListReadjustments(ctx context.Context, params ListReadjustmentsParams) ([]models.Readjustment, error)

	// Index samples
	UpsertIndexSample(ctx context.Context, item *models.IndexSample) error
	GetIndexSample(ctx context.Context, indexType string, year, month int) (*models.IndexSample, error)
	ListIndexSamples(ctx context.Context, params ListIndexSamplesParams) ([]models.IndexSample, error)

	// Remittances
	CreateRemittanceBatchTx(ctx context.Context, tx *gorm.DB, item *models.RemittanceBatch) error
	CreateRemittanceItemsTx(ctx context.Context, tx *gorm.DB, items []models.RemittanceItem) error
	GetRemittanceBatchByID(ctx context.Context, id uint64) (*models.RemittanceBatch, error)
	ListRemittanceBatches(ctx context.Context, params ListRemittanceBatchesParams) ([]models.RemittanceBatch, error)
	UpdateRemittanceBatchStatus(ctx context.Context, id uint64, status string) error

	// Settlements
	CreateSettlementBatch(ctx context.Context, item *models.SettlementBatch) error
	UpdateSettlementBatchTx(ctx context.Context, tx *gorm.DB, item *models.SettlementBatch) error
	CreateSettlementRecordTx(ctx context.Context, tx *gorm.DB, item *models.SettlementRecord) error
	GetSettlementBatchByID(ctx context.Context, id uint64) (*models.SettlementBatch, error)
	ListSettlementBatches(ctx context.Context, params ListSettlementBatchesParams) ([]models.SettlementBatch, error)
	ListSettlementRecordsByBatch(ctx context.Context, batchID uint64) ([]models.SettlementRecord, error)
}

type ContractFinancialSummary struct {
	InstallmentCount int64
	PaidCount        int64
	OverdueCount     int64
	OpenCount        int64
	TotalCurrent     decimal.Decimal
	TotalPaid        decimal.Decimal
	TotalOpen        decimal.Decimal
}

type ListBankAccountsParams struct {
	Limit   int
	Offset  int
	Active  *bool
	OrderBy string
	Asc     *bool
}

type ListContractsParams struct {
	Limit         int
	Offset        int
	Number        *string
	IndexType     *string
	BankAccountID *uint64
	Blocked       *bool
	OrderBy       string
	Asc           *bool
}

type ListInstallmentsParams struct {
	Limit      int
	Offset     int
	ContractID *uint64
	SlipState  *string
	DueBefore  *time.Time
	DueAfter   *time.Time
	OrderBy    string
	Asc        *bool
}

type ListReadjustmentsParams struct {
	Limit      int
	Offset     int
	ContractID *uint64
	Applied    *bool
	OrderBy    string
	Asc        *bool
}

type ListIndexSamplesParams struct {
	Limit     int
	Offset    int
	IndexType *string
	Year      *int
	OrderBy   string
	Asc       *bool
}

type ListRemittanceBatchesParams struct {
	Limit         int
	Offset        int
	BankAccountID *uint64
	Status        *string
	OrderBy       string
	Asc           *bool
}

type ListSettlementBatchesParams struct {
	Limit         int
	Offset        int
	BankAccountID *uint64
	Status        *string
	Layout        *string
	OrderBy       string
	Asc           *bool
}
