package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"contratos/internal/billing"
	"contratos/internal/models"
	"contratos/internal/repository"
)

func TestContractCreateBuildsPlan(t *testing.T) {
	repo := newStubRepo()
	account := seedAccount(repo)
	svc := &ContractService{Repo: repo}

	contract, err := svc.Create(context.Background(), CreateContractInput{
		Number:           "CT-1001",
		BankAccountID:    account.ID,
		TotalValue:       dec("120000"),
		DownPayment:      dec("20000"),
		InstallmentCount: 3,
		DueDay:           10,
		FirstDueDate:     date(2026, time.January, 10),
		ContractDate:     date(2025, time.December, 1),
		IndexType:        models.IndexIPCA,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !contract.FinancedValue.Equal(dec("100000")) {
		t.Errorf("financed = %s, want 100000", contract.FinancedValue)
	}
	if contract.CurrentCycle != 1 {
		t.Errorf("current cycle = %d, want 1", contract.CurrentCycle)
	}
	if contract.ReadjustIntervalMo != 12 {
		t.Errorf("interval = %d, want default 12", contract.ReadjustIntervalMo)
	}
	if !contract.PenaltyPercent.Equal(dec("2")) || !contract.MonthlyInterestPercent.Equal(dec("1")) {
		t.Errorf("charge defaults = %s / %s, want 2 / 1",
			contract.PenaltyPercent, contract.MonthlyInterestPercent)
	}

	items, err := repo.ListInstallments(context.Background(), repository.ListInstallmentsParams{ContractID: &contract.ID})
	if err != nil {
		t.Fatalf("ListInstallments: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("installments = %d, want 3", len(items))
	}
	sum := dec("0")
	for _, item := range items {
		sum = sum.Add(item.CurrentValue)
		if item.SlipState != models.SlipNotGenerated {
			t.Errorf("seq %d state = %s, want NOT_GENERATED", item.Sequence, item.SlipState)
		}
	}
	if !sum.Equal(contract.FinancedValue) {
		t.Errorf("plan sum = %s, want %s", sum, contract.FinancedValue)
	}
	if !items[0].CurrentValue.Equal(dec("33333.33")) || !items[2].CurrentValue.Equal(dec("33333.34")) {
		t.Errorf("plan values = %s .. %s, want 33333.33 .. 33333.34",
			items[0].CurrentValue, items[2].CurrentValue)
	}
}

func TestContractCreateValidation(t *testing.T) {
	repo := newStubRepo()
	account := seedAccount(repo)
	svc := &ContractService{Repo: repo}
	base := CreateContractInput{
		Number:           "CT-2001",
		BankAccountID:    account.ID,
		TotalValue:       dec("1000"),
		InstallmentCount: 10,
		DueDay:           5,
		FirstDueDate:     date(2026, time.January, 5),
	}

	tests := []struct {
		name   string
		mutate func(*CreateContractInput)
		want   error
	}{
		{"empty number", func(in *CreateContractInput) { in.Number = " " }, billing.ErrInvalidTerms},
		{"unknown index", func(in *CreateContractInput) { in.IndexType = "CDI" }, billing.ErrInvalidTerms},
		{"negative down payment", func(in *CreateContractInput) { in.DownPayment = dec("-1") }, billing.ErrInvalidTerms},
		{"nothing financed", func(in *CreateContractInput) { in.DownPayment = dec("1000") }, billing.ErrInvalidTerms},
		{"missing account", func(in *CreateContractInput) { in.BankAccountID = 999 }, billing.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := base
			tc.mutate(&input)
			if _, err := svc.Create(context.Background(), input); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestContractCreateRejectsDuplicateNumber(t *testing.T) {
	repo := newStubRepo()
	account := seedAccount(repo)
	svc := &ContractService{Repo: repo}
	input := CreateContractInput{
		Number:           "CT-3001",
		BankAccountID:    account.ID,
		TotalValue:       dec("5000"),
		InstallmentCount: 5,
		DueDay:           15,
		FirstDueDate:     date(2026, time.March, 15),
	}
	if _, err := svc.Create(context.Background(), input); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := svc.Create(context.Background(), input); !errors.Is(err, billing.ErrInvalidTerms) {
		t.Errorf("second Create err = %v, want %v", err, billing.ErrInvalidTerms)
	}
}

func TestContractCreateInstallmentsOnce(t *testing.T) {
	repo := newStubRepo()
	account := seedAccount(repo)
	contract := seedContract(repo, account, 12, 12, models.IndexIPCA)
	svc := &ContractService{Repo: repo}

	created, err := svc.CreateInstallments(context.Background(), contract.ID)
	if err != nil {
		t.Fatalf("CreateInstallments: %v", err)
	}
	if created != 12 {
		t.Errorf("created = %d, want 12", created)
	}
	if _, err := svc.CreateInstallments(context.Background(), contract.ID); !errors.Is(err, billing.ErrInvalidTerms) {
		t.Errorf("second call err = %v, want %v", err, billing.ErrInvalidTerms)
	}
	if _, err := svc.CreateInstallments(context.Background(), 999); !errors.Is(err, billing.ErrNotFound) {
		t.Errorf("unknown contract err = %v, want %v", err, billing.ErrNotFound)
	}
}

func TestContractSummary(t *testing.T) {
	repo := newStubRepo()
	account := seedAccount(repo)
	contract := seedContract(repo, account, 3, 12, models.IndexIPCA)
	contract.TotalValue = dec("1000")
	contract.DownPayment = dec("100")
	contract.FinancedValue = dec("900")

	future := date(2030, time.June, 10)
	paid := seedInstallment(repo, contract, 1, future, "300")
	seedInstallment(repo, contract, 2, future.AddDate(0, 1, 0), "300")
	seedInstallment(repo, contract, 3, future.AddDate(0, 2, 0), "300")
	amount := dec("300")
	paid.Paid = true
	paid.PaidAmount = &amount
	paid.SlipState = models.SlipPaid

	svc := &ContractService{Repo: repo}
	summary, err := svc.Summary(context.Background(), contract.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.InstallmentCount != 3 || summary.PaidCount != 1 || summary.OpenCount != 2 {
		t.Errorf("counts = %d/%d/%d, want 3/1/2",
			summary.InstallmentCount, summary.PaidCount, summary.OpenCount)
	}
	if !summary.TotalPaid.Equal(dec("400")) {
		t.Errorf("total paid = %s, want 400 (down payment included)", summary.TotalPaid)
	}
	if !summary.TotalOpen.Equal(dec("600")) {
		t.Errorf("total open = %s, want 600", summary.TotalOpen)
	}
	if !summary.ProgressPercent.Equal(dec("40")) {
		t.Errorf("progress = %s, want 40", summary.ProgressPercent)
	}

	if _, err := svc.Summary(context.Background(), 999); !errors.Is(err, billing.ErrNotFound) {
		t.Errorf("unknown contract err = %v, want %v", err, billing.ErrNotFound)
	}
}
