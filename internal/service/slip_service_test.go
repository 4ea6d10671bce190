package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"contratos/internal/billing"
	"contratos/internal/client/boletoapi"
	"contratos/internal/config"
	"contratos/internal/models"
)

func newSlipFixture(t *testing.T) (*stubRepo, *SlipService, *models.Contract) {
	t.Helper()
	repo := newStubRepo()
	account := seedAccount(repo)
	contract := seedContract(repo, account, 24, 12, models.IndexIPCA)
	svc := &SlipService{Repo: repo, Config: config.BillingConfig{SweepBatchSize: 100}}
	return repo, svc, contract
}

func TestSlipIssueFallsBackToLocalEncoding(t *testing.T) {
	repo, svc, contract := newSlipFixture(t)
	item := seedInstallment(repo, contract, 1, date(2026, time.June, 10), "500")

	// No external client configured, so issuance must encode locally.
	result, err := svc.IssueSlip(context.Background(), item.ID, false)
	if err != nil {
		t.Fatalf("IssueSlip: %v", err)
	}
	if !result.Local {
		t.Error("expected local issuance")
	}
	got := result.Installment
	if len(got.Barcode) != 44 || !strings.HasPrefix(got.Barcode, "0019") {
		t.Errorf("barcode = %q, want 44 digits starting 0019", got.Barcode)
	}
	if len(got.DigitableLine) != 47 {
		t.Errorf("digitable line length = %d, want 47", len(got.DigitableLine))
	}
	if got.SlipNumber != "00000000001" {
		t.Errorf("slip number = %q, want 00000000001", got.SlipNumber)
	}
	if got.SlipState != models.SlipGenerated {
		t.Errorf("state = %s, want GENERATED", got.SlipState)
	}
	if got.SlipIssuedAt == nil {
		t.Error("issued-at not set")
	}
	if !strings.Contains(string(got.SlipArtifact), `"origin":"local"`) {
		t.Errorf("artifact = %s, want local origin marker", got.SlipArtifact)
	}

	account, _ := repo.GetBankAccountByID(context.Background(), contract.BankAccountID)
	if account.NextSlipNumber != 2 {
		t.Errorf("next slip number = %d, want 2", account.NextSlipNumber)
	}
}

func TestSlipIssueFallsBackOnEmptyExternalPayload(t *testing.T) {
	repo, svc, contract := newSlipFixture(t)
	ctx := context.Background()

	// 200 OK, valid JSON, but no identifiers.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	}))
	defer server.Close()
	svc.Client = boletoapi.NewClient(server.Client(), server.URL, 0)

	item := seedInstallment(repo, contract, 1, date(2026, time.June, 10), "500")
	result, err := svc.IssueSlip(ctx, item.ID, false)
	if err != nil {
		t.Fatalf("IssueSlip: %v", err)
	}
	if !result.Local {
		t.Error("barcode-less external payload should fall back to local encoding")
	}
	if len(result.Installment.Barcode) != 44 {
		t.Errorf("barcode = %q, want 44 local digits", result.Installment.Barcode)
	}
	if !strings.Contains(string(result.Installment.SlipArtifact), `"origin":"local"`) {
		t.Errorf("artifact = %s, want local origin marker", result.Installment.SlipArtifact)
	}

	// The installment must stay reissuable, not wedged in GENERATED with no
	// identifiers.
	second, err := svc.IssueSlip(ctx, item.ID, false)
	if err != nil {
		t.Fatalf("reissue after fallback: %v", err)
	}
	if !second.Reused || second.Installment.Barcode != result.Installment.Barcode {
		t.Errorf("reissue = reused %v barcode %q, want the fallback slip back",
			second.Reused, second.Installment.Barcode)
	}
}

func TestSlipIssueIsIdempotent(t *testing.T) {
	repo, svc, contract := newSlipFixture(t)
	item := seedInstallment(repo, contract, 1, date(2026, time.June, 10), "500")
	ctx := context.Background()

	first, err := svc.IssueSlip(ctx, item.ID, false)
	if err != nil {
		t.Fatalf("first IssueSlip: %v", err)
	}
	second, err := svc.IssueSlip(ctx, item.ID, false)
	if err != nil {
		t.Fatalf("second IssueSlip: %v", err)
	}
	if !second.Reused {
		t.Error("second issuance should reuse the existing slip")
	}
	if second.Installment.Barcode != first.Installment.Barcode {
		t.Errorf("barcode changed on reissue: %q != %q",
			second.Installment.Barcode, first.Installment.Barcode)
	}
	account, _ := repo.GetBankAccountByID(ctx, contract.BankAccountID)
	if account.NextSlipNumber != 2 {
		t.Errorf("reissue consumed a slip number, counter = %d", account.NextSlipNumber)
	}
}

func TestSlipIssueGate(t *testing.T) {
	repo, svc, contract := newSlipFixture(t)
	ctx := context.Background()
	item := seedInstallment(repo, contract, 13, date(2027, time.June, 10), "500")

	// Sequence 13 sits in cycle 2, which has no applied readjustment yet.
	_, err := svc.IssueSlip(ctx, item.ID, false)
	if !errors.Is(err, billing.ErrIssuanceBlocked) {
		t.Fatalf("err = %v, want %v", err, billing.ErrIssuanceBlocked)
	}

	forced, err := svc.IssueSlip(ctx, item.ID, true)
	if err != nil {
		t.Fatalf("forced IssueSlip: %v", err)
	}
	if forced.Installment.SlipForceCount != 1 {
		t.Errorf("force count = %d, want 1", forced.Installment.SlipForceCount)
	}

	// An applied readjustment opens the gate without force.
	other := seedInstallment(repo, contract, 14, date(2027, time.July, 10), "500")
	now := time.Now().UTC()
	_ = repo.CreateReadjustmentTx(ctx, nil, &models.Readjustment{
		ContractID: contract.ID, Cycle: 2, IndexType: contract.IndexType,
		Percentage: dec("5"), FirstSequence: 13, LastSequence: 24,
		Applied: true, AppliedAt: &now,
	})
	if _, err := svc.IssueSlip(ctx, other.ID, false); err != nil {
		t.Errorf("issue after readjustment: %v", err)
	}
}

func TestSlipIssueFixedContractSkipsGate(t *testing.T) {
	repo, svc, _ := newSlipFixture(t)
	ctx := context.Background()
	account, _ := repo.GetBankAccountByID(ctx, 1)
	fixed := seedContract(repo, account, 24, 12, models.IndexFixed)
	item := seedInstallment(repo, fixed, 13, date(2027, time.June, 10), "500")

	if _, err := svc.IssueSlip(ctx, item.ID, false); err != nil {
		t.Errorf("fixed contract cycle 2 should issue freely: %v", err)
	}
}

func TestSlipIssueRejectsPaidAndTerminal(t *testing.T) {
	repo, svc, contract := newSlipFixture(t)
	ctx := context.Background()

	paid := seedInstallment(repo, contract, 1, date(2026, time.June, 10), "500")
	paid.Paid = true
	if _, err := svc.IssueSlip(ctx, paid.ID, false); !errors.Is(err, billing.ErrAlreadyPaid) {
		t.Errorf("paid err = %v, want %v", err, billing.ErrAlreadyPaid)
	}

	canceled := seedInstallment(repo, contract, 2, date(2026, time.July, 10), "500")
	canceled.SlipState = models.SlipCanceled
	if _, err := svc.IssueSlip(ctx, canceled.ID, false); !errors.Is(err, billing.ErrInvalidTransition) {
		t.Errorf("canceled err = %v, want %v", err, billing.ErrInvalidTransition)
	}

	if _, err := svc.IssueSlip(ctx, 999, false); !errors.Is(err, billing.ErrNotFound) {
		t.Errorf("unknown err = %v, want %v", err, billing.ErrNotFound)
	}
}

func TestSlipIssueBatch(t *testing.T) {
	repo, svc, contract := newSlipFixture(t)
	ctx := context.Background()
	seedInstallment(repo, contract, 1, date(2026, time.June, 10), "500")
	seedInstallment(repo, contract, 2, date(2026, time.July, 10), "500")
	late := seedInstallment(repo, contract, 3, date(2025, time.December, 10), "500")
	late.SlipState = models.SlipOverdue
	paid := seedInstallment(repo, contract, 4, date(2026, time.August, 10), "500")
	paid.Paid = true
	seedInstallment(repo, contract, 13, date(2027, time.June, 10), "500")

	result, err := svc.IssueBatch(ctx, contract.ID)
	if err != nil {
		t.Fatalf("IssueBatch: %v", err)
	}
	if result.Issued != 3 || result.Blocked != 1 || result.Errors != 0 {
		t.Errorf("issued/blocked/errors = %d/%d/%d, want 3/1/0",
			result.Issued, result.Blocked, result.Errors)
	}
	got, _ := repo.GetInstallmentByID(ctx, late.ID)
	if got.SlipState != models.SlipGenerated || got.Barcode == "" {
		t.Errorf("overdue installment = %s barcode %q, want regenerated slip",
			got.SlipState, got.Barcode)
	}

	empty := seedContract(repo, seedAccount(repo), 12, 12, models.IndexIPCA)
	if _, err := svc.IssueBatch(ctx, empty.ID); !errors.Is(err, billing.ErrNoEligible) {
		t.Errorf("empty batch err = %v, want %v", err, billing.ErrNoEligible)
	}
}

// staleReadRepo serves one stale installment snapshot for the first unlocked
// read, the way a row looks to an issuer that raced another writer.
type staleReadRepo struct {
	*stubRepo
	stale *models.Installment
}

func (r *staleReadRepo) GetInstallmentByID(ctx context.Context, id uint64) (*models.Installment, error) {
	if r.stale != nil && r.stale.ID == id {
		item := r.stale
		r.stale = nil
		return item, nil
	}
	return r.stubRepo.GetInstallmentByID(ctx, id)
}

func TestSlipIssueConcurrentIssuerKeepsFirstSlip(t *testing.T) {
	repo, svc, contract := newSlipFixture(t)
	ctx := context.Background()

	// The winner's slip is already committed.
	item := seedInstallment(repo, contract, 1, date(2026, time.June, 10), "500")
	item.SlipNumber = "00000000001"
	item.Barcode = strings.Repeat("1", 44)
	item.DigitableLine = strings.Repeat("1", 47)
	item.SlipState = models.SlipGenerated
	item.SlipLocal = true

	// The loser still holds the pre-commit snapshot.
	stale := *item
	stale.Barcode = ""
	stale.DigitableLine = ""
	stale.SlipState = models.SlipNotGenerated
	svc.Repo = &staleReadRepo{stubRepo: repo, stale: &stale}

	result, err := svc.IssueSlip(ctx, item.ID, false)
	if err != nil {
		t.Fatalf("IssueSlip: %v", err)
	}
	if !result.Reused {
		t.Error("losing issuer should reuse the committed slip")
	}
	if result.Installment.Barcode != item.Barcode {
		t.Errorf("barcode = %q, want the winner's %q", result.Installment.Barcode, item.Barcode)
	}
	got, _ := repo.GetInstallmentByID(ctx, item.ID)
	if got.Barcode != item.Barcode || got.SlipState != models.SlipGenerated {
		t.Errorf("stored slip = %q/%s, winner's identifiers must survive",
			got.Barcode, got.SlipState)
	}
}

func TestSlipSweepSkipsBlockedContracts(t *testing.T) {
	repo, svc, contract := newSlipFixture(t)
	ctx := context.Background()
	// Due dates in the past are always inside the sweep horizon.
	item := seedInstallment(repo, contract, 1, date(2025, time.June, 10), "500")

	blocked := seedContract(repo, seedAccount(repo), 24, 12, models.IndexIGPM)
	blocked.IssuanceBlocked = true
	skipped := seedInstallment(repo, blocked, 1, date(2025, time.June, 10), "700")

	if err := svc.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	got, _ := repo.GetInstallmentByID(ctx, item.ID)
	if got.SlipState != models.SlipGenerated {
		t.Errorf("state = %s, want GENERATED after sweep", got.SlipState)
	}
	got, _ = repo.GetInstallmentByID(ctx, skipped.ID)
	if got.SlipState != models.SlipNotGenerated {
		t.Errorf("blocked contract installment state = %s, want untouched", got.SlipState)
	}
}
