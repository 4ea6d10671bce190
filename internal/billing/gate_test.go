package billing

import (
	"errors"
	"testing"
	"time"

	"contratos/internal/models"
)

func contractFixture(indexType string, interval, count int) *models.Contract {
	return &models.Contract{
		ID:                 1,
		Number:             "CT-001",
		InstallmentCount:   count,
		ReadjustIntervalMo: interval,
		IndexType:          indexType,
	}
}

func TestCanIssueFirstCycleAlwaysAllowed(t *testing.T) {
	contract := contractFixture(models.IndexIGPM, 12, 36)
	lookup := func(cycle int) (*models.Readjustment, error) {
		t.Fatal("lookup should not be called for cycle 1")
		return nil, nil
	}
	for _, seq := range []int{1, 6, 12} {
		decision, err := CanIssue(contract, seq, lookup)
		if err != nil {
			t.Fatalf("CanIssue(%d): %v", seq, err)
		}
		if !decision.Allowed {
			t.Errorf("sequence %d should be allowed", seq)
		}
		if decision.Cycle != 1 {
			t.Errorf("sequence %d cycle = %d, want 1", seq, decision.Cycle)
		}
	}
}

func TestCanIssueLaterCycleRequiresAppliedReadjustment(t *testing.T) {
	contract := contractFixture(models.IndexIGPM, 12, 36)

	decision, err := CanIssue(contract, 13, func(cycle int) (*models.Readjustment, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("CanIssue: %v", err)
	}
	if decision.Allowed {
		t.Error("cycle 2 without readjustment should be blocked")
	}
	if decision.Cycle != 2 {
		t.Errorf("cycle = %d, want 2", decision.Cycle)
	}
	if decision.Reason == "" {
		t.Error("blocked decision must carry a reason")
	}

	now := time.Now().UTC()
	decision, err = CanIssue(contract, 13, func(cycle int) (*models.Readjustment, error) {
		return &models.Readjustment{Cycle: cycle, Applied: true, AppliedAt: &now}, nil
	})
	if err != nil {
		t.Fatalf("CanIssue: %v", err)
	}
	if !decision.Allowed {
		t.Error("cycle 2 with applied readjustment should be allowed")
	}

	// A pending (not applied) row still blocks.
	decision, err = CanIssue(contract, 25, func(cycle int) (*models.Readjustment, error) {
		return &models.Readjustment{Cycle: cycle, Applied: false}, nil
	})
	if err != nil {
		t.Fatalf("CanIssue: %v", err)
	}
	if decision.Allowed {
		t.Error("pending readjustment should not unblock issuance")
	}
	if decision.Cycle != 3 {
		t.Errorf("cycle = %d, want 3", decision.Cycle)
	}
}

func TestCanIssueFixedContractsBypassGate(t *testing.T) {
	contract := contractFixture(models.IndexFixed, 12, 36)
	decision, err := CanIssue(contract, 30, func(cycle int) (*models.Readjustment, error) {
		t.Fatal("lookup should not be called for fixed contracts")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("CanIssue: %v", err)
	}
	if !decision.Allowed {
		t.Error("fixed contracts should never be gated")
	}
}

func TestCanIssuePropagatesLookupError(t *testing.T) {
	contract := contractFixture(models.IndexIPCA, 12, 36)
	wantErr := errors.New("storage down")
	_, err := CanIssue(contract, 13, func(cycle int) (*models.Readjustment, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}
