package billing

import (
	"fmt"

	"contratos/internal/models"
)

// GateDecision explains whether a slip may be issued for an installment.
type GateDecision struct {
	Allowed bool
	Cycle   int
	Reason  string
}

// CanIssue applies the issuance gate: installments in the first readjustment
// cycle are always issuable; later cycles require an applied readjustment for
// that exact cycle. lookup returns the applied readjustment for a cycle, or
// nil when none exists.
func CanIssue(contract *models.Contract, sequence int, lookup func(cycle int) (*models.Readjustment, error)) (GateDecision, error) {
	if contract == nil {
		return GateDecision{}, fmt.Errorf("nil contract")
	}
	cycle := contract.CycleOf(sequence)
	if cycle <= 1 {
		return GateDecision{Allowed: true, Cycle: cycle}, nil
	}
	if contract.IndexType == models.IndexFixed {
		return GateDecision{Allowed: true, Cycle: cycle}, nil
	}
	readj, err := lookup(cycle)
	if err != nil {
		return GateDecision{}, err
	}
	if readj == nil || !readj.Applied {
		return GateDecision{
			Allowed: false,
			Cycle:   cycle,
			Reason:  fmt.Sprintf("cycle %d has no applied readjustment", cycle),
		}, nil
	}
	return GateDecision{Allowed: true, Cycle: cycle}, nil
}
