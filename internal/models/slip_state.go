package models

// SlipState tracks the bank-facing lifecycle of an installment's payment slip.
type SlipState string

const (
	SlipNotGenerated SlipState = "NOT_GENERATED"
	SlipGenerated    SlipState = "GENERATED"
	SlipRegistered   SlipState = "REGISTERED"
	SlipPaid         SlipState = "PAID"
	SlipOverdue      SlipState = "OVERDUE"
	SlipCanceled     SlipState = "CANCELED"
	SlipProtested    SlipState = "PROTESTED"
	SlipWrittenOff   SlipState = "WRITTEN_OFF"
)

// CanGenerate reports whether a new slip may be produced from this state.
// Only fresh and overdue slips may be (re)generated; everything else needs
// an explicit force.
func (s SlipState) CanGenerate() bool {
	return s == SlipNotGenerated || s == SlipOverdue || s == ""
}

// Terminal reports whether the state admits no further transitions.
func (s SlipState) Terminal() bool {
	switch s {
	case SlipPaid, SlipCanceled, SlipProtested, SlipWrittenOff:
		return true
	}
	return false
}

// CanTransition validates a state machine edge. Paid is terminal regardless
// of the prior slip state.
func (s SlipState) CanTransition(to SlipState) bool {
	if s == to {
		return false
	}
	if s.Terminal() {
		return false
	}
	switch to {
	case SlipGenerated:
		return s.CanGenerate()
	case SlipRegistered:
		return s == SlipGenerated
	case SlipPaid:
		return s == SlipGenerated || s == SlipRegistered || s == SlipOverdue || s == SlipNotGenerated || s == ""
	case SlipOverdue, SlipCanceled, SlipProtested, SlipWrittenOff:
		return s == SlipGenerated || s == SlipRegistered
	}
	return false
}
