package models

import "testing"

func TestSlipStateCanGenerate(t *testing.T) {
	tests := []struct {
		state SlipState
		want  bool
	}{
		{SlipNotGenerated, true},
		{SlipOverdue, true},
		{SlipState(""), true},
		{SlipGenerated, false},
		{SlipRegistered, false},
		{SlipPaid, false},
		{SlipCanceled, false},
		{SlipProtested, false},
		{SlipWrittenOff, false},
	}
	for _, tc := range tests {
		if got := tc.state.CanGenerate(); got != tc.want {
			t.Errorf("%s.CanGenerate() = %v, want %v", tc.state, got, tc.want)
		}
	}
}

func TestSlipStateTransitions(t *testing.T) {
	tests := []struct {
		from SlipState
		to   SlipState
		want bool
	}{
		{SlipNotGenerated, SlipGenerated, true},
		{SlipGenerated, SlipRegistered, true},
		{SlipRegistered, SlipPaid, true},
		{SlipGenerated, SlipPaid, true},
		{SlipOverdue, SlipPaid, true},
		{SlipGenerated, SlipOverdue, true},
		{SlipRegistered, SlipProtested, true},
		{SlipRegistered, SlipWrittenOff, true},
		{SlipRegistered, SlipCanceled, true},

		{SlipPaid, SlipGenerated, false},
		{SlipPaid, SlipRegistered, false},
		{SlipCanceled, SlipPaid, false},
		{SlipWrittenOff, SlipPaid, false},
		{SlipProtested, SlipRegistered, false},
		{SlipNotGenerated, SlipRegistered, false},
		{SlipNotGenerated, SlipOverdue, false},
		{SlipGenerated, SlipGenerated, false},
	}
	for _, tc := range tests {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestSlipStateTerminal(t *testing.T) {
	terminal := []SlipState{SlipPaid, SlipCanceled, SlipProtested, SlipWrittenOff}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	open := []SlipState{SlipNotGenerated, SlipGenerated, SlipRegistered, SlipOverdue}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
