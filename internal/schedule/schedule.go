// Package schedule builds amortization plans: the ordered monthly
// installments of a contract, with due days clamped to month length and the
// residual cent absorbed by the last installment.
package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MaxInstallments bounds contract length at 30 years of monthly charges.
const MaxInstallments = 360

// PlannedInstallment is one row of an amortization plan.
type PlannedInstallment struct {
	Sequence int
	DueDate  time.Time
	Value    decimal.Decimal
}

// BuildPlan splits financed over count monthly installments starting at
// firstDue. Each installment is financed/count rounded to cents; the last
// one absorbs the rounding residual so the plan sums exactly to financed.
func BuildPlan(financed decimal.Decimal, count int, firstDue time.Time, dueDay int) ([]PlannedInstallment, error) {
	if count < 1 || count > MaxInstallments {
		return nil, fmt.Errorf("installment count %d out of range 1..%d", count, MaxInstallments)
	}
	if dueDay < 1 || dueDay > 31 {
		return nil, fmt.Errorf("due day %d out of range 1..31", dueDay)
	}
	if financed.IsNegative() || financed.IsZero() {
		return nil, fmt.Errorf("financed value must be positive, got %s", financed)
	}

	base := financed.Div(decimal.NewFromInt(int64(count))).Round(2)
	last := financed.Sub(base.Mul(decimal.NewFromInt(int64(count - 1))))
	if !base.IsPositive() || !last.IsPositive() {
		return nil, fmt.Errorf("financed value %s does not split into %d positive installments", financed, count)
	}

	plan := make([]PlannedInstallment, 0, count)
	due := clampToDay(firstDue, dueDay)
	for seq := 1; seq <= count; seq++ {
		value := base
		if seq == count {
			value = last
		}
		plan = append(plan, PlannedInstallment{
			Sequence: seq,
			DueDate:  due,
			Value:    value,
		})
		due = NextDueDate(due, dueDay)
	}
	return plan, nil
}

// NextDueDate advances one calendar month, restoring the configured due day
// when the month allows it and clamping to the month's last day otherwise.
func NextDueDate(prev time.Time, dueDay int) time.Time {
	year, month, _ := prev.Date()
	return clampToDay(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC), dueDay)
}

// AddMonths shifts a date forward whole months with day clamping, used for
// readjustment period arithmetic.
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	return clampToDay(time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, time.UTC), day)
}

func clampToDay(monthOf time.Time, day int) time.Time {
	year, month, _ := monthOf.Date()
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
