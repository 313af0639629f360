// internal/circulation/policy.go
package circulation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	day = 24 * time.Hour

	DefaultLoanPeriodDays = 14
)

// DefaultDailyOverdueFee is charged per whole day an item is late.
var DefaultDailyOverdueFee = decimal.RequireFromString("0.50")

// Policy holds the lending rules: how long a loan lasts and what each late
// day costs.
type Policy struct {
	LoanPeriod      time.Duration
	DailyOverdueFee decimal.Decimal
}

// DefaultPolicy lends for 14 days at 0.50 per late day.
func DefaultPolicy() Policy {
	return Policy{
		LoanPeriod:      DefaultLoanPeriodDays * day,
		DailyOverdueFee: DefaultDailyOverdueFee,
	}
}

// NewPolicy builds a policy from a loan period in whole days.
func NewPolicy(loanPeriodDays int, dailyFee decimal.Decimal) (Policy, error) {
	if loanPeriodDays <= 0 {
		return Policy{}, fmt.Errorf("%w: loan period must be positive, got %d days", ErrInvalidArgument, loanPeriodDays)
	}
	if dailyFee.IsNegative() {
		return Policy{}, fmt.Errorf("%w: daily overdue fee must not be negative, got %s", ErrInvalidArgument, dailyFee)
	}
	return Policy{
		LoanPeriod:      time.Duration(loanPeriodDays) * day,
		DailyOverdueFee: dailyFee,
	}, nil
}

// DueDate is borrowedAt plus the loan period as a plain duration.
func (p Policy) DueDate(borrowedAt time.Time) time.Time {
	return borrowedAt.Add(p.LoanPeriod)
}

// DaysLate counts whole days elapsed past due; zero when not past due.
func (p Policy) DaysLate(due, now time.Time) int64 {
	if !now.After(due) {
		return 0
	}
	return int64(now.Sub(due) / day)
}

// Fee charges the daily rate for each whole late day.
func (p Policy) Fee(daysLate int64) decimal.Decimal {
	if daysLate <= 0 {
		return decimal.Zero
	}
	return p.DailyOverdueFee.Mul(decimal.NewFromInt(daysLate))
}

// Standing derives the overdue status of a loan due at due.
func (p Policy) Standing(due, now time.Time) Standing {
	if now.After(due) {
		daysLate := p.DaysLate(due, now)
		return Standing{
			Overdue:    true,
			DaysLate:   daysLate,
			AccruedFee: p.Fee(daysLate),
		}
	}
	return Standing{
		DaysRemaining: int64(due.Sub(now) / day),
		AccruedFee:    decimal.Zero,
	}
}

// Standing reports the loan's overdue status at now under policy p.
func (l Loan) Standing(now time.Time, p Policy) Standing {
	return p.Standing(l.DueAt, now)
}
