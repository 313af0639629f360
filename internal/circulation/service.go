// internal/circulation/service.go
package circulation

import (
	"context"
	"time"
)

// Service defines the loan ledger operations exposed to the console.
type Service interface {
	Borrow(ctx context.Context, member Borrower, item Item, now time.Time) (Loan, error)
	Return(ctx context.Context, member Borrower, item Item, now time.Time) (Receipt, error)
	Loans(member Borrower) ([]Loan, error)
	HasLoan(member Borrower, item Item) bool
	IsLoaned(item Item) bool
	Borrowers() []int
	History(ctx context.Context, member Borrower) ([]HistoryEntry, error)
	Policy() Policy
}
