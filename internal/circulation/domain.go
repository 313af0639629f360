// internal/circulation/domain.go
package circulation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is the catalogue entry the ledger lends out. Only the ledger flips
// its availability once loans exist.
type Item interface {
	ItemID() uuid.UUID
	Title() string
	IsAvailable() bool
	SetAvailable(available bool)
}

// Borrower identifies a member by membership ID.
type Borrower interface {
	MembershipID() int
}

// Loan represents an item held by a member until DueAt.
type Loan struct {
	ID         uuid.UUID `json:"id"`
	MemberID   int       `json:"member_id"`
	ItemID     uuid.UUID `json:"item_id"`
	Title      string    `json:"title"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueAt      time.Time `json:"due_at"`
}

// Receipt is the outcome of returning an item.
type Receipt struct {
	Loan       Loan            `json:"loan"`
	ReturnedAt time.Time       `json:"returned_at"`
	OnTime     bool            `json:"on_time"`
	DaysLate   int64           `json:"days_late"`
	Fee        decimal.Decimal `json:"fee"`
}

// Standing is the overdue status of an active loan at a point in time.
type Standing struct {
	Overdue       bool            `json:"overdue"`
	DaysLate      int64           `json:"days_late"`
	DaysRemaining int64           `json:"days_remaining"`
	AccruedFee    decimal.Decimal `json:"accrued_fee"`
}

const (
	aggregateTypeLoan = "loan"

	EventTypeItemBorrowed = "ItemBorrowed"
	EventTypeItemReturned = "ItemReturned"
)

// ItemBorrowedEvent is journaled when an item is lent to a member.
type ItemBorrowedEvent struct {
	LoanID     uuid.UUID `json:"loan_id"`
	MemberID   int       `json:"member_id"`
	ItemID     uuid.UUID `json:"item_id"`
	Title      string    `json:"title"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueAt      time.Time `json:"due_at"`
}

// ItemReturnedEvent is journaled when a member returns an item.
type ItemReturnedEvent struct {
	LoanID     uuid.UUID       `json:"loan_id"`
	MemberID   int             `json:"member_id"`
	ItemID     uuid.UUID       `json:"item_id"`
	Title      string          `json:"title"`
	ReturnedAt time.Time       `json:"returned_at"`
	DaysLate   int64           `json:"days_late"`
	Fee        decimal.Decimal `json:"fee"`
}

// HistoryEntry is one journaled loan event of a member.
type HistoryEntry struct {
	EventType  string
	OccurredAt time.Time
	LoanID     uuid.UUID
	ItemID     uuid.UUID
	Title      string
	DueAt      time.Time
	DaysLate   int64
	Fee        decimal.Decimal
}
