// internal/circulation/implementation.go
package circulation

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"libradesk/internal/journal"
)

const historyBatchSize = 256

type loanEntry struct {
	loan Loan
	item Item
}

// Ledger tracks which member holds which item and until when. A single
// mutex guards the loan map and every availability flip it performs.
type Ledger struct {
	mu      sync.Mutex
	loans   map[int]map[uuid.UUID]loanEntry
	holders map[uuid.UUID]int

	policy      Policy
	journal     Journal
	logger      Logger
	tracer      trace.Tracer
	meter       metric.Meter
	instruments instruments
	newLoanID   func() uuid.UUID
}

var _ Service = (*Ledger)(nil)

// NewLedger creates an empty ledger. Without WithJournal it journals to a
// fresh in-memory journal.
func NewLedger(opts ...Option) (*Ledger, error) {
	l := &Ledger{
		loans:     make(map[int]map[uuid.UUID]loanEntry),
		holders:   make(map[uuid.UUID]int),
		policy:    DefaultPolicy(),
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
		newLoanID: uuid.New,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.journal == nil {
		l.journal = journal.New()
	}

	ins, err := newInstruments(l.meter)
	if err != nil {
		return nil, err
	}
	l.instruments = ins

	return l, nil
}

// Policy returns the lending rules in force.
func (l *Ledger) Policy() Policy {
	return l.policy
}

// Borrow lends item to member, due one loan period after now.
func (l *Ledger) Borrow(ctx context.Context, member Borrower, item Item, now time.Time) (Loan, error) {
	ctx, span := l.tracer.Start(ctx, "circulation.borrow")
	defer span.End()

	memberID, err := memberKey(member)
	if err == nil {
		err = checkItem(item)
	}
	if err != nil {
		span.RecordError(err)
		l.recordRejection(ctx, "borrow", reasonInvalidArgument, err)
		return Loan{}, err
	}
	span.SetAttributes(
		attribute.Int("member.id", memberID),
		attribute.String("item.id", item.ItemID().String()),
	)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !item.IsAvailable() {
		err := fmt.Errorf("%w: %q", ErrItemUnavailable, item.Title())
		span.RecordError(err)
		l.recordRejection(ctx, "borrow", reasonUnavailable, err, logAttrMember, memberID, logAttrItem, item.ItemID())
		return Loan{}, err
	}

	loan := Loan{
		ID:         l.newLoanID(),
		MemberID:   memberID,
		ItemID:     item.ItemID(),
		Title:      item.Title(),
		BorrowedAt: now,
		DueAt:      l.policy.DueDate(now),
	}

	err = l.appendEvent(ctx, loan.ID, 0, EventTypeItemBorrowed, ItemBorrowedEvent{
		LoanID:     loan.ID,
		MemberID:   memberID,
		ItemID:     loan.ItemID,
		Title:      loan.Title,
		BorrowedAt: loan.BorrowedAt,
		DueAt:      loan.DueAt,
	})
	if err != nil {
		err = fmt.Errorf("journal borrow of %q: %w", loan.Title, err)
		span.RecordError(err)
		l.recordRejection(ctx, "borrow", reasonJournal, err, logAttrMember, memberID, logAttrItem, loan.ItemID)
		return Loan{}, err
	}

	items, ok := l.loans[memberID]
	if !ok {
		items = make(map[uuid.UUID]loanEntry)
		l.loans[memberID] = items
	}
	items[loan.ItemID] = loanEntry{loan: loan, item: item}
	l.holders[loan.ItemID] = memberID
	item.SetAvailable(false)

	l.instruments.borrowed.Add(ctx, 1)
	l.instruments.active.Add(ctx, 1)
	span.SetAttributes(attribute.String("loan.due_at", loan.DueAt.Format(time.RFC3339)))
	l.logInfo(logMsgBorrowed,
		logAttrMember, memberID,
		logAttrItem, loan.ItemID,
		logAttrTitle, loan.Title,
		logAttrDue, loan.DueAt,
	)

	return loan, nil
}

// Return closes member's loan of item and assesses the overdue fee at now.
func (l *Ledger) Return(ctx context.Context, member Borrower, item Item, now time.Time) (Receipt, error) {
	ctx, span := l.tracer.Start(ctx, "circulation.return")
	defer span.End()

	memberID, err := memberKey(member)
	if err == nil {
		err = checkItem(item)
	}
	if err != nil {
		span.RecordError(err)
		l.recordRejection(ctx, "return", reasonInvalidArgument, err)
		return Receipt{}, err
	}
	itemID := item.ItemID()
	span.SetAttributes(
		attribute.Int("member.id", memberID),
		attribute.String("item.id", itemID.String()),
	)

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.loans[memberID][itemID]
	if !ok {
		err := fmt.Errorf("%w: member %d does not hold %q", ErrNoSuchLoan, memberID, item.Title())
		span.RecordError(err)
		l.recordRejection(ctx, "return", reasonNoSuchLoan, err, logAttrMember, memberID, logAttrItem, itemID)
		return Receipt{}, err
	}

	daysLate := l.policy.DaysLate(entry.loan.DueAt, now)
	receipt := Receipt{
		Loan:       entry.loan,
		ReturnedAt: now,
		OnTime:     !now.After(entry.loan.DueAt),
		DaysLate:   daysLate,
		Fee:        l.policy.Fee(daysLate),
	}

	err = l.appendEvent(ctx, entry.loan.ID, 1, EventTypeItemReturned, ItemReturnedEvent{
		LoanID:     entry.loan.ID,
		MemberID:   memberID,
		ItemID:     itemID,
		Title:      entry.loan.Title,
		ReturnedAt: now,
		DaysLate:   daysLate,
		Fee:        receipt.Fee,
	})
	if err != nil {
		err = fmt.Errorf("journal return of %q: %w", entry.loan.Title, err)
		span.RecordError(err)
		l.recordRejection(ctx, "return", reasonJournal, err, logAttrMember, memberID, logAttrItem, itemID)
		return Receipt{}, err
	}

	items := l.loans[memberID]
	delete(items, itemID)
	if len(items) == 0 {
		delete(l.loans, memberID)
	}
	delete(l.holders, itemID)
	entry.item.SetAvailable(true)

	l.instruments.returned.Add(ctx, 1, metric.WithAttributes(attribute.Bool("on_time", receipt.OnTime)))
	l.instruments.active.Add(ctx, -1)
	if receipt.Fee.IsPositive() {
		l.instruments.fees.Add(ctx, receipt.Fee.InexactFloat64())
	}
	span.SetAttributes(
		attribute.Bool("loan.on_time", receipt.OnTime),
		attribute.Int64("loan.days_late", daysLate),
	)
	l.logInfo(logMsgReturned,
		logAttrMember, memberID,
		logAttrItem, itemID,
		logAttrTitle, entry.loan.Title,
		logAttrDaysLate, daysLate,
		logAttrFee, receipt.Fee.StringFixed(2),
	)

	return receipt, nil
}

// Loans lists member's active loans ordered by due date, then title.
func (l *Ledger) Loans(member Borrower) ([]Loan, error) {
	memberID, err := memberKey(member)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	loans := make([]Loan, 0, len(l.loans[memberID]))
	for _, entry := range l.loans[memberID] {
		loans = append(loans, entry.loan)
	}
	l.mu.Unlock()

	sort.Slice(loans, func(i, j int) bool {
		if !loans[i].DueAt.Equal(loans[j].DueAt) {
			return loans[i].DueAt.Before(loans[j].DueAt)
		}
		if loans[i].Title != loans[j].Title {
			return loans[i].Title < loans[j].Title
		}
		return loans[i].ItemID.String() < loans[j].ItemID.String()
	})

	return loans, nil
}

// HasLoan reports whether member currently holds item.
func (l *Ledger) HasLoan(member Borrower, item Item) bool {
	memberID, err := memberKey(member)
	if err != nil || checkItem(item) != nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.loans[memberID][item.ItemID()]
	return ok
}

// IsLoaned reports whether any member currently holds item.
func (l *Ledger) IsLoaned(item Item) bool {
	if checkItem(item) != nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.holders[item.ItemID()]
	return ok
}

// Borrowers returns the IDs of members holding at least one item, ascending.
func (l *Ledger) Borrowers() []int {
	l.mu.Lock()
	ids := make([]int, 0, len(l.loans))
	for id := range l.loans {
		ids = append(ids, id)
	}
	l.mu.Unlock()

	sort.Ints(ids)
	return ids
}

// History replays the journal and returns member's loan events in the order
// they were recorded.
func (l *Ledger) History(ctx context.Context, member Borrower) ([]HistoryEntry, error) {
	ctx, span := l.tracer.Start(ctx, "circulation.history")
	defer span.End()

	memberID, err := memberKey(member)
	if err != nil {
		return nil, err
	}

	var (
		entries []HistoryEntry
		fromID  int64
	)
	for {
		events, err := l.journal.StreamEvents(ctx, fromID, historyBatchSize)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("stream loan events: %w", err)
		}
		if len(events) == 0 {
			break
		}

		for _, event := range events {
			entry, ok, err := historyEntryFrom(event, memberID)
			if err != nil {
				span.RecordError(err)
				return nil, err
			}
			if ok {
				entries = append(entries, entry)
			}
		}
		fromID = events[len(events)-1].ID
	}

	span.SetAttributes(attribute.Int("history.entries", len(entries)))
	return entries, nil
}

func historyEntryFrom(event journal.Event, memberID int) (HistoryEntry, bool, error) {
	switch event.EventType {
	case EventTypeItemBorrowed:
		var e ItemBorrowedEvent
		if err := event.Decode(&e); err != nil {
			return HistoryEntry{}, false, err
		}
		if e.MemberID != memberID {
			return HistoryEntry{}, false, nil
		}
		return HistoryEntry{
			EventType:  event.EventType,
			OccurredAt: e.BorrowedAt,
			LoanID:     e.LoanID,
			ItemID:     e.ItemID,
			Title:      e.Title,
			DueAt:      e.DueAt,
		}, true, nil

	case EventTypeItemReturned:
		var e ItemReturnedEvent
		if err := event.Decode(&e); err != nil {
			return HistoryEntry{}, false, err
		}
		if e.MemberID != memberID {
			return HistoryEntry{}, false, nil
		}
		return HistoryEntry{
			EventType:  event.EventType,
			OccurredAt: e.ReturnedAt,
			LoanID:     e.LoanID,
			ItemID:     e.ItemID,
			Title:      e.Title,
			DaysLate:   e.DaysLate,
			Fee:        e.Fee,
		}, true, nil
	}

	return HistoryEntry{}, false, nil
}

func (l *Ledger) appendEvent(ctx context.Context, loanID uuid.UUID, expectedVersion int, eventType string, payload interface{}) error {
	event, err := journal.NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	return l.journal.AppendEvents(ctx, loanID, aggregateTypeLoan, expectedVersion, []journal.Event{event})
}

func memberKey(member Borrower) (int, error) {
	if isNil(member) {
		return 0, fmt.Errorf("%w: member is required", ErrInvalidArgument)
	}
	id := member.MembershipID()
	if id <= 0 {
		return 0, fmt.Errorf("%w: membership ID must be positive, got %d", ErrInvalidArgument, id)
	}
	return id, nil
}

func checkItem(item Item) error {
	if isNil(item) {
		return fmt.Errorf("%w: item is required", ErrInvalidArgument)
	}
	if item.ItemID() == uuid.Nil {
		return fmt.Errorf("%w: item has no ID", ErrInvalidArgument)
	}
	return nil
}

// isNil also catches typed nil pointers stored in an interface.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
