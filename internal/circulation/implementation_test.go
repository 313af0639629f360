package circulation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"libradesk/internal/circulation"
	"libradesk/internal/journal"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type testItem struct {
	id        uuid.UUID
	title     string
	available bool
}

func newTestItem(title string) *testItem {
	return &testItem{id: uuid.New(), title: title, available: true}
}

func (i *testItem) ItemID() uuid.UUID           { return i.id }
func (i *testItem) Title() string               { return i.title }
func (i *testItem) IsAvailable() bool           { return i.available }
func (i *testItem) SetAvailable(available bool) { i.available = available }

type testMember int

func (m testMember) MembershipID() int { return int(m) }

func newLedger(t *testing.T, opts ...circulation.Option) *circulation.Ledger {
	t.Helper()

	l, err := circulation.NewLedger(opts...)
	require.NoError(t, err)
	return l
}

func TestBorrow_Success(t *testing.T) {
	l := newLedger(t)
	member := testMember(1001)
	item := newTestItem("The Great Gatsby")

	loan, err := l.Borrow(context.Background(), member, item, t0)

	require.NoError(t, err)
	assert.Equal(t, t0.Add(14*24*time.Hour), loan.DueAt)
	assert.Equal(t, 1001, loan.MemberID)
	assert.Equal(t, item.id, loan.ItemID)
	assert.Equal(t, "The Great Gatsby", loan.Title)
	assert.NotEqual(t, uuid.Nil, loan.ID)
	assert.True(t, l.HasLoan(member, item))
	assert.True(t, l.IsLoaned(item))
	assert.False(t, item.IsAvailable())
	assert.Equal(t, []int{1001}, l.Borrowers())
}

func TestBorrow_ItemUnavailable(t *testing.T) {
	l := newLedger(t)
	first := testMember(1001)
	second := testMember(1002)
	item := newTestItem("1984")

	_, err := l.Borrow(context.Background(), first, item, t0)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = l.Borrow(context.Background(), second, item, t0.Add(time.Hour))
		assert.ErrorIs(t, err, circulation.ErrItemUnavailable)
		assert.ErrorContains(t, err, "1984")
	}

	assert.False(t, l.HasLoan(second, item))
	assert.True(t, l.HasLoan(first, item))
	assert.Equal(t, []int{1001}, l.Borrowers())

	loans, err := l.Loans(second)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestBorrow_AlreadyHeldBySameMember(t *testing.T) {
	l := newLedger(t)
	member := testMember(1001)
	item := newTestItem("Time")

	first, err := l.Borrow(context.Background(), member, item, t0)
	require.NoError(t, err)

	_, err = l.Borrow(context.Background(), member, item, t0.Add(24*time.Hour))
	assert.ErrorIs(t, err, circulation.ErrItemUnavailable)

	loans, err := l.Loans(member)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, first.DueAt, loans[0].DueAt)
}

func TestBorrow_InvalidArguments(t *testing.T) {
	l := newLedger(t)
	item := newTestItem("Time")
	var nilItem *testItem

	testCases := []struct {
		name   string
		member circulation.Borrower
		item   circulation.Item
	}{
		{"nil member", nil, item},
		{"nil item", testMember(1001), nil},
		{"typed nil item", testMember(1001), nilItem},
		{"zero member ID", testMember(0), item},
		{"negative member ID", testMember(-3), item},
		{"item without ID", testMember(1001), &testItem{title: "x", available: true}},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Borrow(context.Background(), tt.member, tt.item, t0)
			assert.ErrorIs(t, err, circulation.ErrInvalidArgument)

			_, err = l.Return(context.Background(), tt.member, tt.item, t0)
			assert.ErrorIs(t, err, circulation.ErrInvalidArgument)
		})
	}

	assert.True(t, item.IsAvailable())
	assert.Empty(t, l.Borrowers())

	_, err := l.Loans(nil)
	assert.ErrorIs(t, err, circulation.ErrInvalidArgument)
}

func TestReturn_ImmediatelyIsOnTime(t *testing.T) {
	l := newLedger(t)
	member := testMember(1001)
	item := newTestItem("To Kill a Mockingbird")

	_, err := l.Borrow(context.Background(), member, item, t0)
	require.NoError(t, err)

	receipt, err := l.Return(context.Background(), member, item, t0)

	require.NoError(t, err)
	assert.True(t, receipt.OnTime)
	assert.Equal(t, int64(0), receipt.DaysLate)
	assert.True(t, receipt.Fee.IsZero())
	assert.Equal(t, t0, receipt.ReturnedAt)
	assert.True(t, item.IsAvailable())
	assert.False(t, l.HasLoan(member, item))
	assert.False(t, l.IsLoaned(item))
}

func TestReturn_OneSecondBeforeDue(t *testing.T) {
	l := newLedger(t)
	member := testMember(1001)
	item := newTestItem("National Geographic")

	loan, err := l.Borrow(context.Background(), member, item, t0)
	require.NoError(t, err)

	receipt, err := l.Return(context.Background(), member, item, loan.DueAt.Add(-time.Second))

	require.NoError(t, err)
	assert.True(t, receipt.OnTime)
	assert.True(t, receipt.Fee.IsZero())
}

func TestReturn_ThreeDaysTwoHoursLate(t *testing.T) {
	l := newLedger(t)
	member := testMember(1001)
	item := newTestItem("1984")

	loan, err := l.Borrow(context.Background(), member, item, t0)
	require.NoError(t, err)
	require.Equal(t, t0.Add(14*24*time.Hour), loan.DueAt)

	receipt, err := l.Return(context.Background(), member, item, loan.DueAt.Add(3*24*time.Hour+2*time.Hour))

	require.NoError(t, err)
	assert.False(t, receipt.OnTime)
	assert.Equal(t, int64(3), receipt.DaysLate)
	assert.Equal(t, "1.50", receipt.Fee.StringFixed(2))
}

func TestReturn_LateByLessThanADay(t *testing.T) {
	l := newLedger(t)
	member := testMember(1001)
	item := newTestItem("1984")

	loan, err := l.Borrow(context.Background(), member, item, t0)
	require.NoError(t, err)

	receipt, err := l.Return(context.Background(), member, item, loan.DueAt.Add(5*time.Hour))

	require.NoError(t, err)
	assert.False(t, receipt.OnTime)
	assert.Equal(t, int64(0), receipt.DaysLate)
	assert.True(t, receipt.Fee.IsZero())
}

func TestReturn_NoSuchLoan(t *testing.T) {
	l := newLedger(t)
	member := testMember(1001)
	other := testMember(1002)
	item := newTestItem("Time")

	_, err := l.Return(context.Background(), member, item, t0)
	assert.ErrorIs(t, err, circulation.ErrNoSuchLoan)

	_, err = l.Borrow(context.Background(), member, item, t0)
	require.NoError(t, err)

	_, err = l.Return(context.Background(), other, item, t0)
	assert.ErrorIs(t, err, circulation.ErrNoSuchLoan)
	assert.False(t, item.IsAvailable())

	_, err = l.Return(context.Background(), member, item, t0)
	require.NoError(t, err)

	_, err = l.Return(context.Background(), member, item, t0)
	assert.ErrorIs(t, err, circulation.ErrNoSuchLoan)
}

func TestReturn_ThenAnotherMemberBorrows(t *testing.T) {
	l := newLedger(t)
	first := testMember(1001)
	second := testMember(1002)
	item := newTestItem("The Great Gatsby")

	_, err := l.Borrow(context.Background(), first, item, t0)
	require.NoError(t, err)
	_, err = l.Return(context.Background(), first, item, t0.Add(24*time.Hour))
	require.NoError(t, err)

	loan, err := l.Borrow(context.Background(), second, item, t0.Add(48*time.Hour))

	require.NoError(t, err)
	assert.Equal(t, 1002, loan.MemberID)
	assert.True(t, l.HasLoan(second, item))
	assert.False(t, l.HasLoan(first, item))
}

func TestReturn_PrunesMemberWithoutLoans(t *testing.T) {
	l := newLedger(t)
	alice := testMember(1001)
	bob := testMember(1002)
	gatsby := newTestItem("The Great Gatsby")
	orwell := newTestItem("1984")
	time1 := newTestItem("Time")

	for _, step := range []struct {
		member testMember
		item   *testItem
	}{{alice, gatsby}, {alice, orwell}, {bob, time1}} {
		_, err := l.Borrow(context.Background(), step.member, step.item, t0)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{1001, 1002}, l.Borrowers())

	_, err := l.Return(context.Background(), bob, time1, t0)
	require.NoError(t, err)
	assert.Equal(t, []int{1001}, l.Borrowers())

	_, err = l.Return(context.Background(), alice, gatsby, t0)
	require.NoError(t, err)
	assert.Equal(t, []int{1001}, l.Borrowers())

	_, err = l.Return(context.Background(), alice, orwell, t0)
	require.NoError(t, err)
	assert.Empty(t, l.Borrowers())
}

func TestLoans_OrderedByDueDateThenTitle(t *testing.T) {
	l := newLedger(t)
	member := testMember(1001)
	later := newTestItem("A Later Book")
	zebra := newTestItem("Zebra")
	apple := newTestItem("Apple")

	_, err := l.Borrow(context.Background(), member, later, t0.Add(48*time.Hour))
	require.NoError(t, err)
	_, err = l.Borrow(context.Background(), member, zebra, t0)
	require.NoError(t, err)
	_, err = l.Borrow(context.Background(), member, apple, t0)
	require.NoError(t, err)

	loans, err := l.Loans(member)

	require.NoError(t, err)
	require.Len(t, loans, 3)
	assert.Equal(t, "Apple", loans[0].Title)
	assert.Equal(t, "Zebra", loans[1].Title)
	assert.Equal(t, "A Later Book", loans[2].Title)

	standing := loans[0].Standing(loans[0].DueAt.Add(49*time.Hour), l.Policy())
	assert.True(t, standing.Overdue)
	assert.Equal(t, int64(2), standing.DaysLate)
	assert.Equal(t, "1.00", standing.AccruedFee.StringFixed(2))
}

func TestLoans_EmptyForUnknownMember(t *testing.T) {
	l := newLedger(t)

	loans, err := l.Loans(testMember(4242))

	require.NoError(t, err)
	assert.NotNil(t, loans)
	assert.Empty(t, loans)
}

func TestWithPolicy_ChangesDueDateAndFee(t *testing.T) {
	p := circulation.DefaultPolicy()
	p.LoanPeriod = 7 * 24 * time.Hour
	l := newLedger(t, circulation.WithPolicy(p))
	member := testMember(1001)
	item := newTestItem("Time")

	loan, err := l.Borrow(context.Background(), member, item, t0)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(7*24*time.Hour), loan.DueAt)

	receipt, err := l.Return(context.Background(), member, item, t0.Add(10*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), receipt.DaysLate)
}

func TestHistory_ReplaysMemberEvents(t *testing.T) {
	j := journal.New()
	l := newLedger(t, circulation.WithJournal(j))
	alice := testMember(1001)
	bob := testMember(1002)
	gatsby := newTestItem("The Great Gatsby")
	orwell := newTestItem("1984")

	_, err := l.Borrow(context.Background(), alice, gatsby, t0)
	require.NoError(t, err)
	_, err = l.Borrow(context.Background(), bob, orwell, t0)
	require.NoError(t, err)
	receipt, err := l.Return(context.Background(), alice, gatsby, t0.Add(16*24*time.Hour))
	require.NoError(t, err)

	history, err := l.History(context.Background(), alice)

	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, circulation.EventTypeItemBorrowed, history[0].EventType)
	assert.Equal(t, "The Great Gatsby", history[0].Title)
	assert.True(t, history[0].DueAt.Equal(receipt.Loan.DueAt))
	assert.Equal(t, circulation.EventTypeItemReturned, history[1].EventType)
	assert.Equal(t, int64(2), history[1].DaysLate)
	assert.Equal(t, "1.00", history[1].Fee.StringFixed(2))
	assert.Equal(t, history[0].LoanID, history[1].LoanID)

	version, err := j.CurrentVersion(context.Background(), receipt.Loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

type failingJournal struct {
	*journal.Journal
	err error
}

func (f *failingJournal) AppendEvents(context.Context, uuid.UUID, string, int, []journal.Event) error {
	return f.err
}

func TestBorrow_JournalFailureLeavesStateUnchanged(t *testing.T) {
	boom := errors.New("journal unavailable")
	l := newLedger(t, circulation.WithJournal(&failingJournal{Journal: journal.New(), err: boom}))
	member := testMember(1001)
	item := newTestItem("Time")

	_, err := l.Borrow(context.Background(), member, item, t0)

	assert.ErrorIs(t, err, boom)
	assert.True(t, item.IsAvailable())
	assert.False(t, l.HasLoan(member, item))
	assert.Empty(t, l.Borrowers())
}

func TestBorrow_ConcurrentBorrowersOnlyOneWins(t *testing.T) {
	l := newLedger(t)
	item := newTestItem("The Great Gatsby")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []int
		failures  int
	)

	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(member testMember) {
			defer wg.Done()
			_, err := l.Borrow(context.Background(), member, item, t0)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes = append(successes, int(member))
				return
			}
			if errors.Is(err, circulation.ErrItemUnavailable) {
				failures++
			}
		}(testMember(1000 + i))
	}
	wg.Wait()

	require.Len(t, successes, 1, "only one concurrent borrow should succeed")
	assert.Equal(t, 99, failures)
	assert.Equal(t, successes, l.Borrowers())
	assert.False(t, item.IsAvailable())
}

func TestLedger_RecordsSpansAndMetrics(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	l := newLedger(t, circulation.WithTracerProvider(tp), circulation.WithMeterProvider(mp))
	member := testMember(1001)
	item := newTestItem("1984")

	_, err := l.Borrow(context.Background(), member, item, t0)
	require.NoError(t, err)
	_, err = l.Borrow(context.Background(), testMember(1002), item, t0)
	require.Error(t, err)
	_, err = l.Return(context.Background(), member, item, t0.Add(18*24*time.Hour))
	require.NoError(t, err)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Equal(t, []string{"circulation.borrow", "circulation.borrow", "circulation.return"}, names)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.Equal(t, int64(1), sumInt64(t, rm, "libradesk.loans.borrowed"))
	assert.Equal(t, int64(1), sumInt64(t, rm, "libradesk.loans.returned"))
	assert.Equal(t, int64(1), sumInt64(t, rm, "libradesk.loans.rejected"))
	assert.Equal(t, int64(0), sumInt64(t, rm, "libradesk.loans.active"))
	assert.InDelta(t, 2.0, sumFloat64(t, rm, "libradesk.fees.assessed"), 1e-9)
}

func findMetric(t *testing.T, rm metricdata.ResourceMetrics, name string) metricdata.Metrics {
	t.Helper()

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return metricdata.Metrics{}
}

func sumInt64(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()

	sum, ok := findMetric(t, rm, name).Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func sumFloat64(t *testing.T, rm metricdata.ResourceMetrics, name string) float64 {
	t.Helper()

	sum, ok := findMetric(t, rm, name).Data.(metricdata.Sum[float64])
	require.True(t, ok, "metric %s is not a float64 sum", name)

	var total float64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}
