// internal/circulation/observability.go
package circulation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "libradesk/circulation"

	metricLoansBorrowed = "libradesk.loans.borrowed"
	metricLoansReturned = "libradesk.loans.returned"
	metricLoansRejected = "libradesk.loans.rejected"
	metricLoansActive   = "libradesk.loans.active"
	metricFeesAssessed  = "libradesk.fees.assessed"

	logMsgBorrowed = "item borrowed"
	logMsgReturned = "item returned"
	logMsgRejected = "loan operation rejected"

	logAttrMember   = "member_id"
	logAttrItem     = "item_id"
	logAttrTitle    = "title"
	logAttrDue      = "due_at"
	logAttrDaysLate = "days_late"
	logAttrFee      = "fee"
	logAttrOp       = "operation"
	logAttrError    = "error"

	reasonInvalidArgument = "invalid_argument"
	reasonUnavailable     = "item_unavailable"
	reasonNoSuchLoan      = "no_such_loan"
	reasonJournal         = "journal"
)

type instruments struct {
	borrowed metric.Int64Counter
	returned metric.Int64Counter
	rejected metric.Int64Counter
	active   metric.Int64UpDownCounter
	fees     metric.Float64Counter
}

func newInstruments(meter metric.Meter) (instruments, error) {
	var (
		ins instruments
		err error
	)

	if ins.borrowed, err = meter.Int64Counter(metricLoansBorrowed,
		metric.WithDescription("Items lent to members")); err != nil {
		return ins, fmt.Errorf("create %s: %w", metricLoansBorrowed, err)
	}
	if ins.returned, err = meter.Int64Counter(metricLoansReturned,
		metric.WithDescription("Items returned by members")); err != nil {
		return ins, fmt.Errorf("create %s: %w", metricLoansReturned, err)
	}
	if ins.rejected, err = meter.Int64Counter(metricLoansRejected,
		metric.WithDescription("Borrow or return attempts refused by the ledger")); err != nil {
		return ins, fmt.Errorf("create %s: %w", metricLoansRejected, err)
	}
	if ins.active, err = meter.Int64UpDownCounter(metricLoansActive,
		metric.WithDescription("Loans currently open")); err != nil {
		return ins, fmt.Errorf("create %s: %w", metricLoansActive, err)
	}
	if ins.fees, err = meter.Float64Counter(metricFeesAssessed,
		metric.WithDescription("Overdue fees charged on return")); err != nil {
		return ins, fmt.Errorf("create %s: %w", metricFeesAssessed, err)
	}

	return ins, nil
}

func (l *Ledger) recordRejection(ctx context.Context, op, reason string, err error, args ...any) {
	l.instruments.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("reason", reason),
	))

	if l.logger != nil {
		allArgs := []any{logAttrOp, op, logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		l.logger.Warn(logMsgRejected, allArgs...)
	}
}

func (l *Ledger) logInfo(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Info(msg, args...)
	}
}
