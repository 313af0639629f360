// internal/circulation/options.go
package circulation

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"libradesk/internal/journal"
)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Journal records loan events. *journal.Journal implements it.
type Journal interface {
	AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []journal.Event) error
	StreamEvents(ctx context.Context, fromID int64, batchSize int) ([]journal.Event, error)
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger; without one the ledger is silent.
func WithLogger(logger Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithPolicy replaces the default 14 day / 0.50 policy.
func WithPolicy(p Policy) Option {
	return func(l *Ledger) {
		l.policy = p
	}
}

// WithJournal sets the journal loan events are appended to.
func WithJournal(j Journal) Option {
	return func(l *Ledger) {
		l.journal = j
	}
}

// WithTracerProvider sets the provider spans are started from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(l *Ledger) {
		l.tracer = tp.Tracer(instrumentationName)
	}
}

// WithMeterProvider sets the provider loan metrics are recorded on.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(l *Ledger) {
		l.meter = mp.Meter(instrumentationName)
	}
}
