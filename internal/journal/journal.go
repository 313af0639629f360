// internal/journal/journal.go
package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
	ErrEmptyEventType      = errors.New("event type must not be empty")
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is a recorded fact about one aggregate.
type Event struct {
	ID            int64                  `json:"id"`
	AggregateID   uuid.UUID              `json:"aggregate_id"`
	AggregateType string                 `json:"aggregate_type"`
	EventType     string                 `json:"event_type"`
	EventData     jsoniter.RawMessage    `json:"event_data"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Version       int                    `json:"version"`
	CreatedAt     time.Time              `json:"created_at"`
}

// NewEvent encodes payload into a new, not yet appended event.
func NewEvent(eventType string, payload interface{}) (Event, error) {
	if eventType == "" {
		return Event{}, ErrEmptyEventType
	}

	data, err := codec.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	return Event{EventType: eventType, EventData: data}, nil
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v interface{}) error {
	if err := codec.Unmarshal(e.EventData, v); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", e.EventType, err)
	}
	return nil
}

// Option configures a Journal.
type Option func(*Journal)

// WithClock overrides the clock used to stamp CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// WithTracerProvider sets the provider the journal takes its tracer from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(j *Journal) {
		j.tracer = tp.Tracer("libradesk/journal")
	}
}

// Journal is an in-memory append-only event log with optimistic
// concurrency control per aggregate.
type Journal struct {
	mu          sync.RWMutex
	events      []Event
	byAggregate map[uuid.UUID][]int
	tracer      trace.Tracer
	now         func() time.Time
}

// New creates an empty journal.
func New(opts ...Option) *Journal {
	j := &Journal{
		byAggregate: make(map[uuid.UUID][]int),
		tracer:      otel.Tracer("libradesk/journal"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// AppendEvents atomically appends events after checking that the aggregate
// is still at expectedVersion.
func (j *Journal) AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []Event) error {
	_, span := j.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}
	for _, event := range events {
		if event.EventType == "" {
			return ErrEmptyEventType
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	currentVersion := len(j.byAggregate[aggregateID])
	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	createdAt := j.now().UTC()
	for i, event := range events {
		event.ID = int64(len(j.events) + 1)
		event.AggregateID = aggregateID
		event.AggregateType = aggregateType
		event.Version = expectedVersion + i + 1
		event.CreatedAt = createdAt

		j.byAggregate[aggregateID] = append(j.byAggregate[aggregateID], len(j.events))
		j.events = append(j.events, event)

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.id", event.ID),
			attribute.Int("event.version", event.Version),
			attribute.String("event.type", event.EventType),
		))
	}

	span.SetAttributes(attribute.Bool("append.success", true))
	return nil
}

// LoadEvents returns the events of one aggregate with fromVersion <= version,
// and version <= toVersion when toVersion is positive.
func (j *Journal) LoadEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]Event, error) {
	_, span := j.tracer.Start(ctx, "journal.load",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.Int("from.version", fromVersion),
			attribute.Int("to.version", toVersion),
		),
	)
	defer span.End()

	j.mu.RLock()
	defer j.mu.RUnlock()

	var events []Event
	for _, idx := range j.byAggregate[aggregateID] {
		event := j.events[idx]
		if event.Version < fromVersion {
			continue
		}
		if toVersion > 0 && event.Version > toVersion {
			break
		}
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// CurrentVersion returns the latest version of an aggregate, 0 if unknown.
func (j *Journal) CurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	_, span := j.tracer.Start(ctx, "journal.current_version",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
		),
	)
	defer span.End()

	j.mu.RLock()
	version := len(j.byAggregate[aggregateID])
	j.mu.RUnlock()

	span.SetAttributes(attribute.Int("current.version", version))
	return version, nil
}

// StreamEvents returns up to batchSize events with ID greater than fromID,
// in append order.
func (j *Journal) StreamEvents(ctx context.Context, fromID int64, batchSize int) ([]Event, error) {
	_, span := j.tracer.Start(ctx, "journal.stream",
		trace.WithAttributes(
			attribute.Int64("from.id", fromID),
			attribute.Int("batch.size", batchSize),
		),
	)
	defer span.End()

	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	if fromID < 0 {
		fromID = 0
	}
	if fromID >= int64(len(j.events)) {
		return nil, nil
	}

	end := fromID + int64(batchSize)
	if end > int64(len(j.events)) {
		end = int64(len(j.events))
	}

	events := make([]Event, end-fromID)
	copy(events, j.events[fromID:end])

	span.SetAttributes(attribute.Int("events.streamed", len(events)))
	return events, nil
}
