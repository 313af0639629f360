// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"libradesk/internal/journal"
)

const (
	instrumentationName = "libradesk/catalog"
	aggregateTypeItem   = "item"
)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Journal records catalogue changes. *journal.Journal implements it.
type Journal interface {
	AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []journal.Event) error
}

// Option configures a Catalogue.
type Option func(*Catalogue)

func WithLogger(logger Logger) Option {
	return func(c *Catalogue) { c.logger = logger }
}

func WithJournal(j Journal) Option {
	return func(c *Catalogue) { c.journal = j }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Catalogue) { c.tracer = tp.Tracer(instrumentationName) }
}

// Catalogue holds the library's items in insertion order.
type Catalogue struct {
	mu      sync.RWMutex
	items   []*Item
	journal Journal
	logger  Logger
	tracer  trace.Tracer
}

var _ Service = (*Catalogue)(nil)

// NewCatalogue creates an empty catalogue.
func NewCatalogue(opts ...Option) *Catalogue {
	c := &Catalogue{
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddBook creates a book and adds it to the catalogue.
func (c *Catalogue) AddBook(ctx context.Context, title, author, isbn string, publishedOn time.Time, category string) (*Item, error) {
	item, err := NewBook(title, author, isbn, publishedOn, category)
	if err != nil {
		return nil, err
	}
	if err := c.Add(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// AddMagazine creates a magazine issue and adds it to the catalogue.
func (c *Catalogue) AddMagazine(ctx context.Context, title, publisher string, issueNumber int, publishedOn time.Time, category string) (*Item, error) {
	item, err := NewMagazine(title, publisher, issueNumber, publishedOn, category)
	if err != nil {
		return nil, err
	}
	if err := c.Add(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Add appends an already constructed item.
func (c *Catalogue) Add(ctx context.Context, item *Item) error {
	if item == nil || item.ItemID() == uuid.Nil {
		return fmt.Errorf("%w: item is required", ErrInvalidItem)
	}

	ctx, span := c.tracer.Start(ctx, "catalog.add", trace.WithAttributes(
		attribute.String("item.id", item.ItemID().String()),
		attribute.String("item.kind", string(item.Kind())),
	))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf(item.ItemID()) >= 0 {
		err := fmt.Errorf("%w: item %s already catalogued", ErrInvalidItem, item.ItemID())
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := c.record(ctx, item.ItemID(), 0, EventTypeItemAdded, ItemAddedEvent{
		ID:       item.ItemID(),
		Kind:     item.Kind(),
		Title:    item.Title(),
		Creator:  item.Creator(),
		Category: item.Category(),
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.items = append(c.items, item)
	if c.logger != nil {
		c.logger.Info("item catalogued", "item_id", item.ItemID(), "title", item.Title(), "kind", item.Kind())
	}
	return nil
}

// Get looks an item up by ID.
func (c *Catalogue) Get(id uuid.UUID) (*Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return c.items[i], nil
}

// ItemAt returns the item at a 1-based listing position.
func (c *Catalogue) ItemAt(position int) (*Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if position < 1 || position > len(c.items) {
		return nil, fmt.Errorf("%w: no item at position %d", ErrItemNotFound, position)
	}
	return c.items[position-1], nil
}

// Remove retires an item. Items out on loan cannot be removed.
func (c *Catalogue) Remove(ctx context.Context, id uuid.UUID) error {
	ctx, span := c.tracer.Start(ctx, "catalog.remove", trace.WithAttributes(
		attribute.String("item.id", id.String()),
	))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		err := fmt.Errorf("%w: %s", ErrItemNotFound, id)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	item := c.items[i]
	if !item.IsAvailable() {
		err := fmt.Errorf("%w: %q", ErrItemOnLoan, item.Title())
		span.SetStatus(codes.Error, err.Error())
		if c.logger != nil {
			c.logger.Warn("item removal refused", "item_id", id, "title", item.Title())
		}
		return err
	}

	if err := c.record(ctx, id, 1, EventTypeItemRemoved, ItemRemovedEvent{ID: id, Title: item.Title()}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.items = append(c.items[:i], c.items[i+1:]...)
	if c.logger != nil {
		c.logger.Info("item removed", "item_id", id, "title", item.Title())
	}
	return nil
}

// SearchByTitle returns items whose title contains term, ignoring case.
func (c *Catalogue) SearchByTitle(term string) ([]*Item, error) {
	return c.search(term, (*Item).Title)
}

// SearchByCategory returns items whose category contains term, ignoring case.
func (c *Catalogue) SearchByCategory(term string) ([]*Item, error) {
	return c.search(term, (*Item).Category)
}

func (c *Catalogue) search(term string, field func(*Item) string) ([]*Item, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil, fmt.Errorf("%w: search term cannot be empty", ErrInvalidItem)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var found []*Item
	for _, item := range c.items {
		if strings.Contains(strings.ToLower(field(item)), needle) {
			found = append(found, item)
		}
	}
	return found, nil
}

// All returns a snapshot of the catalogue in insertion order.
func (c *Catalogue) All() []*Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalogue) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Catalogue) indexOf(id uuid.UUID) int {
	for i, item := range c.items {
		if item.ItemID() == id {
			return i
		}
	}
	return -1
}

func (c *Catalogue) record(ctx context.Context, id uuid.UUID, expectedVersion int, eventType string, payload interface{}) error {
	if c.journal == nil {
		return nil
	}
	event, err := journal.NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	if err := c.journal.AppendEvents(ctx, id, aggregateTypeItem, expectedVersion, []journal.Event{event}); err != nil {
		return fmt.Errorf("failed to append %s event: %w", eventType, err)
	}
	return nil
}
