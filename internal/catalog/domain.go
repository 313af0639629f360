// internal/catalog/domain.go
package catalog

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Kind tags the variant of a catalogue item.
type Kind string

const (
	KindBook     Kind = "book"
	KindMagazine Kind = "magazine"

	publicationDateLayout = "01/02/2006"
)

// Item represents a book or magazine. Creator is the author of a book or
// the publisher of a magazine.
type Item struct {
	id          uuid.UUID
	kind        Kind
	title       string
	creator     string
	isbn        string
	issueNumber int
	publishedOn time.Time
	category    string
	available   atomic.Bool
}

// NewBook validates and creates an available book.
func NewBook(title, author, isbn string, publishedOn time.Time, category string) (*Item, error) {
	item := &Item{
		id:          uuid.New(),
		kind:        KindBook,
		title:       strings.TrimSpace(title),
		creator:     strings.TrimSpace(author),
		isbn:        strings.TrimSpace(isbn),
		publishedOn: publishedOn,
		category:    strings.TrimSpace(category),
	}
	if err := item.validate(); err != nil {
		return nil, err
	}
	if item.isbn == "" {
		return nil, fmt.Errorf("%w: ISBN cannot be empty", ErrInvalidItem)
	}
	item.available.Store(true)
	return item, nil
}

// NewMagazine validates and creates an available magazine issue.
func NewMagazine(title, publisher string, issueNumber int, publishedOn time.Time, category string) (*Item, error) {
	item := &Item{
		id:          uuid.New(),
		kind:        KindMagazine,
		title:       strings.TrimSpace(title),
		creator:     strings.TrimSpace(publisher),
		issueNumber: issueNumber,
		publishedOn: publishedOn,
		category:    strings.TrimSpace(category),
	}
	if err := item.validate(); err != nil {
		return nil, err
	}
	if issueNumber <= 0 {
		return nil, fmt.Errorf("%w: issue number must be positive, got %d", ErrInvalidItem, issueNumber)
	}
	item.available.Store(true)
	return item, nil
}

func (i *Item) validate() error {
	switch {
	case i.title == "":
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidItem)
	case i.creator == "" && i.kind == KindBook:
		return fmt.Errorf("%w: author cannot be empty", ErrInvalidItem)
	case i.creator == "":
		return fmt.Errorf("%w: publisher cannot be empty", ErrInvalidItem)
	case i.publishedOn.IsZero():
		return fmt.Errorf("%w: publication date is required", ErrInvalidItem)
	case i.category == "":
		return fmt.Errorf("%w: category cannot be empty", ErrInvalidItem)
	}
	return nil
}

func (i *Item) ItemID() uuid.UUID      { return i.id }
func (i *Item) Kind() Kind             { return i.kind }
func (i *Item) Title() string          { return i.title }
func (i *Item) Creator() string        { return i.creator }
func (i *Item) ISBN() string           { return i.isbn }
func (i *Item) IssueNumber() int       { return i.issueNumber }
func (i *Item) PublishedOn() time.Time { return i.publishedOn }
func (i *Item) Category() string       { return i.category }

// IsAvailable reports whether the item is on the shelf.
func (i *Item) IsAvailable() bool { return i.available.Load() }

// SetAvailable is called by the loan ledger only.
func (i *Item) SetAvailable(available bool) { i.available.Store(available) }

// Describe renders the item the way the catalogue listing shows it.
func (i *Item) Describe() string {
	status := "Available"
	if !i.IsAvailable() {
		status = "Checked Out"
	}

	var b strings.Builder
	switch i.kind {
	case KindMagazine:
		fmt.Fprintf(&b, "Magazine: %s | Issue: %d\n", i.title, i.issueNumber)
		fmt.Fprintf(&b, "  Publisher: %s\n", i.creator)
	default:
		fmt.Fprintf(&b, "Book: %s by %s\n", i.title, i.creator)
		fmt.Fprintf(&b, "  ISBN: %s\n", i.isbn)
	}
	fmt.Fprintf(&b, "  Category: %s\n", i.category)
	fmt.Fprintf(&b, "  Published: %s\n", i.publishedOn.Format(publicationDateLayout))
	fmt.Fprintf(&b, "  Status: %s", status)
	return b.String()
}

// ParsePublicationDate parses the MM/DD/YYYY dates the console accepts.
func ParsePublicationDate(s string) (time.Time, error) {
	t, err := time.Parse(publicationDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: publication date must be MM/DD/YYYY", ErrInvalidItem)
	}
	return t, nil
}

const (
	EventTypeItemAdded   = "ItemAdded"
	EventTypeItemRemoved = "ItemRemoved"
)

// ItemAddedEvent is journaled when an item joins the catalogue.
type ItemAddedEvent struct {
	ID       uuid.UUID `json:"id"`
	Kind     Kind      `json:"kind"`
	Title    string    `json:"title"`
	Creator  string    `json:"creator"`
	Category string    `json:"category"`
}

// ItemRemovedEvent is journaled when an item is retired from the catalogue.
type ItemRemovedEvent struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}
