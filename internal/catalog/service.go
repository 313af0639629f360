// internal/catalog/service.go
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidItem  = errors.New("invalid item")
	ErrItemNotFound = errors.New("item not found")
	ErrItemOnLoan   = errors.New("item is currently checked out")
)

// Service defines the catalogue operations used by the console.
type Service interface {
	AddBook(ctx context.Context, title, author, isbn string, publishedOn time.Time, category string) (*Item, error)
	AddMagazine(ctx context.Context, title, publisher string, issueNumber int, publishedOn time.Time, category string) (*Item, error)
	Add(ctx context.Context, item *Item) error
	Get(id uuid.UUID) (*Item, error)
	ItemAt(position int) (*Item, error)
	Remove(ctx context.Context, id uuid.UUID) error
	SearchByTitle(term string) ([]*Item, error)
	SearchByCategory(term string) ([]*Item, error)
	All() []*Item
	Count() int
}
