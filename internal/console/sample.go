// internal/console/sample.go
package console

import (
	"context"
	"fmt"
	"time"

	"libradesk/internal/catalog"
	"libradesk/internal/membership"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SeedSampleData loads a few books, magazines and members so the desk can
// be tried out straight away. The staff member gets staffPasscode.
func SeedSampleData(ctx context.Context, cat catalog.Service, members membership.Service, staffPasscode string) error {
	books := []struct {
		title, author, isbn string
		published           time.Time
		category            string
	}{
		{"The Great Gatsby", "F. Scott Fitzgerald", "978-0743273565", date(1925, time.April, 10), "Fiction"},
		{"To Kill a Mockingbird", "Harper Lee", "978-0061120084", date(1960, time.July, 11), "Fiction"},
		{"1984", "George Orwell", "978-0451524935", date(1949, time.June, 8), "Science Fiction"},
	}
	for _, b := range books {
		if _, err := cat.AddBook(ctx, b.title, b.author, b.isbn, b.published, b.category); err != nil {
			return fmt.Errorf("seed book %q: %w", b.title, err)
		}
	}

	if _, err := cat.AddMagazine(ctx, "National Geographic", "National Geographic Society", 256, date(2023, time.March, 15), "Science"); err != nil {
		return fmt.Errorf("seed magazine: %w", err)
	}
	if _, err := cat.AddMagazine(ctx, "Time", "Time USA, LLC", 42, date(2023, time.February, 28), "News"); err != nil {
		return fmt.Errorf("seed magazine: %w", err)
	}

	if _, err := members.Register(ctx, "John Doe", "john.doe@email.com"); err != nil {
		return fmt.Errorf("seed member: %w", err)
	}
	if _, err := members.Register(ctx, "Jane Smith", "jane.smith@email.com"); err != nil {
		return fmt.Errorf("seed member: %w", err)
	}
	if _, err := members.RegisterStaff(ctx, "Alice Johnson", "alice.j@library.org", "Librarian", staffPasscode); err != nil {
		return fmt.Errorf("seed staff member: %w", err)
	}

	return nil
}
