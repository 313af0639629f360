// internal/console/console.go
package console

import (
	"bufio"
	"context"
	"errors"
	"io"
	"math"
	"time"

	"libradesk/internal/catalog"
	"libradesk/internal/circulation"
	"libradesk/internal/membership"
)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Option configures a Console.
type Option func(*Console)

// WithClock sets the clock loans are stamped with.
func WithClock(now func() time.Time) Option {
	return func(c *Console) { c.now = now }
}

func WithLogger(logger Logger) Option {
	return func(c *Console) { c.logger = logger }
}

// Console is the interactive front desk over the catalogue, the member
// registry and the loan ledger.
type Console struct {
	in  *bufio.Scanner
	out io.Writer

	catalogue catalog.Service
	members   membership.Service
	ledger    circulation.Service

	now    func() time.Time
	logger Logger
}

// New creates a console reading commands from in and writing to out.
func New(in io.Reader, out io.Writer, cat catalog.Service, members membership.Service, ledger circulation.Service, opts ...Option) *Console {
	c := &Console{
		in:        bufio.NewScanner(in),
		out:       out,
		catalogue: cat,
		members:   members,
		ledger:    ledger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type menuEntry struct {
	label  string
	action func(ctx context.Context) error
}

// Run shows the main menu until the user exits or input ends.
func (c *Console) Run(ctx context.Context) error {
	entries := []menuEntry{
		{"Catalogue Management", c.catalogueMenu},
		{"Member Management", c.memberMenu},
		{"Borrow Item", c.borrowItem},
		{"Return Item", c.returnItem},
		{"View Borrowed Items", c.viewBorrowedItems},
		{"Search", c.searchMenu},
		{"Loan History", c.loanHistory},
	}

	err := c.menu(ctx, "LIBRARY MANAGEMENT SYSTEM", entries, "Exit")
	if errors.Is(err, errQuit) || err == nil {
		c.println("Thank you for using the Library Management System. Goodbye!")
		return nil
	}
	return err
}

// menu loops over a numbered menu whose last option leaves it. Operation
// errors are reported and the menu is shown again.
func (c *Console) menu(ctx context.Context, title string, entries []menuEntry, leave string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.printf("\n===== %s =====\n", title)
		for i, e := range entries {
			c.printf("%d. %s\n", i+1, e.label)
		}
		c.printf("%d. %s\n", len(entries)+1, leave)

		choice, err := c.readInt("Enter your choice: ", 1, len(entries)+1)
		if err != nil {
			return err
		}
		if choice == len(entries)+1 {
			return nil
		}

		if err := entries[choice-1].action(ctx); err != nil {
			if errors.Is(err, errQuit) {
				return err
			}
			c.printf("Error: %v\n", err)
			if c.logger != nil {
				c.logger.Error("console operation failed", "operation", entries[choice-1].label, "error", err)
			}
		}
	}
}

func (c *Console) catalogueMenu(ctx context.Context) error {
	return c.menu(ctx, "CATALOGUE MANAGEMENT", []menuEntry{
		{"Add Book", c.addBook},
		{"Add Magazine", c.addMagazine},
		{"Display Catalogue", func(context.Context) error { c.renderCatalogue(); return nil }},
		{"Delete Item", c.deleteItem},
	}, "Back to Main Menu")
}

func (c *Console) memberMenu(ctx context.Context) error {
	return c.menu(ctx, "MEMBER MANAGEMENT", []menuEntry{
		{"Register New Member", c.registerMember},
		{"Register Staff Member", c.registerStaff},
		{"View All Members", c.listMembers},
		{"Remove Member", c.removeMember},
	}, "Back to Main Menu")
}

func (c *Console) searchMenu(ctx context.Context) error {
	return c.menu(ctx, "SEARCH MENU", []menuEntry{
		{"Search Items by Title", c.searchByTitle},
		{"Search Items by Category", c.searchByCategory},
		{"Search Members by Name", c.searchMembers},
	}, "Back to Main Menu")
}

func (c *Console) addBook(ctx context.Context) error {
	c.println("\n----- ADD BOOK -----")
	title, err := c.readRequired("Enter book title: ", "Title")
	if err != nil {
		return err
	}
	author, err := c.readRequired("Enter author: ", "Author")
	if err != nil {
		return err
	}
	isbn, err := c.readRequired("Enter ISBN: ", "ISBN")
	if err != nil {
		return err
	}
	published, err := c.readDate("Enter publication date (MM/DD/YYYY): ")
	if err != nil {
		return err
	}
	category, err := c.readRequired("Enter category: ", "Category")
	if err != nil {
		return err
	}

	if _, err := c.catalogue.AddBook(ctx, title, author, isbn, published, category); err != nil {
		return err
	}
	c.println("Book added successfully!")
	return nil
}

func (c *Console) addMagazine(ctx context.Context) error {
	c.println("\n----- ADD MAGAZINE -----")
	title, err := c.readRequired("Enter magazine title: ", "Title")
	if err != nil {
		return err
	}
	publisher, err := c.readRequired("Enter publisher: ", "Publisher")
	if err != nil {
		return err
	}
	issue, err := c.readInt("Enter issue number: ", 1, math.MaxInt32)
	if err != nil {
		return err
	}
	published, err := c.readDate("Enter publication date (MM/DD/YYYY): ")
	if err != nil {
		return err
	}
	category, err := c.readRequired("Enter category: ", "Category")
	if err != nil {
		return err
	}

	if _, err := c.catalogue.AddMagazine(ctx, title, publisher, issue, published, category); err != nil {
		return err
	}
	c.println("Magazine added successfully!")
	return nil
}

func (c *Console) deleteItem(ctx context.Context) error {
	c.println("\n----- DELETE ITEM -----")
	if c.catalogue.Count() == 0 {
		c.println("The catalogue is empty. There are no items to delete.")
		return nil
	}
	if ok, err := c.authorize(ctx); !ok || err != nil {
		return err
	}

	c.renderCatalogue()
	n, err := c.readInt("Enter the item number to delete (or 0 to cancel): ", 0, c.catalogue.Count())
	if err != nil {
		return err
	}
	if n == 0 {
		c.println("Deletion canceled.")
		return nil
	}
	item, err := c.catalogue.ItemAt(n)
	if err != nil {
		return err
	}
	if c.ledger.IsLoaned(item) {
		c.println("Cannot delete this item because it is currently checked out.")
		c.println("The item must be returned before it can be deleted.")
		return nil
	}

	c.println("\nYou are about to delete the following item:")
	c.println(item.Describe())
	sure, err := c.confirm("Are you sure you want to delete this item?")
	if err != nil {
		return err
	}
	if !sure {
		c.println("Deletion canceled.")
		return nil
	}

	if err := c.catalogue.Remove(ctx, item.ItemID()); err != nil {
		if errors.Is(err, catalog.ErrItemOnLoan) {
			c.println("Cannot delete this item because it is currently checked out.")
			return nil
		}
		return err
	}
	c.println("Item deleted successfully.")
	return nil
}

func (c *Console) registerMember(ctx context.Context) error {
	c.println("\n----- REGISTER MEMBER -----")
	name, err := c.readRequired("Enter member name: ", "Name")
	if err != nil {
		return err
	}
	contact, err := c.readRequired("Enter contact information (email/phone): ", "Contact")
	if err != nil {
		return err
	}

	m, err := c.members.Register(ctx, name, contact)
	if err != nil {
		return err
	}
	c.printf("Member registered successfully! Member ID: %d\n", m.ID)
	return nil
}

func (c *Console) registerStaff(ctx context.Context) error {
	c.println("\n----- REGISTER STAFF -----")
	name, err := c.readRequired("Enter staff name: ", "Name")
	if err != nil {
		return err
	}
	contact, err := c.readRequired("Enter contact information (email/phone): ", "Contact")
	if err != nil {
		return err
	}
	role, err := c.readRequired("Enter staff role: ", "Role")
	if err != nil {
		return err
	}
	passcode, err := c.readRequired("Choose a staff passcode: ", "Passcode")
	if err != nil {
		return err
	}

	m, err := c.members.RegisterStaff(ctx, name, contact, role, passcode)
	if err != nil {
		return err
	}
	c.printf("Staff member registered successfully! Member ID: %d\n", m.ID)
	return nil
}

func (c *Console) listMembers(context.Context) error {
	members := c.members.All()
	if len(members) == 0 {
		c.println("No members registered.")
		return nil
	}
	c.println("\n----- REGISTERED MEMBERS -----")
	c.renderMembers(members)
	return nil
}

func (c *Console) removeMember(ctx context.Context) error {
	c.println("\n----- REMOVE MEMBER -----")
	if ok, err := c.authorize(ctx); !ok || err != nil {
		return err
	}

	member, err := c.selectMember()
	if err != nil || member == nil {
		return err
	}

	loans, err := c.ledger.Loans(member)
	if err != nil {
		return err
	}
	if len(loans) > 0 {
		c.printf("Cannot remove %s while they have %s on loan.\n", member.Name, plural(int64(len(loans)), "item"))
		return nil
	}

	sure, err := c.confirm("Are you sure you want to remove " + member.Name + "?")
	if err != nil {
		return err
	}
	if !sure {
		c.println("Removal canceled.")
		return nil
	}
	if err := c.members.Remove(ctx, member.ID); err != nil {
		return err
	}
	c.println("Member removed successfully.")
	return nil
}

func (c *Console) borrowItem(ctx context.Context) error {
	if c.catalogue.Count() == 0 {
		c.println("The catalogue is empty. Please add items first.")
		return nil
	}
	if c.members.Count() == 0 {
		c.println("No members registered. Please register members first.")
		return nil
	}

	c.println("\n----- BORROW ITEM -----")
	member, err := c.selectMember()
	if err != nil || member == nil {
		return err
	}

	c.renderCatalogue()
	n, err := c.readInt("Enter the item number to borrow: ", 1, c.catalogue.Count())
	if err != nil {
		return err
	}
	item, err := c.catalogue.ItemAt(n)
	if err != nil {
		return err
	}

	loan, err := c.ledger.Borrow(ctx, member, item, c.now())
	if errors.Is(err, circulation.ErrItemUnavailable) {
		c.printf("Sorry, '%s' is not available for borrowing.\n", item.Title())
		return nil
	}
	if err != nil {
		return err
	}

	c.printf("%s has borrowed: %s\n", member.Name, loan.Title)
	c.printf("Due date: %s\n", loan.DueAt.Format(dueDateLayout))
	c.renderFeePolicy(c.ledger.Policy())
	return nil
}

func (c *Console) returnItem(ctx context.Context) error {
	if c.members.Count() == 0 {
		c.println("No members registered. Cannot process returns.")
		return nil
	}

	c.println("\n----- RETURN ITEM -----")
	member, err := c.selectMember()
	if err != nil || member == nil {
		return err
	}

	loans, err := c.ledger.Loans(member)
	if err != nil {
		return err
	}
	if len(loans) == 0 {
		c.println("This member has no items to return.")
		return nil
	}

	c.printf("\nItems borrowed by %s:\n", member.Name)
	for i, loan := range loans {
		c.printf("%d. %s (due %s)\n", i+1, loan.Title, loan.DueAt.Format(dueDateLayout))
	}
	n, err := c.readInt("Enter the number of the item to return: ", 1, len(loans))
	if err != nil {
		return err
	}

	item, err := c.catalogue.Get(loans[n-1].ItemID)
	if err != nil {
		return err
	}
	receipt, err := c.ledger.Return(ctx, member, item, c.now())
	if errors.Is(err, circulation.ErrNoSuchLoan) {
		c.println("This member has not borrowed this item or has already returned it.")
		return nil
	}
	if err != nil {
		return err
	}

	c.renderReceipt(receipt)
	return nil
}

func (c *Console) viewBorrowedItems(context.Context) error {
	if c.members.Count() == 0 {
		c.println("No members registered. Cannot view borrowed items.")
		return nil
	}

	c.println("\n----- VIEW BORROWED ITEMS -----")
	member, err := c.selectMember()
	if err != nil || member == nil {
		return err
	}

	loans, err := c.ledger.Loans(member)
	if err != nil {
		return err
	}
	c.renderLoans(member.Name, loans)
	return nil
}

func (c *Console) loanHistory(ctx context.Context) error {
	c.println("\n----- LOAN HISTORY -----")
	member, err := c.selectMember()
	if err != nil || member == nil {
		return err
	}

	entries, err := c.ledger.History(ctx, member)
	if err != nil {
		return err
	}
	c.renderHistory(member.Name, entries)
	return nil
}

func (c *Console) searchByTitle(context.Context) error {
	c.println("\n----- SEARCH ITEMS BY TITLE -----")
	term, err := c.readRequired("Enter title to search: ", "Title")
	if err != nil {
		return err
	}
	items, err := c.catalogue.SearchByTitle(term)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		c.printf("No items found with title containing: %s\n", term)
		return nil
	}
	c.printf("\nFound %s matching '%s':\n", plural(int64(len(items)), "item"), term)
	c.renderItems(items)
	return nil
}

func (c *Console) searchByCategory(context.Context) error {
	c.println("\n----- SEARCH ITEMS BY CATEGORY -----")
	term, err := c.readRequired("Enter category to search: ", "Category")
	if err != nil {
		return err
	}
	items, err := c.catalogue.SearchByCategory(term)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		c.printf("No items found in category: %s\n", term)
		return nil
	}
	c.printf("\nFound %s in category '%s':\n", plural(int64(len(items)), "item"), term)
	c.renderItems(items)
	return nil
}

func (c *Console) searchMembers(context.Context) error {
	c.println("\n----- SEARCH MEMBERS BY NAME -----")
	term, err := c.readRequired("Enter name: ", "Name")
	if err != nil {
		return err
	}
	members, err := c.members.SearchByName(term)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		c.printf("No members found matching: %s\n", term)
		return nil
	}
	c.printf("\nFound %s matching '%s':\n", plural(int64(len(members)), "member"), term)
	c.renderMembers(members)
	return nil
}

// selectMember lists members and asks for an ID. A nil member with a nil
// error means the lookup failed and was already reported.
func (c *Console) selectMember() (*membership.Member, error) {
	members := c.members.All()
	if len(members) == 0 {
		c.println("No members registered.")
		return nil, nil
	}
	c.renderMembers(members)

	id, err := c.readInt("Enter member ID: ", 1, math.MaxInt32)
	if err != nil {
		return nil, err
	}
	member, err := c.members.Find(id)
	if errors.Is(err, membership.ErrMemberNotFound) {
		c.printf("Member with ID %d not found.\n", id)
		return nil, nil
	}
	return member, err
}

// authorize asks for a staff ID and passcode. It reports false without an
// error when the credentials are refused.
func (c *Console) authorize(ctx context.Context) (bool, error) {
	id, err := c.readInt("Enter staff ID: ", 1, math.MaxInt32)
	if err != nil {
		return false, err
	}
	passcode, err := c.readLine("Enter staff passcode: ")
	if err != nil {
		return false, err
	}

	staff, err := c.members.Authenticate(ctx, id, passcode)
	if err != nil {
		c.printf("Authorization failed: %v\n", err)
		return false, nil
	}
	if c.logger != nil {
		c.logger.Info("staff authorized", "member_id", staff.ID, "role", staff.Role)
	}
	return true, nil
}
