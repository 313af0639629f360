// internal/console/render.go
package console

import (
	"strconv"

	"github.com/shopspring/decimal"

	"libradesk/internal/catalog"
	"libradesk/internal/circulation"
	"libradesk/internal/membership"
)

const dueDateLayout = "Mon 02 Jan 2006 15:04"

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func plural(n int64, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.FormatInt(n, 10) + " " + word + "s"
}

func (c *Console) renderItems(items []*catalog.Item) {
	for i, item := range items {
		c.printf("%d. %s\n", i+1, item.Describe())
	}
}

func (c *Console) renderCatalogue() {
	items := c.catalogue.All()
	if len(items) == 0 {
		c.println("The catalogue is empty.")
		return
	}
	c.println("\n----- LIBRARY CATALOGUE -----")
	c.renderItems(items)
}

func (c *Console) renderMembers(members []*membership.Member) {
	for _, m := range members {
		c.println(m.Describe())
	}
}

func (c *Console) renderFeePolicy(p circulation.Policy) {
	c.println("\n----- LATE FEE POLICY -----")
	c.println("Please return this item by the due date.")
	c.printf("Late fee: %s per day\n", money(p.DailyOverdueFee))
	c.println("Example late fees:")
	c.printf("- 1 day late: %s\n", money(p.Fee(1)))
	c.printf("- 1 week late: %s\n", money(p.Fee(7)))
	c.printf("- 2 weeks late: %s\n", money(p.Fee(14)))
	c.println("--------------------------")
}

func (c *Console) renderReceipt(r circulation.Receipt) {
	switch {
	case r.OnTime:
		c.println("Item returned on time. Thank you!")
	case r.DaysLate == 0:
		c.println("Item returned less than a day late. No fee charged.")
	default:
		c.printf("Item returned late by %s.\n", plural(r.DaysLate, "day"))
		c.printf("Late fee: %s\n", money(r.Fee))
	}
}

func (c *Console) renderLoans(name string, loans []circulation.Loan) {
	if len(loans) == 0 {
		c.printf("%s has no borrowed items.\n", name)
		return
	}

	policy := c.ledger.Policy()
	now := c.now()

	c.printf("\n----- %s's Borrowed Items -----\n", name)
	for _, loan := range loans {
		s := loan.Standing(now, policy)
		c.printf("- %s\n", loan.Title)
		c.printf("  Due date: %s\n", loan.DueAt.Format(dueDateLayout))
		if s.Overdue {
			c.printf("  STATUS: OVERDUE by %s\n", plural(s.DaysLate, "day"))
			c.printf("  Current fee: %s\n", money(s.AccruedFee))
		} else {
			c.printf("  STATUS: On time (%s remaining)\n", plural(s.DaysRemaining, "day"))
		}
		c.println()
	}
}

func (c *Console) renderHistory(name string, entries []circulation.HistoryEntry) {
	if len(entries) == 0 {
		c.printf("%s has no loan history.\n", name)
		return
	}

	c.printf("\n----- Loan history for %s -----\n", name)
	for _, e := range entries {
		switch e.EventType {
		case circulation.EventTypeItemBorrowed:
			c.printf("%s  borrowed  %s (due %s)\n",
				e.OccurredAt.Format(dueDateLayout), e.Title, e.DueAt.Format(dueDateLayout))
		case circulation.EventTypeItemReturned:
			line := "on time"
			if e.DaysLate > 0 {
				line = plural(e.DaysLate, "day") + " late, fee " + money(e.Fee)
			}
			c.printf("%s  returned  %s (%s)\n", e.OccurredAt.Format(dueDateLayout), e.Title, line)
		}
	}
}
