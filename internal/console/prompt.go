// internal/console/prompt.go
package console

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"libradesk/internal/catalog"
)

// errQuit ends the session; input ran out or the user chose Exit.
var errQuit = errors.New("quit")

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

// readLine prints prompt and returns the next input line, trimmed.
func (c *Console) readLine(prompt string) (string, error) {
	c.printf("%s", prompt)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", errQuit
	}
	return strings.TrimSpace(c.in.Text()), nil
}

// readRequired re-prompts until a non-blank line is entered.
func (c *Console) readRequired(prompt, field string) (string, error) {
	for {
		line, err := c.readLine(prompt)
		if err != nil {
			return "", err
		}
		if line != "" {
			return line, nil
		}
		c.printf("%s cannot be empty. Try again.\n", field)
	}
}

// readInt re-prompts until a whole number within [min, max] is entered.
func (c *Console) readInt(prompt string, min, max int) (int, error) {
	for {
		line, err := c.readLine(prompt)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			c.println("Invalid input. Please enter a valid number.")
			continue
		}
		if n < min || n > max {
			c.printf("Please enter a number between %d and %d.\n", min, max)
			continue
		}
		return n, nil
	}
}

// readDate re-prompts until an MM/DD/YYYY date is entered.
func (c *Console) readDate(prompt string) (time.Time, error) {
	for {
		line, err := c.readLine(prompt)
		if err != nil {
			return time.Time{}, err
		}
		d, err := catalog.ParsePublicationDate(line)
		if err != nil {
			c.println("Invalid date format. Please use MM/DD/YYYY format.")
			continue
		}
		return d, nil
	}
}

// confirm asks a y/n question; anything but y or yes counts as no.
func (c *Console) confirm(prompt string) (bool, error) {
	line, err := c.readLine(prompt + " (y/n): ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
