// internal/membership/domain.go
package membership

import (
	"fmt"
	"strings"
	"time"
)

// Member represents a library member. Staff members carry a role and a
// passcode credential.
type Member struct {
	ID       int
	Name     string
	Contact  string
	Role     string
	JoinedAt time.Time

	credential *Credential
}

// Credential holds a staff member's hashed passcode and lockout state.
type Credential struct {
	PasscodeHash   string
	Salt           string
	FailedAttempts int
	LockedUntil    time.Time
}

// MembershipID identifies the member to the loan ledger.
func (m *Member) MembershipID() int { return m.ID }

// IsStaff reports whether the member may authorize privileged operations.
func (m *Member) IsStaff() bool { return m.credential != nil }

// Describe renders the member the way the member listing shows it.
func (m *Member) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Member ID: %d | Name: %s\n", m.ID, m.Name)
	fmt.Fprintf(&b, "  Contact: %s", m.Contact)
	if m.IsStaff() {
		fmt.Fprintf(&b, "\n  Role: %s", m.Role)
	}
	return b.String()
}

func newMember(id int, name, contact string, joinedAt time.Time) (*Member, error) {
	name = strings.TrimSpace(name)
	contact = strings.TrimSpace(contact)
	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidMember)
	}
	if contact == "" {
		return nil, fmt.Errorf("%w: contact cannot be empty", ErrInvalidMember)
	}
	return &Member{
		ID:       id,
		Name:     name,
		Contact:  contact,
		JoinedAt: joinedAt,
	}, nil
}
