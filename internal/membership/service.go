// internal/membership/service.go
package membership

import (
	"context"
	"errors"
)

var (
	ErrInvalidMember   = errors.New("invalid member")
	ErrMemberNotFound  = errors.New("member not found")
	ErrDuplicateMember = errors.New("member ID already in use")
	ErrAuthentication  = errors.New("authentication failed")
	ErrAccountLocked   = errors.New("account temporarily locked")
	ErrRateLimited     = errors.New("rate limit exceeded")
)

// Service defines the membership operations used by the console.
type Service interface {
	Register(ctx context.Context, name, contact string) (*Member, error)
	RegisterStaff(ctx context.Context, name, contact, role, passcode string) (*Member, error)
	Add(ctx context.Context, member *Member) error
	Authenticate(ctx context.Context, id int, passcode string) (*Member, error)
	Remove(ctx context.Context, id int) error
	Find(id int) (*Member, error)
	SearchByName(term string) ([]*Member, error)
	All() []*Member
	Count() int
}
