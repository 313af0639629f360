// internal/membership/implementation.go
package membership

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	FirstMemberID = 1001

	maxFailedAttempts = 3
	lockoutDuration   = 5 * time.Minute
)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Option configures a Registry.
type Option func(*Registry)

func WithLogger(logger Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithRateLimiter replaces the default limiter applied to registrations.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(r *Registry) { r.limiter = limiter }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// Registry keeps the library's members keyed by membership ID.
type Registry struct {
	mu      sync.RWMutex
	members map[int]*Member
	nextID  int
	limiter *rate.Limiter
	logger  Logger
	now     func() time.Time
}

var _ Service = (*Registry)(nil)

// NewRegistry creates an empty registry. By default registrations are
// limited to 30 per minute with a burst of 10.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		members: make(map[int]*Member),
		nextID:  FirstMemberID,
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 10),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates a member with the next free membership ID.
func (r *Registry) Register(ctx context.Context, name, contact string) (*Member, error) {
	if !r.limiter.Allow() {
		return nil, ErrRateLimited
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	member, err := newMember(r.nextID, name, contact, r.now())
	if err != nil {
		return nil, err
	}
	r.insert(member)

	r.logInfo("member registered", "member_id", member.ID, "name", member.Name)
	return member, nil
}

// RegisterStaff creates a staff member whose passcode authorizes
// privileged operations.
func (r *Registry) RegisterStaff(ctx context.Context, name, contact, role, passcode string) (*Member, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, fmt.Errorf("%w: role cannot be empty", ErrInvalidMember)
	}
	if !r.limiter.Allow() {
		return nil, ErrRateLimited
	}

	credential, err := hashPasscode(passcode)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	member, err := newMember(r.nextID, name, contact, r.now())
	if err != nil {
		return nil, err
	}
	member.Role = role
	member.credential = credential
	r.insert(member)

	r.logInfo("staff member registered", "member_id", member.ID, "name", member.Name, "role", role)
	return member, nil
}

// Add inserts a member with an explicit ID, as used when importing
// existing members.
func (r *Registry) Add(ctx context.Context, member *Member) error {
	if member == nil {
		return fmt.Errorf("%w: member is required", ErrInvalidMember)
	}
	if member.ID <= 0 {
		return fmt.Errorf("%w: membership ID must be positive, got %d", ErrInvalidMember, member.ID)
	}

	validated, err := newMember(member.ID, member.Name, member.Contact, member.JoinedAt)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[member.ID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateMember, member.ID)
	}
	if validated.JoinedAt.IsZero() {
		validated.JoinedAt = r.now()
	}
	member.Name, member.Contact, member.JoinedAt = validated.Name, validated.Contact, validated.JoinedAt
	r.insert(member)

	r.logInfo("member added", "member_id", member.ID, "name", member.Name)
	return nil
}

// insert stores member and keeps nextID ahead of every ID in use. Callers
// hold r.mu.
func (r *Registry) insert(member *Member) {
	r.members[member.ID] = member
	if member.ID >= r.nextID {
		r.nextID = member.ID + 1
	}
}

// Authenticate checks a staff member's passcode. Unknown IDs, non-staff
// members and wrong passcodes all yield ErrAuthentication. Repeated
// failures lock the account for a few minutes.
func (r *Registry) Authenticate(ctx context.Context, id int, passcode string) (*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	member, ok := r.members[id]
	if !ok || !member.IsStaff() {
		r.logWarn("authentication failed", "member_id", id, "reason", "not staff")
		return nil, ErrAuthentication
	}

	cred := member.credential
	now := r.now()
	if now.Before(cred.LockedUntil) {
		return nil, fmt.Errorf("%w until %s", ErrAccountLocked, cred.LockedUntil.Format(time.Kitchen))
	}

	valid, err := verifyPasscode(passcode, cred)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	if !valid {
		cred.FailedAttempts++
		if cred.FailedAttempts >= maxFailedAttempts {
			cred.FailedAttempts = 0
			cred.LockedUntil = now.Add(lockoutDuration)
			r.logWarn("staff account locked", "member_id", id)
		}
		r.logWarn("authentication failed", "member_id", id, "reason", "wrong passcode")
		return nil, ErrAuthentication
	}

	cred.FailedAttempts = 0
	return member, nil
}

// Remove deletes a member from the registry.
func (r *Registry) Remove(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	member, ok := r.members[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrMemberNotFound, id)
	}
	delete(r.members, id)

	r.logInfo("member removed", "member_id", id, "name", member.Name)
	return nil
}

// Find looks a member up by membership ID.
func (r *Registry) Find(id int) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	member, ok := r.members[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrMemberNotFound, id)
	}
	return member, nil
}

// SearchByName returns members whose name contains term, ignoring case,
// ordered by ID.
func (r *Registry) SearchByName(term string) ([]*Member, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil, fmt.Errorf("%w: search term cannot be empty", ErrInvalidMember)
	}

	var found []*Member
	for _, m := range r.All() {
		if strings.Contains(strings.ToLower(m.Name), needle) {
			found = append(found, m)
		}
	}
	return found, nil
}

// All returns every member ordered by ID.
func (r *Registry) All() []*Member {
	r.mu.RLock()
	out := make([]*Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *Registry) logInfo(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Registry) logWarn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
