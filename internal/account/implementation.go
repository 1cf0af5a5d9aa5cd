// internal/account/implementation.go
package account

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"frontdesk/internal/errdefs"
	"frontdesk/internal/visitor"
)

// Store is the in-memory account table.
type Store struct {
	mu       sync.Mutex
	accounts map[string]Account
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

var _ Service = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLoginLimit overrides the default of five attempts per minute per username.
func WithLoginLimit(limit rate.Limit, burst int) Option {
	return func(s *Store) {
		s.limit = limit
		s.burst = burst
	}
}

// NewStore creates an empty account store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		accounts: make(map[string]Account),
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(1 * time.Minute),
		burst:    5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create adds an account. Usernames are unique. Employee accounts carry no
// visitor; visitor accounts must name one.
func (s *Store) Create(_ context.Context, username, password string, role Role, visitorID visitor.ID) (Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Account{}, errdefs.InvalidArgument("username", "", "required")
	}
	if password == "" {
		return Account{}, errdefs.InvalidArgument("password", "", "required")
	}
	switch {
	case role == RoleVisitor && visitorID == visitor.NoID:
		return Account{}, errdefs.InvalidArgument("visitor id", "", "required for visitor accounts")
	case role == RoleEmployee:
		visitorID = visitor.NoID
	}

	hash, salt, err := hashPassword(password)
	if err != nil {
		return Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.accounts[username]; dup {
		return Account{}, fmt.Errorf("create account %q: %w", username, errdefs.ErrDuplicateAccount)
	}
	a := Account{
		Username:     username,
		PasswordHash: hash,
		Salt:         salt,
		Role:         role,
		VisitorID:    visitorID,
	}
	s.accounts[username] = a
	return a, nil
}

// Authenticate returns the account when the password matches.
func (s *Store) Authenticate(_ context.Context, username, password string) (Account, error) {
	username = strings.TrimSpace(username)

	// Only existing accounts get a limiter.
	s.mu.Lock()
	a, found := s.accounts[username]
	if !found {
		s.mu.Unlock()
		return Account{}, fmt.Errorf("login %q: %w", username, errdefs.ErrInvalidCredentials)
	}
	limiter, ok := s.limiters[username]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[username] = limiter
	}
	s.mu.Unlock()

	if !limiter.Allow() {
		return Account{}, fmt.Errorf("login %q: %w", username, errdefs.ErrRateLimited)
	}

	match, err := verifyPassword(password, a.Salt, a.PasswordHash)
	if err != nil {
		return Account{}, fmt.Errorf("login %q: %w", username, err)
	}
	if !match {
		return Account{}, fmt.Errorf("login %q: %w", username, errdefs.ErrInvalidCredentials)
	}
	return a, nil
}

// Snapshot captures the accounts for persistence, ordered by username.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{Accounts: make([]Account, 0, len(s.accounts))}
	for _, a := range s.accounts {
		state.Accounts = append(state.Accounts, a)
	}
	sortAccounts(state.Accounts)
	return state
}

// Restore replaces the accounts. Rate limiter state is not persisted.
func (s *Store) Restore(state State) error {
	accounts := make(map[string]Account, len(state.Accounts))
	for _, a := range state.Accounts {
		if _, dup := accounts[a.Username]; dup {
			return fmt.Errorf("restore accounts: duplicate username %q", a.Username)
		}
		accounts[a.Username] = a
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = accounts
	s.limiters = make(map[string]*rate.Limiter)
	return nil
}

func sortAccounts(accounts []Account) {
	slices.SortFunc(accounts, func(a, b Account) int {
		return strings.Compare(a.Username, b.Username)
	})
}
