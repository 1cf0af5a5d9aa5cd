// internal/session/session.go

// Package session gates each client's requests by login state before they
// reach the library.
//
// Every client owns one Session. A Session serializes its own operations;
// different sessions run concurrently and meet only inside the library.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"frontdesk/internal/account"
	"frontdesk/internal/catalog"
	"frontdesk/internal/circulation"
	"frontdesk/internal/errdefs"
	"frontdesk/internal/report"
	"frontdesk/internal/visitor"
)

// ClientID identifies a connected client.
type ClientID uint64

// Session is one client's view of the library.
type Session struct {
	mu              sync.Mutex
	id              ClientID
	state           State
	boundVisitor    visitor.ID
	lastSearch      []catalog.Book
	lastStoreSearch []catalog.Book
	lib             Library
	logger          *slog.Logger
}

func newSession(id ClientID, lib Library, logger *slog.Logger) *Session {
	return &Session{
		id:     id,
		state:  Disconnected,
		lib:    lib,
		logger: logger.With("client", uint64(id)),
	}
}

// ID returns the client ID.
func (s *Session) ID() ClientID { return s.id }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BoundVisitor is the visitor logged in on this session, or NoID.
func (s *Session) BoundVisitor() visitor.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundVisitor
}

// transition moves to next and logs the change.
func (s *Session) transition(ctx context.Context, op Operation, next State) {
	if next == s.state {
		return
	}
	s.logger.DebugContext(ctx, "session transition", "operation", op, "from", s.state, "to", next)
	s.state = next
}

func (s *Session) gate(op Operation) error {
	_, err := Next(s.state, op, account.RoleVisitor)
	return err
}

// visitorFor picks the visitor an operation acts on. A logged-in visitor
// acts on themselves; naming someone else needs an employee. Employees
// must name the visitor.
func (s *Session) visitorFor(op Operation, id visitor.ID) (visitor.ID, error) {
	switch s.state {
	case VisitorLoggedIn:
		if id == visitor.NoID || id == s.boundVisitor {
			return s.boundVisitor, nil
		}
		return visitor.NoID, &InvalidStateError{Operation: op, Current: s.state, Required: []State{EmployeeLoggedIn}}
	default:
		if id == visitor.NoID {
			return visitor.NoID, errdefs.InvalidArgument("visitor id", "", "required")
		}
		return id, nil
	}
}

func (s *Session) connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Next(s.state, Connect, account.RoleVisitor)
	if err != nil {
		return err
	}
	s.transition(ctx, Connect, next)
	return nil
}

// disconnect drops every login and search. A logged-in session logs out first.
func (s *Session) disconnect(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == VisitorLoggedIn || s.state == EmployeeLoggedIn {
		s.transition(ctx, Logout, LoggedOut)
	}
	s.transition(ctx, Disconnect, Disconnected)
	s.boundVisitor = visitor.NoID
	s.lastSearch = nil
	s.lastStoreSearch = nil
}

// CreateAccount adds login credentials without logging in.
func (s *Session) CreateAccount(ctx context.Context, username, password string, role account.Role, id visitor.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(CreateAccount); err != nil {
		return err
	}
	_, err := s.lib.CreateAccount(ctx, username, password, role, id)
	return err
}

// Login authenticates and binds the account's visitor, if any.
func (s *Session) Login(ctx context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(Login); err != nil {
		return err
	}
	a, err := s.lib.Authenticate(ctx, username, password)
	if err != nil {
		s.logger.InfoContext(ctx, "login failed", "username", username, "error", err)
		return err
	}
	next, err := Next(s.state, Login, a.Role)
	if err != nil {
		return err
	}
	s.boundVisitor = a.VisitorID
	s.transition(ctx, Login, next)
	return nil
}

// Logout returns to LoggedOut and forgets the bound visitor.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Next(s.state, Logout, account.RoleVisitor)
	if err != nil {
		return err
	}
	s.boundVisitor = visitor.NoID
	s.transition(ctx, Logout, next)
	return nil
}

// RegisterVisitor creates a new visitor.
func (s *Session) RegisterVisitor(ctx context.Context, reg visitor.Registration) (visitor.Visitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(RegisterVisitor); err != nil {
		return visitor.Visitor{}, err
	}
	return s.lib.RegisterVisitor(ctx, reg)
}

// CatalogSearch searches the library and remembers the result for Checkout.
func (s *Session) CatalogSearch(ctx context.Context, criteria catalog.Criteria) ([]catalog.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(CatalogSearch); err != nil {
		return nil, err
	}
	books, err := s.lib.CatalogSearch(ctx, criteria)
	if err != nil {
		return nil, err
	}
	s.lastSearch = books
	return books, nil
}

// StoreSearch searches the bookstore and remembers the result for PurchaseBooks.
func (s *Session) StoreSearch(ctx context.Context, criteria catalog.Criteria) ([]catalog.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(StoreSearch); err != nil {
		return nil, err
	}
	books, err := s.lib.StoreSearch(ctx, criteria)
	if err != nil {
		return nil, err
	}
	s.lastStoreSearch = books
	return books, nil
}

// DateTime reads the simulated clock.
func (s *Session) DateTime(_ context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(DateTime); err != nil {
		return time.Time{}, err
	}
	return s.lib.Now(), nil
}

// BeginVisit records an arrival.
func (s *Session) BeginVisit(ctx context.Context, id visitor.ID) (visitor.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(BeginVisit); err != nil {
		return visitor.Visit{}, err
	}
	id, err := s.visitorFor(BeginVisit, id)
	if err != nil {
		return visitor.Visit{}, err
	}
	return s.lib.BeginVisit(ctx, id)
}

// EndVisit records a departure.
func (s *Session) EndVisit(ctx context.Context, id visitor.ID) (visitor.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(EndVisit); err != nil {
		return visitor.Visit{}, err
	}
	id, err := s.visitorFor(EndVisit, id)
	if err != nil {
		return visitor.Visit{}, err
	}
	return s.lib.EndVisit(ctx, id)
}

// Checkout lends books from this session's last catalog search.
func (s *Session) Checkout(ctx context.Context, id visitor.ID, bookIDs []string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(Checkout); err != nil {
		return time.Time{}, err
	}
	id, err := s.visitorFor(Checkout, id)
	if err != nil {
		return time.Time{}, err
	}
	return s.lib.Checkout(ctx, id, bookIDs, s.lastSearch)
}

// ReturnBooks takes back borrowed books.
func (s *Session) ReturnBooks(ctx context.Context, id visitor.ID, bookIDs []string) ([]circulation.Returned, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(ReturnBooks); err != nil {
		return nil, err
	}
	id, err := s.visitorFor(ReturnBooks, id)
	if err != nil {
		return nil, err
	}
	return s.lib.ReturnBooks(ctx, id, bookIDs)
}

// FindBorrowed lists a visitor's active checkouts.
func (s *Session) FindBorrowed(ctx context.Context, id visitor.ID) ([]visitor.CheckOut, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(FindBorrowed); err != nil {
		return nil, err
	}
	id, err := s.visitorFor(FindBorrowed, id)
	if err != nil {
		return nil, err
	}
	return s.lib.FindBorrowed(ctx, id)
}

// PurchaseBooks buys copies of books from this session's last bookstore search.
func (s *Session) PurchaseBooks(ctx context.Context, quantity int, bookIDs []string) ([]catalog.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(PurchaseBooks); err != nil {
		return nil, err
	}
	return s.lib.PurchaseBooks(ctx, quantity, bookIDs, s.lastStoreSearch)
}

// AdvanceTime moves the shared clock forward.
func (s *Session) AdvanceTime(ctx context.Context, days, hours int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(AdvanceTime); err != nil {
		return err
	}
	return s.lib.AdvanceTime(ctx, days, hours)
}

// GenerateReport projects library statistics.
func (s *Session) GenerateReport(ctx context.Context, days int) (report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(GenerateReport); err != nil {
		return report.Report{}, err
	}
	return s.lib.GenerateReport(ctx, days)
}

// PayFine settles part or all of a visitor's balance. The remaining balance
// is returned even when the payment is refused.
func (s *Session) PayFine(ctx context.Context, id visitor.ID, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(PayFine); err != nil {
		return 0, err
	}
	id, err := s.visitorFor(PayFine, id)
	if err != nil {
		return 0, err
	}
	return s.lib.PayFine(ctx, id, amount)
}
