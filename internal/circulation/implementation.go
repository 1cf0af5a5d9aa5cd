// internal/circulation/implementation.go
package circulation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"frontdesk/internal/catalog"
	"frontdesk/internal/errdefs"
	"frontdesk/internal/journal"
	"frontdesk/internal/timeclock"
	"frontdesk/internal/visitor"
)

// Engine implements Service.
//
// Lock order is barrier, then the visitor's ledger entry, then the
// inventory. AdvanceTime holds the barrier exclusively so no checkout or
// return observes the clock mid-update.
type Engine struct {
	barrier  sync.RWMutex
	clock    *timeclock.Clock
	visitors visitor.Service
	books    catalog.Service
	journal  journal.Journal
	metrics  *metrics
	logger   *slog.Logger
}

var _ Service = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithJournal records every mutation in j.
func WithJournal(j journal.Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine wires the engine to its stores.
func NewEngine(clock *timeclock.Clock, visitors visitor.Service, books catalog.Service, opts ...Option) (*Engine, error) {
	m, err := newMetrics(otel.Meter("frontdesk/circulation"))
	if err != nil {
		return nil, fmt.Errorf("create circulation metrics: %w", err)
	}

	e := &Engine{
		clock:    clock,
		visitors: visitors,
		books:    books,
		journal:  journal.NewMemory(),
		metrics:  m,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Now reads the simulated clock.
func (e *Engine) Now() time.Time {
	e.barrier.RLock()
	defer e.barrier.RUnlock()
	return e.clock.Now()
}

// Checkout validates the whole batch up front and either lends every book
// or none of them.
func (e *Engine) Checkout(ctx context.Context, visitorID visitor.ID, bookIDs []string, lastSearch []catalog.Book) (time.Time, error) {
	if len(lastSearch) == 0 {
		return time.Time{}, errdefs.ErrNoRecentSearch
	}
	if len(bookIDs) == 0 {
		return time.Time{}, errdefs.InvalidArgument("book ids", "", "at least one required")
	}
	books, err := catalog.Resolve(bookIDs, lastSearch)
	if err != nil {
		return time.Time{}, err
	}

	e.barrier.RLock()
	defer e.barrier.RUnlock()

	now := e.clock.Now()
	due := DueDate(now)
	isbns := make([]string, len(books))
	for i, b := range books {
		isbns[i] = b.ISBN
	}

	var before visitor.Visitor
	after, err := e.visitors.Update(ctx, visitorID, func(v *visitor.Visitor) error {
		before = *v
		if active := v.ActiveCheckouts(); active+len(books) > MaxActiveCheckouts {
			return &errdefs.CapacityError{Active: active, Requested: len(books), Limit: MaxActiveCheckouts}
		}
		if v.Balance > 0 {
			return &errdefs.OutstandingBalanceError{Balance: v.Balance}
		}
		if err := e.books.Reserve(ctx, isbns); err != nil {
			return err
		}
		for _, b := range books {
			v.Checkouts = append(v.Checkouts, visitor.CheckOut{
				ISBN:         b.ISBN,
				Title:        b.Title,
				CheckoutDate: now,
				DueDate:      due,
			})
		}
		return nil
	})
	if err != nil {
		e.logger.InfoContext(ctx, "checkout refused", "visitor", visitorID, "books", isbns, "error", err)
		return time.Time{}, fmt.Errorf("checkout for %s: %w", visitorID, err)
	}

	e.metrics.checkouts.Add(ctx, int64(len(books)))
	e.record(ctx, visitorStream(visitorID), "checkout", deltaOf(before), deltaOf(after), now)
	e.logger.DebugContext(ctx, "books checked out", "visitor", visitorID, "books", isbns, "due", due)
	return due, nil
}

// ReturnBooks matches each ID against the visitor's active checkouts, by
// ISBN or by 1-based position in the borrowed list. IDs that match nothing
// are skipped.
func (e *Engine) ReturnBooks(ctx context.Context, visitorID visitor.ID, bookIDs []string) ([]Returned, error) {
	e.barrier.RLock()
	defer e.barrier.RUnlock()

	now := e.clock.Now()

	var (
		before   visitor.Visitor
		returned []Returned
	)
	after, err := e.visitors.Update(ctx, visitorID, func(v *visitor.Visitor) error {
		before = *v
		returned = nil

		selected := selectCheckouts(v.Checkouts, bookIDs)
		if len(selected) == 0 {
			return nil
		}

		remaining := make([]visitor.CheckOut, 0, len(v.Checkouts)-len(selected))
		for i, c := range v.Checkouts {
			if !selected[i] {
				remaining = append(remaining, c)
				continue
			}
			returnedAt := now
			c.ReturnDate = &returnedAt
			late := LateDays(c.DueDate, returnedAt)
			fine := FineFor(late)
			if fine > 0 {
				v.Fines = append(v.Fines, visitor.Fine{Amount: fine, AssessedAt: now, ISBN: c.ISBN})
				v.Balance += fine
			}
			returned = append(returned, Returned{ISBN: c.ISBN, Title: c.Title, LateDays: late, Fine: fine})
		}
		v.Checkouts = remaining
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("return for %s: %w", visitorID, err)
	}

	for _, r := range returned {
		if err := e.books.Release(ctx, r.ISBN); err != nil {
			e.logger.ErrorContext(ctx, "release copy", "isbn", r.ISBN, "error", err)
		}
		e.metrics.returns.Add(ctx, 1)
		if r.Fine > 0 {
			e.metrics.fines.Add(ctx, 1)
			e.metrics.fineAmount.Add(ctx, int64(r.Fine))
		}
	}
	if len(returned) > 0 {
		e.record(ctx, visitorStream(visitorID), "return", deltaOf(before), deltaOf(after), now)
	}
	e.logger.DebugContext(ctx, "books returned", "visitor", visitorID, "count", len(returned))
	return returned, nil
}

// PayFine accepts amounts from 1 up to the outstanding balance.
func (e *Engine) PayFine(ctx context.Context, visitorID visitor.ID, amount int) (int, error) {
	e.barrier.RLock()
	defer e.barrier.RUnlock()

	now := e.clock.Now()
	var before visitor.Visitor
	after, err := e.visitors.Update(ctx, visitorID, func(v *visitor.Visitor) error {
		before = *v
		if amount < 1 || amount > v.Balance {
			return errdefs.InvalidArgument("amount", strconv.Itoa(amount), "must be between 1 and "+strconv.Itoa(v.Balance))
		}
		v.Balance -= amount
		v.Payments = append(v.Payments, visitor.Payment{Amount: amount, PaidAt: now})
		return nil
	})
	if err != nil {
		return after.Balance, fmt.Errorf("pay fine for %s: %w", visitorID, err)
	}

	e.metrics.payments.Add(ctx, int64(amount))
	e.record(ctx, visitorStream(visitorID), "pay", deltaOf(before), deltaOf(after), now)
	return after.Balance, nil
}

// AdvanceTime moves the clock forward while no checkout or return is in flight.
func (e *Engine) AdvanceTime(ctx context.Context, days, hours int) error {
	e.barrier.Lock()
	defer e.barrier.Unlock()

	before := e.clock.Offsets()
	if err := e.clock.Advance(days, hours); err != nil {
		return err
	}
	after := e.clock.Offsets()
	e.record(ctx, "clock", "advance", before, after, e.clock.Now())
	e.logger.InfoContext(ctx, "time advanced", "days", days, "hours", hours, "offset_days", after.Days, "offset_hours", after.Hours)
	return nil
}

// record writes to the journal. The mutation has already been applied, so
// a journal failure is logged rather than returned.
func (e *Engine) record(ctx context.Context, stream, operation string, before, after any, at time.Time) {
	if err := journal.Record(ctx, e.journal, stream, operation, before, after, at); err != nil {
		e.logger.ErrorContext(ctx, "journal write failed", "stream", stream, "operation", operation, "error", err)
	}
}

func visitorStream(id visitor.ID) string {
	return "visitor/" + id.String()
}

// selectCheckouts picks, for each ID, the first active checkout not already
// picked that matches it.
func selectCheckouts(checkouts []visitor.CheckOut, bookIDs []string) map[int]bool {
	selected := make(map[int]bool, len(bookIDs))
	for _, id := range bookIDs {
		if i, ok := firstMatch(checkouts, id, selected); ok {
			selected[i] = true
		}
	}
	return selected
}

func firstMatch(checkouts []visitor.CheckOut, id string, taken map[int]bool) (int, bool) {
	for i, c := range checkouts {
		if c.Active() && !taken[i] && c.ISBN == id {
			return i, true
		}
	}
	if n, err := strconv.Atoi(id); err == nil && n >= 1 && n <= len(checkouts) {
		i := n - 1
		if checkouts[i].Active() && !taken[i] {
			return i, true
		}
	}
	return 0, false
}
