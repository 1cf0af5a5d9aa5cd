// internal/library/library.go

// Package library is the facade every session talks to. It composes the
// visitor ledger, the inventory, the bookstore, the circulation engine and
// the account store around one simulated clock.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"frontdesk/internal/account"
	"frontdesk/internal/catalog"
	"frontdesk/internal/circulation"
	"frontdesk/internal/errdefs"
	"frontdesk/internal/journal"
	"frontdesk/internal/report"
	"frontdesk/internal/timeclock"
	"frontdesk/internal/visitor"
)

// Snapshot names used by Load and Save.
const (
	snapshotVisitors  = "visitors"
	snapshotInventory = "inventory"
	snapshotClock     = "clock"
	snapshotAccounts  = "accounts"
)

// Library is safe for concurrent use by many sessions.
type Library struct {
	clock     *timeclock.Clock
	visitors  *visitor.Ledger
	inventory *catalog.Inventory
	store     catalog.Store
	engine    *circulation.Engine
	accounts  *account.Store
	journal   journal.Journal
	snapshots journal.Snapshots
	tracer    trace.Tracer
	logger    *slog.Logger
}

type options struct {
	clock     *timeclock.Clock
	accounts  *account.Store
	journal   journal.Journal
	snapshots journal.Snapshots
	logger    *slog.Logger
}

// Option configures a Library.
type Option func(*options)

// WithClock shares an existing clock, typically one with a fixed base in tests.
func WithClock(c *timeclock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithAccounts replaces the default account store.
func WithAccounts(s *account.Store) Option {
	return func(o *options) { o.accounts = s }
}

// WithJournal records mutations in j instead of process memory.
func WithJournal(j journal.Journal) Option {
	return func(o *options) { o.journal = j }
}

// WithSnapshots enables Load and Save.
func WithSnapshots(s journal.Snapshots) Option {
	return func(o *options) { o.snapshots = s }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New builds an empty library that buys its books from store.
func New(store catalog.Store, opts ...Option) (*Library, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = timeclock.New()
	}
	if o.accounts == nil {
		o.accounts = account.NewStore()
	}
	if o.journal == nil {
		o.journal = journal.NewMemory()
	}

	ledger := visitor.NewLedger()
	inventory := catalog.NewInventory()
	engine, err := circulation.NewEngine(o.clock, ledger, inventory,
		circulation.WithJournal(o.journal),
		circulation.WithLogger(o.logger.With("component", "circulation")),
	)
	if err != nil {
		return nil, fmt.Errorf("create circulation engine: %w", err)
	}

	return &Library{
		clock:     o.clock,
		visitors:  ledger,
		inventory: inventory,
		store:     store,
		engine:    engine,
		accounts:  o.accounts,
		journal:   o.journal,
		snapshots: o.snapshots,
		tracer:    otel.Tracer("frontdesk/library"),
		logger:    o.logger,
	}, nil
}

// Now is the simulated time.
func (l *Library) Now() time.Time {
	return l.engine.Now()
}

// RegisterVisitor assigns the next visitor ID.
func (l *Library) RegisterVisitor(ctx context.Context, reg visitor.Registration) (v visitor.Visitor, err error) {
	ctx, span := l.tracer.Start(ctx, "library.register_visitor")
	defer func() { end(span, err) }()

	now := l.Now()
	v, err = l.visitors.Register(ctx, reg, now)
	if err != nil {
		return visitor.Visitor{}, err
	}
	span.SetAttributes(attribute.String("visitor.id", v.ID.String()))
	l.record(ctx, streamOf(v.ID), "register", nil, v, now)
	l.logger.InfoContext(ctx, "visitor registered", "visitor", v.ID)
	return v, nil
}

// GetVisitor fails with ErrUnknownVisitor for unregistered IDs.
func (l *Library) GetVisitor(ctx context.Context, id visitor.ID) (visitor.Visitor, error) {
	return l.visitors.Get(ctx, id)
}

// BeginVisit records the visitor's arrival.
func (l *Library) BeginVisit(ctx context.Context, id visitor.ID) (v visitor.Visit, err error) {
	ctx, span := l.tracer.Start(ctx, "library.begin_visit", visitorAttr(id))
	defer func() { end(span, err) }()

	now := l.Now()
	v, err = l.visitors.BeginVisit(ctx, id, now)
	if err != nil {
		return v, err
	}
	l.record(ctx, streamOf(id), "arrive", nil, v, now)
	return v, nil
}

// EndVisit records the visitor's departure.
func (l *Library) EndVisit(ctx context.Context, id visitor.ID) (v visitor.Visit, err error) {
	ctx, span := l.tracer.Start(ctx, "library.end_visit", visitorAttr(id))
	defer func() { end(span, err) }()

	now := l.Now()
	v, err = l.visitors.EndVisit(ctx, id, now)
	if err != nil {
		return v, err
	}
	open := v
	open.End = nil
	l.record(ctx, streamOf(id), "depart", open, v, now)
	return v, nil
}

// CatalogSearch searches the books the library owns.
func (l *Library) CatalogSearch(ctx context.Context, criteria catalog.Criteria) (books []catalog.Book, err error) {
	ctx, span := l.tracer.Start(ctx, "library.catalog_search")
	defer func() { end(span, err) }()

	books, err = l.inventory.Search(ctx, criteria)
	span.SetAttributes(attribute.Int("result.count", len(books)))
	return books, err
}

// StoreSearch searches the bookstore.
func (l *Library) StoreSearch(ctx context.Context, criteria catalog.Criteria) (books []catalog.Book, err error) {
	ctx, span := l.tracer.Start(ctx, "library.store_search")
	defer func() { end(span, err) }()

	books, err = l.store.Search(ctx, criteria)
	span.SetAttributes(attribute.Int("result.count", len(books)))
	return books, err
}

// Checkout lends books from the caller's last catalog search.
func (l *Library) Checkout(ctx context.Context, id visitor.ID, bookIDs []string, lastSearch []catalog.Book) (due time.Time, err error) {
	ctx, span := l.tracer.Start(ctx, "library.checkout", visitorAttr(id),
		trace.WithAttributes(attribute.Int("book.count", len(bookIDs))))
	defer func() { end(span, err) }()

	return l.engine.Checkout(ctx, id, bookIDs, lastSearch)
}

// ReturnBooks takes back borrowed books and reports the fines assessed.
func (l *Library) ReturnBooks(ctx context.Context, id visitor.ID, bookIDs []string) (returned []circulation.Returned, err error) {
	ctx, span := l.tracer.Start(ctx, "library.return_books", visitorAttr(id),
		trace.WithAttributes(attribute.Int("book.count", len(bookIDs))))
	defer func() { end(span, err) }()

	return l.engine.ReturnBooks(ctx, id, bookIDs)
}

// FindBorrowed lists the visitor's active checkouts.
func (l *Library) FindBorrowed(ctx context.Context, id visitor.ID) ([]visitor.CheckOut, error) {
	v, err := l.visitors.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	active := make([]visitor.CheckOut, 0, len(v.Checkouts))
	for _, c := range v.Checkouts {
		if c.Active() {
			active = append(active, c)
		}
	}
	return active, nil
}

// PayFine returns the remaining balance, also when the payment is refused.
func (l *Library) PayFine(ctx context.Context, id visitor.ID, amount int) (balance int, err error) {
	ctx, span := l.tracer.Start(ctx, "library.pay_fine", visitorAttr(id),
		trace.WithAttributes(attribute.Int("amount", amount)))
	defer func() { end(span, err) }()

	return l.engine.PayFine(ctx, id, amount)
}

// PurchaseBooks buys quantity copies of each book named from the caller's
// last bookstore search and returns the updated inventory records.
func (l *Library) PurchaseBooks(ctx context.Context, quantity int, bookIDs []string, lastStoreSearch []catalog.Book) (bought []catalog.Book, err error) {
	ctx, span := l.tracer.Start(ctx, "library.purchase_books",
		trace.WithAttributes(attribute.Int("quantity", quantity), attribute.Int("book.count", len(bookIDs))))
	defer func() { end(span, err) }()

	if len(lastStoreSearch) == 0 {
		return nil, errdefs.ErrNoRecentSearch
	}
	if quantity < 1 {
		return nil, errdefs.InvalidArgument("quantity", strconv.Itoa(quantity), "must be at least 1")
	}
	books, err := catalog.Resolve(bookIDs, lastStoreSearch)
	if err != nil {
		return nil, err
	}

	// AddCopies only refuses a blank ISBN once quantity is valid, so checking
	// here keeps the batch all-or-nothing.
	for _, b := range books {
		if b.ISBN == "" {
			return nil, &errdefs.BooksError{Err: errdefs.ErrInvalidArgument, IDs: []string{b.Title}}
		}
	}

	now := l.Now()
	for _, b := range books {
		// A first purchase has no inventory record yet; before stays zero.
		before, _ := l.inventory.Get(ctx, b.ISBN)
		after, err := l.inventory.AddCopies(ctx, b, quantity, now)
		if err != nil {
			return bought, fmt.Errorf("purchase %s: %w", b.ISBN, err)
		}
		l.record(ctx, "book/"+b.ISBN, "purchase", copiesOf(before), copiesOf(after), now)
		bought = append(bought, after)
	}
	l.logger.InfoContext(ctx, "books purchased", "titles", len(bought), "quantity", quantity)
	return bought, nil
}

// AdvanceTime moves the simulated clock forward.
func (l *Library) AdvanceTime(ctx context.Context, days, hours int) (err error) {
	ctx, span := l.tracer.Start(ctx, "library.advance_time",
		trace.WithAttributes(attribute.Int("days", days), attribute.Int("hours", hours)))
	defer func() { end(span, err) }()

	return l.engine.AdvanceTime(ctx, days, hours)
}

// GenerateReport projects statistics over the last days days, or over all
// history when days is zero.
func (l *Library) GenerateReport(ctx context.Context, days int) (r report.Report, err error) {
	ctx, span := l.tracer.Start(ctx, "library.generate_report", trace.WithAttributes(attribute.Int("days", days)))
	defer func() { end(span, err) }()

	if days < 0 {
		return report.Report{}, errdefs.InvalidArgument("days", strconv.Itoa(days), "must not be negative")
	}

	var in report.Input
	if in.Books, err = l.inventory.Books(ctx); err != nil {
		return report.Report{}, err
	}
	if in.Purchases, err = l.inventory.Purchases(ctx); err != nil {
		return report.Report{}, err
	}
	if in.Visitors, err = l.visitors.Visitors(ctx); err != nil {
		return report.Report{}, err
	}
	if in.Visits, err = l.visitors.Visits(ctx); err != nil {
		return report.Report{}, err
	}
	return report.Project(in, l.Now(), days), nil
}

// CreateAccount adds login credentials. A visitor account must name a
// registered visitor.
func (l *Library) CreateAccount(ctx context.Context, username, password string, role account.Role, id visitor.ID) (account.Account, error) {
	if role == account.RoleVisitor {
		if _, err := l.visitors.Get(ctx, id); err != nil {
			return account.Account{}, err
		}
	}
	return l.accounts.Create(ctx, username, password, role, id)
}

// Authenticate checks login credentials.
func (l *Library) Authenticate(ctx context.Context, username, password string) (account.Account, error) {
	return l.accounts.Authenticate(ctx, username, password)
}

// EnsureEmployee creates the employee account unless the username is taken.
func (l *Library) EnsureEmployee(ctx context.Context, username, password string) error {
	_, err := l.accounts.Create(ctx, username, password, account.RoleEmployee, visitor.NoID)
	if err != nil && !errors.Is(err, errdefs.ErrDuplicateAccount) {
		return err
	}
	return nil
}

func (l *Library) record(ctx context.Context, stream, operation string, before, after any, at time.Time) {
	if err := journal.Record(ctx, l.journal, stream, operation, before, after, at); err != nil {
		l.logger.ErrorContext(ctx, "journal write failed", "stream", stream, "operation", operation, "error", err)
	}
}

type copies struct {
	TotalCopies int `json:"total_copies"`
	Available   int `json:"available"`
}

func copiesOf(b catalog.Book) copies {
	return copies{TotalCopies: b.TotalCopies, Available: b.Available}
}

func streamOf(id visitor.ID) string {
	return "visitor/" + id.String()
}

func visitorAttr(id visitor.ID) trace.SpanStartOption {
	return trace.WithAttributes(attribute.String("visitor.id", id.String()))
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
