// internal/library/library_test.go
package library

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frontdesk/internal/account"
	"frontdesk/internal/catalog"
	"frontdesk/internal/errdefs"
	"frontdesk/internal/journal"
	"frontdesk/internal/timeclock"
	"frontdesk/internal/visitor"
)

const storeBooks = `9780553283686,"Hyperion",{Dan Simmons},Spectra,1990-03-01,482
9780441013593,"Dune",{Frank Herbert},Ace,2005-08-02,617
9780765326355,"The Way of Kings",{Brandon Sanderson},Tor,2010-08-31,1007
`

var base = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

var ada = visitor.Registration{FirstName: "Ada", LastName: "Lovelace", Address: "12 St James's Square", PhoneNumber: "5551234567"}

func newLibrary(t *testing.T, opts ...Option) *Library {
	t.Helper()
	books, err := catalog.ParseBooks(strings.NewReader(storeBooks))
	require.NoError(t, err)

	clock := timeclock.New(timeclock.WithBase(func() time.Time { return base }))
	opts = append([]Option{WithClock(clock)}, opts...)
	l, err := New(catalog.NewBookstore(books), opts...)
	require.NoError(t, err)
	return l
}

// stock buys copies of every bookstore title.
func stock(t *testing.T, l *Library, copies int) []catalog.Book {
	t.Helper()
	ctx := context.Background()
	found, err := l.StoreSearch(ctx, catalog.Criteria{})
	require.NoError(t, err)
	_, err = l.PurchaseBooks(ctx, copies, []string{"1", "2", "3"}, found)
	require.NoError(t, err)

	owned, err := l.CatalogSearch(ctx, catalog.Criteria{})
	require.NoError(t, err)
	return owned
}

func TestRegisterVisitor(t *testing.T) {
	l := newLibrary(t)
	ctx := context.Background()

	v, err := l.RegisterVisitor(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, visitor.FirstID, v.ID)
	assert.Equal(t, base, v.RegisteredAt)

	_, err = l.RegisterVisitor(ctx, ada)
	assert.ErrorIs(t, err, errdefs.ErrDuplicateVisitor)

	got, err := l.GetVisitor(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", got.LastName)

	_, err = l.GetVisitor(ctx, v.ID+1)
	assert.ErrorIs(t, err, errdefs.ErrUnknownVisitor)
}

func TestVisits(t *testing.T) {
	l := newLibrary(t)
	ctx := context.Background()
	v, err := l.RegisterVisitor(ctx, ada)
	require.NoError(t, err)

	_, err = l.EndVisit(ctx, v.ID)
	assert.ErrorIs(t, err, errdefs.ErrNotVisiting)

	visit, err := l.BeginVisit(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, base, visit.Start)

	_, err = l.BeginVisit(ctx, v.ID)
	assert.ErrorIs(t, err, errdefs.ErrDuplicateVisit)

	require.NoError(t, l.AdvanceTime(ctx, 0, 2))
	visit, err = l.EndVisit(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, visit.Duration())

	_, err = l.BeginVisit(ctx, visitor.FirstID+9)
	assert.ErrorIs(t, err, errdefs.ErrUnknownVisitor)
}

func TestPurchaseBooks(t *testing.T) {
	l := newLibrary(t)
	ctx := context.Background()

	_, err := l.PurchaseBooks(ctx, 1, []string{"1"}, nil)
	assert.ErrorIs(t, err, errdefs.ErrNoRecentSearch)

	found, err := l.StoreSearch(ctx, catalog.Criteria{Title: "dune"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = l.PurchaseBooks(ctx, 0, []string{"1"}, found)
	assert.ErrorIs(t, err, errdefs.ErrInvalidArgument)
	_, err = l.PurchaseBooks(ctx, 1, []string{"2"}, found)
	assert.ErrorIs(t, err, errdefs.ErrInvalidArgument)

	bought, err := l.PurchaseBooks(ctx, 2, []string{"9780441013593"}, found)
	require.NoError(t, err)
	require.Len(t, bought, 1)
	assert.Equal(t, 2, bought[0].TotalCopies)

	bought, err = l.PurchaseBooks(ctx, 3, []string{"1"}, found)
	require.NoError(t, err)
	assert.Equal(t, 5, bought[0].Available)
}

func TestPurchaseBooksIsAllOrNothing(t *testing.T) {
	l := newLibrary(t)
	ctx := context.Background()

	found, err := l.StoreSearch(ctx, catalog.Criteria{Title: "dune"})
	require.NoError(t, err)
	batch := append(found, catalog.Book{Title: "Untitled draft"})

	_, err = l.PurchaseBooks(ctx, 1, []string{"1", "2"}, batch)
	var booksErr *errdefs.BooksError
	require.ErrorAs(t, err, &booksErr)
	assert.ErrorIs(t, err, errdefs.ErrInvalidArgument)

	held, err := l.CatalogSearch(ctx, catalog.Criteria{Title: "*"})
	require.NoError(t, err)
	assert.Empty(t, held, "no title may be bought when the batch is refused")
}

func TestCheckoutReturnAndPay(t *testing.T) {
	l := newLibrary(t)
	ctx := context.Background()
	owned := stock(t, l, 1)
	v, err := l.RegisterVisitor(ctx, ada)
	require.NoError(t, err)

	due, err := l.Checkout(ctx, v.ID, []string{"1", "3"}, owned)
	require.NoError(t, err)
	assert.Equal(t, base.Add(7*24*time.Hour), due)

	borrowed, err := l.FindBorrowed(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, borrowed, 2)
	assert.Equal(t, "The Way of Kings", borrowed[1].Title)

	require.NoError(t, l.AdvanceTime(ctx, 10, 0))
	returned, err := l.ReturnBooks(ctx, v.ID, []string{owned[0].ISBN})
	require.NoError(t, err)
	require.Len(t, returned, 1)
	assert.Equal(t, 10, returned[0].Fine)

	balance, err := l.PayFine(ctx, v.ID, 20)
	assert.ErrorIs(t, err, errdefs.ErrInvalidArgument)
	assert.Equal(t, 10, balance)
	balance, err = l.PayFine(ctx, v.ID, 10)
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = l.FindBorrowed(ctx, v.ID+1)
	assert.ErrorIs(t, err, errdefs.ErrUnknownVisitor)
}

func TestGenerateReport(t *testing.T) {
	l := newLibrary(t)
	ctx := context.Background()
	owned := stock(t, l, 2)
	v, err := l.RegisterVisitor(ctx, ada)
	require.NoError(t, err)
	_, err = l.Checkout(ctx, v.ID, []string{"2"}, owned)
	require.NoError(t, err)

	r, err := l.GenerateReport(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Titles)
	assert.Equal(t, 6, r.Copies)
	assert.Equal(t, 1, r.CopiesOnLoan)
	assert.Equal(t, 1, r.Visitors)
	assert.Equal(t, base, r.Date)

	_, err = l.GenerateReport(ctx, -1)
	assert.ErrorIs(t, err, errdefs.ErrInvalidArgument)
}

func TestAccounts(t *testing.T) {
	l := newLibrary(t)
	ctx := context.Background()

	_, err := l.CreateAccount(ctx, "ada", "pw", account.RoleVisitor, visitor.FirstID)
	assert.ErrorIs(t, err, errdefs.ErrUnknownVisitor)

	v, err := l.RegisterVisitor(ctx, ada)
	require.NoError(t, err)
	_, err = l.CreateAccount(ctx, "ada", "pw", account.RoleVisitor, v.ID)
	require.NoError(t, err)

	require.NoError(t, l.EnsureEmployee(ctx, "admin", "admin"))
	require.NoError(t, l.EnsureEmployee(ctx, "admin", "other"))

	a, err := l.Authenticate(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, account.RoleEmployee, a.Role)
	a, err = l.Authenticate(ctx, "ada", "pw")
	require.NoError(t, err)
	assert.Equal(t, v.ID, a.VisitorID)
}

func TestJournalRecordsMutations(t *testing.T) {
	j := journal.NewMemory()
	l := newLibrary(t, WithJournal(j))
	ctx := context.Background()
	owned := stock(t, l, 1)
	v, err := l.RegisterVisitor(ctx, ada)
	require.NoError(t, err)
	_, err = l.BeginVisit(ctx, v.ID)
	require.NoError(t, err)
	_, err = l.Checkout(ctx, v.ID, []string{"1"}, owned)
	require.NoError(t, err)

	entries, err := j.Load(ctx, "visitor/"+v.ID.String())
	require.NoError(t, err)
	ops := make([]string, len(entries))
	for i, e := range entries {
		ops[i] = e.Operation
	}
	assert.Equal(t, []string{"register", "arrive", "checkout"}, ops)
	assert.Contains(t, j.Streams(), "book/9780441013593")
}

func TestSaveAndLoad(t *testing.T) {
	for name, newSnapshots := range map[string]func(t *testing.T) journal.Snapshots{
		"memory": func(*testing.T) journal.Snapshots { return journal.NewMemory() },
		"dir": func(t *testing.T) journal.Snapshots {
			d, err := journal.NewDir(t.TempDir())
			require.NoError(t, err)
			return d
		},
	} {
		t.Run(name, func(t *testing.T) {
			snapshots := newSnapshots(t)
			ctx := context.Background()

			l := newLibrary(t, WithSnapshots(snapshots))
			require.NoError(t, l.Load(ctx))
			owned := stock(t, l, 1)
			v, err := l.RegisterVisitor(ctx, ada)
			require.NoError(t, err)
			_, err = l.BeginVisit(ctx, v.ID)
			require.NoError(t, err)
			_, err = l.Checkout(ctx, v.ID, []string{"1"}, owned)
			require.NoError(t, err)
			require.NoError(t, l.AdvanceTime(ctx, 3, 4))
			require.NoError(t, l.EnsureEmployee(ctx, "admin", "secret"))
			require.NoError(t, l.Save(ctx))

			restored := newLibrary(t, WithSnapshots(snapshots))
			require.NoError(t, restored.Load(ctx))

			assert.Equal(t, l.Now(), restored.Now())
			borrowed, err := restored.FindBorrowed(ctx, v.ID)
			require.NoError(t, err)
			require.Len(t, borrowed, 1)
			assert.True(t, borrowed[0].DueDate.Equal(base.Add(7*24*time.Hour)))

			_, err = restored.BeginVisit(ctx, v.ID)
			assert.ErrorIs(t, err, errdefs.ErrDuplicateVisit, "open visits survive a restart")
			_, err = restored.RegisterVisitor(ctx, ada)
			assert.ErrorIs(t, err, errdefs.ErrDuplicateVisitor)
			_, err = restored.Authenticate(ctx, "admin", "secret")
			assert.NoError(t, err)

			next, err := restored.RegisterVisitor(ctx, visitor.Registration{FirstName: "Alan", LastName: "Turing", Address: "Wilmslow", PhoneNumber: "1"})
			require.NoError(t, err)
			assert.Equal(t, v.ID+1, next.ID)
		})
	}
}

func TestLoadRejectsInvalidSnapshots(t *testing.T) {
	snapshots := journal.NewMemory()
	ctx := context.Background()
	require.NoError(t, snapshots.SaveSnapshot(ctx, snapshotClock, timeclock.Offsets{Days: -1}))

	l := newLibrary(t, WithSnapshots(snapshots))
	assert.Error(t, l.Load(ctx))
	assert.Equal(t, base, l.Now())
}
