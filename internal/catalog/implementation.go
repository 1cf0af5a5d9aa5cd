// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"frontdesk/internal/errdefs"
)

// Inventory is the in-memory book arena keyed by ISBN. All copy counter
// updates happen under one mutex, so a batch reserve is atomic.
type Inventory struct {
	mu        sync.Mutex
	books     map[string]*Book
	order     []string
	purchases []Purchase
}

var _ Service = (*Inventory)(nil)

// NewInventory creates an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{books: make(map[string]*Book)}
}

// Search returns the matching books in acquisition order.
func (inv *Inventory) Search(_ context.Context, criteria Criteria) ([]Book, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	var out []Book
	for _, isbn := range inv.order {
		b := inv.books[isbn]
		if criteria.Matches(*b) {
			out = append(out, cloneBook(*b))
		}
	}
	return out, nil
}

// Get retrieves a book by ISBN.
func (inv *Inventory) Get(_ context.Context, isbn string) (Book, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	b, ok := inv.books[isbn]
	if !ok {
		return Book{}, &errdefs.BooksError{Err: errdefs.ErrInvalidArgument, IDs: []string{isbn}}
	}
	return cloneBook(*b), nil
}

// Reserve decrements the available count of every listed book. A book listed
// twice needs two copies. On any shortfall nothing is changed.
func (inv *Inventory) Reserve(_ context.Context, isbns []string) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	demand := make(map[string]int, len(isbns))
	for _, isbn := range isbns {
		demand[isbn]++
	}

	var unknown, short []string
	for _, isbn := range isbns {
		b, ok := inv.books[isbn]
		switch {
		case !ok:
			unknown = append(unknown, isbn)
		case b.Available < demand[isbn]:
			short = append(short, isbn)
		}
	}
	if len(unknown) > 0 {
		return &errdefs.BooksError{Err: errdefs.ErrInvalidArgument, IDs: unknown}
	}
	if len(short) > 0 {
		return &errdefs.BooksError{Err: errdefs.ErrUnavailable, IDs: dedupe(short)}
	}

	for _, isbn := range isbns {
		inv.books[isbn].Available--
	}
	return nil
}

// Release returns one copy of a book.
func (inv *Inventory) Release(_ context.Context, isbn string) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	b, ok := inv.books[isbn]
	if !ok {
		return &errdefs.BooksError{Err: errdefs.ErrInvalidArgument, IDs: []string{isbn}}
	}
	if b.Available >= b.TotalCopies {
		return fmt.Errorf("release %s: all %d copies already on the shelf", isbn, b.TotalCopies)
	}
	b.Available++
	return nil
}

// AddCopies adds purchased copies, creating the book record on first purchase.
func (inv *Inventory) AddCopies(_ context.Context, book Book, quantity int, at time.Time) (Book, error) {
	if quantity < 1 {
		return Book{}, errdefs.InvalidArgument("quantity", strconv.Itoa(quantity), "must be at least 1")
	}
	if book.ISBN == "" {
		return Book{}, errdefs.InvalidArgument("isbn", "", "required")
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	b, ok := inv.books[book.ISBN]
	if !ok {
		nb := cloneBook(book)
		nb.TotalCopies, nb.Available = 0, 0
		b = &nb
		inv.books[book.ISBN] = b
		inv.order = append(inv.order, book.ISBN)
	}
	b.TotalCopies += quantity
	b.Available += quantity
	b.PurchasedAt = at

	inv.purchases = append(inv.purchases, Purchase{
		ISBN:        b.ISBN,
		Title:       b.Title,
		Quantity:    quantity,
		PurchasedAt: at,
	})
	return cloneBook(*b), nil
}

// Books lists every owned book.
func (inv *Inventory) Books(ctx context.Context) ([]Book, error) {
	return inv.Search(ctx, Criteria{})
}

// Purchases lists every purchase in order.
func (inv *Inventory) Purchases(_ context.Context) ([]Purchase, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return append([]Purchase(nil), inv.purchases...), nil
}

// Snapshot captures the inventory for persistence.
func (inv *Inventory) Snapshot() InventoryState {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	state := InventoryState{Purchases: append([]Purchase(nil), inv.purchases...)}
	for _, isbn := range inv.order {
		state.Books = append(state.Books, cloneBook(*inv.books[isbn]))
	}
	return state
}

// Restore replaces the inventory contents.
func (inv *Inventory) Restore(state InventoryState) error {
	books := make(map[string]*Book, len(state.Books))
	order := make([]string, 0, len(state.Books))
	for _, b := range state.Books {
		if b.Available < 0 || b.Available > b.TotalCopies {
			return fmt.Errorf("restore inventory: book %s has %d of %d copies available", b.ISBN, b.Available, b.TotalCopies)
		}
		if _, dup := books[b.ISBN]; dup {
			return fmt.Errorf("restore inventory: duplicate book %s", b.ISBN)
		}
		nb := cloneBook(b)
		books[b.ISBN] = &nb
		order = append(order, b.ISBN)
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.books = books
	inv.order = order
	inv.purchases = append([]Purchase(nil), state.Purchases...)
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
