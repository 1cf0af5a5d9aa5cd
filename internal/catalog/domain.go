// internal/catalog/domain.go
package catalog

import (
	"strconv"
	"strings"
	"time"

	"frontdesk/internal/errdefs"
)

// Book is a title the library owns or the bookstore sells. Copies are only
// meaningful for library-owned books.
type Book struct {
	ISBN          string    `json:"isbn"`
	Title         string    `json:"title"`
	Authors       []string  `json:"authors"`
	Publisher     string    `json:"publisher,omitempty"`
	PublishedDate string    `json:"published_date,omitempty"`
	PageCount     int       `json:"page_count,omitempty"`
	TotalCopies   int       `json:"total_copies"`
	Available     int       `json:"available"`
	PurchasedAt   time.Time `json:"purchased_at,omitempty"`
}

// Purchase records copies bought from the bookstore.
type Purchase struct {
	ISBN        string    `json:"isbn"`
	Title       string    `json:"title"`
	Quantity    int       `json:"quantity"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// Criteria selects books. Empty fields and "*" match anything. Title and
// publisher match case-insensitively by substring, ISBN exactly, and every
// listed author must match one of the book's authors.
type Criteria struct {
	Title     string
	Authors   []string
	ISBN      string
	Publisher string
}

// Matches reports whether b satisfies c.
func (c Criteria) Matches(b Book) bool {
	if !wildcard(c.ISBN) && c.ISBN != b.ISBN {
		return false
	}
	if !wildcard(c.Title) && !containsFold(b.Title, c.Title) {
		return false
	}
	if !wildcard(c.Publisher) && !containsFold(b.Publisher, c.Publisher) {
		return false
	}
	for _, want := range c.Authors {
		if wildcard(want) {
			continue
		}
		found := false
		for _, have := range b.Authors {
			if containsFold(have, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// InventoryState is the persisted form of an Inventory.
type InventoryState struct {
	Books     []Book     `json:"books"`
	Purchases []Purchase `json:"purchases"`
}

// Resolve maps each ID to one of results, by ISBN first and then by 1-based
// position. IDs that match nothing fail together in one BooksError.
func Resolve(ids []string, results []Book) ([]Book, error) {
	books := make([]Book, 0, len(ids))
	var unknown []string
	for _, id := range ids {
		b, ok := lookup(id, results)
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		books = append(books, b)
	}
	if len(unknown) > 0 {
		return nil, &errdefs.BooksError{Err: errdefs.ErrInvalidArgument, IDs: unknown}
	}
	return books, nil
}

func lookup(id string, books []Book) (Book, bool) {
	for _, b := range books {
		if b.ISBN == id {
			return cloneBook(b), true
		}
	}
	if n, err := strconv.Atoi(id); err == nil && n >= 1 && n <= len(books) {
		return cloneBook(books[n-1]), true
	}
	return Book{}, false
}

func wildcard(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "*"
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

func cloneBook(b Book) Book {
	b.Authors = append([]string(nil), b.Authors...)
	return b
}
