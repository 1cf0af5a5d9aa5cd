// internal/catalog/bookstore.go
package catalog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"frontdesk/internal/fields"
)

// Bookstore is the read-only catalog of books available for purchase, loaded
// from a flat file with one book per line:
//
//	isbn,"title",{author,author},publisher,published-date,page-count
type Bookstore struct {
	books []Book
}

var _ Store = (*Bookstore)(nil)

// NewBookstore wraps an already-parsed list of books.
func NewBookstore(books []Book) *Bookstore {
	return &Bookstore{books: books}
}

// LoadBookstore reads the flat file at path.
func LoadBookstore(path string) (*Bookstore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bookstore file: %w", err)
	}
	defer f.Close()

	books, err := ParseBooks(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return NewBookstore(books), nil
}

// ParseBooks decodes the flat-file format. Blank lines and lines starting
// with # are ignored.
func ParseBooks(r io.Reader) ([]Book, error) {
	var books []Book
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		parts := fields.Split(text)
		if len(parts) < 6 {
			return nil, fmt.Errorf("line %d: want 6 fields, got %d", line, len(parts))
		}
		pages, err := strconv.Atoi(parts[5])
		if err != nil {
			return nil, fmt.Errorf("line %d: page count %q: %w", line, parts[5], err)
		}
		books = append(books, Book{
			ISBN:          parts[0],
			Title:         parts[1],
			Authors:       fields.List(parts[2]),
			Publisher:     parts[3],
			PublishedDate: parts[4],
			PageCount:     pages,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read books: %w", err)
	}
	return books, nil
}

// Search returns matching books in file order.
func (s *Bookstore) Search(_ context.Context, criteria Criteria) ([]Book, error) {
	var out []Book
	for _, b := range s.books {
		if criteria.Matches(b) {
			out = append(out, cloneBook(b))
		}
	}
	return out, nil
}
