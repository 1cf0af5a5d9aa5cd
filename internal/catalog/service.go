// internal/catalog/service.go
package catalog

import (
	"context"
	"time"
)

// Service is the library's book inventory. It owns copy counts; nothing else
// mutates them.
type Service interface {
	Search(ctx context.Context, criteria Criteria) ([]Book, error)
	Get(ctx context.Context, isbn string) (Book, error)
	// Reserve takes one copy of each listed book, or none if any is unavailable.
	Reserve(ctx context.Context, isbns []string) error
	Release(ctx context.Context, isbn string) error
	AddCopies(ctx context.Context, book Book, quantity int, at time.Time) (Book, error)
	Books(ctx context.Context) ([]Book, error)
	Purchases(ctx context.Context) ([]Purchase, error)
}

// Store is a source of books that can be purchased.
type Store interface {
	Search(ctx context.Context, criteria Criteria) ([]Book, error)
}
