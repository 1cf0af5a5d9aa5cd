// internal/circulation/service.go
package circulation

import (
	"context"
	"time"

	"frontdesk/internal/catalog"
	"frontdesk/internal/visitor"
)

// Service is the checkout, return and fine engine.
type Service interface {
	// Checkout lends the books named by bookIDs, resolved against the
	// caller's most recent catalog search, and returns their due date.
	Checkout(ctx context.Context, visitorID visitor.ID, bookIDs []string, lastSearch []catalog.Book) (time.Time, error)
	// ReturnBooks takes back the named copies and returns what was
	// returned, with any fines assessed. Unknown IDs are skipped.
	ReturnBooks(ctx context.Context, visitorID visitor.ID, bookIDs []string) ([]Returned, error)
	// PayFine reduces the balance and returns what remains.
	PayFine(ctx context.Context, visitorID visitor.ID, amount int) (int, error)
	AdvanceTime(ctx context.Context, days, hours int) error
	Now() time.Time
}
