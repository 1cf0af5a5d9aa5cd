// internal/session/service.go
package session

import (
	"context"
	"time"

	"frontdesk/internal/account"
	"frontdesk/internal/catalog"
	"frontdesk/internal/circulation"
	"frontdesk/internal/report"
	"frontdesk/internal/visitor"
)

// Library is the facade a session forwards permitted operations to.
type Library interface {
	Now() time.Time
	RegisterVisitor(ctx context.Context, reg visitor.Registration) (visitor.Visitor, error)
	BeginVisit(ctx context.Context, id visitor.ID) (visitor.Visit, error)
	EndVisit(ctx context.Context, id visitor.ID) (visitor.Visit, error)
	CatalogSearch(ctx context.Context, criteria catalog.Criteria) ([]catalog.Book, error)
	StoreSearch(ctx context.Context, criteria catalog.Criteria) ([]catalog.Book, error)
	Checkout(ctx context.Context, id visitor.ID, bookIDs []string, lastSearch []catalog.Book) (time.Time, error)
	ReturnBooks(ctx context.Context, id visitor.ID, bookIDs []string) ([]circulation.Returned, error)
	FindBorrowed(ctx context.Context, id visitor.ID) ([]visitor.CheckOut, error)
	PayFine(ctx context.Context, id visitor.ID, amount int) (int, error)
	PurchaseBooks(ctx context.Context, quantity int, bookIDs []string, lastStoreSearch []catalog.Book) ([]catalog.Book, error)
	AdvanceTime(ctx context.Context, days, hours int) error
	GenerateReport(ctx context.Context, days int) (report.Report, error)
	CreateAccount(ctx context.Context, username, password string, role account.Role, id visitor.ID) (account.Account, error)
	Authenticate(ctx context.Context, username, password string) (account.Account, error)
}
