// internal/visitor/service.go
package visitor

import (
	"context"
	"time"
)

// Service is the visitor ledger.
type Service interface {
	Register(ctx context.Context, reg Registration, at time.Time) (Visitor, error)
	Get(ctx context.Context, id ID) (Visitor, error)
	// Update runs fn on a copy of the visitor while holding that visitor's
	// lock and commits the copy only if fn succeeds.
	Update(ctx context.Context, id ID, fn func(*Visitor) error) (Visitor, error)
	BeginVisit(ctx context.Context, id ID, at time.Time) (Visit, error)
	EndVisit(ctx context.Context, id ID, at time.Time) (Visit, error)
	Visitors(ctx context.Context) ([]Visitor, error)
	Visits(ctx context.Context) ([]Visit, error)
}
