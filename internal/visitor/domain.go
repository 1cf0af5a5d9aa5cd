// internal/visitor/domain.go
package visitor

import (
	"fmt"
	"strconv"
	"time"

	"frontdesk/internal/errdefs"
)

// ID is a visitor's stable 10-digit identifier.
type ID uint64

// FirstID is assigned to the first registered visitor.
const FirstID ID = 1_000_000_000

// NoID marks the absence of a visitor.
const NoID ID = 0

func (id ID) String() string { return fmt.Sprintf("%010d", uint64(id)) }

// ParseID accepts exactly ten decimal digits.
func ParseID(s string) (ID, error) {
	if len(s) != 10 {
		return NoID, errdefs.InvalidArgument("visitor id", s, "must be 10 digits")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return NoID, errdefs.InvalidArgument("visitor id", s, "must be 10 digits")
	}
	return ID(n), nil
}

// Registration holds the personal details supplied at sign-up.
type Registration struct {
	FirstName   string
	LastName    string
	Address     string
	PhoneNumber string
}

// CheckOut is one borrowed copy.
type CheckOut struct {
	ISBN         string     `json:"isbn"`
	Title        string     `json:"title"`
	CheckoutDate time.Time  `json:"checkout_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
}

// Active reports whether the copy is still out.
func (c CheckOut) Active() bool { return c.ReturnDate == nil }

// Fine is assessed on a late return and never changes afterwards.
type Fine struct {
	Amount     int       `json:"amount"`
	AssessedAt time.Time `json:"assessed_at"`
	ISBN       string    `json:"isbn,omitempty"`
}

// Payment records money paid against the balance.
type Payment struct {
	Amount int       `json:"amount"`
	PaidAt time.Time `json:"paid_at"`
}

// Visit is a stay at the library. End is nil while the visitor is inside.
type Visit struct {
	VisitorID ID         `json:"visitor_id"`
	Start     time.Time  `json:"start"`
	End       *time.Time `json:"end,omitempty"`
}

// Duration is zero for an open visit.
func (v Visit) Duration() time.Duration {
	if v.End == nil {
		return 0
	}
	return v.End.Sub(v.Start)
}

// Visitor is a registered library patron. Checkouts holds only active
// checkouts; fines and payments are append-only history.
type Visitor struct {
	ID           ID         `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Address      string     `json:"address"`
	PhoneNumber  string     `json:"phone_number"`
	RegisteredAt time.Time  `json:"registered_at"`
	Checkouts    []CheckOut `json:"checkouts"`
	Fines        []Fine     `json:"fines"`
	Payments     []Payment  `json:"payments"`
	Balance      int        `json:"balance"`
}

// ActiveCheckouts counts copies not yet returned.
func (v Visitor) ActiveCheckouts() int {
	n := 0
	for _, c := range v.Checkouts {
		if c.Active() {
			n++
		}
	}
	return n
}

func (v Visitor) clone() Visitor {
	v.Checkouts = append([]CheckOut(nil), v.Checkouts...)
	v.Fines = append([]Fine(nil), v.Fines...)
	v.Payments = append([]Payment(nil), v.Payments...)
	return v
}

// LedgerState is the persisted form of a Ledger.
type LedgerState struct {
	NextID   ID        `json:"next_id"`
	Visitors []Visitor `json:"visitors"`
	Visits   []Visit   `json:"visits"`
}
