// internal/circulation/domain.go
package circulation

import (
	"time"

	"frontdesk/internal/visitor"
)

// Lending rules.
const (
	MaxActiveCheckouts = 5
	LoanPeriod         = 7 * 24 * time.Hour

	BaseFine       = 10
	WeeklyFineStep = 2
	MaxFine        = 30
)

const day = 24 * time.Hour

// DueDate is the instant a copy checked out at checkedOut must be back.
func DueDate(checkedOut time.Time) time.Time {
	return checkedOut.Add(LoanPeriod)
}

// LateDays counts whole 24-hour periods between due and returned.
// Anything under a full day late counts as zero.
func LateDays(due, returned time.Time) int {
	late := returned.Sub(due)
	if late <= 0 {
		return 0
	}
	return int(late / day)
}

// FineFor applies the late-fine schedule: 10 for the first late day, plus 2
// for every full week late, never more than 30.
func FineFor(lateDays int) int {
	if lateDays < 1 {
		return 0
	}
	return min(BaseFine+WeeklyFineStep*(lateDays/7), MaxFine)
}

// Returned describes one copy taken back by ReturnBooks.
type Returned struct {
	ISBN     string
	Title    string
	LateDays int
	Fine     int
}

// ledgerDelta is the journaled view of a visitor around a mutation.
type ledgerDelta struct {
	Checkouts []visitor.CheckOut `json:"checkouts"`
	Fines     int                `json:"fines"`
	Payments  int                `json:"payments"`
	Balance   int                `json:"balance"`
}

func deltaOf(v visitor.Visitor) ledgerDelta {
	return ledgerDelta{
		Checkouts: append([]visitor.CheckOut(nil), v.Checkouts...),
		Fines:     len(v.Fines),
		Payments:  len(v.Payments),
		Balance:   v.Balance,
	}
}
