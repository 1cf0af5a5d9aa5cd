// internal/report/report.go

// Package report projects the library's statistics from the state of its
// stores. Projection is pure: the same input and instant give the same report.
package report

import (
	"fmt"
	"strings"
	"time"

	"frontdesk/internal/catalog"
	"frontdesk/internal/timeclock"
	"frontdesk/internal/visitor"
)

// Input is everything a report is projected from.
type Input struct {
	Books     []catalog.Book
	Purchases []catalog.Purchase
	Visitors  []visitor.Visitor
	Visits    []visitor.Visit
}

// Report is the library statistics for a window ending at Date. A zero
// Days covers the whole history.
type Report struct {
	Date time.Time
	Days int

	Titles         int
	Copies         int
	CopiesOnLoan   int
	CopiesBought   int
	Visitors       int
	NewVisitors    int
	Visits         int
	AverageVisit   time.Duration
	ActiveLoans    int
	OverdueLoans   int
	FinesAssessed  int
	FinesPaid      int
	OutstandingDue int
}

// Project computes the report at now over the last days days.
func Project(in Input, now time.Time, days int) Report {
	r := Report{Date: now, Days: days}

	since := time.Time{}
	if days > 0 {
		since = now.Add(-time.Duration(days) * 24 * time.Hour)
	}
	inWindow := func(t time.Time) bool {
		return !t.Before(since) && !t.After(now)
	}

	for _, b := range in.Books {
		r.Titles++
		r.Copies += b.TotalCopies
		r.CopiesOnLoan += b.TotalCopies - b.Available
	}
	for _, p := range in.Purchases {
		if inWindow(p.PurchasedAt) {
			r.CopiesBought += p.Quantity
		}
	}

	for _, v := range in.Visitors {
		r.Visitors++
		if inWindow(v.RegisteredAt) {
			r.NewVisitors++
		}
		for _, c := range v.Checkouts {
			if !c.Active() {
				continue
			}
			r.ActiveLoans++
			if now.After(c.DueDate) {
				r.OverdueLoans++
			}
		}
		for _, f := range v.Fines {
			if inWindow(f.AssessedAt) {
				r.FinesAssessed += f.Amount
			}
		}
		for _, p := range v.Payments {
			if inWindow(p.PaidAt) {
				r.FinesPaid += p.Amount
			}
		}
		r.OutstandingDue += v.Balance
	}

	var total time.Duration
	finished := 0
	for _, visit := range in.Visits {
		if !inWindow(visit.Start) {
			continue
		}
		r.Visits++
		if visit.End != nil {
			total += visit.Duration()
			finished++
		}
	}
	if finished > 0 {
		r.AverageVisit = total / time.Duration(finished)
	}
	return r
}

// Text renders the report one statistic per line. It never contains the
// protocol's request terminator.
func (r Report) Text() string {
	window := "all time"
	if r.Days > 0 {
		window = fmt.Sprintf("last %d days", r.Days)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Library report for %s\n", window)
	fmt.Fprintf(&b, "Titles owned: %d\n", r.Titles)
	fmt.Fprintf(&b, "Copies owned: %d\n", r.Copies)
	fmt.Fprintf(&b, "Copies on loan: %d\n", r.CopiesOnLoan)
	fmt.Fprintf(&b, "Copies purchased: %d\n", r.CopiesBought)
	fmt.Fprintf(&b, "Registered visitors: %d\n", r.Visitors)
	fmt.Fprintf(&b, "New visitors: %d\n", r.NewVisitors)
	fmt.Fprintf(&b, "Visits: %d\n", r.Visits)
	fmt.Fprintf(&b, "Average visit: %s\n", timeclock.FormatDuration(r.AverageVisit))
	fmt.Fprintf(&b, "Active loans: %d\n", r.ActiveLoans)
	fmt.Fprintf(&b, "Overdue loans: %d\n", r.OverdueLoans)
	fmt.Fprintf(&b, "Fines assessed: $%d\n", r.FinesAssessed)
	fmt.Fprintf(&b, "Fines paid: $%d\n", r.FinesPaid)
	fmt.Fprintf(&b, "Outstanding fines: $%d", r.OutstandingDue)
	return b.String()
}
