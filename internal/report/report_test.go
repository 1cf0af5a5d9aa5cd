// internal/report/report_test.go
package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"frontdesk/internal/catalog"
	"frontdesk/internal/visitor"
)

var now = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time { return now.Add(-time.Duration(n) * 24 * time.Hour) }

func ptr(t time.Time) *time.Time { return &t }

func sample() Input {
	return Input{
		Books: []catalog.Book{
			{ISBN: "1", Title: "Dune", TotalCopies: 3, Available: 1},
			{ISBN: "2", Title: "Hyperion", TotalCopies: 2, Available: 2},
		},
		Purchases: []catalog.Purchase{
			{ISBN: "1", Quantity: 3, PurchasedAt: daysAgo(60)},
			{ISBN: "2", Quantity: 2, PurchasedAt: daysAgo(2)},
		},
		Visitors: []visitor.Visitor{
			{
				ID:           visitor.FirstID,
				RegisteredAt: daysAgo(90),
				Checkouts: []visitor.CheckOut{
					{ISBN: "1", DueDate: daysAgo(3)},
					{ISBN: "1", DueDate: now.Add(time.Hour)},
				},
				Fines:    []visitor.Fine{{Amount: 10, AssessedAt: daysAgo(40)}, {Amount: 12, AssessedAt: daysAgo(1)}},
				Payments: []visitor.Payment{{Amount: 10, PaidAt: daysAgo(1)}},
				Balance:  12,
			},
			{ID: visitor.FirstID + 1, RegisteredAt: daysAgo(5)},
		},
		Visits: []visitor.Visit{
			{VisitorID: visitor.FirstID, Start: daysAgo(50), End: ptr(daysAgo(50).Add(3 * time.Hour))},
			{VisitorID: visitor.FirstID, Start: daysAgo(1), End: ptr(daysAgo(1).Add(time.Hour))},
			{VisitorID: visitor.FirstID + 1, Start: now.Add(-time.Minute)},
		},
	}
}

func TestProjectAllTime(t *testing.T) {
	r := Project(sample(), now, 0)

	assert.Equal(t, 2, r.Titles)
	assert.Equal(t, 5, r.Copies)
	assert.Equal(t, 2, r.CopiesOnLoan)
	assert.Equal(t, 5, r.CopiesBought)
	assert.Equal(t, 2, r.Visitors)
	assert.Equal(t, 2, r.NewVisitors)
	assert.Equal(t, 3, r.Visits)
	assert.Equal(t, 2*time.Hour, r.AverageVisit)
	assert.Equal(t, 2, r.ActiveLoans)
	assert.Equal(t, 1, r.OverdueLoans)
	assert.Equal(t, 22, r.FinesAssessed)
	assert.Equal(t, 10, r.FinesPaid)
	assert.Equal(t, 12, r.OutstandingDue)
}

func TestProjectWindow(t *testing.T) {
	r := Project(sample(), now, 7)

	assert.Equal(t, 2, r.CopiesBought)
	assert.Equal(t, 1, r.NewVisitors)
	assert.Equal(t, 2, r.Visits)
	assert.Equal(t, time.Hour, r.AverageVisit)
	assert.Equal(t, 12, r.FinesAssessed)
	assert.Equal(t, 12, r.OutstandingDue, "balance is not windowed")
}

func TestText(t *testing.T) {
	text := Project(sample(), now, 7).Text()

	assert.True(t, strings.HasPrefix(text, "Library report for last 7 days\n"))
	assert.Contains(t, text, "Average visit: 01:00:00\n")
	assert.Contains(t, text, "Outstanding fines: $12")
	assert.NotContains(t, text, ";")

	assert.Contains(t, Project(Input{}, now, 0).Text(), "for all time")
}
