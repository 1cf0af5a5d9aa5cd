// internal/circulation/metrics.go
package circulation

import (
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	checkouts  metric.Int64Counter
	returns    metric.Int64Counter
	fines      metric.Int64Counter
	fineAmount metric.Int64Counter
	payments   metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	var (
		m   metrics
		err error
	)
	if m.checkouts, err = meter.Int64Counter("frontdesk.checkouts",
		metric.WithDescription("Copies lent to visitors")); err != nil {
		return nil, err
	}
	if m.returns, err = meter.Int64Counter("frontdesk.returns",
		metric.WithDescription("Copies returned by visitors")); err != nil {
		return nil, err
	}
	if m.fines, err = meter.Int64Counter("frontdesk.fines",
		metric.WithDescription("Late fines assessed")); err != nil {
		return nil, err
	}
	if m.fineAmount, err = meter.Int64Counter("frontdesk.fines.amount",
		metric.WithDescription("Sum of late fines assessed")); err != nil {
		return nil, err
	}
	if m.payments, err = meter.Int64Counter("frontdesk.payments.amount",
		metric.WithDescription("Sum of fines paid")); err != nil {
		return nil, err
	}
	return &m, nil
}
