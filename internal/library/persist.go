// internal/library/persist.go
package library

import (
	"context"
	"errors"
	"fmt"

	"frontdesk/internal/account"
	"frontdesk/internal/catalog"
	"frontdesk/internal/timeclock"
	"frontdesk/internal/visitor"
)

// Load restores every store from the snapshots. Nothing is restored unless
// every snapshot decodes and validates, so a failure leaves the library as
// it was. Without snapshots configured Load does nothing.
func (l *Library) Load(ctx context.Context) (err error) {
	if l.snapshots == nil {
		return nil
	}
	ctx, span := l.tracer.Start(ctx, "library.load")
	defer func() { end(span, err) }()

	var (
		ledger    visitor.LedgerState
		inventory catalog.InventoryState
		offsets   timeclock.Offsets
		accounts  account.State
		found     int
	)
	for _, s := range []struct {
		name string
		into any
	}{
		{snapshotVisitors, &ledger},
		{snapshotInventory, &inventory},
		{snapshotClock, &offsets},
		{snapshotAccounts, &accounts},
	} {
		ok, err := l.snapshots.LoadSnapshot(ctx, s.name, s.into)
		if err != nil {
			return fmt.Errorf("load %s snapshot: %w", s.name, err)
		}
		if ok {
			found++
		}
	}
	if found == 0 {
		l.logger.InfoContext(ctx, "no snapshots found, starting empty")
		return nil
	}

	scratchLedger := visitor.NewLedger()
	scratchInventory := catalog.NewInventory()
	scratchAccounts := account.NewStore()
	if err := errors.Join(
		scratchLedger.Restore(ledger),
		scratchInventory.Restore(inventory),
		scratchAccounts.Restore(accounts),
		timeclock.New().Restore(offsets),
	); err != nil {
		return fmt.Errorf("validate snapshots: %w", err)
	}

	if err := errors.Join(
		l.visitors.Restore(ledger),
		l.inventory.Restore(inventory),
		l.accounts.Restore(accounts),
		l.clock.Restore(offsets),
	); err != nil {
		return fmt.Errorf("restore snapshots: %w", err)
	}
	l.logger.InfoContext(ctx, "state restored",
		"visitors", len(ledger.Visitors),
		"books", len(inventory.Books),
		"accounts", len(accounts.Accounts),
		"offset_days", offsets.Days,
		"offset_hours", offsets.Hours,
	)
	return nil
}

// Save writes a snapshot of every store. Without snapshots configured Save
// does nothing.
func (l *Library) Save(ctx context.Context) (err error) {
	if l.snapshots == nil {
		return nil
	}
	ctx, span := l.tracer.Start(ctx, "library.save")
	defer func() { end(span, err) }()

	for _, s := range []struct {
		name  string
		state any
	}{
		{snapshotVisitors, l.visitors.Snapshot()},
		{snapshotInventory, l.inventory.Snapshot()},
		{snapshotClock, l.clock.Offsets()},
		{snapshotAccounts, l.accounts.Snapshot()},
	} {
		if err := l.snapshots.SaveSnapshot(ctx, s.name, s.state); err != nil {
			return fmt.Errorf("save %s snapshot: %w", s.name, err)
		}
	}
	l.logger.InfoContext(ctx, "state saved")
	return nil
}
