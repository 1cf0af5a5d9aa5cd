// internal/visitor/implementation.go
package visitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"frontdesk/internal/errdefs"
)

// entry is one slot of the arena. Its mutex serializes every
// read-modify-write on that visitor.
type entry struct {
	mu      sync.Mutex
	visitor Visitor
	open    *Visit
}

// Ledger is the in-memory visitor arena.
type Ledger struct {
	mu      sync.RWMutex
	entries map[ID]*entry
	order   []ID
	byKey   map[string]ID
	next    ID
	visits  []Visit
}

var _ Service = (*Ledger)(nil)

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[ID]*entry),
		byKey:   make(map[string]ID),
		next:    FirstID,
	}
}

// Register creates a visitor with the next free ID. Registering the same
// name, address and phone number twice fails with ErrDuplicateVisitor.
func (l *Ledger) Register(_ context.Context, reg Registration, at time.Time) (Visitor, error) {
	if err := validate(reg); err != nil {
		return Visitor{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := registrationKey(reg)
	if id, dup := l.byKey[key]; dup {
		return Visitor{}, fmt.Errorf("register %s %s: %w (id %s)", reg.FirstName, reg.LastName, errdefs.ErrDuplicateVisitor, id)
	}
	if l.next > 9_999_999_999 {
		return Visitor{}, fmt.Errorf("register: visitor id space exhausted")
	}

	v := Visitor{
		ID:           l.next,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Address:      reg.Address,
		PhoneNumber:  reg.PhoneNumber,
		RegisteredAt: at,
	}
	l.next++
	l.entries[v.ID] = &entry{visitor: v}
	l.order = append(l.order, v.ID)
	l.byKey[key] = v.ID
	return v.clone(), nil
}

// Get returns a copy of the visitor.
func (l *Ledger) Get(_ context.Context, id ID) (Visitor, error) {
	e, err := l.lookup(id)
	if err != nil {
		return Visitor{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visitor.clone(), nil
}

// Update applies fn under the visitor's lock. fn sees a private copy; a
// non-nil error discards every change it made.
func (l *Ledger) Update(_ context.Context, id ID, fn func(*Visitor) error) (Visitor, error) {
	e, err := l.lookup(id)
	if err != nil {
		return Visitor{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	draft := e.visitor.clone()
	if err := fn(&draft); err != nil {
		return e.visitor.clone(), err
	}
	if draft.ID != e.visitor.ID {
		return e.visitor.clone(), fmt.Errorf("update visitor %s: id is immutable", id)
	}
	if draft.Balance < 0 {
		return e.visitor.clone(), fmt.Errorf("update visitor %s: balance would become %d", id, draft.Balance)
	}
	e.visitor = draft
	return draft.clone(), nil
}

// BeginVisit opens a visit. A visitor already inside gets ErrDuplicateVisit
// and no second visit is recorded.
func (l *Ledger) BeginVisit(_ context.Context, id ID, at time.Time) (Visit, error) {
	e, err := l.lookup(id)
	if err != nil {
		return Visit{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.open != nil {
		return *e.open, fmt.Errorf("begin visit %s: %w", id, errdefs.ErrDuplicateVisit)
	}
	e.open = &Visit{VisitorID: id, Start: at}
	return *e.open, nil
}

// EndVisit closes the open visit and files it in the visit history.
func (l *Ledger) EndVisit(_ context.Context, id ID, at time.Time) (Visit, error) {
	e, err := l.lookup(id)
	if err != nil {
		return Visit{}, err
	}

	e.mu.Lock()
	if e.open == nil {
		e.mu.Unlock()
		return Visit{}, fmt.Errorf("end visit %s: %w", id, errdefs.ErrNotVisiting)
	}
	visit := *e.open
	end := at
	visit.End = &end
	e.open = nil
	e.mu.Unlock()

	l.mu.Lock()
	l.visits = append(l.visits, visit)
	l.mu.Unlock()
	return visit, nil
}

// Visitors lists every visitor in registration order.
func (l *Ledger) Visitors(_ context.Context) ([]Visitor, error) {
	l.mu.RLock()
	entries := make([]*entry, 0, len(l.order))
	for _, id := range l.order {
		entries = append(entries, l.entries[id])
	}
	l.mu.RUnlock()

	out := make([]Visitor, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.visitor.clone())
		e.mu.Unlock()
	}
	return out, nil
}

// Visits lists finished visits followed by the ones still open.
func (l *Ledger) Visits(_ context.Context) ([]Visit, error) {
	l.mu.RLock()
	out := append([]Visit(nil), l.visits...)
	entries := make([]*entry, 0, len(l.order))
	for _, id := range l.order {
		entries = append(entries, l.entries[id])
	}
	l.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		if e.open != nil {
			out = append(out, *e.open)
		}
		e.mu.Unlock()
	}
	return out, nil
}

// Snapshot captures the ledger for persistence.
func (l *Ledger) Snapshot() LedgerState {
	visitors, _ := l.Visitors(context.Background())
	visits, _ := l.Visits(context.Background())

	l.mu.RLock()
	defer l.mu.RUnlock()
	return LedgerState{NextID: l.next, Visitors: visitors, Visits: visits}
}

// Restore replaces the ledger contents. Open visits in the state are reopened.
func (l *Ledger) Restore(state LedgerState) error {
	entries := make(map[ID]*entry, len(state.Visitors))
	byKey := make(map[string]ID, len(state.Visitors))
	order := make([]ID, 0, len(state.Visitors))
	next := state.NextID
	if next < FirstID {
		next = FirstID
	}

	for _, v := range state.Visitors {
		if _, dup := entries[v.ID]; dup {
			return fmt.Errorf("restore ledger: duplicate visitor %s", v.ID)
		}
		if v.Balance < 0 {
			return fmt.Errorf("restore ledger: visitor %s has negative balance", v.ID)
		}
		entries[v.ID] = &entry{visitor: v.clone()}
		order = append(order, v.ID)
		byKey[registrationKey(Registration{v.FirstName, v.LastName, v.Address, v.PhoneNumber})] = v.ID
		if v.ID >= next {
			next = v.ID + 1
		}
	}

	var closed []Visit
	for _, visit := range state.Visits {
		e, ok := entries[visit.VisitorID]
		if !ok {
			return fmt.Errorf("restore ledger: visit for unknown visitor %s", visit.VisitorID)
		}
		if visit.End == nil {
			open := visit
			e.open = &open
			continue
		}
		closed = append(closed, visit)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
	l.byKey = byKey
	l.order = order
	l.next = next
	l.visits = closed
	return nil
}

func (l *Ledger) lookup(id ID) (*entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.entries[id]
	if !ok {
		return nil, fmt.Errorf("visitor %s: %w", id, errdefs.ErrUnknownVisitor)
	}
	return e, nil
}

func validate(reg Registration) error {
	required := []struct {
		name, value string
	}{
		{"first name", reg.FirstName},
		{"last name", reg.LastName},
		{"address", reg.Address},
		{"phone number", reg.PhoneNumber},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return errdefs.InvalidArgument(f.name, "", "required")
		}
	}
	return nil
}

func registrationKey(reg Registration) string {
	return strings.ToLower(strings.Join([]string{
		strings.TrimSpace(reg.FirstName),
		strings.TrimSpace(reg.LastName),
		strings.TrimSpace(reg.Address),
		strings.TrimSpace(reg.PhoneNumber),
	}, "\x00"))
}
