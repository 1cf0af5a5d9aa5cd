// internal/session/state.go
package session

import (
	"fmt"
	"strings"

	"frontdesk/internal/account"
	"frontdesk/internal/errdefs"
)

// State is where a client stands in the login lifecycle.
type State int

const (
	Disconnected State = iota
	LoggedOut
	VisitorLoggedIn
	EmployeeLoggedIn
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case LoggedOut:
		return "logged-out"
	case VisitorLoggedIn:
		return "visitor-logged-in"
	case EmployeeLoggedIn:
		return "employee-logged-in"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Operation is anything a client can ask of its session.
type Operation int

const (
	Connect Operation = iota
	CreateAccount
	Login
	Logout
	Disconnect
	RegisterVisitor
	CatalogSearch
	StoreSearch
	DateTime
	BeginVisit
	EndVisit
	Checkout
	ReturnBooks
	FindBorrowed
	PurchaseBooks
	AdvanceTime
	GenerateReport
	PayFine
)

var operationNames = [...]string{
	Connect:         "connect",
	CreateAccount:   "create-account",
	Login:           "login",
	Logout:          "logout",
	Disconnect:      "disconnect",
	RegisterVisitor: "register-visitor",
	CatalogSearch:   "catalog-search",
	StoreSearch:     "store-search",
	DateTime:        "datetime",
	BeginVisit:      "begin-visit",
	EndVisit:        "end-visit",
	Checkout:        "checkout",
	ReturnBooks:     "return-books",
	FindBorrowed:    "find-borrowed",
	PurchaseBooks:   "purchase-books",
	AdvanceTime:     "advance-time",
	GenerateReport:  "generate-report",
	PayFine:         "pay-fine",
}

func (o Operation) String() string {
	if o >= 0 && int(o) < len(operationNames) {
		return operationNames[o]
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

// InvalidStateError reports an operation attempted from a state that does
// not permit it.
type InvalidStateError struct {
	Operation Operation
	Current   State
	Required  []State
}

func (e *InvalidStateError) Error() string {
	names := make([]string, len(e.Required))
	for i, s := range e.Required {
		names[i] = s.String()
	}
	return fmt.Sprintf("%s: %s from %s requires %s", errdefs.ErrInvalidState, e.Operation, e.Current, strings.Join(names, "|"))
}

func (e *InvalidStateError) Unwrap() error { return errdefs.ErrInvalidState }

// Required lists the states from which op is permitted.
func Required(op Operation) []State {
	switch op {
	case Connect:
		return []State{Disconnected}
	case CreateAccount, Login:
		return []State{LoggedOut}
	case Logout:
		return []State{VisitorLoggedIn, EmployeeLoggedIn}
	case Disconnect:
		return []State{Disconnected, LoggedOut, VisitorLoggedIn, EmployeeLoggedIn}
	case RegisterVisitor, CatalogSearch, StoreSearch, DateTime:
		return []State{LoggedOut, VisitorLoggedIn, EmployeeLoggedIn}
	case BeginVisit, EndVisit, Checkout, ReturnBooks, FindBorrowed:
		return []State{VisitorLoggedIn, EmployeeLoggedIn}
	case PurchaseBooks, AdvanceTime, GenerateReport, PayFine:
		return []State{EmployeeLoggedIn}
	default:
		return nil
	}
}

// Next is the transition function. role only matters for Login, where it
// picks the logged-in state.
func Next(current State, op Operation, role account.Role) (State, error) {
	required := Required(op)
	if required == nil {
		return current, fmt.Errorf("unknown operation %s", op)
	}
	permitted := false
	for _, s := range required {
		if s == current {
			permitted = true
			break
		}
	}
	if !permitted {
		return current, &InvalidStateError{Operation: op, Current: current, Required: required}
	}

	switch op {
	case Connect:
		return LoggedOut, nil
	case Login:
		if role == account.RoleEmployee {
			return EmployeeLoggedIn, nil
		}
		return VisitorLoggedIn, nil
	case Logout:
		return LoggedOut, nil
	case Disconnect:
		return Disconnected, nil
	default:
		return current, nil
	}
}
