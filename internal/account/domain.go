// internal/account/domain.go
package account

import (
	"frontdesk/internal/errdefs"
	"frontdesk/internal/visitor"
)

// Role decides which logged-in state a login leads to.
type Role int

const (
	RoleVisitor Role = iota
	RoleEmployee
)

func (r Role) String() string {
	switch r {
	case RoleVisitor:
		return "visitor"
	case RoleEmployee:
		return "employee"
	default:
		return "unknown"
	}
}

// ParseRole accepts "visitor" or "employee".
func ParseRole(s string) (Role, error) {
	switch s {
	case "visitor":
		return RoleVisitor, nil
	case "employee":
		return RoleEmployee, nil
	default:
		return 0, errdefs.InvalidArgument("role", s, "must be visitor or employee")
	}
}

// Account holds login credentials. Visitor accounts are bound to one visitor.
type Account struct {
	Username     string     `json:"username"`
	PasswordHash string     `json:"password_hash"`
	Salt         string     `json:"salt"`
	Role         Role       `json:"role"`
	VisitorID    visitor.ID `json:"visitor_id,omitempty"`
}

// State is the persisted form of a Store.
type State struct {
	Accounts []Account `json:"accounts"`
}
