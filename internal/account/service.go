// internal/account/service.go
package account

import (
	"context"

	"frontdesk/internal/visitor"
)

// Service manages login accounts.
type Service interface {
	Create(ctx context.Context, username, password string, role Role, visitorID visitor.ID) (Account, error)
	// Authenticate checks the credentials, subject to a per-username rate limit.
	Authenticate(ctx context.Context, username, password string) (Account, error)
}
