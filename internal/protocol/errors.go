// internal/protocol/errors.go
package protocol

import (
	"errors"
	"strconv"
	"strings"

	"frontdesk/internal/errdefs"
	"frontdesk/internal/fields"
	"frontdesk/internal/session"
)

const reasonServerError = "server-error"

// rejection carries command-specific response fields for a failure.
type rejection struct {
	err    error
	fields []string
}

func (r *rejection) Error() string { return r.err.Error() }

func (r *rejection) Unwrap() error { return r.err }

func reject(err error, fields ...string) error {
	return &rejection{err: err, fields: fields}
}

// reasons maps a failure to the response fields that replace the result.
func reasons(err error) []string {
	var (
		rej        *rejection
		stateErr   *session.InvalidStateError
		booksErr   *errdefs.BooksError
		balanceErr *errdefs.OutstandingBalanceError
		argErr     *errdefs.InvalidArgumentError
	)
	switch {
	case errors.As(err, &rej):
		return rej.fields
	case errors.As(err, &stateErr):
		names := make([]string, len(stateErr.Required))
		for i, s := range stateErr.Required {
			names[i] = s.String()
		}
		return []string{"invalid-state", strings.Join(names, "|")}
	case errors.As(err, &booksErr):
		if errors.Is(err, errdefs.ErrUnavailable) {
			return []string{"unavailable", fields.FormatList(booksErr.IDs)}
		}
		return []string{"invalid-book-id", fields.FormatList(booksErr.IDs)}
	case errors.Is(err, errdefs.ErrNoRecentSearch):
		return []string{"no-recent-search-found"}
	case errors.Is(err, errdefs.ErrUnknownVisitor):
		return []string{"invalid-visitor-id"}
	case errors.Is(err, errdefs.ErrDuplicateVisit), errors.Is(err, errdefs.ErrDuplicateVisitor):
		return []string{"duplicate"}
	case errors.Is(err, errdefs.ErrNotVisiting):
		return []string{"invalid-id"}
	case errors.Is(err, errdefs.ErrCapacity):
		return []string{"book-limit-exceeded"}
	case errors.As(err, &balanceErr):
		return []string{"outstanding-fine", strconv.Itoa(balanceErr.Balance)}
	case errors.Is(err, errdefs.ErrDuplicateAccount):
		return []string{"duplicate-username"}
	case errors.Is(err, errdefs.ErrInvalidCredentials):
		return []string{"bad-username-or-password"}
	case errors.Is(err, errdefs.ErrRateLimited):
		return []string{"rate-limited"}
	case errors.As(err, &argErr):
		return []string{"invalid-argument", strings.ReplaceAll(argErr.Name, " ", "-")}
	default:
		return []string{reasonServerError}
	}
}
