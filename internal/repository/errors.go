// Package repository implements MySQL persistence for events, bookings,
// settlements, comments, users and refresh tokens.  Lookups that find no
// row return the matching not-found error from the domain package wrapped
// with context, so callers test them with errors.Is.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrEmailExists is returned by UserRepo.Create when the address is taken.
var ErrEmailExists = errors.New("email already exists")

// notFound maps sql.ErrNoRows to sentinel and wraps everything else.
func notFound(err error, sentinel error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, sentinel)
	}
	return fmt.Errorf("%s: %w", what, err)
}
