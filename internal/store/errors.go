package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist or is not visible to
// the caller. Ownership misses map to the same error so routes cannot leak
// another user's row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update hits a unique constraint
// (user email, device MAC address).
var ErrDuplicate = errors.New("already exists")

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
