package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// Error code raised by the unique indexes on profiles.handle,
// profiles.email and auth_tokens.token.
const codeUniqueViolation = pq.ErrorCode("23505")

// IsUniqueViolation reports whether err is a duplicate-key violation.
// An empty constraint matches any unique index; naming one matches only
// that index, which is how a taken handle is told apart from a taken
// email on the same insert.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
