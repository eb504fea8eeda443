package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// sqlState classifies the SQLSTATEs the analysis schema can raise
var sqlState = map[string]struct {
	code  ErrorCode
	retry bool
}{
	"23505": {ErrorCodeDuplicateKey, false}, // unique_violation
	"23503": {ErrorCodeInvalidArgument, false},
	"23502": {ErrorCodeValidation, false},
	"23514": {ErrorCodeValidation, false},
	"22001": {ErrorCodeInvalidArgument, false},
	"22P02": {ErrorCodeInvalidArgument, false},
	"22003": {ErrorCodeInvalidArgument, false}, // numeric out of range, e.g. an oversized paid amount
	"40001": {ErrorCodeDB, true},               // serialization_failure
	"40P01": {ErrorCodeDB, true},               // deadlock_detected
	"55P03": {ErrorCodeDB, true},
	"57014": {ErrorCodeDB, true}, // statement timeout
	"25006": {ErrorCodeUnavailable, false},
	"57P03": {ErrorCodeUnavailable, true}, // cannot_connect_now
}

// driver text for transient failures that arrive without a PgError
var retryText = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"terminating connection due to administrator command",
	"conn closed",
}

// PgError returns the *pgconn.PgError at the root of err
func PgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	ok := stderrs.As(err, &pe)
	return pe, ok
}

// FromPostgres classifies a database error and prefixes msg. Nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	if IsCode(err, ErrorCodeNotFound) {
		return err
	}
	code := ErrorCodeDB
	if pe, ok := PgError(err); ok {
		if c, known := sqlState[pe.Code]; known {
			code = c.code
		}
		if col := strings.TrimSpace(pe.ColumnName); col != "" {
			return WithField(Wrap(err, code, msg), col)
		}
	}
	return Wrap(err, code, msg)
}

// FromPostgresf is FromPostgres with a formatted message
func FromPostgresf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

// Retryable reports whether a write that failed with err may succeed when repeated.
// Context cancellation and deadlines never are
func Retryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pe, ok := PgError(err); ok {
		return sqlState[pe.Code].retry
	}
	s := strings.ToLower(Root(err).Error())
	for _, t := range retryText {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
