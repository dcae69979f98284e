package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"lotline/internal/core/apperror"
)

// SQLSTATE codes that signal the caller should retry the whole
// operation rather than a single statement.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
)

// TranslateError maps driver-level failures onto the application error
// taxonomy. Serialization failures, deadlocks, and lock timeouts all
// become ConcurrencyConflict; everything else passes through.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	// Already classified by a layer above.
	if apperror.IsAppError(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return apperror.NewConcurrencyConflict("transaction", pgErr.TableName).
				WithCause(err)
		case codeUniqueViolation:
			return apperror.NewConcurrencyConflict("row", pgErr.ConstraintName).
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		}
	}

	return err
}
