package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medmeet/medmeet/internal/platform/apperr"
)

// SQLSTATE codes handled by Classify.
const (
	codeUniqueViolation      = "23505"
	codeExclusionViolation   = "23P01"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeNotNullViolation     = "23502"
	codeInvalidDatetime      = "22007"
	codeDatetimeOverflow     = "22008"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Constraints maps constraint names to the client-facing message used when
// that constraint is violated.
type Constraints map[string]string

// Classify turns a pgx error into an apperr error. entity names the record
// ("provider", "booking") for messages. Raw Postgres text is kept only as the
// wrapped cause.
func Classify(err error, entity string, constraints Constraints) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("%s not found", entity)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return apperr.StorageFailure(err, "%s storage failure", entity)
	}

	if msg, ok := constraints[pgErr.ConstraintName]; ok {
		switch pgErr.Code {
		case codeUniqueViolation, codeExclusionViolation:
			return &apperr.Error{Kind: apperr.KindConflict, Message: msg, Err: err}
		case codeCheckViolation, codeForeignKeyViolation:
			return &apperr.Error{Kind: apperr.KindInvalidInput, Message: msg, Err: err}
		}
	}

	switch pgErr.Code {
	case codeUniqueViolation, codeExclusionViolation:
		return &apperr.Error{Kind: apperr.KindConflict, Message: entity + " conflicts with an existing record", Err: err}
	case codeForeignKeyViolation, codeCheckViolation, codeNotNullViolation:
		return &apperr.Error{Kind: apperr.KindInvalidInput, Message: "invalid " + entity + " data", Err: err}
	case codeInvalidDatetime, codeDatetimeOverflow:
		return &apperr.Error{Kind: apperr.KindInvalidInput, Message: "invalid date or time", Err: err}
	}
	return apperr.StorageFailure(err, "%s storage failure", entity)
}
