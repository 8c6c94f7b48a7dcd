package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/labdesk/labdesk/internal/platform/apperr"
)

// Postgres SQLSTATE codes the repositories care about.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeInvalidDatetime     = "22007"
	codeDatetimeOverflow    = "22008"
	codeInvalidText         = "22P02"
)

// Constraints maps a constraint name to the message shown when it is violated.
type Constraints map[string]string

// TranslateError maps driver errors onto the apperr taxonomy. what names the
// record the statement was about ("patient", "bill"). Errors that already carry
// a kind pass through unchanged.
func TranslateError(err error, what string, msgs Constraints) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(what)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg, ok := msgs[pgErr.ConstraintName]
		switch pgErr.Code {
		case codeUniqueViolation:
			if !ok {
				msg = what + " already exists"
			}
			return apperr.Conflict(msg)
		case codeForeignKeyViolation:
			if !ok {
				return apperr.NotFound("referenced record")
			}
			return apperr.NotFoundMessage(msg)
		case codeCheckViolation:
			if !ok {
				msg = "invalid " + what
			}
			return apperr.Validation("%s", msg)
		case codeInvalidDatetime, codeDatetimeOverflow:
			return apperr.Validation("invalid date")
		case codeInvalidText:
			return apperr.Validation("invalid %s", what)
		}
	}

	return apperr.Storage(err)
}
