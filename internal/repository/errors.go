package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"delivery-tracking/internal/apperr"
)

// SQLSTATE codes the repository reacts to.
const (
	codeUniqueViolation = "23505"
	codeLockTimeout     = "55P03"
	codeQueryCanceled   = "57014"
)

func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// storageErr wraps a driver error for op. A row lock that could not be taken
// in time surfaces as apperr.ErrConflict so callers can retry.
func storageErr(op string, err error) error {
	switch pgCode(err) {
	case codeLockTimeout, codeQueryCanceled:
		return fmt.Errorf("%s: %v: %w", op, err, apperr.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
