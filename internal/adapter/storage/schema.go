// internal/adapter/storage/schema.go

package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"stagemap/internal/domain/event"
	"stagemap/internal/domain/identity"
	"stagemap/internal/domain/schedule"
)

//go:embed schema.sql
var schemaSQL string

// Postgres error codes the stores translate into domain errors
const (
	codeStringTooLong        = "22001"
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeExclusionViolation   = "23P01"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	stageIntervalConstraint  = "stage_events_interval_check"
	stageOverlapConstraint   = "stage_events_no_overlap"
	usernameUniqueConstraint = "users_username_key"
)

// EnsureSchema creates every table, index and constraint that is missing
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("error applying schema: %w", err)
	}
	return nil
}

// translateError maps driver errors onto domain errors
func translateError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeExclusionViolation:
		if pgErr.ConstraintName == stageOverlapConstraint {
			return schedule.NewOverlapError("")
		}
	case codeCheckViolation:
		if pgErr.ConstraintName == stageIntervalConstraint {
			return schedule.NewIntervalError()
		}
	case codeUniqueViolation:
		if pgErr.ConstraintName == usernameUniqueConstraint {
			return identity.ErrUsernameTaken
		}
	case codeStringTooLong:
		return &event.ValidationError{Field: pgErr.ColumnName, Reason: "value is too long"}
	}

	return err
}

// isRetryable reports whether a transaction failed only because of concurrent writers
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}

// validID reports whether id can be bound to a UUID column. Malformed ids
// cannot match any row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
