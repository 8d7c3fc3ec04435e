package errors

import (
	"context"
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type pgClass uint8

const (
	pgOther pgClass = iota
	// retry the statement
	pgContention
	// server refuses work for now; retry and report unavailable
	pgRefusing
	// read only replica or full pool; report unavailable
	pgSaturated
	pgMissingTable
)

var pgStates = map[string]pgClass{
	"40001": pgContention, // serialization_failure
	"40P01": pgContention, // deadlock_detected
	"55P03": pgContention, // lock_not_available
	"57P03": pgRefusing,   // cannot_connect_now
	"25006": pgSaturated,  // read_only_sql_transaction
	"53300": pgSaturated,  // too_many_connections
	"42P01": pgMissingTable,
}

// messages pgx surfaces without a structured code, mostly from commit
var pgRetryText = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"canceling statement due to statement timeout",
	"terminating connection due to administrator command",
}

// PgError unwraps to the underlying *pgconn.PgError
func PgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	if err != nil && stderrs.As(Root(err), &pe) {
		return pe, true
	}
	return nil, false
}

func classifyPG(err error) (pgClass, bool) {
	pe, ok := PgError(err)
	if !ok {
		return pgOther, false
	}
	return pgStates[pe.Code], true
}

// IsUndefinedTable reports a missing relation, e.g. the cache table before EnsureCache ran
func IsUndefinedTable(err error) bool {
	c, _ := classifyPG(err)
	return c == pgMissingTable
}

// DBErrorCode maps a Postgres error onto an ErrorCode; ok is false for non pg errors
func DBErrorCode(err error) (ErrorCode, bool) {
	c, ok := classifyPG(err)
	if !ok {
		return ErrorCodeUnknown, false
	}
	if c == pgRefusing || c == pgSaturated {
		return ErrorCodeUnavailable, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err with its mapped code. Non pg errors become ErrorCodeDB
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// IsRetryable reports a transient database condition. Cancellation never is
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if c, ok := classifyPG(err); ok {
		return c == pgContention || c == pgRefusing
	}
	msg := strings.ToLower(Root(err).Error())
	for _, s := range pgRetryText {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
