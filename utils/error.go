package utils

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrCredentialExpired means an upstream rejected our stored credential.
// It is fatal for the current run: callers must NOT retry with the same
// credential, they surface the error and mark the connection as needing
// re-authentication.
var ErrCredentialExpired = errors.New("upstream credential expired or rejected")

// TransientError wraps an upstream failure that is expected to succeed on
// retry (timeouts, 5xx, connection resets). Retry with backoff is the
// caller's job.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient upstream failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func NewTransientError(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err (or anything it wraps) is a TransientError.
// MySQL deadlocks and lock wait timeouts count: the statement can simply be
// re-run.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	return false
}

// MalformedRecordError marks a single upstream record that cannot be
// normalized. It never aborts a batch: the record is skipped, counted and
// logged with its source identity.
type MalformedRecordError struct {
	Source   string
	EntityId string
	Reason   string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record %s: %s", e.Source, e.EntityId, e.Reason)
}

func IsMalformedRecord(err error) bool {
	var me *MalformedRecordError
	return errors.As(err, &me)
}
