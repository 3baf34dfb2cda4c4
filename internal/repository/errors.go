package repository

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type ErrorCode string

const (
	// ErrorInvalidArgument marks a missing or malformed required field.
	// The caller's fault; surfaced as a client error.
	ErrorInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrorNotFound marks an absent key on an operation that requires the
	// record to exist. Distinct from ErrorSchemaMissing.
	ErrorNotFound ErrorCode = "NOT_FOUND"
	// ErrorForbidden marks an authorization failure on a mutation.
	ErrorForbidden ErrorCode = "FORBIDDEN"
	// ErrorSchemaMissing marks an absent backing table or index. Read paths
	// may degrade this to an empty result; write paths must fail hard.
	ErrorSchemaMissing ErrorCode = "SCHEMA_MISSING"
	// ErrorBackendUnavailable marks any other storage-side failure. Never
	// retried here; the original diagnostic is carried in Err.
	ErrorBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("repository: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("repository: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

func hasCode(err error, code ErrorCode) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == code
}

func IsInvalidArgument(err error) bool { return hasCode(err, ErrorInvalidArgument) }
func IsNotFound(err error) bool        { return hasCode(err, ErrorNotFound) }
func IsForbidden(err error) bool       { return hasCode(err, ErrorForbidden) }
func IsSchemaMissing(err error) bool   { return hasCode(err, ErrorSchemaMissing) }

// classify maps a raw DynamoDB error into the store taxonomy. A missing
// table or index surfaces as ResourceNotFoundException and becomes
// SCHEMA_MISSING; everything else is BACKEND_UNAVAILABLE.
func classify(reason string, err error) *Error {
	var rnf *types.ResourceNotFoundException
	if errors.As(err, &rnf) {
		return newError(ErrorSchemaMissing, reason, err)
	}
	return newError(ErrorBackendUnavailable, reason, err)
}
