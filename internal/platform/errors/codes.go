// Package errors provides structured error handling with i18n support.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeNotFound means a bindable name or a record id did not resolve.
	CodeNotFound Code = "NOT_FOUND"
	// CodeValidationFailed means a binding rejected create/update input.
	CodeValidationFailed Code = "VALIDATION_FAILED"
	// CodeConflict means a binding-side constraint blocked the operation.
	CodeConflict Code = "CONFLICT"
	// CodeUnavailable means a binding's backing capability is not present.
	CodeUnavailable Code = "UNAVAILABLE"
	// CodeInternal means an unexpected fault was normalized at the dispatch boundary.
	CodeInternal Code = "INTERNAL"
)

// Known reports whether c is one of the taxonomy codes.
func (c Code) Known() bool {
	switch c {
	case CodeNotFound, CodeValidationFailed, CodeConflict, CodeUnavailable, CodeInternal:
		return true
	default:
		return false
	}
}

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeNotFound:
		return codes.NotFound
	case CodeValidationFailed:
		return codes.InvalidArgument
	case CodeConflict:
		return codes.FailedPrecondition
	case CodeUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidationFailed:
		return http.StatusUnprocessableEntity
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
