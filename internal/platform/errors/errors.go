package errors

import (
	stderrors "errors"

	"github.com/louisbranch/workspace/internal/platform/errors/i18n"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"
)

// Domain is the error domain for workspace errors.
const Domain = "github.com/louisbranch/workspace"

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Internal message (for logs/telemetry)
	Metadata map[string]string // Additional context for templating
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error with metadata for i18n templating.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// As extracts the first domain error in err's chain.
func As(err error) (*Error, bool) {
	var domainErr *Error
	if stderrors.As(err, &domainErr) && domainErr != nil {
		return domainErr, true
	}
	return nil, false
}

// CodeOf returns the domain code carried by err, or CodeUnknown.
func CodeOf(err error) Code {
	if domainErr, ok := As(err); ok {
		return domainErr.Code
	}
	return CodeUnknown
}

// ToGRPCStatus converts the error to a gRPC status with errdetails.
// The status message contains the internal message for logging.
// The LocalizedMessage contains the user-facing translated message.
func (e *Error) ToGRPCStatus(locale string, userMessage string) error {
	return StatusWithDetails(e.Code, e.Message, e.Metadata, locale, userMessage)
}

// StatusWithDetails builds a gRPC status for code carrying ErrorInfo and
// LocalizedMessage details.
func StatusWithDetails(code Code, message string, metadata map[string]string, locale string, userMessage string) error {
	grpcCode := code.GRPCCode()
	st := status.New(grpcCode, message)

	st, err := st.WithDetails(
		&errdetails.ErrorInfo{
			Reason:   string(code),
			Domain:   Domain,
			Metadata: metadata,
		},
		&errdetails.LocalizedMessage{
			Locale:  locale,
			Message: userMessage,
		},
	)
	if err != nil {
		// If we can't attach details, return the basic status
		return status.New(grpcCode, message).Err()
	}
	return st.Err()
}

// LocalizedMessage renders the caller-facing message for code in locale.
func LocalizedMessage(code Code, metadata map[string]string, locale string) string {
	return i18n.GetCatalog(locale).Format(string(code), metadata)
}

// UserMessage renders the caller-facing message for this error in locale.
func (e *Error) UserMessage(locale string) string {
	return LocalizedMessage(e.Code, e.Metadata, locale)
}
