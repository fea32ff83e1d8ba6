package bindable

import (
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/workspace/internal/platform/errors"
	"github.com/louisbranch/workspace/internal/platform/errors/i18n"
)

// Failure is the failure variant of a Result. Message is always non-empty and
// safe to show to callers.
type Failure struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

// Error implements error so a failure can cross error-returning boundaries.
func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Result holds exactly one of a success value or a Failure. The zero Result
// is neither; the dispatcher treats it as an internal fault.
type Result struct {
	value   any
	failure Failure
	state   resultState
}

type resultState uint8

const (
	resultUnset resultState = iota
	resultSuccess
	resultFailure
)

// Success wraps a success value. The value may be nil.
func Success(value any) Result {
	return Result{value: value, state: resultSuccess}
}

// Fail builds a failure. Unknown codes become CodeInternal and an empty
// or blank message is replaced by the code's catalog message.
func Fail(code apperrors.Code, message string) Result {
	if !code.Known() {
		code = apperrors.CodeInternal
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = defaultMessage(code)
	}
	return Result{failure: Failure{Code: code, Message: message}, state: resultFailure}
}

// NotFound is Fail with CodeNotFound.
func NotFound(message string) Result { return Fail(apperrors.CodeNotFound, message) }

// Invalid is Fail with CodeValidationFailed.
func Invalid(message string) Result { return Fail(apperrors.CodeValidationFailed, message) }

// Conflict is Fail with CodeConflict.
func Conflict(message string) Result { return Fail(apperrors.CodeConflict, message) }

// Unavailable is Fail with CodeUnavailable.
func Unavailable(message string) Result { return Fail(apperrors.CodeUnavailable, message) }

// Internal is Fail with CodeInternal and the generic message.
func Internal() Result { return Fail(apperrors.CodeInternal, "") }

// Unsupported fails an action the binding does not implement.
func Unsupported(action Action) Result {
	msg := i18n.GetCatalog(i18n.BaseLocale).Format(i18n.KeyUnsupportedAction, map[string]string{"Action": string(action)})
	return Fail(apperrors.CodeValidationFailed, msg)
}

// FromError converts err into a failure. Domain errors keep their code and
// get the catalog message for it; anything else is an internal fault whose
// detail is not exposed.
func FromError(err error) Result {
	if err == nil {
		return Internal()
	}
	if domainErr, ok := apperrors.As(err); ok && domainErr.Code.Known() {
		return Fail(domainErr.Code, domainErr.UserMessage(i18n.BaseLocale))
	}
	return Internal()
}

// Valid reports whether r was built by Success or a failure constructor.
func (r Result) Valid() bool { return r.state != resultUnset }

// IsSuccess reports whether r is a success.
func (r Result) IsSuccess() bool { return r.state == resultSuccess }

// IsFailure reports whether r is a failure.
func (r Result) IsFailure() bool { return r.state == resultFailure }

// Value returns the success value, or nil for failures.
func (r Result) Value() any {
	if r.state != resultSuccess {
		return nil
	}
	return r.value
}

// Failure returns the failure variant.
func (r Result) Failure() (Failure, bool) {
	if r.state != resultFailure {
		return Failure{}, false
	}
	return r.failure, true
}

// Normalize turns an unset Result into an internal failure.
func (r Result) Normalize() Result {
	if !r.Valid() {
		return Internal()
	}
	return r
}

// Fold applies onSuccess or onFailure depending on the variant. An unset
// Result folds as an internal failure.
func Fold[T any](r Result, onSuccess func(value any) T, onFailure func(f Failure) T) T {
	r = r.Normalize()
	if r.IsSuccess() {
		return onSuccess(r.value)
	}
	return onFailure(r.failure)
}

func defaultMessage(code apperrors.Code) string {
	return apperrors.LocalizedMessage(code, nil, i18n.BaseLocale)
}
