package booking

import (
	"errors"
	"fmt"
)

// Error codes for the booking flow taxonomy. Local errors never touch
// the network; recoverable remote errors preserve the draft; fatal
// ones discard it.
const (
	CodeValidation     = "validationError"
	CodeUpload         = "uploadError"
	CodeAuthentication = "authenticationError"
	CodeAuthorization  = "authorizationError"
	CodeNotFound       = "notFoundError"
	CodeConflict       = "conflictError"
	CodeServer         = "serverError"
)

// FlowError is the typed error every booking operation surfaces.
// Field is set for field-scoped validation failures.
type FlowError struct {
	Code    string
	Field   string
	Message string
}

func (e *FlowError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewValidationError(field, msg string) error {
	return &FlowError{Code: CodeValidation, Field: field, Message: msg}
}

func NewUploadError(msg string) error {
	return &FlowError{Code: CodeUpload, Message: msg}
}

func NewAuthenticationError(msg string) error {
	return &FlowError{Code: CodeAuthentication, Message: msg}
}

func NewAuthorizationError(msg string) error {
	return &FlowError{Code: CodeAuthorization, Message: msg}
}

func NewNotFoundError(msg string) error {
	return &FlowError{Code: CodeNotFound, Message: msg}
}

func NewConflictError(msg string) error {
	return &FlowError{Code: CodeConflict, Message: msg}
}

func NewServerError(msg string) error {
	return &FlowError{Code: CodeServer, Message: msg}
}

func codeOf(err error) string {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

func IsValidation(err error) bool     { return codeOf(err) == CodeValidation }
func IsUpload(err error) bool         { return codeOf(err) == CodeUpload }
func IsAuthentication(err error) bool { return codeOf(err) == CodeAuthentication }
func IsAuthorization(err error) bool  { return codeOf(err) == CodeAuthorization }
func IsNotFound(err error) bool       { return codeOf(err) == CodeNotFound }
func IsConflict(err error) bool       { return codeOf(err) == CodeConflict }
func IsServer(err error) bool         { return codeOf(err) == CodeServer }
