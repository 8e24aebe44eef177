package apperrors

import "errors"

// Error kinds shared by services, repositories and the HTTP layer.
var (
	// Input errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidIdentity = errors.New("invalid identity number")
	ErrFileTooLarge    = errors.New("file too large")

	// Resource errors
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")

	// Storage errors
	ErrStorageFailure = errors.New("storage failure")

	// Authentication errors
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrSetupClosed        = errors.New("admin account already exists")
	ErrRateLimited        = errors.New("too many requests")
)

// Student record errors
var (
	ErrStudentNotFound   = NewCustomError(ErrResourceNotFound, "student record not found")
	ErrDuplicateIdentity = NewCustomError(ErrConflict, "identity number already registered")
	ErrDuplicateQueryID  = NewCustomError(ErrConflict, "query id already in use")
)

// Admin errors
var (
	ErrAdminNotFound = NewCustomError(ErrResourceNotFound, "admin account not found")
	ErrAdminExists   = NewCustomError(ErrSetupClosed, "admin account already exists")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewInvalidInputError creates a validation error carrying the offending field
func NewInvalidInputError(field, message string) *CustomError {
	return &CustomError{
		Err:     ErrInvalidInput,
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

// NewStorageError wraps a persistence failure so callers can match ErrStorageFailure
// while the original cause stays reachable through errors.Unwrap chains.
func NewStorageError(message string, cause error) error {
	return &CustomError{
		Err:     errors.Join(ErrStorageFailure, cause),
		Message: message,
	}
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err       error
	Message   string
	StatusMsg string
	Code      string
	Details   map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}

// WithStatusMsg adds a user-friendly status message
func (e *CustomError) WithStatusMsg(msg string) *CustomError {
	e.StatusMsg = msg
	return e
}
