package board

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the board service.
var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrInvalidAction        = errors.New("action must be approve or reject")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrConflict             = errors.New("request already resolved")
	ErrConfiguration        = errors.New("missing configuration")
	ErrInvalidSectionKey    = errors.New("invalid section key")
	ErrInvalidPlayerName    = errors.New("invalid player name")
	ErrInvalidGoldAmount    = errors.New("invalid gold amount")
	ErrInvalidRequestID     = errors.New("invalid request id")
	ErrInvalidRequestStatus = errors.New("invalid request status")
	ErrInvalidLegendEntry   = errors.New("invalid legend entry")
	ErrInvalidServiceConfig = errors.New("invalid service config")
	ErrInvalidGoldCostTable = errors.New("invalid gold cost table")
	ErrSettingNotFound      = errors.New("setting not found")
	ErrDuplicatePlayerName  = errors.New("player name already taken")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
