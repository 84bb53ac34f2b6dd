package application

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError is the application-level error envelope. Every failure
// that crosses the service boundary is one of the kinds below; raw
// transport errors never reach the HTTP layer.
type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeConfiguration   = "CONFIGURATION"
	ErrCodeProviderRequest = "PROVIDER_REQUEST"
	ErrCodeAuthentication  = "AUTHENTICATION"
	ErrCodeValidation      = "VALIDATION"
	ErrCodeOrderNotFound   = "ORDER_NOT_FOUND"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// NewConfigurationError marks missing or incomplete credentials. Fatal
// to the operation, aimed at the merchant admin, never the shopper.
func NewConfigurationError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeConfiguration,
		Message:    "Payment gateway is not configured",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewProviderRequestError covers transport failures, non-2xx responses
// and malformed provider bodies. The shopper-facing message is a
// generic retry prompt.
func NewProviderRequestError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeProviderRequest,
		Message:    "Payment could not be started. Please try again.",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewAuthenticationError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeAuthentication,
		Message:    "Invalid webhook authorization",
		HTTPStatus: http.StatusUnauthorized,
	}
}

func NewValidationError(message string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewOrderNotFoundError(orderID string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeOrderNotFound,
		Message:    fmt.Sprintf("order %s not found", orderID),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}
