package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigurationError invalid or missing start-up configuration.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// TransportError the exchange could not be reached.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthenticationError the exchange rejected the API key or the request signature.
type AuthenticationError struct {
	Status  int
	Code    int64
	Message string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication rejected (status %d, code %d): %s", e.Status, e.Code, e.Message)
}

// APIError non-success status returned by the exchange.
type APIError struct {
	Status  int
	Code    int64
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		// go-binance does not surface the HTTP status of decoded errors
		if e.Status == 0 {
			return fmt.Sprintf("api error (code %d): %s", e.Code, e.Message)
		}
		return fmt.Sprintf("api error (status %d, code %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Body)
}

// DecodeError the exchange answered with an unexpected body.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// ErrorKind short name of the error class, used as a log field and metric label.
func ErrorKind(err error) string {
	var (
		cfgErr    *ConfigurationError
		transErr  *TransportError
		authErr   *AuthenticationError
		apiErr    *APIError
		decodeErr *DecodeError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &transErr):
		return "transport"
	case errors.As(err, &authErr):
		return "authentication"
	case errors.As(err, &apiErr):
		return "api"
	case errors.As(err, &decodeErr):
		return "decode"
	default:
		return "unknown"
	}
}
