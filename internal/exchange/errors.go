package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ConfigurationError is returned before any network call when a request or
// credential cannot be served as given.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewConfigurationError creates a ConfigurationError
func NewConfigurationError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TransportError wraps connection failures and timeouts
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e.Timeout() {
		return fmt.Sprintf("%s %s: timeout: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline or network timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// ExchangeRejection is a non-2xx response or an error envelope from an exchange.
type ExchangeRejection struct {
	Exchange string
	Status   int
	Code     string
	Message  string
	// Terminal is set when the order is already in a final state, e.g. "already canceled".
	Terminal string
}

func (e *ExchangeRejection) Error() string {
	detail := e.Message
	if e.Code != "" {
		detail = fmt.Sprintf("code %s: %s", e.Code, e.Message)
	}
	if e.Terminal != "" {
		return fmt.Sprintf("%s (%s %s)", e.Terminal, e.Exchange, detail)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s HTTP %d: %s", e.Exchange, e.Status, detail)
	}
	return fmt.Sprintf("%s: %s", e.Exchange, detail)
}

// IsTerminal reports whether the order can no longer be cancelled.
func (e *ExchangeRejection) IsTerminal() bool {
	return e.Terminal != ""
}

// IsRateLimited reports whether the exchange throttled the request.
func (e *ExchangeRejection) IsRateLimited() bool {
	if e.Status == http.StatusTooManyRequests || e.Status == http.StatusTeapot {
		return true
	}
	switch e.Code {
	case "-1003", "50011", "TOO_MANY_REQUESTS":
		return true
	}
	return false
}

// Classify maps an error to a cancel outcome kind.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return KindConfiguration
	}
	var rej *ExchangeRejection
	if errors.As(err, &rej) {
		if rej.IsTerminal() {
			return KindTerminal
		}
		if rej.IsRateLimited() {
			return KindRateLimited
		}
		return KindRejected
	}
	return KindTransport
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var rej *ExchangeRejection
	if errors.As(err, &rej) {
		return rej.Status
	}
	return 0
}

// IsConfiguration reports whether err is a ConfigurationError
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
