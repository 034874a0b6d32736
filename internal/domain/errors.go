package domain

import (
	"errors"
	"fmt"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a transport failure on the feed socket
type NetworkError struct {
	Op        string // Operation that failed (e.g., "dial", "read", "subscribe")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ValidationError is an order form that failed a precondition.
// Message is shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) IsRetriable() bool {
	return false
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// RemoteError is a non-success response from the backend API
type RemoteError struct {
	Op      string // e.g. "create order", "login"
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
}

// IsRetriable is always false: rejected requests are surfaced, not replayed.
func (e *RemoteError) IsRetriable() bool {
	return false
}

var (
	// ErrConnectionFailed wraps a failed feed dial. It's usually retriable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrInvalidSymbol is returned when a symbol is empty or malformed. Not retriable.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrMalformedFrame is returned when a feed frame is not valid JSON
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrAlreadyStarted is returned when a session or poller is started twice
	ErrAlreadyStarted = errors.New("already started")

	// ErrClosed is returned when starting a session after Stop
	ErrClosed = errors.New("closed")
)

// Order validation sentinels
var (
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrPriceUnavailable    = errors.New("price data not available")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrLeverageOutOfRange  = errors.New("leverage out of range")
	ErrInvalidTakeProfit   = errors.New("invalid take profit")
	ErrInvalidStopLoss     = errors.New("invalid stop loss")
	ErrInvalidSide         = errors.New("invalid side")
)
