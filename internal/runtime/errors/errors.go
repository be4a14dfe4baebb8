package errors

import (
	sterrors "errors"
)

var (
	// Protocol errors surfaced by the envelope codec.
	ErrUnknownTag       = sterrors.New("matchwire: unknown tag")
	ErrMalformedPayload = sterrors.New("matchwire: malformed payload")
	ErrTagMismatch      = sterrors.New("matchwire: tag mismatch")

	ErrMessageRequired      = sterrors.New("matchwire: message is required")
	ErrServiceRequired      = sterrors.New("matchwire: relay service is required")
	ErrHandlerRequired      = sterrors.New("matchwire: handler function is required")
	ErrDispatcherRequired   = sterrors.New("matchwire: dispatcher is required")
	ErrDuplicateHandler     = sterrors.New("matchwire: handler already registered for tag")
	ErrConsumeTopicRequired = sterrors.New("matchwire: consume topic is required")
	ErrHandlerNameRequired  = sterrors.New("matchwire: handler name is required")
	ErrPublisherRequired    = sterrors.New("matchwire: publisher is required")
	ErrTopicRequired        = sterrors.New("matchwire: topic is required")
	ErrConfigRequired       = sterrors.New("matchwire: configuration is required")
	ErrLoggerRequired       = sterrors.New("matchwire: logger is required")
)

// IsProtocolError reports whether err carries one of the three codec error kinds.
func IsProtocolError(err error) bool {
	return sterrors.Is(err, ErrUnknownTag) ||
		sterrors.Is(err, ErrMalformedPayload) ||
		sterrors.Is(err, ErrTagMismatch)
}

// ConfigValidationError wraps the aggregated problems found by Config.Validate.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "matchwire: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError returns nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
