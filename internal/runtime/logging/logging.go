package logging

import (
	"maps"

	"github.com/ThreeDotsLabs/watermill"
)

// Field names shared by every log line that concerns an envelope.
const (
	FieldTag       = "tag"
	FieldMessage   = "message"
	FieldErrorKind = "error_kind"
	FieldTopic     = "topic"
	FieldUUID      = "message_uuid"
)

// LogFields represents structured logging key/value pairs.
type LogFields map[string]any

// Merge returns a new map holding f overlaid with other.
func (f LogFields) Merge(other LogFields) LogFields {
	if len(f) == 0 && len(other) == 0 {
		return nil
	}
	merged := make(LogFields, len(f)+len(other))
	maps.Copy(merged, f)
	maps.Copy(merged, other)
	return merged
}

// EnvelopeFields describes an envelope for logging. Empty values are omitted,
// so an unknown tag logs without a message name.
func EnvelopeFields(tag, name, kind string) LogFields {
	fields := LogFields{}
	if tag != "" {
		fields[FieldTag] = tag
	}
	if name != "" {
		fields[FieldMessage] = name
	}
	if kind != "" {
		fields[FieldErrorKind] = kind
	}
	return fields
}

// ServiceLogger is the logging contract of the relay service. It maps
// directly onto Watermill's logging needs so hosts can adapt their existing
// loggers without depending on slog.
type ServiceLogger interface {
	With(fields LogFields) ServiceLogger
	Debug(msg string, fields LogFields)
	Info(msg string, fields LogFields)
	Error(msg string, err error, fields LogFields)
	Trace(msg string, fields LogFields)
}

// NewDiscardServiceLogger returns a logger that drops everything.
func NewDiscardServiceLogger() ServiceLogger {
	return NewWatermillServiceLogger(watermill.NopLogger{})
}
