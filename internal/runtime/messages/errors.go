package messages

import (
	"errors"
	"fmt"

	errspkg "github.com/drblury/matchwire/internal/runtime/errors"
)

// Error kinds reported by ErrorKind, used as log fields and metric labels.
const (
	KindUnknownTag       = "unknown_tag"
	KindMalformedPayload = "malformed_payload"
	KindTagMismatch      = "tag_mismatch"
)

// UnknownTagError is returned when an envelope carries a tag that has no
// registry entry. It matches errspkg.ErrUnknownTag.
type UnknownTagError struct {
	Tag Tag
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("%s %s", errspkg.ErrUnknownTag, e.Tag)
}

func (e *UnknownTagError) Unwrap() error {
	return errspkg.ErrUnknownTag
}

// MalformedPayloadError is returned when the payload cannot be turned into
// the variant registered for Tag. It matches errspkg.ErrMalformedPayload and
// the underlying cause. Untagged is set when the envelope was too short to
// carry a tag, in which case Tag is meaningless.
type MalformedPayloadError struct {
	Tag      Tag
	Untagged bool
	Err      error
}

func (e *MalformedPayloadError) Error() string {
	if e.Untagged {
		return fmt.Sprintf("%s: %v", errspkg.ErrMalformedPayload, e.Err)
	}
	return fmt.Sprintf("%s for %s: %v", errspkg.ErrMalformedPayload, e.Tag, e.Err)
}

func (e *MalformedPayloadError) Unwrap() []error {
	return []error{errspkg.ErrMalformedPayload, e.Err}
}

// TagMismatchError is returned when a decoded value reports a tag other than
// the one read from its envelope. It matches errspkg.ErrTagMismatch.
type TagMismatchError struct {
	Envelope Tag
	Decoded  Tag
	Type     string
}

func (e *TagMismatchError) Error() string {
	return fmt.Sprintf("%s: envelope carries %s but %s reports %s", errspkg.ErrTagMismatch, e.Envelope, e.Type, e.Decoded)
}

func (e *TagMismatchError) Unwrap() error {
	return errspkg.ErrTagMismatch
}

// FieldError describes a payload field that is missing, unexpected or out of range.
type FieldError struct {
	Field   string
	Problem string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q %s", e.Field, e.Problem)
}

// DuplicateTagError is returned by NewRegistry when two entries share a tag.
type DuplicateTagError struct {
	Tag   Tag
	First string
	Other string
}

func (e *DuplicateTagError) Error() string {
	return fmt.Sprintf("matchwire: tag %s registered for both %s and %s", e.Tag, e.First, e.Other)
}

// ErrorKind classifies err as one of the Kind constants, or "" for errors
// that did not come from the codec.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errspkg.ErrUnknownTag):
		return KindUnknownTag
	case errors.Is(err, errspkg.ErrTagMismatch):
		return KindTagMismatch
	case errors.Is(err, errspkg.ErrMalformedPayload):
		return KindMalformedPayload
	default:
		return ""
	}
}
