package runtime

import (
	"fmt"

	messagespkg "github.com/drblury/matchwire/internal/runtime/messages"
)

// UnprocessableEventError marks an envelope the codec could not turn into a
// catalog variant. It is never retried and is routed to the poison queue.
type UnprocessableEventError struct {
	UUID string
	Tag  messagespkg.Tag
	Err  error
}

func (e *UnprocessableEventError) Error() string {
	return fmt.Sprintf("unprocessable envelope %s (tag %s): %v", e.UUID, e.Tag, e.Err)
}

func (e *UnprocessableEventError) Unwrap() error {
	return e.Err
}

// Kind returns the codec error kind behind the rejection.
func (e *UnprocessableEventError) Kind() string {
	return messagespkg.ErrorKind(e.Err)
}
