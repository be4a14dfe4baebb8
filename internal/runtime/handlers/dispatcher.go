package handlers

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/matchwire/internal/runtime/errors"
	loggingpkg "github.com/drblury/matchwire/internal/runtime/logging"
	messagespkg "github.com/drblury/matchwire/internal/runtime/messages"
	metadatapkg "github.com/drblury/matchwire/internal/runtime/metadata"
)

// HandlerFunc processes one decoded variant and returns the messages to send
// back on the registration's publish topic.
type HandlerFunc[T messagespkg.Message] func(ctx context.Context, msg T, mctx MessageContext) ([]messagespkg.Message, error)

type route func(ctx context.Context, msg messagespkg.Message, mctx MessageContext) ([]messagespkg.Message, error)

// Observer receives protocol level events from the dispatch handler.
type Observer interface {
	EnvelopeEncoded(name string)
	EnvelopeDecoded(name string)
	EnvelopeFailed(kind string)
}

type noopObserver struct{}

func (noopObserver) EnvelopeEncoded(string) {}
func (noopObserver) EnvelopeDecoded(string) {}
func (noopObserver) EnvelopeFailed(string)  {}

// Dispatcher maps tags to typed handlers. At most one handler exists per tag.
type Dispatcher struct {
	codec *messagespkg.Codec

	mu     sync.RWMutex
	routes map[messagespkg.Tag]route
}

// NewDispatcher returns an empty dispatcher decoding with codec, or with the
// default codec when codec is nil.
func NewDispatcher(codec *messagespkg.Codec) *Dispatcher {
	if codec == nil {
		codec = messagespkg.DefaultCodec()
	}
	return &Dispatcher{codec: codec, routes: make(map[messagespkg.Tag]route)}
}

func (d *Dispatcher) Codec() *messagespkg.Codec {
	return d.codec
}

// On registers fn for the variant T. T is normally the pointer type Decode
// produces (for example *messages.Game2LauncherMatchTime); value types are
// accepted too.
func On[T messagespkg.Message](d *Dispatcher, fn HandlerFunc[T]) error {
	if d == nil {
		return errspkg.ErrDispatcherRequired
	}
	if fn == nil {
		return errspkg.ErrHandlerRequired
	}
	tag, err := variantTag[T]()
	if err != nil {
		return err
	}
	if _, ok := d.codec.Registry().Lookup(tag); !ok {
		return &messagespkg.UnknownTagError{Tag: tag}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.routes[tag]; exists {
		return fmt.Errorf("%w %s", errspkg.ErrDuplicateHandler, tag)
	}
	d.routes[tag] = func(ctx context.Context, msg messagespkg.Message, mctx MessageContext) ([]messagespkg.Message, error) {
		typed, ok := asVariant[T](msg)
		if !ok {
			return nil, &messagespkg.TagMismatchError{Envelope: tag, Decoded: msg.Tag(), Type: fmt.Sprintf("%T", msg)}
		}
		return fn(ctx, typed, mctx)
	}
	return nil
}

// Handles reports whether a handler is registered for tag.
func (d *Dispatcher) Handles(tag messagespkg.Tag) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[tag]
	return ok
}

// Tags lists the handled tags in ascending order.
func (d *Dispatcher) Tags() []messagespkg.Tag {
	d.mu.RLock()
	tags := make([]messagespkg.Tag, 0, len(d.routes))
	for tag := range d.routes {
		tags = append(tags, tag)
	}
	d.mu.RUnlock()
	slices.Sort(tags)
	return tags
}

// Dispatch runs the handler registered for msg's tag. handled is false when
// no handler exists for the tag.
func (d *Dispatcher) Dispatch(ctx context.Context, msg messagespkg.Message, mctx MessageContext) (replies []messagespkg.Message, handled bool, err error) {
	d.mu.RLock()
	r, ok := d.routes[msg.Tag()]
	d.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	replies, err = r(ctx, msg, mctx)
	return replies, true, err
}

// Options tunes the Watermill handler built by BuildHandler.
type Options struct {
	Logger loggingpkg.ServiceLogger
	// SkipUnknownTags acks envelopes whose tag is not in the registry instead
	// of returning the UnknownTagError.
	SkipUnknownTags bool
	Observer        Observer
}

// BuildHandler converts the dispatcher into a Watermill handler. Known tags
// without a handler are acked and logged at debug level.
func BuildHandler(d *Dispatcher, opts Options) (message.HandlerFunc, error) {
	if d == nil {
		return nil, errspkg.ErrDispatcherRequired
	}
	logger := opts.Logger
	if logger == nil {
		logger = loggingpkg.NewDiscardServiceLogger()
	}
	observer := opts.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	registry := d.codec.Registry()

	return func(msg *message.Message) ([]*message.Message, error) {
		decoded, ok := DecodedFromContext(msg.Context())
		if !ok {
			var err error
			decoded, err = d.codec.Decode(msg.Payload)
			if err != nil {
				kind := messagespkg.ErrorKind(err)
				observer.EnvelopeFailed(kind)
				if opts.SkipUnknownTags && errors.Is(err, errspkg.ErrUnknownTag) {
					logger.Info("Skipping envelope with unknown tag", envelopeFields(msg, kind))
					return nil, nil
				}
				return nil, err
			}
			observer.EnvelopeDecoded(registry.Name(decoded.Tag()))
		}

		tag := decoded.Tag()
		mctx := MessageContext{
			UUID:     msg.UUID,
			Tag:      tag,
			Name:     registry.Name(tag),
			Metadata: metadatapkg.FromWatermill(msg.Metadata),
			Logger:   logger.With(loggingpkg.EnvelopeFields(tag.String(), registry.Name(tag), "")),
		}

		replies, handled, err := d.Dispatch(msg.Context(), decoded, mctx)
		if err != nil {
			return nil, err
		}
		if !handled {
			logger.Debug("No handler for envelope", loggingpkg.EnvelopeFields(tag.String(), mctx.Name, ""))
			return nil, nil
		}
		return encodeReplies(d.codec, replies, msg.Metadata, observer)
	}, nil
}

func encodeReplies(codec *messagespkg.Codec, replies []messagespkg.Message, incoming message.Metadata, observer Observer) ([]*message.Message, error) {
	if len(replies) == 0 {
		return nil, nil
	}

	md := replyMetadata(incoming)
	out := make([]*message.Message, 0, len(replies))
	for _, reply := range replies {
		wm, err := NewEnvelopeMessage(codec, reply, md)
		if err != nil {
			observer.EnvelopeFailed(messagespkg.ErrorKind(err))
			return nil, fmt.Errorf("encode reply: %w", err)
		}
		observer.EnvelopeEncoded(wm.Metadata.Get(metadatapkg.KeyMessage))
		out = append(out, wm)
	}
	return out, nil
}

func envelopeFields(msg *message.Message, kind string) loggingpkg.LogFields {
	fields := loggingpkg.LogFields{loggingpkg.FieldUUID: msg.UUID}
	if tag, err := messagespkg.PeekTag(msg.Payload); err == nil {
		fields[loggingpkg.FieldTag] = tag.String()
	}
	if kind != "" {
		fields[loggingpkg.FieldErrorKind] = kind
	}
	return fields
}

func variantTag[T messagespkg.Message]() (messagespkg.Tag, error) {
	typ := reflect.TypeFor[T]()
	switch typ.Kind() {
	case reflect.Interface:
		return 0, fmt.Errorf("matchwire: handler type %s must be a concrete variant", typ)
	case reflect.Pointer:
		return reflect.New(typ.Elem()).Interface().(messagespkg.Message).Tag(), nil
	default:
		var zero T
		return zero.Tag(), nil
	}
}

func asVariant[T messagespkg.Message](msg messagespkg.Message) (T, bool) {
	if typed, ok := msg.(T); ok {
		return typed, true
	}
	if rv := reflect.ValueOf(msg); rv.Kind() == reflect.Pointer && !rv.IsNil() {
		if typed, ok := rv.Elem().Interface().(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}
