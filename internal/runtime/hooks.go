package runtime

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	loggingpkg "github.com/drblury/matchwire/internal/runtime/logging"
	messagespkg "github.com/drblury/matchwire/internal/runtime/messages"
)

// HandlerContext describes one envelope passing through a handler.
type HandlerContext struct {
	HandlerName string
	Topic       string
	MessageUUID string
	// Tag is zero when the payload is shorter than a tag.
	Tag         messagespkg.Tag
	Message     string
	Metadata    message.Metadata
	Context     context.Context
	StartedAt   time.Time
	// Duration is only set in OnDone and OnError.
	Duration    time.Duration
}

// HandlerHooks are optional callbacks around handler execution.
type HandlerHooks struct {
	OnStart func(ctx HandlerContext)
	OnDone  func(ctx HandlerContext)
	OnError func(ctx HandlerContext, err error)
}

// Merge returns hooks that call h first and then other.
func (h HandlerHooks) Merge(other HandlerHooks) HandlerHooks {
	return HandlerHooks{
		OnStart: chainHooks(h.OnStart, other.OnStart),
		OnDone:  chainHooks(h.OnDone, other.OnDone),
		OnError: chainErrorHooks(h.OnError, other.OnError),
	}
}

func chainHooks(a, b func(HandlerContext)) func(HandlerContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx HandlerContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(HandlerContext, error)) func(HandlerContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx HandlerContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// HandlerHooksMiddleware invokes hooks at the start and end of every handler call.
func HandlerHooksMiddleware(hooks HandlerHooks) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "handler_hooks",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			return handlerHooksMiddleware(s.codec.Registry(), hooks), nil
		},
	}
}

func handlerHooksMiddleware(registry *messagespkg.Registry, hooks HandlerHooks) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			ctx := msg.Context()
			hctx := HandlerContext{
				HandlerName: message.HandlerNameFromCtx(ctx),
				Topic:       message.SubscribeTopicFromCtx(ctx),
				MessageUUID: msg.UUID,
				Metadata:    msg.Metadata,
				Context:     ctx,
				StartedAt:   time.Now(),
			}
			if tag, err := messagespkg.PeekTag(msg.Payload); err == nil {
				hctx.Tag = tag
				hctx.Message = registry.Name(tag)
			}

			if hooks.OnStart != nil {
				hooks.OnStart(hctx)
			}

			msgs, err := h(msg)
			hctx.Duration = time.Since(hctx.StartedAt)

			if err != nil {
				if hooks.OnError != nil {
					hooks.OnError(hctx, err)
				}
			} else if hooks.OnDone != nil {
				hooks.OnDone(hctx)
			}
			return msgs, err
		}
	}
}

// LoggingHooks logs handler lifecycle events at debug level and failures at error level.
func LoggingHooks(logger loggingpkg.ServiceLogger) HandlerHooks {
	fields := func(ctx HandlerContext) loggingpkg.LogFields {
		f := loggingpkg.EnvelopeFields(ctx.Tag.String(), ctx.Message, "")
		f["handler"] = ctx.HandlerName
		f[loggingpkg.FieldTopic] = ctx.Topic
		f[loggingpkg.FieldUUID] = ctx.MessageUUID
		return f
	}
	return HandlerHooks{
		OnStart: func(ctx HandlerContext) {
			logger.Debug("Envelope handling started", fields(ctx))
		},
		OnDone: func(ctx HandlerContext) {
			f := fields(ctx)
			f["duration_ms"] = ctx.Duration.Milliseconds()
			logger.Debug("Envelope handled", f)
		},
		OnError: func(ctx HandlerContext, err error) {
			f := fields(ctx)
			f["duration_ms"] = ctx.Duration.Milliseconds()
			if kind := messagespkg.ErrorKind(err); kind != "" {
				f[loggingpkg.FieldErrorKind] = kind
			}
			logger.Error("Envelope handling failed", err, f)
		},
	}
}
