// Package matchwire implements the message protocol spoken between a login
// server, a game launcher and a game server, together with a relay service
// that carries it over Watermill transports.
//
// Every message is an envelope: a 2-byte little-endian tag followed by a JSON
// object with the variant's fields. The catalog of fifteen variants is fixed;
// tags are grouped by direction (0x1000 login to launcher, 0x2000 launcher to
// login, 0x3000 game to launcher, 0x4000 launcher to game). Encode and Decode
// work on single envelopes and never frame them; the transport keeps message
// boundaries.
//
// Decoding fails with one of three errors, all matchable with errors.Is:
// ErrUnknownTag, ErrMalformedPayload or ErrTagMismatch. A failed decode never
// affects later ones.
//
// # Relay
//
// Service hosts a Watermill router. Fill Config, create a Service, register a
// Dispatcher with typed handlers and call Start:
//
//	svc := matchwire.NewService(cfg, logger, ctx, matchwire.ServiceDependencies{})
//	d := matchwire.NewDispatcher(svc.Codec())
//	_ = matchwire.On(d, func(ctx context.Context, req *matchwire.Game2LauncherLoadoutRequest, mctx matchwire.MessageContext) ([]matchwire.Message, error) {
//		return []matchwire.Message{&matchwire.Launcher2GameLoadout{PlayerUniqueID: req.PlayerUniqueID}}, nil
//	})
//	_ = matchwire.RegisterDispatcher(svc, matchwire.DispatcherRegistration{
//		ConsumeTopic: svc.TopicFor(matchwire.TagGame2LauncherLoadoutRequest),
//		Dispatcher:   d,
//	})
//	_ = svc.Start(ctx)
//
// Replies are published to the topic of their own tag.
//
// # Transports
//
//   - channel: in-process Go channels
//   - stream: length-framed envelopes over TCP, for peers without a broker
//   - kafka, rabbitmq, nats, aws (SNS/SQS), http
//   - io: newline-delimited JSON records on files or stdio, for captures and replay
//
// The default middleware chain adds correlation ids, logging, envelope
// validation, tracing, Prometheus metrics, a poison queue for protocol errors,
// retry for everything else and panic recovery.
package matchwire
