// Package stream carries envelopes over a single byte-stream connection to a
// peer that speaks raw envelopes, such as the game controller or the launcher.
//
// Each envelope is framed with a 4-byte little-endian length prefix. Nothing
// else travels on the wire: message metadata is dropped on publish, and every
// inbound frame gets a fresh ULID. A connection serves one subscription at a
// time and ignores topics, since the peer on the other end is the only
// destination.
package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	idspkg "github.com/drblury/matchwire/internal/runtime/ids"
	"github.com/drblury/matchwire/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "stream"

// MaxFrameSize bounds a single envelope.
const MaxFrameSize = 1 << 20

const headerSize = 4

var (
	ErrFrameTooLarge     = errors.New("stream: frame exceeds 1 MiB")
	ErrClosed            = errors.New("stream: connection closed")
	ErrAlreadySubscribed = errors.New("stream: connection already has a subscriber")
	ErrAddressRequired   = errors.New("stream: address is required")
)

// DialFunc opens the connection when the relay dials its peer.
var DialFunc = func(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// ListenFunc opens the listener when the relay waits for its peer.
var ListenFunc = func(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", addr)
}

func init() {
	Register()
}

// Register registers the stream transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.StreamCapabilities)
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.StreamCapabilities
}

// Build dials StreamAddress, or accepts exactly one peer on it when
// StreamListen is set. Accepting blocks until a peer connects or ctx ends.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	addr := cfg.GetStreamAddress()
	if addr == "" {
		return transport.Transport{}, ErrAddressRequired
	}

	var (
		conn net.Conn
		err  error
	)
	if cfg.GetStreamListen() {
		conn, err = acceptOne(ctx, addr, logger)
	} else {
		conn, err = DialFunc(ctx, addr)
	}
	if err != nil {
		return transport.Transport{}, fmt.Errorf("stream %s: %w", addr, err)
	}

	logger.Info("Stream peer connected", watermill.LogFields{
		"local":  conn.LocalAddr().String(),
		"remote": conn.RemoteAddr().String(),
	})

	c := NewConn(conn, logger)
	return transport.Transport{
		Publisher:  c,
		Subscriber: c,
	}, nil
}

func acceptOne(ctx context.Context, addr string, logger watermill.LoggerAdapter) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ln, err := ListenFunc(ctx, addr)
	if err != nil {
		return nil, err
	}
	defer ln.Close()

	logger.Info("Waiting for stream peer", watermill.LogFields{"address": ln.Addr().String()})

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	conn, err := ln.Accept()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return conn, nil
}

// WriteFrame writes envelope behind its length prefix in a single Write.
func WriteFrame(w io.Writer, envelope []byte) error {
	if len(envelope) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(envelope))
	}
	frame := make([]byte, headerSize+len(envelope))
	binary.LittleEndian.PutUint32(frame, uint32(len(envelope)))
	copy(frame[headerSize:], envelope)
	_, err := w.Write(frame)
	return err
}

// ReadFrame reads one length-prefixed envelope. It returns io.EOF only when
// the stream ends cleanly between frames.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	envelope := make([]byte, size)
	if _, err := io.ReadFull(r, envelope); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return envelope, nil
}

// Conn is both the publisher and the subscriber of one peer connection.
type Conn struct {
	rw     io.ReadWriteCloser
	logger watermill.LoggerAdapter

	writeMu    sync.Mutex
	subscribed atomic.Bool

	closing   chan struct{}
	closeOnce sync.Once
	closeErr  error
	readers   sync.WaitGroup
}

// NewConn takes ownership of rw.
func NewConn(rw io.ReadWriteCloser, logger watermill.LoggerAdapter) *Conn {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Conn{
		rw:      rw,
		logger:  logger,
		closing: make(chan struct{}),
	}
}

// Publish writes the payload of every message as one frame, in order.
func (c *Conn) Publish(topic string, messages ...*message.Message) error {
	if c.isClosed() {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	for _, msg := range messages {
		if err := WriteFrame(c.rw, msg.Payload); err != nil {
			return fmt.Errorf("write envelope %s: %w", msg.UUID, err)
		}
	}
	return nil
}

// Subscribe streams inbound frames until the peer disconnects, ctx ends or
// the connection is closed. A nacked envelope is logged and dropped.
func (c *Conn) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	if !c.subscribed.CompareAndSwap(false, true) {
		return nil, ErrAlreadySubscribed
	}

	// Clear a deadline left behind by a subscription cancelled between frames.
	if d, ok := c.rw.(interface{ SetReadDeadline(time.Time) error }); ok {
		_ = d.SetReadDeadline(time.Time{})
	}

	out := make(chan *message.Message)
	c.readers.Add(1)
	go c.readLoop(ctx, topic, out)
	return out, nil
}

func (c *Conn) readLoop(ctx context.Context, topic string, out chan<- *message.Message) {
	defer c.readers.Done()
	defer c.subscribed.Store(false)
	defer close(out)

	fields := watermill.LogFields{"topic": topic}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.interruptRead()
		case <-done:
		}
	}()

	src := &countingReader{r: c.rw}
	for {
		src.n = 0
		envelope, err := ReadFrame(src)
		if err != nil {
			if src.n > 0 {
				// The next read would start inside this frame.
				c.logger.Info("Stream read stopped mid-frame, closing connection", fields.Add(watermill.LogFields{"bytes_read": src.n}))
				c.shutdown()
			}
			switch {
			case ctx.Err() != nil, c.isClosed(), errors.Is(err, io.EOF):
				c.logger.Debug("Stream subscription ended", fields)
			default:
				c.logger.Error("Failed to read envelope frame", err, fields)
			}
			return
		}

		msg := message.NewMessage(idspkg.CreateULID(), envelope)
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		case <-c.closing:
			return
		}

		select {
		case <-msg.Acked():
		case <-msg.Nacked():
			c.logger.Info("Envelope nacked, the stream cannot redeliver it", fields.Add(watermill.LogFields{"message_uuid": msg.UUID}))
		case <-ctx.Done():
			return
		case <-c.closing:
			return
		}
	}
}

// interruptRead unblocks a pending Read. Connections without deadlines are
// closed. A read interrupted inside a frame closes the connection in readLoop.
func (c *Conn) interruptRead() {
	if d, ok := c.rw.(interface{ SetReadDeadline(time.Time) error }); ok {
		if err := d.SetReadDeadline(time.Now()); err == nil {
			return
		}
	}
	_ = c.Close()
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}

// Close closes the connection and waits for the read loop to stop. It is
// safe to call from both the publisher and the subscriber side.
func (c *Conn) Close() error {
	c.shutdown()
	c.readers.Wait()
	return c.closeErr
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.closing)
		c.closeErr = c.rw.Close()
	})
}

type countingReader struct {
	r io.Reader
	n int
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += n
	return n, err
}
