// Package link runs the bpnp protocol over a byte stream such as a serial port.
package link

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/bigbag/bpnp/internal/frame"
	"github.com/bigbag/bpnp/internal/protocol"
)

const readBufferSize = 256

// Handler receives the outcomes of Run.
type Handler interface {
	HandleMessage(ctx context.Context, msg *protocol.Message)
	// HandleReject receives framing errors from the scanner and decode
	// errors from the codec. Neither stops Run.
	HandleReject(ctx context.Context, err error)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Message func(ctx context.Context, msg *protocol.Message)
	Reject  func(ctx context.Context, err error)
}

func (h HandlerFuncs) HandleMessage(ctx context.Context, msg *protocol.Message) {
	if h.Message != nil {
		h.Message(ctx, msg)
	}
}

func (h HandlerFuncs) HandleReject(ctx context.Context, err error) {
	if h.Reject != nil {
		h.Reject(ctx, err)
	}
}

// Observer is notified of link activity, e.g. to export metrics.
type Observer interface {
	BytesReceived(n int)
	FrameAccepted(f *frame.Frame)
	FrameRejected(err error)
	MessageReceived(msg *protocol.Message)
	DecodeFailed(f *frame.Frame, err error)
	FrameSent(name string, n int)
}

// Stats counts link activity since creation.
type Stats struct {
	BytesReceived  uint64
	FramesAccepted uint64
	FramesRejected uint64
	Messages       uint64
	DecodeErrors   uint64
	FramesSent     uint64
	BytesSent      uint64
}

type counters struct {
	bytesReceived  atomic.Uint64
	framesAccepted atomic.Uint64
	framesRejected atomic.Uint64
	messages       atomic.Uint64
	decodeErrors   atomic.Uint64
	framesSent     atomic.Uint64
	bytesSent      atomic.Uint64
}

// Option configures a Link.
type Option func(*Link)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Link) {
		l.log = log
	}
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(l *Link) {
		l.obs = o
	}
}

// WithRateLimit paces Send to r frames per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(l *Link) {
		if burst < 1 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(r, burst)
	}
}

// WithScannerOptions passes options to the receive scanner.
func WithScannerOptions(opts ...frame.Option) Option {
	return func(l *Link) {
		l.scanOpts = append(l.scanOpts, opts...)
	}
}

// Link sends and receives bpnp messages over rw. Send may be called
// concurrently; Run must have a single caller.
type Link struct {
	rw       io.ReadWriter
	codec    *protocol.Codec
	scanner  *frame.Scanner
	scanOpts []frame.Option
	log      zerolog.Logger
	obs      Observer
	limiter  *rate.Limiter

	writeMu sync.Mutex
	stats   counters
}

// New creates a Link over rw using codec for both directions.
func New(rw io.ReadWriter, codec *protocol.Codec, opts ...Option) *Link {
	l := &Link{
		rw:    rw,
		codec: codec,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.scanner = frame.NewScanner(codec.Registry(), l.scanOpts...)
	return l
}

// Codec returns the codec used by the link.
func (l *Link) Codec() *protocol.Codec {
	return l.codec
}

// Send encodes one message and writes its frame.
func (l *Link) Send(ctx context.Context, sender, name string, values []any) error {
	wire, err := l.codec.Encode(sender, name, values)
	if err != nil {
		return err
	}

	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	l.writeMu.Lock()
	n, err := l.rw.Write(wire)
	l.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}

	l.stats.framesSent.Add(1)
	l.stats.bytesSent.Add(uint64(n))
	if l.obs != nil {
		l.obs.FrameSent(name, n)
	}
	l.log.Debug().
		Str("type", name).
		Str("sender", sender).
		Str("bytes", hex.EncodeToString(wire)).
		Msg("frame sent")
	return nil
}

// Run reads from the link until ctx is done, the reader reports io.EOF or a
// read fails. Reads that time out are retried. Reaching io.EOF returns nil.
func (l *Link) Run(ctx context.Context, h Handler) error {
	buf := make([]byte, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := l.rw.Read(buf)
		if n > 0 {
			l.Consume(ctx, buf[:n], h)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if isTimeout(err) {
				continue
			}
			return fmt.Errorf("link read: %w", err)
		}
	}
}

// Consume feeds received bytes to the scanner and dispatches the outcomes.
func (l *Link) Consume(ctx context.Context, p []byte, h Handler) {
	l.stats.bytesReceived.Add(uint64(len(p)))
	if l.obs != nil {
		l.obs.BytesReceived(len(p))
	}

	for _, b := range p {
		f, err := l.scanner.Feed(b)
		switch {
		case err != nil:
			l.reject(ctx, err, h)
		case f != nil:
			l.dispatch(ctx, f, h)
		}
	}
}

func (l *Link) reject(ctx context.Context, err error, h Handler) {
	l.stats.framesRejected.Add(1)
	if l.obs != nil {
		l.obs.FrameRejected(err)
	}
	l.log.Debug().Err(err).Msg("frame rejected")
	h.HandleReject(ctx, err)
}

func (l *Link) dispatch(ctx context.Context, f *frame.Frame, h Handler) {
	l.stats.framesAccepted.Add(1)
	if l.obs != nil {
		l.obs.FrameAccepted(f)
	}

	msg, err := l.codec.Decode(f)
	if err != nil {
		l.stats.decodeErrors.Add(1)
		if l.obs != nil {
			l.obs.DecodeFailed(f, err)
		}
		l.log.Warn().
			Err(err).
			Str("type", f.Name).
			Str("bytes", hex.EncodeToString(f.Payload)).
			Msg("decode failed")
		h.HandleReject(ctx, err)
		return
	}

	l.stats.messages.Add(1)
	if l.obs != nil {
		l.obs.MessageReceived(msg)
	}
	l.log.Debug().
		Str("type", msg.Type.Name).
		Str("sender", msg.SenderLabel()).
		Msg("message received")
	h.HandleMessage(ctx, msg)
}

// Stats returns a snapshot of the link counters.
func (l *Link) Stats() Stats {
	return Stats{
		BytesReceived:  l.stats.bytesReceived.Load(),
		FramesAccepted: l.stats.framesAccepted.Load(),
		FramesRejected: l.stats.framesRejected.Load(),
		Messages:       l.stats.messages.Load(),
		DecodeErrors:   l.stats.decodeErrors.Load(),
		FramesSent:     l.stats.framesSent.Load(),
		BytesSent:      l.stats.bytesSent.Load(),
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// Reason classifies a rejection for logs and metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, frame.ErrFrameTooShort):
		return "too_short"
	case errors.Is(err, frame.ErrChecksumMismatch):
		return "checksum"
	case errors.Is(err, frame.ErrFrameTooLong):
		return "too_long"
	case errors.Is(err, protocol.ErrUndefinedPackType):
		return "undefined_type"
	case errors.Is(err, protocol.ErrLayoutLengthMismatch):
		return "length_mismatch"
	default:
		return "other"
	}
}
