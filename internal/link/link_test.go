package link

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/bigbag/bpnp/internal/frame"
	"github.com/bigbag/bpnp/internal/protocol"
)

var (
	audWire = []byte{0x10, 0x70, 0xA6, 0x6F, 0x6C, 0x10, 0x03}
	bleWire = []byte{0x10, 0x71, 0xB0, 0x01, 0x8E, 0x9F, 0x11, 0x13, 0x11, 0x00, 0xAC, 0x10, 0x03}
)

func newCodec(t *testing.T) *protocol.Codec {
	t.Helper()
	reg, err := protocol.DefaultRegistry()
	require.NoError(t, err)
	return protocol.NewCodec(reg)
}

type recorder struct {
	mu       sync.Mutex
	messages []*protocol.Message
	rejects  []error
}

func (r *recorder) HandleMessage(_ context.Context, msg *protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recorder) HandleReject(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejects = append(r.rejects, err)
}

func TestLink_Send(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, newCodec(t))

	require.NoError(t, l.Send(context.Background(), "OPERATOR", "AUD", []any{111}))
	assert.Equal(t, audWire, buf.Bytes())

	err := l.Send(context.Background(), "OPERATOR", "XYZ", nil)
	assert.ErrorIs(t, err, protocol.ErrUnknownMessageType)

	stats := l.Stats()
	assert.Equal(t, uint64(1), stats.FramesSent)
	assert.Equal(t, uint64(len(audWire)), stats.BytesSent)
}

func TestLink_Run(t *testing.T) {
	unknown := frame.Encode(frame.Seal([]byte{0x99, 0xA6, 0x01}))
	corrupt := append([]byte(nil), audWire...)
	corrupt[4] ^= 0x01

	var stream []byte
	stream = append(stream, 0x00, 0xFF)
	stream = append(stream, audWire...)
	stream = append(stream, corrupt...)
	stream = append(stream, unknown...)
	stream = append(stream, bleWire...)

	l := New(bytes.NewBuffer(stream), newCodec(t))
	rec := &recorder{}
	require.NoError(t, l.Run(context.Background(), rec))

	require.Len(t, rec.messages, 2)
	assert.Equal(t, "AUD", rec.messages[0].Type.Name)
	assert.Equal(t, []any{uint8(111)}, rec.messages[0].Fields)
	assert.Equal(t, "BLE", rec.messages[1].Type.Name)
	assert.Equal(t, "ROBOT", rec.messages[1].Sender)

	require.Len(t, rec.rejects, 2)
	assert.ErrorIs(t, rec.rejects[0], frame.ErrChecksumMismatch)
	assert.ErrorIs(t, rec.rejects[1], protocol.ErrUndefinedPackType)

	stats := l.Stats()
	assert.Equal(t, uint64(len(stream)), stats.BytesReceived)
	assert.Equal(t, uint64(3), stats.FramesAccepted)
	assert.Equal(t, uint64(1), stats.FramesRejected)
	assert.Equal(t, uint64(2), stats.Messages)
	assert.Equal(t, uint64(1), stats.DecodeErrors)
}

func TestLink_SendThenRun(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, newCodec(t))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.Send(context.Background(), "ROBOT", "LED", []any{i}))
		}(i)
	}
	wg.Wait()

	rec := &recorder{}
	require.NoError(t, l.Run(context.Background(), rec))
	assert.Len(t, rec.messages, 10)
	assert.Empty(t, rec.rejects)
}

func TestLink_RunCancelled(t *testing.T) {
	l := New(bytes.NewBuffer(audWire), newCodec(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Run(ctx, HandlerFuncs{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLink_RunReadError(t *testing.T) {
	boom := errors.New("boom")
	rw := struct {
		io.Reader
		io.Writer
	}{iotest.ErrReader(boom), io.Discard}

	err := New(rw, newCodec(t)).Run(context.Background(), HandlerFuncs{})
	assert.ErrorIs(t, err, boom)
}

type timeoutError struct{}

func (timeoutError) Error() string { return "i/o timeout" }
func (timeoutError) Timeout() bool { return true }

// flakyReader times out before each chunk.
type flakyReader struct {
	chunks  [][]byte
	timeout bool
}

func (r *flakyReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	r.timeout = !r.timeout
	if r.timeout {
		return 0, timeoutError{}
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestLink_RunRetriesTimeouts(t *testing.T) {
	rw := struct {
		io.Reader
		io.Writer
	}{&flakyReader{chunks: [][]byte{audWire[:3], audWire[3:], bleWire}}, io.Discard}

	var names []string
	h := HandlerFuncs{Message: func(_ context.Context, msg *protocol.Message) {
		names = append(names, msg.Type.Name)
	}}
	require.NoError(t, New(rw, newCodec(t)).Run(context.Background(), h))
	assert.Equal(t, []string{"AUD", "BLE"}, names)
}

func TestLink_RateLimit(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, newCodec(t), WithRateLimit(rate.Limit(1), 1))

	require.NoError(t, l.Send(context.Background(), "OPERATOR", "AUD", []any{1}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Send(ctx, "OPERATOR", "AUD", []any{2}))
	assert.Equal(t, uint64(1), l.Stats().FramesSent)
}

type recordingObserver struct {
	bytes    int
	accepted []string
	rejected []string
	messages []string
	failed   []string
	sent     []string
}

func (o *recordingObserver) BytesReceived(n int) { o.bytes += n }
func (o *recordingObserver) FrameAccepted(f *frame.Frame) { o.accepted = append(o.accepted, f.Name) }
func (o *recordingObserver) FrameRejected(err error) { o.rejected = append(o.rejected, Reason(err)) }
func (o *recordingObserver) FrameSent(name string, _ int) { o.sent = append(o.sent, name) }
func (o *recordingObserver) DecodeFailed(_ *frame.Frame, err error) {
	o.failed = append(o.failed, Reason(err))
}
func (o *recordingObserver) MessageReceived(msg *protocol.Message) {
	o.messages = append(o.messages, msg.Type.Name)
}

func TestLink_Observer(t *testing.T) {
	obs := &recordingObserver{}
	var buf bytes.Buffer
	l := New(&buf, newCodec(t), WithObserver(obs))

	require.NoError(t, l.Send(context.Background(), "OPERATOR", "AUD", []any{111}))
	buf.Write([]byte{0x10, 0x70, 0x10, 0x03})
	buf.Write(frame.Encode(frame.Seal([]byte{protocol.TypeUAV, 0xA6, 0x01})))

	require.NoError(t, l.Run(context.Background(), HandlerFuncs{}))

	assert.Equal(t, []string{"AUD"}, obs.sent)
	assert.Equal(t, []string{"AUD", "UAV"}, obs.accepted)
	assert.Equal(t, []string{"too_short"}, obs.rejected)
	assert.Equal(t, []string{"AUD"}, obs.messages)
	assert.Equal(t, []string{"length_mismatch"}, obs.failed)
	assert.Equal(t, len(audWire)+4+len(frame.Encode(frame.Seal([]byte{protocol.TypeUAV, 0xA6, 0x01}))), obs.bytes)
}

func TestReason(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{frame.ErrFrameTooShort, "too_short"},
		{frame.ErrChecksumMismatch, "checksum"},
		{frame.ErrFrameTooLong, "too_long"},
		{protocol.ErrUndefinedPackType, "undefined_type"},
		{protocol.ErrLayoutLengthMismatch, "length_mismatch"},
		{errors.New("x"), "other"},
	}

	for _, tc := range tests {
		if result := Reason(tc.err); result != tc.expected {
			t.Errorf("Reason(%v) = %q, want %q", tc.err, result, tc.expected)
		}
	}
}

func TestLink_ScannerOptions(t *testing.T) {
	var stream []byte
	stream = append(stream, bleWire...)
	stream = append(stream, audWire...)

	l := New(bytes.NewBuffer(stream), newCodec(t), WithScannerOptions(frame.WithMaxFrameLen(8)))
	rec := &recorder{}
	require.NoError(t, l.Run(context.Background(), rec))

	require.Len(t, rec.messages, 1)
	assert.Equal(t, "AUD", rec.messages[0].Type.Name)
	require.Len(t, rec.rejects, 1)
	assert.ErrorIs(t, rec.rejects[0], frame.ErrFrameTooLong)
}
