package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigbag/bpnp/internal/frame"
	"github.com/bigbag/bpnp/internal/link"
	"github.com/bigbag/bpnp/internal/protocol"
)

// NewRegistry creates a Prometheus registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the metrics HTTP handler for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Serve exposes reg on addr at path until ctx is done.
func Serve(ctx context.Context, addr, path string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle(path, Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// LinkMetrics counts link traffic. It implements link.Observer.
type LinkMetrics struct {
	FramesTotal        *prometheus.CounterVec // labels: result=ok|too_short|checksum|too_long
	MessagesTotal      *prometheus.CounterVec // labels: type
	DecodeErrorsTotal  *prometheus.CounterVec // labels: reason
	BytesReceivedTotal prometheus.Counter
	FramesSentTotal    *prometheus.CounterVec // labels: type
	BytesSentTotal     prometheus.Counter
}

var _ link.Observer = (*LinkMetrics)(nil)

// NewLinkMetrics registers and returns link metrics.
func NewLinkMetrics(reg prometheus.Registerer) *LinkMetrics {
	m := &LinkMetrics{
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bpnp_frames_total",
			Help: "Received frames by framing result.",
		}, []string{"result"}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bpnp_messages_total",
			Help: "Decoded messages by type.",
		}, []string{"type"}),
		DecodeErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bpnp_decode_errors_total",
			Help: "Valid frames that failed to decode, by reason.",
		}, []string{"reason"}),
		BytesReceivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bpnp_bytes_received_total",
			Help: "Total bytes read from the link.",
		}),
		FramesSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bpnp_frames_sent_total",
			Help: "Frames written to the link by type.",
		}, []string{"type"}),
		BytesSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bpnp_bytes_sent_total",
			Help: "Total bytes written to the link.",
		}),
	}
	reg.MustRegister(m.FramesTotal, m.MessagesTotal, m.DecodeErrorsTotal, m.BytesReceivedTotal, m.FramesSentTotal, m.BytesSentTotal)
	return m
}

func (m *LinkMetrics) BytesReceived(n int) {
	m.BytesReceivedTotal.Add(float64(n))
}

func (m *LinkMetrics) FrameAccepted(*frame.Frame) {
	m.FramesTotal.WithLabelValues("ok").Inc()
}

func (m *LinkMetrics) FrameRejected(err error) {
	m.FramesTotal.WithLabelValues(link.Reason(err)).Inc()
}

func (m *LinkMetrics) MessageReceived(msg *protocol.Message) {
	m.MessagesTotal.WithLabelValues(msg.Type.Name).Inc()
}

func (m *LinkMetrics) DecodeFailed(_ *frame.Frame, err error) {
	m.DecodeErrorsTotal.WithLabelValues(link.Reason(err)).Inc()
}

func (m *LinkMetrics) FrameSent(name string, n int) {
	m.FramesSentTotal.WithLabelValues(name).Inc()
	m.BytesSentTotal.Add(float64(n))
}
