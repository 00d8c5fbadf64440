package detect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/bigbag/bpnp/internal/link"
	"github.com/bigbag/bpnp/internal/protocol"
	"github.com/bigbag/bpnp/internal/serial"
)

// DefaultWindow is how long a port is listened to.
const DefaultWindow = 2 * time.Second

// Errors returned by DetectDevice.
var (
	ErrNoPorts  = errors.New("detect: no serial ports found")
	ErrNoTalker = errors.New("detect: no bpnp talker found")
)

// Config controls a probe.
type Config struct {
	BaudRate int
	Window   time.Duration
	// Probe sends a WHU message as Sender before listening.
	Probe  bool
	Sender string
	Log    zerolog.Logger
}

func (c Config) window() time.Duration {
	if c.Window <= 0 {
		return DefaultWindow
	}
	return c.Window
}

// Result describes traffic seen on one port.
type Result struct {
	Port     string
	Messages int
	Rejects  int
	Senders  []string
	Types    []string
}

// Talking reports whether at least one valid message was seen.
func (r *Result) Talking() bool {
	return r.Messages > 0
}

// DetectDevice returns the first port on which a talker is heard.
func DetectDevice(ctx context.Context, codec *protocol.Codec, cfg Config) (*Result, error) {
	ports, err := serial.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}
	return firstTalker(ctx, ports, portProber(codec, cfg))
}

// DetectOnPort listens on a specific port for one window.
func DetectOnPort(ctx context.Context, portName string, codec *protocol.Codec, cfg Config) (*Result, error) {
	port, err := serial.Open(portName, cfg.BaudRate, 0)
	if err != nil {
		return nil, err
	}
	defer port.Close()

	if err := port.Flush(); err != nil {
		cfg.Log.Debug().Err(err).Str("port", portName).Msg("flush failed")
	}

	result, err := Listen(ctx, port, codec, cfg)
	if err != nil {
		return nil, err
	}
	result.Port = portName
	return result, nil
}

// ListTalkers probes every port and returns those on which messages were heard.
func ListTalkers(ctx context.Context, codec *protocol.Codec, cfg Config) ([]Result, error) {
	ports, err := serial.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}
	return talkers(ctx, ports, portProber(codec, cfg), cfg.Log), nil
}

// prober listens on one named port.
type prober func(ctx context.Context, portName string) (*Result, error)

func portProber(codec *protocol.Codec, cfg Config) prober {
	return func(ctx context.Context, portName string) (*Result, error) {
		return DetectOnPort(ctx, portName, codec, cfg)
	}
}

func firstTalker(ctx context.Context, ports []string, probe prober) (*Result, error) {
	if len(ports) == 0 {
		return nil, ErrNoPorts
	}

	var lastErr error
	for _, portName := range ports {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := probe(ctx, portName)
		if err != nil {
			lastErr = err
			continue
		}
		if result.Talking() {
			return result, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w (last error: %w)", ErrNoTalker, lastErr)
	}
	return nil, ErrNoTalker
}

func talkers(ctx context.Context, ports []string, probe prober, log zerolog.Logger) []Result {
	var results []Result
	for _, portName := range ports {
		result, err := probe(ctx, portName)
		if err != nil {
			log.Debug().Err(err).Str("port", portName).Msg("probe failed")
			continue
		}
		if result.Talking() {
			results = append(results, *result)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return results
}

// Listen runs a link over rw for one window and summarizes what it heard.
func Listen(ctx context.Context, rw io.ReadWriter, codec *protocol.Codec, cfg Config) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.window())
	defer cancel()

	l := link.New(rw, codec, link.WithLogger(cfg.Log))

	if cfg.Probe {
		sender := cfg.Sender
		if sender == "" {
			sender = protocol.DefaultSender
		}
		if err := l.Send(ctx, sender, "WHU", nil); err != nil {
			return nil, fmt.Errorf("probe: %w", err)
		}
	}

	senders := make(map[string]bool)
	types := make(map[string]bool)
	result := &Result{}
	h := link.HandlerFuncs{
		Message: func(_ context.Context, msg *protocol.Message) {
			result.Messages++
			senders[msg.SenderLabel()] = true
			types[msg.Type.Name] = true
		},
		Reject: func(context.Context, error) {
			result.Rejects++
		},
	}

	err := l.Run(ctx, h)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	result.Senders = sortedKeys(senders)
	result.Types = sortedKeys(types)
	return result, nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
