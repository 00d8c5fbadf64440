package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/bigbag/bpnp/internal/config"
	"github.com/bigbag/bpnp/internal/link"
	"github.com/bigbag/bpnp/internal/logging"
	"github.com/bigbag/bpnp/internal/metrics"
	"github.com/bigbag/bpnp/internal/protocol"
	"github.com/bigbag/bpnp/internal/serial"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFlag   string
	portFlag     string
	baudFlag     int
	senderFlag   string
	overlayFlag  string
	logLevelFlag string

	countFlag  int
	rateFlag   float64
	windowFlag time.Duration
	probeFlag  bool
	firstFlag  bool
	printFlag  bool
)

// app holds what every command needs once flags and config are resolved.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	codec *protocol.Codec
}

var current app

func main() {
	rootCmd := &cobra.Command{
		Use:   "bpnp",
		Short: "Talk the bpnp serial protocol",
		Long: `bpnp encodes, decodes and exchanges framed binary messages between an
operator console and robot controllers over a serial link.

Frames are [0x10][type][sender][payload][crc8] 0x10 0x03 with every 0x10
inside the frame doubled on the wire.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFlag, "config", "c", "", "Config file (default ./bpnp.{yaml,toml,json})")
	pf.StringVarP(&portFlag, "port", "p", "", "Serial port")
	pf.IntVarP(&baudFlag, "baud", "b", protocol.DefaultBaudRate, "Baud rate")
	pf.StringVarP(&senderFlag, "sender", "s", protocol.DefaultSender, "Sender role for outgoing messages")
	pf.StringVar(&overlayFlag, "types", "", "TOML file with extra message types and senders")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level (trace, debug, info, warn, error, disabled)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available serial ports",
		RunE:  runList,
	}

	typesCmd := &cobra.Command{
		Use:   "types",
		Short: "List registered message types",
		RunE:  runTypes,
	}

	encodeCmd := &cobra.Command{
		Use:   "encode <TYPE> [values...]",
		Short: "Print the wire frame of a message as hex",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runEncode,
	}

	decodeCmd := &cobra.Command{
		Use:   "decode <hex>...",
		Short: "Decode hex bytes into messages",
		Long: `Decode feeds hex bytes through the frame scanner and prints every
message and rejection. Bytes may be separated by spaces, commas or
colons and may carry a 0x prefix.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDecode,
	}

	replayCmd := &cobra.Command{
		Use:   "replay <capture.bin>",
		Short: "Decode a raw capture file",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplay,
	}
	replayCmd.Flags().BoolVar(&printFlag, "print", false, "Print every message")

	listenCmd := &cobra.Command{
		Use:   "listen",
		Short: "Print messages received on the serial port",
		RunE:  runListen,
	}

	sendCmd := &cobra.Command{
		Use:   "send <TYPE> [values...]",
		Short: "Send a message on the serial port",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSend,
	}
	sendCmd.Flags().IntVarP(&countFlag, "count", "n", 1, "Number of times to send")
	sendCmd.Flags().Float64Var(&rateFlag, "rate", 0, "Frames per second (0 = link.rate from config, unpaced if unset)")

	consoleCmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive operator console",
		RunE:  runConsole,
	}

	detectCmd := &cobra.Command{
		Use:   "detect",
		Short: "Find serial ports with bpnp traffic",
		RunE:  runDetect,
	}
	detectCmd.Flags().DurationVarP(&windowFlag, "window", "w", 2*time.Second, "Listen time per port")
	detectCmd.Flags().BoolVar(&probeFlag, "probe", false, "Send WHU before listening")
	detectCmd.Flags().BoolVar(&firstFlag, "first", false, "Stop at the first port with traffic")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bpnp %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	rootCmd.AddCommand(listCmd, typesCmd, encodeCmd, decodeCmd, replayCmd, listenCmd,
		sendCmd, consoleCmd, detectCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads config, applies flag overrides and builds the logger and codec.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Serial.Port = portFlag
	}
	if flags.Changed("baud") {
		cfg.Serial.Baud = baudFlag
	}
	if flags.Changed("sender") {
		cfg.Link.Sender = senderFlag
	}
	if flags.Changed("types") {
		cfg.Registry.Overlay = overlayFlag
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevelFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}

	reg, err := protocol.DefaultRegistry()
	if err != nil {
		return err
	}
	if cfg.Registry.Overlay != "" {
		overlay, err := protocol.LoadOverlay(cfg.Registry.Overlay)
		if err != nil {
			return err
		}
		if reg, err = reg.Extend(overlay); err != nil {
			return fmt.Errorf("registry overlay %s: %w", cfg.Registry.Overlay, err)
		}
		log.Debug().Str("file", cfg.Registry.Overlay).Int("types", len(reg.Types())).Msg("registry overlay loaded")
	}

	current = app{cfg: cfg, log: log, codec: protocol.NewCodec(reg)}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openLink opens the configured serial port and wraps it in a link.
func openLink(ctx context.Context, opts ...link.Option) (*link.Link, *serial.Port, error) {
	cfg := current.cfg
	if cfg.Serial.Port == "" {
		return nil, nil, fmt.Errorf("no serial port given (use --port or serial.port)")
	}

	port, err := serial.Open(cfg.Serial.Port, cfg.Serial.Baud, cfg.Serial.ReadTimeout)
	if err != nil {
		return nil, nil, err
	}
	current.log.Info().Str("port", port.PortName()).Int("baud", port.BaudRate()).Msg("port opened")

	opts = append([]link.Option{link.WithLogger(current.log)}, opts...)
	if cfg.Metrics.Enable {
		reg := metrics.NewRegistry()
		opts = append(opts, link.WithObserver(metrics.NewLinkMetrics(reg)))
		go func() {
			current.log.Info().Str("addr", cfg.Metrics.Addr).Str("path", cfg.Metrics.Path).Msg("serving metrics")
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, cfg.Metrics.Path, reg); err != nil {
				current.log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}
	if cfg.Link.Rate > 0 {
		opts = append(opts, link.WithRateLimit(rate.Limit(cfg.Link.Rate), cfg.Link.Burst))
	}

	return link.New(port, current.codec, opts...), port, nil
}
