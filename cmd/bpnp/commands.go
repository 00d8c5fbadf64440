package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/bigbag/bpnp/internal/console"
	"github.com/bigbag/bpnp/internal/detect"
	"github.com/bigbag/bpnp/internal/link"
	"github.com/bigbag/bpnp/internal/protocol"
	"github.com/bigbag/bpnp/internal/serial"
)

func runList(cmd *cobra.Command, args []string) error {
	ports, err := serial.ListPortDetails()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	fmt.Println("Available serial ports:")
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}

	return nil
}

func runTypes(cmd *cobra.Command, args []string) error {
	console.WriteTypes(os.Stdout, current.codec.Registry())
	return nil
}

func runEncode(cmd *cobra.Command, args []string) error {
	wire, err := encodeArgs(current.codec, current.cfg.Link.Sender, args)
	if err != nil {
		return err
	}
	fmt.Println(formatHex(wire))
	return nil
}

// encodeArgs encodes "TYPE values..." as given on the command line.
func encodeArgs(codec *protocol.Codec, sender string, args []string) ([]byte, error) {
	name := strings.ToUpper(args[0])
	values, err := codec.ParseArgs(name, args[1:])
	if err != nil {
		return nil, err
	}
	return codec.Encode(sender, name, values)
}

func runDecode(cmd *cobra.Command, args []string) error {
	data, err := parseHex(strings.Join(args, " "))
	if err != nil {
		return err
	}

	l := link.New(nil, current.codec, link.WithLogger(current.log))
	l.Consume(context.Background(), data, printHandler(os.Stdout))

	st := l.Stats()
	if st.Messages == 0 && st.FramesRejected == 0 && st.DecodeErrors == 0 {
		fmt.Println("no complete frame")
	}
	return nil
}

// printHandler prints messages and rejections to w.
func printHandler(w io.Writer) link.Handler {
	return link.HandlerFuncs{
		Message: func(_ context.Context, msg *protocol.Message) {
			fmt.Fprintln(w, msg)
		},
		Reject: func(_ context.Context, err error) {
			fmt.Fprintf(w, "rejected: %v\n", err)
		},
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions64(info.Size(),
		progressbar.OptionSetDescription("Replaying"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100),
		progressbar.OptionClearOnFinish(),
	)
	reader := progressbar.NewReader(f, bar)
	rw := struct {
		io.Reader
		io.Writer
	}{&reader, io.Discard}

	counts := make(map[string]int)
	rejects := make(map[string]int)
	h := link.HandlerFuncs{
		Message: func(_ context.Context, msg *protocol.Message) {
			counts[msg.Type.Name]++
			if printFlag {
				bar.Clear()
				fmt.Println(msg)
			}
		},
		Reject: func(_ context.Context, err error) {
			rejects[link.Reason(err)]++
			current.log.Debug().Err(err).Msg("replay reject")
		},
	}

	ctx, cancel := signalContext()
	defer cancel()

	l := link.New(rw, current.codec, link.WithLogger(current.log))
	if err := l.Run(ctx, h); err != nil {
		return err
	}
	bar.Finish()

	st := l.Stats()
	fmt.Printf("%s: %d bytes, %d frames, %d messages\n", path, st.BytesReceived, st.FramesAccepted, st.Messages)
	printCounts("messages", counts)
	printCounts("rejected", rejects)
	return nil
}

func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("%s:\n", title)
	for _, k := range keys {
		fmt.Printf("  %-16s %d\n", k, counts[k])
	}
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	l, port, err := openLink(ctx)
	if err != nil {
		return err
	}
	defer port.Close()

	log := current.log
	h := link.HandlerFuncs{
		Message: func(_ context.Context, msg *protocol.Message) {
			fmt.Println(msg)
		},
		Reject: func(_ context.Context, err error) {
			log.Warn().Err(err).Str("reason", link.Reason(err)).Msg("rejected")
		},
	}

	err = l.Run(ctx, h)
	st := l.Stats()
	log.Info().
		Uint64("bytes", st.BytesReceived).
		Uint64("messages", st.Messages).
		Uint64("rejected", st.FramesRejected+st.DecodeErrors).
		Msg("listen stopped")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("rate") {
		current.cfg.Link.Rate = rateFlag
	}

	name := strings.ToUpper(args[0])
	values, err := current.codec.ParseArgs(name, args[1:])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	l, port, err := openLink(ctx)
	if err != nil {
		return err
	}
	defer port.Close()

	for i := 0; i < countFlag; i++ {
		if err := l.Send(ctx, current.cfg.Link.Sender, name, values); err != nil {
			return err
		}
	}

	st := l.Stats()
	fmt.Printf("Sent %d %s frame(s), %d bytes\n", st.FramesSent, name, st.BytesSent)
	return nil
}

func runConsole(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	l, port, err := openLink(ctx)
	if err != nil {
		return err
	}
	defer port.Close()

	return console.New(l, current.cfg.Link.Sender).Run(ctx)
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg := detect.Config{
		BaudRate: current.cfg.Serial.Baud,
		Window:   windowFlag,
		Probe:    probeFlag,
		Sender:   current.cfg.Link.Sender,
		Log:      current.log,
	}

	if current.cfg.Serial.Port != "" {
		result, err := detect.DetectOnPort(ctx, current.cfg.Serial.Port, current.codec, cfg)
		if err != nil {
			return fmt.Errorf("failed to probe %s: %w", current.cfg.Serial.Port, err)
		}
		printDetectResult(result)
		return nil
	}

	fmt.Println("Scanning for bpnp traffic...")
	if firstFlag {
		result, err := detect.DetectDevice(ctx, current.codec, cfg)
		if err != nil {
			return err
		}
		printDetectResult(result)
		return nil
	}

	results, err := detect.ListTalkers(ctx, current.codec, cfg)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No bpnp talkers found")
		return nil
	}

	fmt.Printf("Found %d port(s):\n\n", len(results))
	for i := range results {
		printDetectResult(&results[i])
		fmt.Println()
	}

	return nil
}

func printDetectResult(r *detect.Result) {
	fmt.Printf("  Port:     %s\n", r.Port)
	fmt.Printf("  Messages: %d (%d rejected)\n", r.Messages, r.Rejects)
	if len(r.Senders) > 0 {
		fmt.Printf("  Senders:  %s\n", strings.Join(r.Senders, ", "))
	}
	if len(r.Types) > 0 {
		fmt.Printf("  Types:    %s\n", strings.Join(r.Types, ", "))
	}
}
