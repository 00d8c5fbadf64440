// Package console provides an interactive operator shell over a link.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/abiosoft/ishell"

	"github.com/bigbag/bpnp/internal/link"
	"github.com/bigbag/bpnp/internal/protocol"
)

const consoleKey = "$console"

// Console is an ishell shell bound to a link.
type Console struct {
	Shell  *ishell.Shell
	Link   *link.Link
	Sender string
}

var commands = []*ishell.Cmd{
	&SendCmd,
	&SenderCmd,
	&TypesCmd,
	&StatsCmd,
}

// New creates a console sending as sender.
func New(l *link.Link, sender string) *Console {
	c := &Console{
		Shell:  ishell.New(),
		Link:   l,
		Sender: sender,
	}
	c.Shell.Set(consoleKey, c)
	c.setPrompt()
	for _, cmd := range commands {
		c.Shell.AddCmd(cmd)
	}
	return c
}

// SetOut redirects shell output.
func (c *Console) SetOut(w io.Writer) {
	c.Shell.SetOut(w)
}

func (c *Console) setPrompt() {
	c.Shell.SetPrompt(fmt.Sprintf("%s > ", c.Sender))
}

// ConsoleFrom gets the Console from an ishell context.
func ConsoleFrom(ctx *ishell.Context) *Console {
	return ctx.Get(consoleKey).(*Console)
}

// Run receives in the background, printing incoming messages, and runs the
// interactive shell until it exits or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- c.Link.Run(ctx, link.HandlerFuncs{
			Message: func(_ context.Context, msg *protocol.Message) {
				c.Shell.Println("<", msg.String())
			},
			Reject: func(_ context.Context, err error) {
				c.Shell.Println("! rejected:", err)
			},
		})
	}()

	go func() {
		<-ctx.Done()
		c.Shell.Close()
	}()

	c.Shell.Run()
	cancel()

	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

var (
	// SendCmd encodes and sends one message.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "TYPE [VALUES...]",
		Func: func(ctx *ishell.Context) {
			if len(ctx.Args) == 0 {
				ctx.Err(fmt.Errorf("usage: send TYPE [VALUES...]"))
				return
			}
			c := ConsoleFrom(ctx)
			name := strings.ToUpper(ctx.Args[0])
			values, err := c.Link.Codec().ParseArgs(name, ctx.Args[1:])
			if err != nil {
				ctx.Err(err)
				return
			}
			if err := c.Link.Send(context.Background(), c.Sender, name, values); err != nil {
				ctx.Err(err)
				return
			}
			ctx.Println(">", name, "sent")
		},
	}

	// SenderCmd shows or changes the sending role.
	SenderCmd = ishell.Cmd{
		Name: "sender",
		Help: "[NAME]",
		Func: func(ctx *ishell.Context) {
			c := ConsoleFrom(ctx)
			if len(ctx.Args) == 0 {
				ctx.Println(c.Sender)
				return
			}
			name := strings.ToUpper(ctx.Args[0])
			if _, ok := c.Link.Codec().Registry().Sender(name); !ok {
				ctx.Err(fmt.Errorf("%w: %q", protocol.ErrUnknownSender, name))
				return
			}
			c.Sender = name
			c.setPrompt()
		},
	}

	// TypesCmd lists registered message types.
	TypesCmd = ishell.Cmd{
		Name:    "types",
		Aliases: []string{"t"},
		Func: func(ctx *ishell.Context) {
			var b strings.Builder
			WriteTypes(&b, ConsoleFrom(ctx).Link.Codec().Registry())
			ctx.Print(b.String())
		},
	}

	// StatsCmd prints link counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Func: func(ctx *ishell.Context) {
			st := ConsoleFrom(ctx).Link.Stats()
			ctx.Printf("received %d bytes, %d frames, %d rejected, %d messages, %d decode errors\n",
				st.BytesReceived, st.FramesAccepted, st.FramesRejected, st.Messages, st.DecodeErrors)
			ctx.Printf("sent %d frames, %d bytes\n", st.FramesSent, st.BytesSent)
		},
	}
)

// WriteTypes prints the registry as a table.
func WriteTypes(w io.Writer, reg *protocol.Registry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLAYOUT\tFIELDS")
	for _, mt := range reg.Types() {
		layout := mt.Layout.String()
		if mt.Layout == protocol.Counted {
			layout = fmt.Sprintf("counted(%d)", mt.GroupSize)
		}
		fmt.Fprintf(tw, "0x%02X\t%s\t%s\t%s\n", mt.ID, mt.Name, layout, mt.FieldSpec())
	}
	tw.Flush()
}
