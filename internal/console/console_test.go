package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigbag/bpnp/internal/link"
	"github.com/bigbag/bpnp/internal/protocol"
)

func newTestConsole(t *testing.T) (*Console, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var wire, out bytes.Buffer
	codec := protocol.NewCodec(protocol.MustDefaultRegistry())
	c := New(link.New(&wire, codec), "OPERATOR")
	c.SetOut(&out)
	return c, &wire, &out
}

func TestSendCmd(t *testing.T) {
	c, wire, out := newTestConsole(t)

	require.NoError(t, c.Shell.Process("send", "aud", "111"))
	assert.Equal(t, []byte{0x10, 0x70, 0xA6, 0x6F, 0x6C, 0x10, 0x03}, wire.Bytes())
	assert.Contains(t, out.String(), "AUD sent")

	assert.Error(t, c.Shell.Process("send", "AUD", "300"))
	assert.Error(t, c.Shell.Process("send"))
}

func TestSenderCmd(t *testing.T) {
	c, wire, out := newTestConsole(t)

	require.NoError(t, c.Shell.Process("sender", "robot"))
	assert.Equal(t, "ROBOT", c.Sender)

	require.NoError(t, c.Shell.Process("sender"))
	assert.Contains(t, out.String(), "ROBOT")

	require.NoError(t, c.Shell.Process("send", "BLE", "8e", "9f", "11", "13", "11", "00"))
	assert.Equal(t, []byte{0x10, 0x71, 0xB0, 0x01, 0x8E, 0x9F, 0x11, 0x13, 0x11, 0x00, 0xAC, 0x10, 0x03}, wire.Bytes())

	assert.ErrorIs(t, c.Shell.Process("sender", "nobody"), protocol.ErrUnknownSender)
}

func TestStatsCmd(t *testing.T) {
	c, _, out := newTestConsole(t)

	require.NoError(t, c.Shell.Process("send", "LED", "1"))
	require.NoError(t, c.Shell.Process("stats"))
	assert.Contains(t, out.String(), "sent 1 frames, 7 bytes")
}

func TestWriteTypes(t *testing.T) {
	var b strings.Builder
	WriteTypes(&b, protocol.MustDefaultRegistry())

	out := b.String()
	assert.Contains(t, out, "ID")
	assert.Regexp(t, `0x70\s+AUD\s+fixed\s+u8`, out)
	assert.Regexp(t, `0x50\s+CD\s+counted\(9\)\s+u8,f32,f32`, out)
	assert.Regexp(t, `0x62\s+TXT\s+text`, out)
}
