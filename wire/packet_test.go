package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketRoundTrip(t *testing.T) {
	p, err := NewPacket(Write, 7, 0, JoinArgs("/foo/bar", "baz"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Encode(&buf))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestNewPacketRejectsUnknownOp(t *testing.T) {
	_, err := NewPacket(Op(999), 1, 0, nil)
	assert.Error(t, err)
}

func TestNewPacketRejectsOversizePayload(t *testing.T) {
	_, err := NewPacket(Write, 1, 0, make([]byte, MaxPayload+1))
	assert.Error(t, err)

	_, err = NewPacket(Write, 1, 0, make([]byte, MaxPayload))
	assert.NoError(t, err)
}

func TestDecodeZeroSizeDoesNotReadPayload(t *testing.T) {
	p, err := NewPacket(TransactionEnd, 5, 0, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Encode(&buf))
	assert.Equal(t, HeaderSize, buf.Len())

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Empty(t, got.Payload)
}

func TestDecodeRejectsOversizePayload(t *testing.T) {
	var header [HeaderSize]byte
	header[12] = 0xFF
	header[13] = 0xFF
	header[14] = 0xFF
	header[15] = 0xFF

	_, err := Decode(bytes.NewReader(header[:]))
	assert.Error(t, err)
}

func TestArgumentStripsAtMostOneTrailingNUL(t *testing.T) {
	assert.Equal(t, "baz", Argument([]byte("baz\x00")))
	assert.Equal(t, "baz", Argument([]byte("baz")))
	assert.Equal(t, "baz\x00", Argument([]byte("baz\x00\x00")))
}

func TestSplitArgs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitArgs(JoinArgs("a", "b", "c")))
	assert.Nil(t, SplitArgs(nil))
}

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent(JoinArgs("/a/b", "tok"))
	require.NoError(t, err)
	assert.Equal(t, Event{Path: "/a/b", Token: "tok"}, ev)

	_, err = DecodeEvent(JoinArgs("only-one"))
	assert.Error(t, err)
}
