package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the size, in bytes, of the fixed packet header:
// op | rq_id | tx_id | size, each a little-endian uint32.
const HeaderSize = 16

// Packet is the unit of XenStore wire communication: a fixed header
// followed by a variable-length payload.
type Packet struct {
	Op      Op
	ReqID   uint32
	TxID    uint32
	Payload []byte
}

// NewPacket validates and constructs a packet. Construction rejects
// violations without performing any I/O.
func NewPacket(op Op, reqID, txID uint32, payload []byte) (Packet, error) {
	if !op.valid() {
		return Packet{}, fmt.Errorf("xenstore: invalid operation %d", uint32(op))
	}
	if len(payload) > MaxPayload {
		return Packet{}, fmt.Errorf("xenstore: payload of %d bytes exceeds %d byte limit", len(payload), MaxPayload)
	}

	return Packet{Op: op, ReqID: reqID, TxID: txID, Payload: payload}, nil
}

// Size is the wire size of the packet's payload.
func (p Packet) Size() uint32 {
	return uint32(len(p.Payload))
}

// Encode writes the packet's header followed by its payload to w, as two
// separate writes, matching the wire layout.
func (p Packet) Encode(w io.Writer) error {
	var header [HeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(p.Op))
	binary.LittleEndian.PutUint32(header[4:8], p.ReqID)
	binary.LittleEndian.PutUint32(header[8:12], p.TxID)
	binary.LittleEndian.PutUint32(header[12:16], p.Size())

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("xenstore: writing packet header: %w", err)
	}

	if len(p.Payload) == 0 {
		return nil
	}

	if _, err := w.Write(p.Payload); err != nil {
		return fmt.Errorf("xenstore: writing packet payload: %w", err)
	}

	return nil
}

// Decode reads exactly one packet from r: a 16-byte header, then exactly
// header.size bytes of payload. A size of zero does not trigger a read,
// since some transports (XenBus) block on zero-length reads.
func Decode(r io.Reader) (Packet, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Packet{}, err
	}

	op := Op(binary.LittleEndian.Uint32(header[0:4]))
	reqID := binary.LittleEndian.Uint32(header[4:8])
	txID := binary.LittleEndian.Uint32(header[8:12])
	size := binary.LittleEndian.Uint32(header[12:16])

	if size > MaxPayload {
		return Packet{}, fmt.Errorf("xenstore: payload of %d bytes exceeds %d byte limit", size, MaxPayload)
	}
	if !op.valid() {
		return Packet{}, fmt.Errorf("xenstore: unrecognized operation %d", uint32(op))
	}

	var payload []byte
	if size > 0 {
		payload = make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return Packet{}, err
		}
	}

	return Packet{Op: op, ReqID: reqID, TxID: txID, Payload: payload}, nil
}

// JoinArgs joins args into a payload where every argument, including the
// last, is terminated by exactly one NUL byte.
func JoinArgs(args ...string) []byte {
	var buf bytes.Buffer
	for _, a := range args {
		buf.WriteString(a)
		buf.WriteByte(NUL)
	}
	return buf.Bytes()
}

// Argument strips at most one trailing NUL byte from a response payload.
func Argument(payload []byte) string {
	if len(payload) > 0 && payload[len(payload)-1] == NUL {
		payload = payload[:len(payload)-1]
	}
	return string(payload)
}

// SplitArgs splits a NUL-separated payload into its component strings,
// dropping one trailing empty element produced by a terminating NUL.
func SplitArgs(payload []byte) []string {
	if len(payload) > 0 && payload[len(payload)-1] == NUL {
		payload = payload[:len(payload)-1]
	}
	if len(payload) == 0 {
		return nil
	}

	parts := bytes.Split(payload, []byte{NUL})
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out
}
