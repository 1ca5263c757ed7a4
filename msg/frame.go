package msg

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// MaxDataSize is the protocol bound on a frame's payload length.
	MaxDataSize = 516

	// Terminator marks end-of-frame on the wire. The stuffed frame body
	// never contains it.
	Terminator = 0x00

	// headerSize is crc16 + id, both little-endian.
	headerSize = 4
)

// MaxEncodedSize is the worst-case wire length of one frame, including
// the terminator.
const MaxEncodedSize = headerSize + MaxDataSize + (headerSize+MaxDataSize)/254 + 2

var (
	ErrDataTooLarge  = errors.New("frame payload too large")
	ErrFrameTooShort = errors.New("frame too short")
	ErrChecksum      = errors.New("frame checksum mismatch")
)

// Frame is one complete protocol message: a message ID and its payload.
// The wire-level CRC16 is produced and verified by the codec and never
// stored here.
type Frame struct {
	ID   uint16
	Data []byte
}

// Encode produces the self-delimiting wire form of f, terminator
// included.
func Encode(f Frame) ([]byte, error) {
	if len(f.Data) > MaxDataSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrDataTooLarge, len(f.Data), MaxDataSize)
	}

	body := make([]byte, headerSize+len(f.Data))
	binary.LittleEndian.PutUint16(body[2:], f.ID)
	copy(body[headerSize:], f.Data)
	binary.LittleEndian.PutUint16(body, CRC16(body[2:]))

	return append(StuffBytes(body), Terminator), nil
}

// Decode parses the stuffed bytes of one frame. A trailing terminator is
// accepted but not required. The frame's CRC16 is recomputed and checked
// against the transmitted value.
func Decode(p []byte) (Frame, error) {
	if n := len(p); n > 0 && p[n-1] == Terminator {
		p = p[:n-1]
	}

	body, err := UnstuffBytes(p)
	if err != nil {
		return Frame{}, err
	}
	if len(body) < headerSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(body))
	}

	want := binary.LittleEndian.Uint16(body)
	if got := CRC16(body[2:]); got != want {
		return Frame{}, fmt.Errorf("%w: header 0x%04x, computed 0x%04x", ErrChecksum, want, got)
	}

	f := Frame{ID: binary.LittleEndian.Uint16(body[2:])}
	if len(body) > headerSize {
		f.Data = append([]byte(nil), body[headerSize:]...)
	}
	return f, nil
}
