package boot

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/pl4nkton/drquad32/msg"
)

// writeChunkSize is the payload capacity of one write command: the frame
// payload bound minus the 4-byte address field.
const writeChunkSize = msg.MaxDataSize - 4

// writeChunk transmits one write command without waiting for its
// acknowledgment.
func (p *BootProtocol) writeChunk(addr uint32, data []byte) error {
	payload := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(payload, addr)
	copy(payload[4:], data)
	return p.transport.Send(msg.Frame{ID: msg.IDBootWriteData, Data: payload})
}

// WriteData programs data at addr in writeChunkSize pieces. Up to
// min(chunks, AckWindow) writes are in flight before the first
// acknowledgment is checked; the staggering overlaps frame transmission
// with the device's flash programming time.
//
// Cancellation is honored between chunks, never mid-frame: no further
// chunks are issued, the acknowledgments for chunks already sent are
// still drained, and ErrCancelled is returned.
//
// A non-success acknowledgment aborts immediately. Chunks already in
// flight are then in an indeterminate state on the device; there is no
// partial rollback, the only recovery is a fresh update.
func (p *BootProtocol) WriteData(ctx context.Context, addr uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	chunks := (len(data) + writeChunkSize - 1) / writeChunkSize
	window := chunks
	if window > p.cfg.AckWindow {
		window = p.cfg.AckWindow
	}

	offset := 0
	sent := 0
	cancelled := false

	for i := 0; i < chunks+window; i++ {
		// Acknowledgments trail the sends by a window to mask the
		// link round-trip. Checking before the next send keeps the
		// in-flight count bounded by the window.
		if i >= window && i-window < sent {
			res, err := p.awaitResponse("write data", p.cfg.ResponseTimeout)
			if err != nil {
				return err
			}
			if st := res.flashStatus(); st != FlashComplete {
				return &WriteError{
					Addr:   addr + uint32((i-window)*writeChunkSize),
					Status: st,
				}
			}
		}

		if i < chunks && !cancelled {
			n := len(data) - offset
			if n > writeChunkSize {
				n = writeChunkSize
			}
			if err := p.writeChunk(addr+uint32(offset), data[offset:offset+n]); err != nil {
				return err
			}
			offset += n
			sent++

			p.progress(offset*100/len(data), fmt.Sprintf("Writing 0x%08x", addr+uint32(offset)))

			if ctx.Err() != nil {
				cancelled = true
			}
		}
	}

	if cancelled {
		return ErrCancelled
	}
	return nil
}
