// Package conn turns a raw byte stream into a stream of decoded frames
// and back. It owns the serial port: a background reader splits the
// inbound stream at the frame terminator and decodes each chunk, so the
// protocol layer only ever sees whole frames.
package conn

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pl4nkton/drquad32/msg"
)

// queueSize bounds the inbound frame queue. Telemetry can burst while
// the protocol goroutine is busy; when the queue fills, the oldest frame
// is dropped so fresh traffic keeps flowing.
const queueSize = 64

// Stats counts traffic on a connection. Snapshot values; reads are
// atomic per field.
type Stats struct {
	FramesIn  uint64
	FramesOut uint64
	Errors    uint64 // frames dropped for bad CRC or malformed stuffing
}

// Conn is a frame connection over a byte stream transport.
type Conn struct {
	port   io.ReadWriteCloser
	frames chan msg.Frame

	writeMu sync.Mutex

	framesIn  atomic.Uint64
	framesOut atomic.Uint64
	errors    atomic.Uint64

	stopChan chan struct{}
	doneChan chan struct{}
}

// New starts a connection on the given port and begins reading.
func New(port io.ReadWriteCloser) *Conn {
	c := &Conn{
		port:     port,
		frames:   make(chan msg.Frame, queueSize),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Frames yields decoded inbound frames in arrival order. The channel is
// closed when the connection shuts down.
func (c *Conn) Frames() <-chan msg.Frame {
	return c.frames
}

// Send encodes and transmits one frame. A leading terminator flushes any
// partial frame the receiver may be holding.
func (c *Conn) Send(f msg.Frame) error {
	encoded, err := msg.Encode(f)
	if err != nil {
		return err
	}

	buf := make([]byte, 0, len(encoded)+1)
	buf = append(buf, msg.Terminator)
	buf = append(buf, encoded...)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	n, err := c.port.Write(buf)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("short write: %d/%d bytes", n, len(buf))
	}

	c.framesOut.Add(1)
	return nil
}

// Stats returns a snapshot of the connection counters.
func (c *Conn) Stats() Stats {
	return Stats{
		FramesIn:  c.framesIn.Load(),
		FramesOut: c.framesOut.Load(),
		Errors:    c.errors.Load(),
	}
}

// Close stops the reader and closes the port.
func (c *Conn) Close() error {
	close(c.stopChan)
	err := c.port.Close()
	<-c.doneChan
	return err
}

func (c *Conn) readLoop() {
	defer close(c.doneChan)
	defer close(c.frames)

	var pending []byte
	buf := make([]byte, 512)

	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		n, err := c.port.Read(buf)
		if n > 0 {
			pending = c.consume(append(pending, buf[:n]...))
		}
		if err != nil {
			select {
			case <-c.stopChan:
				return
			default:
			}
			if err == io.EOF {
				return
			}
			// Transient read error, typically a timeout on a
			// quiet port.
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// consume decodes every complete frame in pending and returns the
// remaining partial tail.
func (c *Conn) consume(pending []byte) []byte {
	for {
		idx := bytes.IndexByte(pending, msg.Terminator)
		if idx < 0 {
			break
		}

		chunk := pending[:idx]
		pending = pending[idx+1:]
		if len(chunk) == 0 {
			// Flush delimiter between frames.
			continue
		}

		f, err := msg.Decode(chunk)
		if err != nil {
			// A corrupted frame is treated as if it never
			// arrived; the protocol's timeout handles the gap.
			c.errors.Add(1)
			continue
		}
		c.deliver(f)
	}

	// A run of garbage with no terminator cannot grow without bound; it
	// can never decode anyway once it exceeds the frame size limit.
	if len(pending) > msg.MaxEncodedSize {
		pending = pending[len(pending)-msg.MaxEncodedSize:]
	}
	return pending
}

func (c *Conn) deliver(f msg.Frame) {
	select {
	case c.frames <- f:
	default:
		// Queue full: drop the oldest frame.
		select {
		case <-c.frames:
		default:
		}
		select {
		case c.frames <- f:
		default:
		}
	}
	c.framesIn.Add(1)
}
