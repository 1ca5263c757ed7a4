package conn

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/pl4nkton/drquad32/msg"
)

func recvFrame(t *testing.T, c *Conn) msg.Frame {
	t.Helper()
	select {
	case f, ok := <-c.Frames():
		if !ok {
			t.Fatal("frame channel closed")
		}
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return msg.Frame{}
}

func TestConnReceivesSplitFrames(t *testing.T) {
	host, dev := net.Pipe()
	c := New(host)
	defer c.Close()

	f1 := msg.Frame{ID: msg.IDImuData, Data: []byte{0x01, 0x02, 0x03}}
	f2 := msg.Frame{ID: msg.IDBootResponse, Data: []byte{0x09}}

	enc1, err := msg.Encode(f1)
	if err != nil {
		t.Fatal(err)
	}
	enc2, err := msg.Encode(f2)
	if err != nil {
		t.Fatal(err)
	}

	// Deliver the stream in awkward pieces; frame boundaries must still
	// be recovered from the terminators alone.
	go func() {
		dev.Write(enc1[:2])
		dev.Write(append(append([]byte{}, enc1[2:]...), enc2[:1]...))
		dev.Write(enc2[1:])
	}()

	got1 := recvFrame(t, c)
	if got1.ID != f1.ID || !bytes.Equal(got1.Data, f1.Data) {
		t.Errorf("first frame: got id=0x%04x data=% x", got1.ID, got1.Data)
	}

	got2 := recvFrame(t, c)
	if got2.ID != f2.ID || !bytes.Equal(got2.Data, f2.Data) {
		t.Errorf("second frame: got id=0x%04x data=% x", got2.ID, got2.Data)
	}
}

func TestConnDropsCorruptedFrames(t *testing.T) {
	host, dev := net.Pipe()
	c := New(host)
	defer c.Close()

	good, err := msg.Encode(msg.Frame{ID: msg.IDBootResponse, Data: []byte{0x01}})
	if err != nil {
		t.Fatal(err)
	}

	// Garbage, then a frame with a flipped payload bit, then a good one.
	bad := append([]byte(nil), good...)
	bad[len(bad)-2] ^= 0x40

	go func() {
		dev.Write([]byte{0xde, 0xad, 0xbe, msg.Terminator})
		dev.Write(bad)
		dev.Write(good)
	}()

	got := recvFrame(t, c)
	if got.ID != msg.IDBootResponse || !bytes.Equal(got.Data, []byte{0x01}) {
		t.Errorf("got id=0x%04x data=% x, expected the clean frame", got.ID, got.Data)
	}

	stats := c.Stats()
	if stats.Errors != 2 {
		t.Errorf("error count %d, expected 2", stats.Errors)
	}
	if stats.FramesIn != 1 {
		t.Errorf("frames in %d, expected 1", stats.FramesIn)
	}
}

func TestConnSend(t *testing.T) {
	host, dev := net.Pipe()
	c := New(host)
	defer c.Close()

	f := msg.Frame{ID: msg.IDBootEnter, Data: []byte{0xad, 0x10, 0x07, 0xb0}}

	done := make(chan error, 1)
	go func() {
		done <- c.Send(f)
	}()

	buf := make([]byte, 256)
	var raw []byte
	for {
		n, err := dev.Read(buf)
		if err != nil {
			t.Fatal(err)
		}
		raw = append(raw, buf[:n]...)
		if len(raw) >= 2 && bytes.IndexByte(raw[1:], msg.Terminator) >= 0 {
			break
		}
	}

	if err := <-done; err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if raw[0] != msg.Terminator {
		t.Errorf("expected leading flush terminator, got 0x%02x", raw[0])
	}

	decoded, err := msg.Decode(raw[1:])
	if err != nil {
		t.Fatalf("decode of sent bytes failed: %v", err)
	}
	if decoded.ID != f.ID || !bytes.Equal(decoded.Data, f.Data) {
		t.Errorf("decoded id=0x%04x data=% x", decoded.ID, decoded.Data)
	}

	if got := c.Stats().FramesOut; got != 1 {
		t.Errorf("frames out %d, expected 1", got)
	}
}

func TestConnCloseClosesFrameChannel(t *testing.T) {
	host, _ := net.Pipe()
	c := New(host)

	if err := c.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	select {
	case _, ok := <-c.Frames():
		if ok {
			t.Error("unexpected frame after close")
		}
	case <-time.After(time.Second):
		t.Error("frame channel not closed")
	}
}
