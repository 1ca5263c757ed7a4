package boot

import (
	"encoding/binary"

	"github.com/pl4nkton/drquad32/msg"
)

// fakeTransport runs the device side synchronously on Send, so tests are
// fully deterministic: by the time Send returns, any response the fake
// device produced is already queued.
type fakeTransport struct {
	frames chan msg.Frame
	sent   []msg.Frame
	onSend func(msg.Frame)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{frames: make(chan msg.Frame, 256)}
}

func (t *fakeTransport) Send(f msg.Frame) error {
	t.sent = append(t.sent, f)
	if t.onSend != nil {
		t.onSend(f)
	}
	return nil
}

func (t *fakeTransport) Frames() <-chan msg.Frame {
	return t.frames
}

func (t *fakeTransport) respond(data ...byte) {
	t.frames <- msg.Frame{ID: msg.IDBootResponse, Data: data}
}

func (t *fakeTransport) sentIDs() []uint16 {
	ids := make([]uint16, len(t.sent))
	for i, f := range t.sent {
		ids[i] = f.ID
	}
	return ids
}

type writeRec struct {
	addr        uint32
	size        int
	afterVerify bool
}

// fakeDevice emulates the bootloader end of the link. By default every
// command succeeds and verify answers with an honest CRC32 over the
// bytes written so far.
type fakeDevice struct {
	tr *fakeTransport

	mem    map[uint32]byte
	writes []writeRec
	erased []uint32

	enterMagic   uint32
	ignoreEnters int              // enter attempts to leave unanswered
	refuseEnter  bool             // answer enter with a failure flag
	eraseStatus  map[uint32]FlashStatus // per-sector override
	failWrite    int              // 1-based index of the write to fail
	failStatus   FlashStatus      // status for the failed write
	verifyCRC    *uint32          // override for the verify response

	verifySeen  bool
	maxInflight int
	onWrite     func(writesSeen int)
}

func newFakeDevice(tr *fakeTransport) *fakeDevice {
	d := &fakeDevice{tr: tr, mem: make(map[uint32]byte)}
	tr.onSend = d.handle
	return d
}

func (d *fakeDevice) handle(f msg.Frame) {
	switch f.ID {
	case msg.IDShellFromPC:
		// Reset hack; nothing to answer.

	case msg.IDBootEnter:
		if d.ignoreEnters > 0 {
			d.ignoreEnters--
			return
		}
		d.enterMagic = binary.LittleEndian.Uint32(f.Data)
		if d.refuseEnter {
			d.tr.respond(0)
			return
		}
		d.tr.respond(1)

	case msg.IDBootExit:
		d.tr.respond(1)

	case msg.IDBootEraseSector:
		sector := binary.LittleEndian.Uint32(f.Data)
		d.erased = append(d.erased, sector)
		st := FlashComplete
		if s, ok := d.eraseStatus[sector]; ok {
			st = s
		}
		d.tr.respond(byte(st))

	case msg.IDBootWriteData:
		// Queued-but-unread responses are the acknowledgments the
		// engine has not consumed yet, i.e. its in-flight window.
		if n := len(d.tr.frames) + 1; n > d.maxInflight {
			d.maxInflight = n
		}

		addr := binary.LittleEndian.Uint32(f.Data)
		data := f.Data[4:]
		d.writes = append(d.writes, writeRec{
			addr:        addr,
			size:        len(data),
			afterVerify: d.verifySeen,
		})
		for i, b := range data {
			d.mem[addr+uint32(i)] = b
		}

		st := FlashComplete
		if d.failWrite > 0 && len(d.writes) == d.failWrite {
			st = d.failStatus
		}
		d.tr.respond(byte(st))

		if d.onWrite != nil {
			d.onWrite(len(d.writes))
		}

	case msg.IDBootVerify:
		d.verifySeen = true
		addr := binary.LittleEndian.Uint32(f.Data)
		length := binary.LittleEndian.Uint32(f.Data[4:])

		crc := d.rangeCRC(addr, length)
		if d.verifyCRC != nil {
			crc = *d.verifyCRC
		}

		payload := make([]byte, 4)
		binary.LittleEndian.PutUint32(payload, crc)
		d.tr.frames <- msg.Frame{ID: msg.IDBootResponse, Data: payload}
	}
}

func (d *fakeDevice) rangeCRC(addr, length uint32) uint32 {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = d.mem[addr+uint32(i)]
	}
	return msg.ImageCRC32(buf)
}

// readMem reassembles length bytes of device memory starting at addr.
func (d *fakeDevice) readMem(addr, length uint32) []byte {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = d.mem[addr+uint32(i)]
	}
	return buf
}

// progressLog records progress callbacks for assertions.
type progressLog struct {
	percents []int
	texts    []string
}

func (p *progressLog) record(percent int, text string) {
	p.percents = append(p.percents, percent)
	p.texts = append(p.texts, text)
}

func (p *progressLog) last() (int, string) {
	if len(p.percents) == 0 {
		return -1, ""
	}
	return p.percents[len(p.percents)-1], p.texts[len(p.texts)-1]
}

func (p *progressLog) contains(text string) bool {
	for _, t := range p.texts {
		if t == text {
			return true
		}
	}
	return false
}
