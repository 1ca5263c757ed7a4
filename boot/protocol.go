package boot

import (
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/pl4nkton/drquad32/msg"
)

// Transport delivers whole, decoded frames to and from the device. Send
// transmits one frame; Frames yields inbound frames in arrival order and
// is closed when the transport shuts down. In-order, at-most-once
// delivery is a precondition, not something the engine defends against.
type Transport interface {
	Send(msg.Frame) error
	Frames() <-chan msg.Frame
}

// BootProtocol sequences the drquad32 bootloader through entry, erase,
// programming, verification and exit. All methods must be called from a
// single goroutine.
type BootProtocol struct {
	transport Transport
	cfg       Config

	phase   atomic.Int32
	running atomic.Bool
}

// New creates a protocol engine on the given transport. The transport's
// connection is owned exclusively by the engine while an update runs.
func New(t Transport, opts ...Option) *BootProtocol {
	if t == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &BootProtocol{transport: t, cfg: cfg}
}

// Phase returns the engine's current protocol phase.
func (p *BootProtocol) Phase() Phase {
	return Phase(p.phase.Load())
}

func (p *BootProtocol) setPhase(ph Phase) {
	p.phase.Store(int32(ph))
}

// pollInterval is the idle wait between queue checks while a response is
// outstanding. Coarse on purpose: the transport reader keeps filling the
// queue in the background.
const pollInterval = 10 * time.Millisecond

// response is the uniform boot response payload. Its meaning depends on
// the command it answers: a success flag for enter/exit, a flash status
// for erase/write, a CRC32 for verify.
type response []byte

func (r response) flag() bool {
	return r[0] == 1
}

func (r response) flashStatus() FlashStatus {
	return FlashStatus(r[0])
}

func (r response) checksum(op string) (uint32, error) {
	if len(r) < 4 {
		return 0, &ResponseError{Op: op, Size: len(r)}
	}
	return binary.LittleEndian.Uint32(r), nil
}

// awaitResponse drains inbound frames until a boot response arrives or
// the deadline passes. Frames with other IDs are forwarded to the OnFrame
// callback; losing them would break whatever else shares the link.
func (p *BootProtocol) awaitResponse(op string, timeout time.Duration) (response, error) {
	deadline := time.Now().Add(timeout)

	for {
		for {
			select {
			case f, ok := <-p.transport.Frames():
				if !ok {
					return nil, ErrClosed
				}
				if f.ID == msg.IDBootResponse {
					if len(f.Data) == 0 {
						return nil, &ResponseError{Op: op, Size: 0}
					}
					return response(f.Data), nil
				}
				if p.cfg.OnFrame != nil {
					p.cfg.OnFrame(f)
				}
				continue
			default:
			}
			break
		}

		if !time.Now().Before(deadline) {
			return nil, &TimeoutError{Op: op, Timeout: timeout}
		}
		time.Sleep(pollInterval)
	}
}

// resetHack nudges a running application into rebooting by typing a
// ctrl-c and a reset command into the board's shell. Harmless when the
// bootloader is already listening.
func (p *BootProtocol) resetHack() error {
	return p.transport.Send(msg.Frame{
		ID:   msg.IDShellFromPC,
		Data: []byte("\x03\nreset\n"),
	})
}

// Enter requests bootloader entry with the protocol magic. A timeout here
// is normal while the board is still rebooting; Update retries.
func (p *BootProtocol) Enter() error {
	if err := p.resetHack(); err != nil {
		return err
	}

	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, msg.BootEnterMagic)
	if err := p.transport.Send(msg.Frame{ID: msg.IDBootEnter, Data: payload}); err != nil {
		return err
	}

	res, err := p.awaitResponse("enter bootloader", p.cfg.ResponseTimeout)
	if err != nil {
		return err
	}
	if !res.flag() {
		return &EnterError{Op: "enter bootloader", Status: res[0]}
	}
	return nil
}

// Exit leaves the bootloader and starts the application.
func (p *BootProtocol) Exit() error {
	if err := p.transport.Send(msg.Frame{ID: msg.IDBootExit}); err != nil {
		return err
	}

	res, err := p.awaitResponse("exit bootloader", p.cfg.ResponseTimeout)
	if err != nil {
		return err
	}
	if !res.flag() {
		return &EnterError{Op: "exit bootloader", Status: res[0]}
	}
	return nil
}

// EraseSector erases one flash sector and waits for the flash controller
// to finish.
func (p *BootProtocol) EraseSector(sector uint32) error {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, sector)
	if err := p.transport.Send(msg.Frame{ID: msg.IDBootEraseSector, Data: payload}); err != nil {
		return err
	}

	res, err := p.awaitResponse("erase sector", p.cfg.EraseTimeout)
	if err != nil {
		return err
	}
	if st := res.flashStatus(); st != FlashComplete {
		return &EraseError{Sector: sector, Status: st}
	}
	return nil
}

// Verify asks the device for the CRC32 of the given flash range and
// compares it against the checksum of the host copy. Both values are
// compared at full 32-bit width.
func (p *BootProtocol) Verify(addr uint32, data []byte) error {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload, addr)
	binary.LittleEndian.PutUint32(payload[4:], uint32(len(data)))
	if err := p.transport.Send(msg.Frame{ID: msg.IDBootVerify, Data: payload}); err != nil {
		return err
	}

	res, err := p.awaitResponse("verify", p.cfg.ResponseTimeout)
	if err != nil {
		return err
	}

	remote, err := res.checksum("verify")
	if err != nil {
		return err
	}

	local := msg.CRC32Finalize(msg.CRC32Update(msg.CRC32Init(), data))
	if remote != local {
		return &VerifyError{Expected: local, Actual: remote}
	}
	return nil
}

func (p *BootProtocol) progress(percent int, text string) {
	if p.cfg.Progress != nil {
		p.cfg.Progress(percent, text)
	}
}

func (p *BootProtocol) logDebug(msg string, keysAndValues ...interface{}) {
	if p.cfg.Logger != nil {
		p.cfg.Logger.Debug(msg, keysAndValues...)
	}
}

func (p *BootProtocol) logInfo(msg string, keysAndValues ...interface{}) {
	if p.cfg.Logger != nil {
		p.cfg.Logger.Info(msg, keysAndValues...)
	}
}

func (p *BootProtocol) logError(msg string, keysAndValues ...interface{}) {
	if p.cfg.Logger != nil {
		p.cfg.Logger.Error(msg, keysAndValues...)
	}
}
