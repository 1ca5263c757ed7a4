package boot

import "github.com/pl4nkton/drquad32/msg"

// Phase is the protocol state an update session is in. It moves strictly
// forward during a successful update.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseEntering
	PhaseErasing
	PhaseWriting
	PhaseVerifying
	PhaseVectorTable
	PhaseExiting
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseEntering:
		return "entering bootloader"
	case PhaseErasing:
		return "erasing"
	case PhaseWriting:
		return "writing"
	case PhaseVerifying:
		return "verifying"
	case PhaseVectorTable:
		return "writing vector table"
	case PhaseExiting:
		return "exiting bootloader"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProgressFunc receives completion percentage (0..100) and a short status
// line suitable for direct display. Implementations should return quickly;
// they run on the update goroutine.
type ProgressFunc func(percent int, text string)

// FrameFunc receives frames that arrive while a boot response is pending.
// Telemetry interleaves freely with boot traffic on the same link; frames
// with other IDs are handed here instead of being discarded.
type FrameFunc func(msg.Frame)

// Logger is an optional logging interface, allowing integration with any
// logging framework.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
