package boot

import (
	"errors"
	"fmt"
	"time"
)

// ErrCancelled reports that the caller requested cancellation. It is a
// successful early termination at the caller's request, not a fault;
// callers branch on it with errors.Is.
var ErrCancelled = errors.New("update cancelled")

// ErrClosed reports that the transport shut down while a response was
// outstanding.
var ErrClosed = errors.New("transport closed")

// ErrBusy reports that an update session is already running on this
// connection.
var ErrBusy = errors.New("update already in progress")

// TimeoutError indicates that no boot response arrived within the
// deadline. Recoverable for bootloader entry, fatal everywhere else.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: time out after %v", e.Op, e.Timeout)
}

// EnterError indicates that the device refused an enter or exit request.
type EnterError struct {
	Op     string // "enter bootloader" or "exit bootloader"
	Status uint8
}

func (e *EnterError) Error() string {
	return fmt.Sprintf("can't %s: %d", e.Op, e.Status)
}

// EntryFailedError indicates that bootloader entry did not succeed within
// the bounded attempt count.
type EntryFailedError struct {
	Attempts int
}

func (e *EntryFailedError) Error() string {
	return fmt.Sprintf("can't enter boot loader after %d attempts", e.Attempts)
}

// EraseError indicates a non-success flash status for a sector erase.
type EraseError struct {
	Sector uint32
	Status FlashStatus
}

func (e *EraseError) Error() string {
	return fmt.Sprintf("can't erase sector %d: %s", e.Sector, e.Status)
}

// WriteError indicates a non-success flash status for a data write.
type WriteError struct {
	Addr   uint32
	Status FlashStatus
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("can't write data at 0x%08x: %s", e.Addr, e.Status)
}

// VerifyError indicates that the device's image checksum differs from the
// one computed over the host copy.
type VerifyError struct {
	Expected uint32 // host-side checksum
	Actual   uint32 // device-side checksum
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("image CRC check failed: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// ResponseError indicates a boot response whose payload is too short for
// the command it answers.
type ResponseError struct {
	Op   string
	Size int
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response (%d bytes)", e.Op, e.Size)
}
