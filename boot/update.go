package boot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pl4nkton/drquad32/hexfile"
)

// vectorSize is the number of image bytes deferred until after
// verification: the initial stack pointer and reset vector. As long as
// these stay erased, an interrupted update still boots into the
// bootloader.
const vectorSize = 8

// UpdateFile loads an Intel-HEX image and flashes its first section.
// Multi-section images are accepted by the loader, but only sections[0]
// is programmed.
func (p *BootProtocol) UpdateFile(ctx context.Context, path string) error {
	p.progress(0, "Loading "+path)

	sections, err := hexfile.Load(path)
	if err != nil {
		return err
	}
	if len(sections) == 0 {
		return fmt.Errorf("%s: image contains no data", path)
	}

	return p.Update(ctx, sections[0].Addr, sections[0].Data)
}

// Update runs a complete firmware update for the image bytes loaded at
// addr: bootloader entry, sector erase, pipelined programming,
// verification, vector table write, bootloader exit.
//
// It returns nil when the update completed, ErrCancelled when the caller
// cancelled the context, and an error from the taxonomy in this package
// otherwise. Failures are not rolled back; re-running the update is the
// only recovery.
func (p *BootProtocol) Update(ctx context.Context, addr uint32, data []byte) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer p.running.Store(false)

	err := p.update(ctx, addr, data)
	switch {
	case err == nil:
		p.setPhase(PhaseDone)
	case errors.Is(err, ErrCancelled):
		p.setPhase(PhaseIdle)
	default:
		p.setPhase(PhaseFailed)
		p.logError("update failed", "err", err)
	}
	return err
}

func (p *BootProtocol) update(ctx context.Context, addr uint32, data []byte) error {
	if len(data) <= vectorSize {
		return fmt.Errorf("image too small: %d bytes", len(data))
	}

	t0 := time.Now()
	p.logDebug("image range",
		"start", fmt.Sprintf("0x%08x", addr),
		"end", fmt.Sprintf("0x%08x", addr+uint32(len(data))),
	)

	// Entry is retried: right after reset the board needs a moment
	// before it listens.
	p.setPhase(PhaseEntering)
	entered := false
	for try := 1; try <= p.cfg.EnterAttempts && !entered; try++ {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		p.progress(try, "Entering bootloader")
		if err := p.Enter(); err != nil {
			p.logDebug("enter attempt failed", "try", try, "err", err)
		} else {
			entered = true
		}
	}
	if !entered {
		return &EntryFailedError{Attempts: p.cfg.EnterAttempts}
	}
	tEnter := time.Now()

	p.setPhase(PhaseErasing)
	for i := uint32(0); i < p.cfg.SectorCount; i++ {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		sector := p.cfg.FirstSector + i
		p.progress(10+int(10*i/p.cfg.SectorCount), fmt.Sprintf("Erasing sector %d...", sector))
		if err := p.EraseSector(sector); err != nil {
			return err
		}
	}
	tErase := time.Now()

	// Skip the initial vectorSize bytes; they are written after verify.
	p.setPhase(PhaseWriting)
	if err := p.WriteData(ctx, addr+vectorSize, data[vectorSize:]); err != nil {
		return err
	}
	tWrite := time.Now()

	if ctx.Err() != nil {
		return ErrCancelled
	}
	p.setPhase(PhaseVerifying)
	p.progress(85, "Verifying")
	if err := p.Verify(addr+vectorSize, data[vectorSize:]); err != nil {
		return err
	}
	tVerify := time.Now()

	if ctx.Err() != nil {
		return ErrCancelled
	}
	p.setPhase(PhaseVectorTable)
	p.progress(90, "Writing first 8 bytes")
	if err := p.WriteData(ctx, addr, data[:vectorSize]); err != nil {
		return err
	}

	if ctx.Err() != nil {
		return ErrCancelled
	}
	p.setPhase(PhaseExiting)
	p.progress(95, "Starting application")
	if err := p.Exit(); err != nil {
		return err
	}

	p.progress(100, "Done.")

	p.logDebug("update timing",
		"enter_ms", tEnter.Sub(t0).Milliseconds(),
		"erase_ms", tErase.Sub(tEnter).Milliseconds(),
		"write_ms", tWrite.Sub(tErase).Milliseconds(),
		"verify_ms", tVerify.Sub(tWrite).Milliseconds(),
		"total_ms", time.Since(t0).Milliseconds(),
	)
	p.logInfo("update complete", "bytes", len(data), "elapsed", time.Since(t0).String())

	return nil
}
