// Package boot drives the drquad32 bootloader over a frame transport to
// erase, program and verify the application flash.
//
// The engine is single-threaded: one goroutine owns the protocol state
// and blocks in awaitResponse while commands are in flight. The transport
// feeds decoded frames into a queue from its own reader; the engine
// drains that queue synchronously, so no locking is needed around the
// update session.
//
// The first 8 bytes of the image (the reset vector) are programmed only
// after the rest of the range verifies. An update interrupted at any
// earlier point leaves the old bootloader vector intact, so the board
// still comes up in the bootloader instead of a half-written application.
package boot
