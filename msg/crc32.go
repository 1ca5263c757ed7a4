package msg

import "hash/crc32"

// CRC32 (reflected, poly 0xEDB88320) over an entire memory region, used
// for end-to-end image verification after programming. The bootloader
// computes the same value over the flash range it just wrote; comparing
// the two confirms programming independently of the per-frame CRC16.

// CRC32State carries a checksum computation across Update calls.
type CRC32State uint32

// CRC32Init returns the initial checksum state.
func CRC32Init() CRC32State {
	return 0
}

// CRC32Update feeds data into the checksum.
func CRC32Update(state CRC32State, data []byte) CRC32State {
	return CRC32State(crc32.Update(uint32(state), crc32.IEEETable, data))
}

// CRC32Finalize returns the checksum value.
func CRC32Finalize(state CRC32State) uint32 {
	return uint32(state)
}

// ImageCRC32 computes the checksum of data in one call.
func ImageCRC32(data []byte) uint32 {
	return CRC32Finalize(CRC32Update(CRC32Init(), data))
}
