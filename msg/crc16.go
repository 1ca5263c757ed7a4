package msg

// CRC-16-CCITT (poly 0x1021, init 0xFFFF, no reflection, no final XOR).
// Protects a single frame against transport bit errors; the firmware
// computes the identical value on its end of the link.

// CRC16State carries a checksum computation across Update calls.
type CRC16State uint16

// CRC16Init returns the initial checksum state.
func CRC16Init() CRC16State {
	return 0xFFFF
}

// CRC16Update feeds data into the checksum.
func CRC16Update(state CRC16State, data []byte) CRC16State {
	crc := uint16(state)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return CRC16State(crc)
}

// CRC16Finalize returns the checksum value.
func CRC16Finalize(state CRC16State) uint16 {
	return uint16(state)
}

// CRC16 computes the checksum of data in one call.
func CRC16(data []byte) uint16 {
	return CRC16Finalize(CRC16Update(CRC16Init(), data))
}
