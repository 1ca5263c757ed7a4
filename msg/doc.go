// Package msg implements the drquad32 message layer: the frame format
// shared by host and firmware, the COBS/R byte stuffing that delimits
// frames on the serial stream, and the CRC16/CRC32 checksum engines.
//
// A frame on the wire is
//
//	COBSR( crc16 ++ id ++ data ) ++ 0x00
//
// with all multi-byte fields little-endian and the CRC16 computed over
// id ++ data. The stuffed body contains no zero bytes, so a receiver that
// joins mid-stream regains frame alignment at the next terminator.
package msg
