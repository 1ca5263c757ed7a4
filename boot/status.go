package boot

import "strconv"

// FlashStatus is the flash controller status byte carried in erase and
// write responses. Values match the STM32 standard peripheral library's
// FLASH_Status enum.
type FlashStatus uint8

const (
	FlashBusy FlashStatus = iota + 1
	FlashErrorRD
	FlashErrorPGS
	FlashErrorPGP
	FlashErrorPGA
	FlashErrorWRP
	FlashErrorProgram
	FlashErrorOperation
	FlashComplete
)

func (s FlashStatus) String() string {
	switch s {
	case FlashBusy:
		return "FLASH_BUSY"
	case FlashErrorRD:
		return "FLASH_ERROR_RD"
	case FlashErrorPGS:
		return "FLASH_ERROR_PGS"
	case FlashErrorPGP:
		return "FLASH_ERROR_PGP"
	case FlashErrorPGA:
		return "FLASH_ERROR_PGA"
	case FlashErrorWRP:
		return "FLASH_ERROR_WRP"
	case FlashErrorProgram:
		return "FLASH_ERROR_PROGRAM"
	case FlashErrorOperation:
		return "FLASH_ERROR_OPERATION"
	case FlashComplete:
		return "FLASH_COMPLETE"
	default:
		return strconv.Itoa(int(s))
	}
}
