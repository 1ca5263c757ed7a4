package msg

// Message IDs shared with the firmware. The boot group is answered by a
// single uniform IDBootResponse frame; its payload depends on the command
// it acknowledges.
const (
	IDImuData     = 0x0010
	IDShellToPC   = 0x0073
	IDShellFromPC = 0x0074

	IDBootResponse    = 0x00b0
	IDBootEnter       = 0x00b1
	IDBootExit        = 0x00b2
	IDBootEraseSector = 0x00b3
	IDBootWriteData   = 0x00b4
	IDBootVerify      = 0x00b5
)

// BootEnterMagic must accompany an enter-bootloader request. Requests with
// any other value are ignored by the firmware, so stray frames cannot drop
// a flying quad into the bootloader.
const BootEnterMagic = 0xB00710AD
