package msg

import "errors"

// COBS/R: Consistent Overhead Byte Stuffing, Reduced variant. Plain COBS
// replaces every zero byte with a distance code so the packet becomes
// zero-free; the reduced variant additionally lets the final data byte
// stand in for the last group's code when its value permits, saving one
// byte on most packets.

// cobsGroupMax is the code byte of a maximal 254-byte zero-free group.
const cobsGroupMax = 0xFF

var (
	ErrStuffedEmpty = errors.New("empty stuffed data")
	ErrStuffedZero  = errors.New("zero byte inside stuffed data")
)

// StuffBytes encodes src so that the result contains no zero bytes.
func StuffBytes(src []byte) []byte {
	dst := make([]byte, 1, len(src)+len(src)/254+1)

	codePos := 0
	code := byte(1)

	for _, b := range src {
		if b == 0 {
			dst[codePos] = code
			codePos = len(dst)
			dst = append(dst, 0)
			code = 1
			continue
		}

		dst = append(dst, b)
		code++
		if code == cobsGroupMax {
			dst[codePos] = code
			codePos = len(dst)
			dst = append(dst, 0)
			code = 1
		}
	}

	// Reduced final group: if the last data byte is large enough to be
	// unambiguous as a code, it replaces the code byte outright.
	if code > 1 {
		if last := dst[len(dst)-1]; last >= code {
			dst[codePos] = last
			return dst[:len(dst)-1]
		}
	}

	dst[codePos] = code
	return dst
}

// UnstuffBytes decodes a COBS/R-stuffed packet. src must be the bytes of
// exactly one packet, without the frame terminator.
func UnstuffBytes(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, ErrStuffedEmpty
	}

	dst := make([]byte, 0, len(src))

	for i := 0; i < len(src); {
		code := src[i]
		if code == 0 {
			return nil, ErrStuffedZero
		}
		i++

		n := int(code) - 1
		if n > len(src)-i {
			// Reduced final group: the code byte doubles as the
			// packet's last data byte.
			for _, b := range src[i:] {
				if b == 0 {
					return nil, ErrStuffedZero
				}
			}
			dst = append(dst, src[i:]...)
			return append(dst, code), nil
		}

		for _, b := range src[i : i+n] {
			if b == 0 {
				return nil, ErrStuffedZero
			}
		}
		dst = append(dst, src[i:i+n]...)
		i += n

		if code != cobsGroupMax && i < len(src) {
			dst = append(dst, 0)
		}
	}

	return dst, nil
}
