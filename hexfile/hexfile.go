// Package hexfile loads Intel-HEX firmware images into contiguous memory
// sections.
package hexfile

import (
	"bufio"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Section is one contiguous run of image bytes.
type Section struct {
	Addr uint32
	Data []byte
}

// Intel-HEX record types.
const (
	recData       = 0x00
	recEOF        = 0x01
	recExtSegment = 0x02
	recStartSeg   = 0x03
	recExtLinear  = 0x04
	recStartLin   = 0x05
)

// Load reads and parses the Intel-HEX file at path.
func Load(path string) ([]Section, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open hex file")
	}
	defer f.Close()

	sections, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return sections, nil
}

// Parse reads Intel-HEX records from r until the end-of-file record.
// Contiguous data records merge into one section; an address gap starts a
// new one.
func Parse(r io.Reader) ([]Section, error) {
	var (
		sections []Section
		upper    uint32 // extended segment/linear address offset
		line     int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		rec, err := parseRecord(text)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		switch rec.typ {
		case recData:
			addr := upper + uint32(rec.addr)
			if n := len(sections); n > 0 && sections[n-1].end() == addr {
				sections[n-1].Data = append(sections[n-1].Data, rec.data...)
			} else {
				sections = append(sections, Section{
					Addr: addr,
					Data: append([]byte(nil), rec.data...),
				})
			}

		case recEOF:
			return sections, nil

		case recExtSegment:
			if len(rec.data) != 2 {
				return nil, errors.Errorf("line %d: extended segment address record with %d data bytes", line, len(rec.data))
			}
			upper = (uint32(rec.data[0])<<8 | uint32(rec.data[1])) << 4

		case recExtLinear:
			if len(rec.data) != 2 {
				return nil, errors.Errorf("line %d: extended linear address record with %d data bytes", line, len(rec.data))
			}
			upper = (uint32(rec.data[0])<<8 | uint32(rec.data[1])) << 16

		case recStartSeg, recStartLin:
			// Entry point records carry no image bytes.

		default:
			return nil, errors.Errorf("line %d: unknown record type 0x%02x", line, rec.typ)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read hex file")
	}
	return nil, errors.New("missing end-of-file record")
}

func (s Section) end() uint32 {
	return s.Addr + uint32(len(s.Data))
}

type record struct {
	typ  byte
	addr uint16
	data []byte
}

func parseRecord(s string) (record, error) {
	if s[0] != ':' {
		return record{}, errors.New("missing start code")
	}

	raw, err := hex.DecodeString(s[1:])
	if err != nil {
		return record{}, errors.Wrap(err, "invalid hex digits")
	}
	if len(raw) < 5 {
		return record{}, errors.Errorf("record too short: %d bytes", len(raw))
	}

	count := int(raw[0])
	if count != len(raw)-5 {
		return record{}, errors.Errorf("byte count %d does not match record length %d", count, len(raw)-5)
	}

	var sum byte
	for _, b := range raw {
		sum += b
	}
	if sum != 0 {
		return record{}, errors.Errorf("checksum mismatch (residue 0x%02x)", sum)
	}

	return record{
		typ:  raw[3],
		addr: uint16(raw[1])<<8 | uint16(raw[2]),
		data: raw[4 : len(raw)-1],
	}, nil
}
