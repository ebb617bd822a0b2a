package display

import (
	"bytes"
	"errors"
	"strings"
)

const edidLength = 128

// ErrNoEDID is returned when a bus does not carry a valid EDID block.
var ErrNoEDID = errors.New("no valid EDID")

var edidHeader = []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}

// Display descriptor tags.
const (
	descriptorSerial = 0xff
	descriptorName   = 0xfc
)

// EDID holds the identifying fields of an EDID base block.
type EDID struct {
	Manufacturer string
	ProductCode  uint16
	SerialNumber uint32
	Name         string
	Serial       string
}

// ParseEDID decodes the identifying fields of a 128-byte EDID base block.
func ParseEDID(b []byte) (*EDID, error) {
	if len(b) < edidLength || !bytes.Equal(b[:8], edidHeader) {
		return nil, ErrNoEDID
	}

	var sum byte
	for _, v := range b[:edidLength] {
		sum += v
	}
	if sum != 0 {
		return nil, ErrNoEDID
	}

	e := &EDID{
		Manufacturer: pnpID(uint16(b[8])<<8 | uint16(b[9])),
		ProductCode:  uint16(b[10]) | uint16(b[11])<<8,
		SerialNumber: uint32(b[12]) | uint32(b[13])<<8 | uint32(b[14])<<16 | uint32(b[15])<<24,
	}

	for off := 54; off+18 <= 126; off += 18 {
		d := b[off : off+18]
		// detailed timing descriptors have a non-zero pixel clock
		if d[0] != 0 || d[1] != 0 || d[2] != 0 {
			continue
		}
		switch d[3] {
		case descriptorName:
			e.Name = descriptorText(d[5:])
		case descriptorSerial:
			e.Serial = descriptorText(d[5:])
		}
	}

	return e, nil
}

// Info converts the EDID into display info for the given bus.
func (e *EDID) Info(bus int) Info {
	return Info{
		Bus:          bus,
		Manufacturer: e.Manufacturer,
		Model:        e.Name,
		Serial:       e.Serial,
	}
}

// pnpID decodes the three 5-bit letters of a PNP manufacturer id.
func pnpID(v uint16) string {
	letters := []byte{
		byte(v>>10&0x1f) + 'A' - 1,
		byte(v>>5&0x1f) + 'A' - 1,
		byte(v&0x1f) + 'A' - 1,
	}
	return string(letters)
}

func descriptorText(b []byte) string {
	if i := bytes.IndexByte(b, 0x0a); i >= 0 {
		b = b[:i]
	}
	return strings.TrimRight(string(b), " \x00")
}
