package bhi160

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Firmware image layout.
const (
	FirmwareHeaderLen = 16
	FirmwareSignature = 0x652A
)

// Firmware is a validated firmware image as distributed by the vendor:
//
//	off  0  u16 LE  signature (0x652A)
//	off  2  u16 LE  ROM version the image targets
//	off  4  u32 LE  CRC the device must report after upload
//	off 12  u16 LE  body length
//	off 16          body
type Firmware struct {
	raw []byte
}

// ParseFirmware validates b. The image is retained, not copied.
func ParseFirmware(b []byte) (*Firmware, error) {
	if len(b) < FirmwareHeaderLen {
		return nil, &FirmwareError{Err: ErrFirmwareTooShort, Detail: fmt.Sprintf("%d bytes", len(b))}
	}
	fw := &Firmware{raw: b}
	if sig := fw.Signature(); sig != FirmwareSignature {
		return nil, &FirmwareError{Err: ErrFirmwareSignature, Detail: fmt.Sprintf("got 0x%04X, want 0x%04X", sig, FirmwareSignature)}
	}
	if n := fw.DataLen(); n+FirmwareHeaderLen != len(b) {
		return nil, &FirmwareError{Err: ErrFirmwareLength, Detail: fmt.Sprintf("header says %d body bytes, image has %d", n, len(b)-FirmwareHeaderLen)}
	}
	return fw, nil
}

// ReadFirmware loads and validates a firmware file.
func ReadFirmware(path string) (*Firmware, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read firmware: %w", err)
	}
	return ParseFirmware(b)
}

func (f *Firmware) Signature() uint16  { return binary.LittleEndian.Uint16(f.raw[0:]) }
func (f *Firmware) RomVersion() uint16 { return binary.LittleEndian.Uint16(f.raw[2:]) }
func (f *Firmware) CRC() uint32        { return binary.LittleEndian.Uint32(f.raw[4:]) }
func (f *Firmware) DataLen() int       { return int(binary.LittleEndian.Uint16(f.raw[12:])) }

// Raw returns the image as given to ParseFirmware.
func (f *Firmware) Raw() []byte { return f.raw }

// Body returns a fresh copy of the body with the byte order of every 4-byte
// group reversed, ready for UploadRawFirmware. A trailing partial group is
// dropped.
func (f *Firmware) Body() []byte {
	src := f.raw[FirmwareHeaderLen:]
	out := make([]byte, len(src)&^3)
	for i := 0; i < len(out); i += 4 {
		out[i], out[i+1], out[i+2], out[i+3] = src[i+3], src[i+2], src[i+1], src[i]
	}
	return out
}

// Matches reports whether the image targets the given ROM version.
func (f *Firmware) Matches(rom RomVersion) bool { return f.RomVersion() == uint16(rom) }
