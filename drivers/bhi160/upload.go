package bhi160

import (
	"fmt"

	"go.uber.org/zap"
)

// UploadChunk is the burst size of the upload data register.
const UploadChunk = 16

// UploadRawFirmware streams an already byte-swapped body into program RAM and
// returns the CRC the device computed over it:
//  1. halt the CPU and enable host upload
//  2. reset the upload cursor to 0
//  3. burst the body in 16-byte chunks
//  4. read the CRC register
//
// The body length must be a multiple of UploadChunk; otherwise nothing is
// sent. Comparing the CRC and restarting the CPU is left to the caller (see
// LoadFirmware).
func (d *Device) UploadRawFirmware(body []byte) (uint32, error) {
	if len(body)%UploadChunk != 0 {
		return 0, &FirmwareError{Err: ErrUploadAlignment, Detail: fmt.Sprintf("%d bytes", len(body))}
	}
	d.log.Debug("upload start", zap.Int("bytes", len(body)))

	if err := d.WriteReg(ChipControl{CPURunRequest: false, HostUploadEnable: true}); err != nil {
		return 0, err
	}
	if err := d.WriteReg(UploadAddress(0)); err != nil {
		return 0, err
	}
	for off := 0; off < len(body); off += UploadChunk {
		if err := d.writeRaw(RegUploadData, body[off:off+UploadChunk]); err != nil {
			return 0, err
		}
		if d.cfg.Progress != nil {
			d.cfg.Progress(off+UploadChunk, len(body))
		}
	}

	var crc UploadCRC
	if err := d.ReadReg(&crc); err != nil {
		return 0, err
	}
	d.log.Debug("upload done", zap.Uint32("crc", uint32(crc)))
	return uint32(crc), nil
}

// LoadFirmware uploads fw, verifies the device CRC against the image header
// and starts the CPU. On a CRC mismatch the CPU is left halted.
func (d *Device) LoadFirmware(fw *Firmware) error {
	crc, err := d.UploadRawFirmware(fw.Body())
	if err != nil {
		return err
	}
	if crc != fw.CRC() {
		return &CRCMismatchError{Expected: fw.CRC(), Actual: crc}
	}
	if err := d.Run(true); err != nil {
		return err
	}
	d.log.Info("firmware loaded", zap.Uint16("rom_version", fw.RomVersion()), zap.Uint32("crc", crc))
	return nil
}
