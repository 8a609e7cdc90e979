package bhi160

import (
	"errors"
	"fmt"

	"sensorhub-go/errcode"
)

var (
	// Firmware validation.
	ErrFirmwareTooShort  = errors.New("bhi160: firmware shorter than header")
	ErrFirmwareSignature = errors.New("bhi160: firmware signature mismatch")
	ErrFirmwareLength    = errors.New("bhi160: firmware length mismatch")
	ErrUploadAlignment   = errors.New("bhi160: upload body not a multiple of 16 bytes")

	// Parameter handshake.
	ErrParamRejected = errors.New("bhi160: parameter rejected by device")
	ErrAckTimeout    = errors.New("bhi160: parameter acknowledge timeout")
	ErrParamSize     = errors.New("bhi160: parameter size out of range")

	// FIFO decoding.
	ErrUnknownSensor    = errors.New("bhi160: unknown sensor id")
	ErrInvalidStatus    = errors.New("bhi160: invalid sensor status")
	ErrInvalidMetaEvent = errors.New("bhi160: invalid meta event")

	// Register access.
	ErrAccess = errors.New("bhi160: register access direction not permitted")
)

// FirmwareError reports a blob that failed validation. Nothing was sent to
// the device.
type FirmwareError struct {
	Err    error // one of the ErrFirmware* sentinels or ErrUploadAlignment
	Detail string
}

func (e *FirmwareError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}
func (e *FirmwareError) Unwrap() error      { return e.Err }
func (e *FirmwareError) Code() errcode.Code { return errcode.InvalidFirmware }

// ParamError reports a failed parameter handshake. The device may be left
// with a pending request; restart the whole exchange.
type ParamError struct {
	Page      ParameterPage
	Index     uint8
	Direction Direction
	Err       error // ErrParamRejected or ErrAckTimeout
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%v (page=%v index=%d dir=%v)", e.Err, e.Page, e.Index, e.Direction)
}
func (e *ParamError) Unwrap() error { return e.Err }

func (e *ParamError) Code() errcode.Code {
	if errors.Is(e.Err, ErrAckTimeout) {
		return errcode.Timeout
	}
	return errcode.ParamRejected
}

// DecodeError reports a malformed FIFO record. Records decoded before it
// remain valid.
type DecodeError struct {
	Sensor byte // leading id byte of the failing record
	Value  byte // offending byte (status, meta code or embedded sensor id)
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v (sensor=0x%02X value=0x%02X)", e.Err, e.Sensor, e.Value)
}
func (e *DecodeError) Unwrap() error      { return e.Err }
func (e *DecodeError) Code() errcode.Code { return errcode.Decode }

// CRCMismatchError indicates the device computed a different CRC than the
// firmware header promised.
type CRCMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("bhi160: firmware crc mismatch: expected 0x%08X, device reported 0x%08X",
		e.Expected, e.Actual)
}
func (e *CRCMismatchError) Code() errcode.Code { return errcode.CRCMismatch }
