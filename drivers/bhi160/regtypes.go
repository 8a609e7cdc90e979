package bhi160

import "encoding/binary"

// Register is implemented by every typed register value.
type Register interface {
	Register() RegisterID
}

// RegisterDecoder is a register that can be filled from its byte layout.
// Implementations use pointer receivers.
type RegisterDecoder interface {
	Register
	DecodeRegister(b []byte)
}

// RegisterEncoder is a register that can be serialised to its byte layout.
type RegisterEncoder interface {
	Register
	EncodeRegister(b []byte)
}

func bit(b byte, n uint) bool { return b&(1<<n) != 0 }

func setBit(b *byte, n uint, on bool) {
	if on {
		*b |= 1 << n
	}
}

// FifoFlush discards queued FIFO data when written.
type FifoFlush uint8

const (
	FlushNone FifoFlush = 0x00
	FlushAll  FifoFlush = 0xFF
)

// FlushSensor flushes only the events of one sensor.
func FlushSensor(id SensorID) FifoFlush { return FifoFlush(id) }

func (FifoFlush) Register() RegisterID      { return RegFifoFlush }
func (f FifoFlush) EncodeRegister(b []byte) { b[0] = byte(f) }

// ChipControl starts/halts the hub CPU and arms RAM upload.
type ChipControl struct {
	CPURunRequest bool
	// HostUploadEnable must only be set while the CPU is halted.
	HostUploadEnable bool
}

func (ChipControl) Register() RegisterID { return RegChipControl }

func (c ChipControl) EncodeRegister(b []byte) {
	b[0] = 0
	setBit(&b[0], 0, c.CPURunRequest)
	setBit(&b[0], 1, c.HostUploadEnable)
}

func (c *ChipControl) DecodeRegister(b []byte) {
	c.CPURunRequest = bit(b[0], 0)
	c.HostUploadEnable = bit(b[0], 1)
}

// HostStatus reports reset and standby state plus interface identifiers.
type HostStatus struct {
	Reset            bool
	AlgorithmStandby bool
	HostIfID         uint8 // 0: Android K, 1: Android L
	AlgorithmID      uint8 // 0: BSX fusion library
}

func (HostStatus) Register() RegisterID { return RegHostStatus }

func (h *HostStatus) DecodeRegister(b []byte) {
	h.Reset = bit(b[0], 0)
	h.AlgorithmStandby = bit(b[0], 1)
	h.HostIfID = (b[0] >> 2) & 0x07
	h.AlgorithmID = (b[0] >> 5) & 0x07
}

// IntStatus mirrors the host interrupt line and its causes.
type IntStatus struct {
	HostInterrupt      bool
	WakeupWatermark    bool
	WakeupLatency      bool
	WakeupImmediate    bool
	NonWakeupWatermark bool
	NonWakeupLatency   bool
	NonWakeupImmediate bool
}

func (IntStatus) Register() RegisterID { return RegIntStatus }

func (s *IntStatus) DecodeRegister(b []byte) {
	s.HostInterrupt = bit(b[0], 0)
	s.WakeupWatermark = bit(b[0], 1)
	s.WakeupLatency = bit(b[0], 2)
	s.WakeupImmediate = bit(b[0], 3)
	s.NonWakeupWatermark = bit(b[0], 4)
	s.NonWakeupLatency = bit(b[0], 5)
	s.NonWakeupImmediate = bit(b[0], 6)
}

// ChipStatus reflects boot behaviour.
type ChipStatus struct {
	EEPROMDetected bool
	EEUploadDone   bool
	EEUploadError  bool
	FirmwareIdle   bool
	NoEEPROM       bool
}

func (ChipStatus) Register() RegisterID { return RegChipStatus }

func (s *ChipStatus) DecodeRegister(b []byte) {
	s.EEPROMDetected = bit(b[0], 0)
	s.EEUploadDone = bit(b[0], 1)
	s.EEUploadError = bit(b[0], 2)
	s.FirmwareIdle = bit(b[0], 3)
	s.NoEEPROM = bit(b[0], 4)
}

// BytesRemaining is the number of FIFO bytes announced to the host. The
// device only refreshes it before raising the host interrupt or on request.
type BytesRemaining uint16

func (BytesRemaining) Register() RegisterID { return RegBytesRemaining }

func (r *BytesRemaining) DecodeRegister(b []byte) {
	*r = BytesRemaining(binary.LittleEndian.Uint16(b))
}

// ackError is the acknowledge value for an unsupported page or parameter.
const ackError = 0x80

// ParameterAcknowledge echoes the last processed ParameterRequest, or Error.
type ParameterAcknowledge struct {
	Error     bool
	RequestID uint8
}

func (ParameterAcknowledge) Register() RegisterID { return RegParamAck }

func (a *ParameterAcknowledge) DecodeRegister(b []byte) {
	if b[0] == ackError {
		*a = ParameterAcknowledge{Error: true}
		return
	}
	*a = ParameterAcknowledge{RequestID: b[0]}
}

// ParameterPageSelect selects the page and transfer size of the next request.
// Size 0 means the maximum for the direction (16 read, 8 write).
type ParameterPageSelect struct {
	Page ParameterPage
	Size uint8
}

func (ParameterPageSelect) Register() RegisterID { return RegParamPageSelect }

func (p ParameterPageSelect) EncodeRegister(b []byte) {
	b[0] = byte(p.Page)&0x0F | (p.Size&0x0F)<<4
}

func (p *ParameterPageSelect) DecodeRegister(b []byte) {
	p.Page = ParameterPage(b[0] & 0x0F)
	p.Size = b[0] >> 4
}

// HostInterfaceControl toggles miscellaneous host interface features.
// AbortTransfer and UpdateTransferCount do not auto-clear.
type HostInterfaceControl struct {
	AlgorithmStandbyRequest bool
	AbortTransfer           bool
	UpdateTransferCount     bool
	WakeupFifoIntDisable    bool
	NEDCoordinates          bool
	APSuspended             bool
	RequestSensorSelfTest   bool
	NonWakeupFifoIntDisable bool
}

func (HostInterfaceControl) Register() RegisterID { return RegHostInterfaceControl }

func (h HostInterfaceControl) EncodeRegister(b []byte) {
	b[0] = 0
	setBit(&b[0], 0, h.AlgorithmStandbyRequest)
	setBit(&b[0], 1, h.AbortTransfer)
	setBit(&b[0], 2, h.UpdateTransferCount)
	setBit(&b[0], 3, h.WakeupFifoIntDisable)
	setBit(&b[0], 4, h.NEDCoordinates)
	setBit(&b[0], 5, h.APSuspended)
	setBit(&b[0], 6, h.RequestSensorSelfTest)
	setBit(&b[0], 7, h.NonWakeupFifoIntDisable)
}

func (h *HostInterfaceControl) DecodeRegister(b []byte) {
	h.AlgorithmStandbyRequest = bit(b[0], 0)
	h.AbortTransfer = bit(b[0], 1)
	h.UpdateTransferCount = bit(b[0], 2)
	h.WakeupFifoIntDisable = bit(b[0], 3)
	h.NEDCoordinates = bit(b[0], 4)
	h.APSuspended = bit(b[0], 5)
	h.RequestSensorSelfTest = bit(b[0], 6)
	h.NonWakeupFifoIntDisable = bit(b[0], 7)
}

// Direction of a parameter request.
type Direction uint8

const (
	DirRead Direction = iota
	DirWrite
)

func (d Direction) String() string {
	if d == DirWrite {
		return "write"
	}
	return "read"
}

// ParameterRequest addresses a parameter within the selected page.
type ParameterRequest struct {
	Index     uint8 // 7 bits
	Direction Direction
}

func (ParameterRequest) Register() RegisterID { return RegParamRequest }

// Byte returns the single-byte encoding, which the device echoes on
// acknowledge.
func (r ParameterRequest) Byte() byte {
	return r.Index&0x7F | byte(r.Direction&1)<<7
}

func (r ParameterRequest) EncodeRegister(b []byte) { b[0] = r.Byte() }

func (r *ParameterRequest) DecodeRegister(b []byte) {
	r.Index = b[0] & 0x7F
	r.Direction = Direction(b[0] >> 7)
}

// RomVersion is the ROM software version (see RomVersionBHI160*).
type RomVersion uint16

func (RomVersion) Register() RegisterID { return RegRomVersion }
func (v *RomVersion) DecodeRegister(b []byte) {
	*v = RomVersion(binary.LittleEndian.Uint16(b))
}

// RamVersion is the version of the uploaded RAM patch, 0 if none.
type RamVersion uint16

func (RamVersion) Register() RegisterID { return RegRamVersion }
func (v *RamVersion) DecodeRegister(b []byte) {
	*v = RamVersion(binary.LittleEndian.Uint16(b))
}

type ProductID uint8

func (ProductID) Register() RegisterID       { return RegProductID }
func (p *ProductID) DecodeRegister(b []byte) { *p = ProductID(b[0]) }

type RevisionID uint8

func (RevisionID) Register() RegisterID       { return RegRevisionID }
func (r *RevisionID) DecodeRegister(b []byte) { *r = RevisionID(b[0]) }

// UploadAddress is the RAM upload cursor. It is big-endian on the wire and
// non-zero after an upload.
type UploadAddress uint16

func (UploadAddress) Register() RegisterID { return RegUploadAddress }

func (a UploadAddress) EncodeRegister(b []byte) {
	binary.BigEndian.PutUint16(b, uint16(a))
}

func (a *UploadAddress) DecodeRegister(b []byte) {
	*a = UploadAddress(binary.BigEndian.Uint16(b))
}

// UploadCRC is the CRC the device computed over the uploaded data.
type UploadCRC uint32

func (UploadCRC) Register() RegisterID { return RegUploadCRC }
func (c *UploadCRC) DecodeRegister(b []byte) {
	*c = UploadCRC(binary.LittleEndian.Uint32(b))
}

// ResetRequest resets the hub when written.
type ResetRequest struct{}

func (ResetRequest) Register() RegisterID    { return RegResetRequest }
func (ResetRequest) EncodeRegister(b []byte) { b[0] = 1 }
