// Package bhi160 drives the Bosch BHI160/BHI160B sensor hub over its register
// interface: typed register access, the parameter request/acknowledge
// handshake, RAM firmware upload and decoding of the FIFO event stream.
//
// The driver is synchronous. A multi-step protocol (parameter exchange,
// firmware upload) leaves intermediate state on the device, so all access to
// one hub must be serialised by the caller.
package bhi160

// Access describes the permitted direction of a register.
type Access uint8

const (
	ReadOnly Access = 1 << iota
	WriteOnly
	ReadWrite = ReadOnly | WriteOnly
)

func (a Access) CanRead() bool  { return a&ReadOnly != 0 }
func (a Access) CanWrite() bool { return a&WriteOnly != 0 }

// RegisterID enumerates the registers known to the driver.
type RegisterID uint8

const (
	RegBufferOut RegisterID = iota
	RegFifoFlush
	RegChipControl
	RegHostStatus
	RegIntStatus
	RegChipStatus
	RegBytesRemaining
	RegParamAck
	RegParamReadData
	RegParamPageSelect
	RegHostInterfaceControl
	RegParamWriteData
	RegParamRequest
	RegRomVersion
	RegRamVersion
	RegProductID
	RegRevisionID
	RegUploadAddress
	RegUploadData
	RegUploadCRC
	RegResetRequest

	numRegisters
)

type regDesc struct {
	name   string
	addr   uint8
	size   int
	access Access
}

// Register map. For the burst targets (BufferOut, ParamReadData,
// ParamWriteData, UploadData) size is the largest single transfer.
var registers = [numRegisters]regDesc{
	RegBufferOut:            {"BufferOut", 0x00, 0x32, ReadOnly},
	RegFifoFlush:            {"FifoFlush", 0x32, 1, WriteOnly},
	RegChipControl:          {"ChipControl", 0x34, 1, ReadWrite},
	RegHostStatus:           {"HostStatus", 0x35, 1, ReadOnly},
	RegIntStatus:            {"IntStatus", 0x36, 1, ReadOnly},
	RegChipStatus:           {"ChipStatus", 0x37, 1, ReadOnly},
	RegBytesRemaining:       {"BytesRemaining", 0x38, 2, ReadOnly},
	RegParamAck:             {"ParameterAcknowledge", 0x3A, 1, ReadOnly},
	RegParamReadData:        {"ParameterReadData", 0x3B, 16, ReadOnly},
	RegParamPageSelect:      {"ParameterPageSelect", 0x54, 1, ReadWrite},
	RegHostInterfaceControl: {"HostInterfaceControl", 0x55, 1, ReadWrite},
	RegParamWriteData:       {"ParameterWriteData", 0x5C, 8, WriteOnly},
	RegParamRequest:         {"ParameterRequest", 0x64, 1, ReadWrite},
	RegRomVersion:           {"RomVersion", 0x70, 2, ReadOnly},
	RegRamVersion:           {"RamVersion", 0x72, 2, ReadOnly},
	RegProductID:            {"ProductID", 0x90, 1, ReadOnly},
	RegRevisionID:           {"RevisionID", 0x91, 1, ReadOnly},
	RegUploadAddress:        {"UploadAddress", 0x94, 2, ReadWrite},
	RegUploadData:           {"UploadData", 0x96, 16, WriteOnly},
	RegUploadCRC:            {"UploadCRC", 0x97, 4, ReadOnly},
	RegResetRequest:         {"ResetRequest", 0x9B, 1, WriteOnly},
}

func (r RegisterID) valid() bool { return r < numRegisters }

// Addr returns the bus address of the register.
func (r RegisterID) Addr() uint8 { return registers[r].addr }

// Size returns the register width in bytes.
func (r RegisterID) Size() int { return registers[r].size }

// Access returns the permitted direction.
func (r RegisterID) Access() Access { return registers[r].access }

func (r RegisterID) String() string {
	if !r.valid() {
		return "Register(?)"
	}
	return registers[r].name
}

// Known identity values.
const (
	ProductIDBHI160 = 0x83

	RevisionBHI160  = 0x01
	RevisionBHI160B = 0x03

	RomVersionBHI160  = 0x2112 // FUSER1_C2
	RomVersionBHI160B = 0x2DAD // FUSER1_C3
)
