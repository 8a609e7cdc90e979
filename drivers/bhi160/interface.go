package bhi160

import "tinygo.org/x/drivers"

// I2C addresses selectable via the SA0 strap.
const (
	AddressLow  = 0x28
	AddressHigh = 0x29
)

// Interface is the byte-level register transport. Each call is one complete
// bus transaction.
type Interface interface {
	ReadRegister(reg uint8, buf []byte) error
	WriteRegister(reg uint8, buf []byte) error
}

// maxBurst is the largest single write the driver issues (upload chunks).
const maxBurst = 16

// I2C adapts a drivers.I2C bus to Interface.
//
// NOTE: Tx MUST perform the register-address write followed by a
// repeated-start read when both w and r are provided.
type I2C struct {
	bus  drivers.I2C
	addr uint16

	w [1 + maxBurst]byte
}

// NewI2C binds the hub at addr on bus. addr 0 selects AddressLow.
func NewI2C(bus drivers.I2C, addr uint16) *I2C {
	if addr == 0 {
		addr = AddressLow
	}
	return &I2C{bus: bus, addr: addr}
}

// Addr returns the 7-bit device address.
func (i *I2C) Addr() uint16 { return i.addr }

func (i *I2C) ReadRegister(reg uint8, buf []byte) error {
	i.w[0] = reg
	return i.bus.Tx(i.addr, i.w[:1], buf)
}

func (i *I2C) WriteRegister(reg uint8, buf []byte) error {
	var w []byte
	if len(buf) > maxBurst {
		w = make([]byte, 1+len(buf))
	} else {
		w = i.w[:1+len(buf)]
	}
	w[0] = reg
	copy(w[1:], buf)
	return i.bus.Tx(i.addr, w, nil)
}
