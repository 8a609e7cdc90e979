// Package i2cdev exposes a host I2C adapter (/dev/i2c-N) as a drivers.I2C.
package i2cdev

import (
	"errors"

	"tinygo.org/x/drivers"
)

var (
	ErrClosed      = errors.New("i2cdev: bus closed")
	ErrUnsupported = errors.New("i2cdev: host I2C is only available on linux")
	ErrEmptyTx     = errors.New("i2cdev: transaction has no data")
	ErrTooLong     = errors.New("i2cdev: transfer longer than 65535 bytes")
)

var _ drivers.I2C = (*Bus)(nil)
