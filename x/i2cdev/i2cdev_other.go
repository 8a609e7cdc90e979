//go:build !linux

package i2cdev

// Bus is unavailable off linux; Open always fails.
type Bus struct{}

func Open(path string) (*Bus, error) { return nil, ErrUnsupported }

func (b *Bus) Path() string                      { return "" }
func (b *Bus) Tx(addr uint16, w, r []byte) error { return ErrUnsupported }
func (b *Bus) Close() error                      { return nil }
