//go:build linux

package i2cdev

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// From <linux/i2c-dev.h> and <linux/i2c.h>.
const (
	i2cRDWR = 0x0707
	i2cMRD  = 0x0001
)

// i2cMsg mirrors struct i2c_msg.
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   *byte
}

// i2cRdwrData mirrors struct i2c_rdwr_ioctl_data.
type i2cRdwrData struct {
	msgs  *i2cMsg
	nmsgs uint32
}

// Bus is an open I2C adapter. Tx is safe for concurrent use; each call is one
// combined transaction with a repeated start between write and read.
type Bus struct {
	path string

	mu sync.Mutex
	fd int
}

// Open opens an adapter such as /dev/i2c-1.
func Open(path string) (*Bus, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("i2cdev: open %s: %w", path, err)
	}
	return &Bus{path: path, fd: fd}, nil
}

func (b *Bus) Path() string { return b.path }

// Tx writes w then reads len(r) bytes from the 7-bit address addr.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	msgs, err := buildMsgs(addr, w, r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return ErrClosed
	}

	data := i2cRdwrData{msgs: &msgs[0], nmsgs: uint32(len(msgs))}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(b.fd), i2cRDWR, uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	runtime.KeepAlive(msgs)
	if errno != 0 {
		return fmt.Errorf("i2cdev: %s addr 0x%02X: %w", b.path, addr, errno)
	}
	return nil
}

func buildMsgs(addr uint16, w, r []byte) ([]i2cMsg, error) {
	if len(w) > 0xFFFF || len(r) > 0xFFFF {
		return nil, ErrTooLong
	}
	msgs := make([]i2cMsg, 0, 2)
	if len(w) > 0 {
		msgs = append(msgs, i2cMsg{addr: addr, len: uint16(len(w)), buf: &w[0]})
	}
	if len(r) > 0 {
		msgs = append(msgs, i2cMsg{addr: addr, flags: i2cMRD, len: uint16(len(r)), buf: &r[0]})
	}
	if len(msgs) == 0 {
		return nil, ErrEmptyTx
	}
	return msgs, nil
}

// Close releases the adapter. Further Tx calls return ErrClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	return err
}
