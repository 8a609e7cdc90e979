package bhi160

import (
	"bytes"
	"sync"
)

// Compile-time check.
var _ Interface = (*fakeBus)(nil)

type busOp struct {
	write bool
	reg   uint8
	data  []byte
}

// Scripted register bus. Reads come from a per-address queue first, then
// from the static register image; writes are recorded and optionally hooked.
type fakeBus struct {
	mu sync.Mutex

	regs    map[uint8][]byte
	queue   map[uint8][][]byte
	ops     []busOp
	fail    map[uint8]error
	onWrite func(reg uint8, data []byte)
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		regs:  map[uint8][]byte{},
		queue: map[uint8][][]byte{},
		fail:  map[uint8]error{},
	}
}

func (f *fakeBus) ReadRegister(reg uint8, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ops = append(f.ops, busOp{reg: reg, data: make([]byte, len(buf))})
	if err := f.fail[reg]; err != nil {
		return err
	}
	src := f.regs[reg]
	if q := f.queue[reg]; len(q) > 0 {
		src, f.queue[reg] = q[0], q[1:]
	}
	clear(buf)
	copy(buf, src)
	copy(f.ops[len(f.ops)-1].data, buf)
	return nil
}

func (f *fakeBus) WriteRegister(reg uint8, buf []byte) error {
	f.mu.Lock()
	f.ops = append(f.ops, busOp{write: true, reg: reg, data: bytes.Clone(buf)})
	err := f.fail[reg]
	hook := f.onWrite
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook(reg, buf)
	}
	return nil
}

func (f *fakeBus) push(reg uint8, vals ...[]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[reg] = append(f.queue[reg], vals...)
}

func (f *fakeBus) set(reg uint8, v ...byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs[reg] = v
}

func (f *fakeBus) writes() []busOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []busOp
	for _, op := range f.ops {
		if op.write {
			out = append(out, op)
		}
	}
	return out
}

func (f *fakeBus) count(write bool, reg uint8) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, op := range f.ops {
		if op.write == write && op.reg == reg {
			n++
		}
	}
	return n
}

// ackOnRequest makes the acknowledge register echo every parameter request.
func (f *fakeBus) ackOnRequest() {
	f.onWrite = func(reg uint8, data []byte) {
		if reg == 0x64 {
			f.set(0x3A, data[0])
		}
	}
}

func newTestDevice(f *fakeBus) *Device {
	return New(f, Config{MaxPolls: 16})
}
