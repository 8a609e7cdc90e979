package bhi160

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// PollInterval is slept between parameter acknowledge polls. Zero polls
	// back-to-back.
	PollInterval time.Duration
	// AckTimeout bounds the wall time spent waiting for an acknowledge.
	AckTimeout time.Duration
	// MaxPolls bounds the number of acknowledge reads. With both AckTimeout
	// and MaxPolls zero the wait is unbounded.
	MaxPolls int
	// Logger receives debug traces of register traffic. Nil disables logging.
	Logger *zap.Logger
	// Progress, when set, is called after every firmware chunk.
	Progress func(done, total int)
}

// DefaultConfig returns bounded acknowledge polling suitable for 400 kHz I2C.
func DefaultConfig() Config {
	return Config{
		PollInterval: 500 * time.Microsecond,
		AckTimeout:   100 * time.Millisecond,
	}
}

// Validate rejects negative bounds.
func (c Config) Validate() error {
	if c.PollInterval < 0 {
		return errors.New("PollInterval must not be negative")
	}
	if c.AckTimeout < 0 {
		return errors.New("AckTimeout must not be negative")
	}
	if c.MaxPolls < 0 {
		return errors.New("MaxPolls must not be negative")
	}
	return nil
}

// Device is a BHI160(B) behind an Interface. It is not safe for concurrent
// use.
type Device struct {
	bus Interface
	cfg Config
	log *zap.Logger

	// Scratch for register transfers; sized for the widest register.
	buf [16]byte
}

// New constructs a Device. It does not touch the bus.
func New(bus Interface, cfg Config) *Device {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Device{bus: bus, cfg: cfg, log: log.Named("bhi160")}
}

// Config returns the active configuration.
func (d *Device) Config() Config { return d.cfg }

// ReadReg issues one bus read of the register's width at its address and
// decodes into r. Bus errors are returned as-is.
func (d *Device) ReadReg(r RegisterDecoder) error {
	id := r.Register()
	if !id.Access().CanRead() {
		return ErrAccess
	}
	b := d.buf[:id.Size()]
	if err := d.bus.ReadRegister(id.Addr(), b); err != nil {
		return err
	}
	r.DecodeRegister(b)
	return nil
}

// WriteReg encodes r and issues one bus write at its address.
func (d *Device) WriteReg(r RegisterEncoder) error {
	id := r.Register()
	if !id.Access().CanWrite() {
		return ErrAccess
	}
	b := d.buf[:id.Size()]
	r.EncodeRegister(b)
	if ce := d.log.Check(zap.DebugLevel, "write register"); ce != nil {
		ce.Write(zap.Stringer("reg", id), zap.Uint8("addr", id.Addr()), zap.Binary("data", b))
	}
	return d.bus.WriteRegister(id.Addr(), b)
}

// registerPtr constrains UpdateReg to pointer types of read-write registers.
type registerPtr[T any] interface {
	*T
	RegisterDecoder
	RegisterEncoder
}

// UpdateReg reads a register, applies f and writes the result back. The read
// and the write are separate bus transactions; nothing prevents another
// writer from interleaving.
func UpdateReg[T any, P registerPtr[T]](d *Device, f func(T) T) error {
	var v T
	if err := d.ReadReg(P(&v)); err != nil {
		return err
	}
	v = f(v)
	return d.WriteReg(P(&v))
}

// Raw transfers to burst registers; len(b) must not exceed the register size.

func (d *Device) readRaw(id RegisterID, b []byte) error {
	return d.bus.ReadRegister(id.Addr(), b)
}

func (d *Device) writeRaw(id RegisterID, b []byte) error {
	return d.bus.WriteRegister(id.Addr(), b)
}

// Identity.

func (d *Device) ProductID() (ProductID, error) {
	var v ProductID
	err := d.ReadReg(&v)
	return v, err
}

func (d *Device) RevisionID() (RevisionID, error) {
	var v RevisionID
	err := d.ReadReg(&v)
	return v, err
}

func (d *Device) RomVersion() (RomVersion, error) {
	var v RomVersion
	err := d.ReadReg(&v)
	return v, err
}

func (d *Device) RamVersion() (RamVersion, error) {
	var v RamVersion
	err := d.ReadReg(&v)
	return v, err
}

// Reset requests a device reset. Firmware must be uploaded again afterwards.
func (d *Device) Reset() error { return d.WriteReg(ResetRequest{}) }

// Run starts or halts the hub CPU with upload disabled.
func (d *Device) Run(on bool) error {
	return d.WriteReg(ChipControl{CPURunRequest: on})
}
