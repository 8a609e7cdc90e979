package bhi160

import (
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ParameterPage groups related parameters.
type ParameterPage uint8

const (
	// PageAck must be selected after finishing an access to PageAlgorithm so
	// the hub copies the algorithm data structures back.
	PageAck ParameterPage = 0
	// PageSystem holds system-wide parameters (meta event control, FIFO
	// control, sensor status).
	PageSystem ParameterPage = 1
	// PageAlgorithm holds algorithm coefficients and knobs.
	PageAlgorithm ParameterPage = 2
	// PageSensors holds per-sensor information and configuration.
	PageSensors ParameterPage = 3

	PageCustom12 ParameterPage = 12
	PageCustom13 ParameterPage = 13
	PageCustom14 ParameterPage = 14
)

func (p ParameterPage) String() string {
	switch p {
	case PageAck:
		return "ack"
	case PageSystem:
		return "system"
	case PageAlgorithm:
		return "algorithm"
	case PageSensors:
		return "sensors"
	case PageCustom12, PageCustom13, PageCustom14:
		return "custom" + strconv.Itoa(int(p))
	default:
		return "page" + strconv.Itoa(int(p))
	}
}

// ParseParameterPage resolves a page name as returned by String, or a page
// number 0..15.
func ParseParameterPage(s string) (ParameterPage, bool) {
	for p := ParameterPage(0); p < 16; p++ {
		if p.String() == s {
			return p, true
		}
	}
	n, err := strconv.ParseUint(s, 0, 4)
	if err != nil {
		return 0, false
	}
	return ParameterPage(n), true
}

// Transfer limits of the parameter data registers.
const (
	MaxReadParamSize  = 16
	MaxWriteParamSize = 8
)

// ParamDesc locates a parameter and fixes its width.
type ParamDesc struct {
	Page  ParameterPage
	Index uint8
	Size  int
}

// Parameter is implemented by typed parameter values.
type Parameter interface {
	Param() ParamDesc
}

// ParamDecoder is a readable parameter. Implementations use pointer receivers.
type ParamDecoder interface {
	Parameter
	DecodeParam(b []byte)
}

// ParamEncoder is a writable parameter.
type ParamEncoder interface {
	Parameter
	EncodeParam(b []byte)
}

// pageSelectSize encodes a transfer width for the page-select register: the
// direction maximum is encoded as 0.
func pageSelectSize(size, limit int) uint8 {
	if size >= limit {
		return 0
	}
	return uint8(size)
}

// ReadParam runs the read handshake for p and decodes the result into it.
func (d *Device) ReadParam(p ParamDecoder) error {
	desc := p.Param()
	b := make([]byte, desc.Size)
	if err := d.ReadParamRaw(desc.Page, desc.Index, b); err != nil {
		return err
	}
	p.DecodeParam(b)
	return nil
}

// WriteParam encodes p and runs the write handshake.
func (d *Device) WriteParam(p ParamEncoder) error {
	desc := p.Param()
	b := make([]byte, desc.Size)
	p.EncodeParam(b)
	return d.WriteParamRaw(desc.Page, desc.Index, b)
}

// ReadParamRaw reads len(buf) bytes (1..16) of parameter index on page:
//  1. select page and size
//  2. request the index for reading
//  3. poll the acknowledge register until it echoes the index
//  4. read the data register
//
// An Error acknowledge yields a *ParamError wrapping ErrParamRejected; an
// exhausted poll bound yields one wrapping ErrAckTimeout.
func (d *Device) ReadParamRaw(page ParameterPage, index uint8, buf []byte) error {
	if len(buf) == 0 || len(buf) > MaxReadParamSize {
		return ErrParamSize
	}
	d.log.Debug("read param", zap.Stringer("page", page), zap.Uint8("index", index), zap.Int("size", len(buf)))

	if err := d.WriteReg(ParameterPageSelect{Page: page, Size: pageSelectSize(len(buf), MaxReadParamSize)}); err != nil {
		return err
	}
	req := ParameterRequest{Index: index, Direction: DirRead}
	if err := d.WriteReg(req); err != nil {
		return err
	}
	if err := d.awaitAck(req.Byte()); err != nil {
		return d.paramErr(page, req, err)
	}
	return d.readRaw(RegParamReadData, buf)
}

// WriteParamRaw writes data (1..8 bytes) to parameter index on page:
//  1. load the data register
//  2. select page and size
//  3. request the index for writing
//  4. poll the acknowledge register until it echoes the request byte
//  5. issue a read request for index 0 to release the parameter interface,
//     so a later unrelated request is not taken as completing this write
func (d *Device) WriteParamRaw(page ParameterPage, index uint8, data []byte) error {
	if len(data) == 0 || len(data) > MaxWriteParamSize {
		return ErrParamSize
	}
	d.log.Debug("write param", zap.Stringer("page", page), zap.Uint8("index", index), zap.Binary("data", data))

	if err := d.writeRaw(RegParamWriteData, data); err != nil {
		return err
	}
	if err := d.WriteReg(ParameterPageSelect{Page: page, Size: pageSelectSize(len(data), MaxWriteParamSize)}); err != nil {
		return err
	}
	req := ParameterRequest{Index: index, Direction: DirWrite}
	if err := d.WriteReg(req); err != nil {
		return err
	}
	if err := d.awaitAck(req.Byte()); err != nil {
		return d.paramErr(page, req, err)
	}
	return d.WriteReg(ParameterRequest{Index: 0, Direction: DirRead})
}

func (d *Device) paramErr(page ParameterPage, req ParameterRequest, err error) error {
	if err != ErrParamRejected && err != ErrAckTimeout {
		return err
	}
	d.log.Debug("param handshake failed", zap.Stringer("page", page), zap.Uint8("index", req.Index), zap.Error(err))
	return &ParamError{Page: page, Index: req.Index, Direction: req.Direction, Err: err}
}

// awaitAck polls the acknowledge register until it reports want. Other
// request ids are ignored.
func (d *Device) awaitAck(want byte) error {
	return d.await(func() (bool, error) {
		var ack ParameterAcknowledge
		if err := d.ReadReg(&ack); err != nil {
			return false, err
		}
		if ack.Error {
			return false, ErrParamRejected
		}
		return ack.RequestID == want, nil
	})
}

// await repeats cond until it reports done or fails, honouring the
// configured poll bounds.
func (d *Device) await(cond func() (bool, error)) error {
	var deadline time.Time
	if d.cfg.AckTimeout > 0 {
		deadline = time.Now().Add(d.cfg.AckTimeout)
	}
	for n := 1; ; n++ {
		done, err := cond()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if d.cfg.MaxPolls > 0 && n >= d.cfg.MaxPolls {
			return ErrAckTimeout
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return ErrAckTimeout
		}
		if d.cfg.PollInterval > 0 {
			time.Sleep(d.cfg.PollInterval)
		}
	}
}
