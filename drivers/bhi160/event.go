package bhi160

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// SensorStatus is the accuracy byte trailing vector samples.
type SensorStatus uint8

const (
	StatusUnreliable SensorStatus = iota
	StatusLow
	StatusMedium
	StatusHigh
)

func (s SensorStatus) String() string {
	switch s {
	case StatusUnreliable:
		return "unreliable"
	case StatusLow:
		return "low"
	case StatusMedium:
		return "medium"
	case StatusHigh:
		return "high"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// ParseSensorStatus accepts 0..3.
func ParseSensorStatus(b byte) (SensorStatus, error) {
	if b > byte(StatusHigh) {
		return 0, ErrInvalidStatus
	}
	return SensorStatus(b), nil
}

// Data is the payload of an Event. The concrete type follows the sensor's
// Shape:
//
//	ShapeQuaternion       QuaternionAccuracy
//	ShapeVectorStatus     VectorStatus
//	ShapeScalar           Scalar
//	ShapeEvent            EventCode
//	ShapeVectorBias       VectorBiasStatus
//	ShapeDebug            DebugData
//	ShapeVectorTimestamp  VectorTimestamp
//	ShapeMeta             MetaEvent
type Data interface {
	Shape() Shape
	isData()
}

type QuaternionAccuracy struct {
	Quaternion Quaternion[int16]
	Accuracy   int16
}

type VectorStatus struct {
	Vector Vector[int16]
	Status SensorStatus
}

// Scalar is a single reading widened to 32 bits.
type Scalar int32

// EventCode is the one-byte payload of gesture and detector sensors.
type EventCode uint8

type VectorBiasStatus struct {
	Vector Vector[int16]
	Bias   Vector[int16]
	Status SensorStatus
}

// DebugData is opaque firmware debug output.
type DebugData [13]byte

// VectorTimestamp is a raw physical sample with the device tick it was taken
// at.
type VectorTimestamp struct {
	Vector    Vector[int32]
	Timestamp uint32
}

func (QuaternionAccuracy) Shape() Shape { return ShapeQuaternion }
func (VectorStatus) Shape() Shape       { return ShapeVectorStatus }
func (Scalar) Shape() Shape             { return ShapeScalar }
func (EventCode) Shape() Shape          { return ShapeEvent }
func (VectorBiasStatus) Shape() Shape   { return ShapeVectorBias }
func (DebugData) Shape() Shape          { return ShapeDebug }
func (VectorTimestamp) Shape() Shape    { return ShapeVectorTimestamp }
func (MetaEvent) Shape() Shape          { return ShapeMeta }

func (QuaternionAccuracy) isData() {}
func (VectorStatus) isData()       {}
func (Scalar) isData()             {}
func (EventCode) isData()          {}
func (VectorBiasStatus) isData()   {}
func (DebugData) isData()          {}
func (VectorTimestamp) isData()    {}
func (MetaEvent) isData()          {}

// Event is one decoded FIFO record.
type Event struct {
	ID   SensorID
	Data Data
}

// IsNone reports the terminator record.
func (e Event) IsNone() bool { return e.ID == SensorNone }

// maxPayload is the longest record body (raw physical samples).
const maxPayload = 16

// ReadEvent reads one record from r. A None id yields Event{ID: SensorNone}
// and no error. An exhausted source yields io.EOF before the id byte and
// io.ErrUnexpectedEOF inside a record. Unknown ids and bad status or meta
// bytes yield a *DecodeError; an unknown id consumes nothing past itself.
func ReadEvent(r io.Reader) (Event, error) {
	var buf [1 + maxPayload]byte
	return readEvent(r, &buf)
}

func readEvent(r io.Reader, buf *[1 + maxPayload]byte) (Event, error) {
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return Event{}, err
	}
	id, ok := LookupSensor(buf[0])
	if !ok {
		return Event{}, &DecodeError{Sensor: buf[0], Value: buf[0], Err: ErrUnknownSensor}
	}
	if id == SensorNone {
		return Event{ID: SensorNone}, nil
	}
	p := buf[1 : 1+id.payloadLen()]
	if _, err := io.ReadFull(r, p); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Event{}, err
	}
	data, err := decodePayload(id, p)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: id, Data: data}, nil
}

func decodePayload(id SensorID, p []byte) (Data, error) {
	le := binary.LittleEndian
	i16 := func(off int) int16 { return int16(le.Uint16(p[off:])) }
	vec16 := func(off int) Vector[int16] { return Vector[int16]{i16(off), i16(off + 2), i16(off + 4)} }
	status := func(b byte) (SensorStatus, error) {
		s, err := ParseSensorStatus(b)
		if err != nil {
			return 0, &DecodeError{Sensor: byte(id), Value: b, Err: err}
		}
		return s, nil
	}

	desc := sensorTable[id]
	switch desc.shape {
	case ShapeQuaternion:
		return QuaternionAccuracy{
			Quaternion: Quaternion[int16]{X: i16(0), Y: i16(2), Z: i16(4), W: i16(6)},
			Accuracy:   i16(8),
		}, nil

	case ShapeVectorStatus:
		s, err := status(p[6])
		if err != nil {
			return nil, err
		}
		return VectorStatus{Vector: vec16(0), Status: s}, nil

	case ShapeScalar:
		switch desc.scalar {
		case scalarU8:
			return Scalar(p[0]), nil
		case scalarU16:
			return Scalar(le.Uint16(p)), nil
		case scalarU24:
			return Scalar(uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16), nil
		default:
			return Scalar(i16(0)), nil
		}

	case ShapeEvent:
		return EventCode(p[0]), nil

	case ShapeVectorBias:
		s, err := status(p[12])
		if err != nil {
			return nil, err
		}
		return VectorBiasStatus{Vector: vec16(0), Bias: vec16(6), Status: s}, nil

	case ShapeDebug:
		var d DebugData
		copy(d[:], p)
		return d, nil

	case ShapeVectorTimestamp:
		return VectorTimestamp{
			Vector:    Vector[int32]{int32(le.Uint32(p[0:])), int32(le.Uint32(p[4:])), int32(le.Uint32(p[8:]))},
			Timestamp: le.Uint32(p[12:]),
		}, nil

	case ShapeMeta:
		m, err := ParseMetaEvent([3]byte(p))
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				de.Sensor = byte(id)
			}
			return nil, err
		}
		return m, nil
	}
	return nil, &DecodeError{Sensor: byte(id), Value: byte(id), Err: ErrUnknownSensor}
}

// Decoder pulls events lazily from a byte source, one record per Next.
//
//	dec := bhi160.NewDecoder(r)
//	for dec.Next() {
//		handle(dec.Event())
//	}
//	if err := dec.Err(); err != nil && err != io.EOF { ... }
type Decoder struct {
	r        io.Reader
	buf      [1 + maxPayload]byte
	ev       Event
	err      error
	done     bool
	consumed int
}

func NewDecoder(r io.Reader) *Decoder { return &Decoder{r: r} }

// Next decodes the following record. It returns false on a None record
// (clean end, Err is nil), on source exhaustion (Err is io.EOF at a record
// boundary, io.ErrUnexpectedEOF inside one) or on a decode failure.
func (d *Decoder) Next() bool {
	if d.done {
		return false
	}
	ev, err := readEvent(d.r, &d.buf)
	if err != nil {
		d.err, d.done = err, true
		return false
	}
	d.consumed += 1 + ev.ID.payloadLen()
	if ev.IsNone() {
		d.done = true
		return false
	}
	d.ev = ev
	return true
}

// Event returns the record decoded by the last successful Next.
func (d *Decoder) Event() Event { return d.ev }

func (d *Decoder) Err() error { return d.err }

// Consumed is the number of bytes of complete records read so far, including
// a terminating None.
func (d *Decoder) Consumed() int { return d.consumed }

// DecodeAll decodes every record in b up to a None id or the end of b, and
// returns the events together with the number of bytes they used. Running
// out of bytes at a record boundary is not an error; a record cut short
// yields io.ErrUnexpectedEOF with the preceding events intact.
func DecodeAll(b []byte) ([]Event, int, error) {
	dec := NewDecoder(bytes.NewReader(b))
	var out []Event
	for dec.Next() {
		out = append(out, dec.Event())
	}
	if err := dec.Err(); err != nil && err != io.EOF {
		return out, dec.Consumed(), err
	}
	return out, dec.Consumed(), nil
}
