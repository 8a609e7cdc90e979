package telemetry

import (
	"time"

	"sensorhub-go/drivers/bhi160"
	"sensorhub-go/types"
)

// Clock rebuilds the hub's 32-bit tick counter from timestamp records. The
// MSW record sets the upper half; every LSW record sets the lower half.
type Clock struct {
	msw, lsw uint16
	valid    bool
}

// Observe folds a timestamp record into the clock and reports whether ev was
// one.
func (c *Clock) Observe(ev bhi160.Event) bool {
	v, ok := ev.Data.(bhi160.Scalar)
	if !ok {
		return false
	}
	switch ev.ID {
	case bhi160.TimestampMsw, bhi160.TimestampMswWakeup:
		c.msw = uint16(v)
	case bhi160.TimestampLsw, bhi160.TimestampLswWakeup:
		c.lsw = uint16(v)
	default:
		return false
	}
	c.valid = true
	return true
}

// Ticks is the current device time in 1/32000 s.
func (c *Clock) Ticks() uint32 { return uint32(c.msw)<<16 | uint32(c.lsw) }

// Valid reports whether any timestamp record has been seen.
func (c *Clock) Valid() bool { return c.valid }

// NewSample converts a decoded event into its published form.
func NewSample(ev bhi160.Event, deviceTS uint32, runID string, now time.Time) types.Sample {
	s := types.Sample{
		Time:     now,
		RunID:    runID,
		Sensor:   ev.ID.Base().String(),
		SensorID: uint8(ev.ID),
		Wakeup:   ev.ID.IsWakeup(),
		Shape:    ev.ID.Shape().String(),
		DeviceTS: deviceTS,
	}

	switch d := ev.Data.(type) {
	case bhi160.QuaternionAccuracy:
		q := d.Quaternion
		s.Quaternion = []int16{q.X, q.Y, q.Z, q.W}
		acc := d.Accuracy
		s.Accuracy = &acc
		e := bhi160.Euler(bhi160.ConvertQuaternion[float32](q).Scale(bhi160.QuaternionScale))
		s.Euler = []float32{e.X(), e.Y(), e.Z()}
	case bhi160.VectorStatus:
		s.Vector = widen(d.Vector)
		s.Status = d.Status.String()
	case bhi160.Scalar:
		v := int32(d)
		s.Scalar = &v
	case bhi160.EventCode:
		v := uint8(d)
		s.Event = &v
	case bhi160.VectorBiasStatus:
		s.Vector = widen(d.Vector)
		s.Bias = widen(d.Bias)
		s.Status = d.Status.String()
	case bhi160.DebugData:
		s.Debug = append([]byte(nil), d[:]...)
	case bhi160.VectorTimestamp:
		s.Vector = []int32{d.Vector.X(), d.Vector.Y(), d.Vector.Z()}
		ts := d.Timestamp
		s.RawTS = &ts
	case bhi160.MetaEvent:
		s.Meta = newMetaSample(d)
	}
	return s
}

func widen(v bhi160.Vector[int16]) []int32 {
	w := bhi160.ConvertVector[int32](v)
	return w[:]
}

func newMetaSample(m bhi160.MetaEvent) *types.MetaSample {
	out := &types.MetaSample{Kind: m.Kind.String(), Value: m.Value, Debug: m.Debug, Count: m.Count}
	if m.Sensor != bhi160.SensorNone {
		out.Sensor = m.Sensor.String()
	}
	return out
}
