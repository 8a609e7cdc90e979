package types

import "time"

// ---- Hub state (retained) ----

// Link is the link state reported for the hub.
type Link string

const (
	LinkUp       Link = "up"
	LinkDown     Link = "down"
	LinkDegraded Link = "degraded"
)

type HubState struct {
	Level  string `json:"level" yaml:"level" cbor:"1,keyasint"`   // e.g. "idle", "ready", "stopped"
	Status string `json:"status" yaml:"status" cbor:"2,keyasint"` // freeform short code
	Link   Link   `json:"link" yaml:"link" cbor:"3,keyasint"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty" cbor:"4,keyasint,omitempty"`
	TS     int64  `json:"ts_ms" yaml:"ts_ms" cbor:"5,keyasint"`
}

// HubInfo identifies the hub and the loaded firmware (retained).
type HubInfo struct {
	Driver     string `json:"driver" yaml:"driver" cbor:"1,keyasint"`
	Addr       uint16 `json:"addr" yaml:"addr" cbor:"2,keyasint"` // I2C address
	Bus        string `json:"bus" yaml:"bus" cbor:"3,keyasint"`
	ProductID  uint8  `json:"product_id" yaml:"product_id" cbor:"4,keyasint"`
	RevisionID uint8  `json:"revision_id" yaml:"revision_id" cbor:"5,keyasint"`
	RomVersion uint16 `json:"rom_version" yaml:"rom_version" cbor:"6,keyasint"`
	RamVersion uint16 `json:"ram_version" yaml:"ram_version" cbor:"7,keyasint"`
	RunID      string `json:"run_id" yaml:"run_id" cbor:"8,keyasint"`
}

// ---- Telemetry ----

// Sample is one decoded FIFO record. Exactly one of the payload groups is
// set, according to Shape.
type Sample struct {
	Time     time.Time `json:"time" yaml:"time" cbor:"1,keyasint"`
	RunID    string    `json:"run_id,omitempty" yaml:"run_id,omitempty" cbor:"2,keyasint,omitempty"`
	Sensor   string    `json:"sensor" yaml:"sensor" cbor:"3,keyasint"`
	SensorID uint8     `json:"sensor_id" yaml:"sensor_id" cbor:"4,keyasint"`
	Wakeup   bool      `json:"wakeup,omitempty" yaml:"wakeup,omitempty" cbor:"5,keyasint,omitempty"`
	Shape    string    `json:"shape" yaml:"shape" cbor:"6,keyasint"`

	// DeviceTS is the hub's 32-bit tick counter (1/32000 s) at the time of
	// the record, as rebuilt from timestamp records.
	DeviceTS uint32 `json:"device_ts" yaml:"device_ts" cbor:"7,keyasint"`

	Vector     []int32     `json:"vector,omitempty" yaml:"vector,omitempty" cbor:"8,keyasint,omitempty"`
	Bias       []int32     `json:"bias,omitempty" yaml:"bias,omitempty" cbor:"9,keyasint,omitempty"`
	Quaternion []int16     `json:"quaternion,omitempty" yaml:"quaternion,omitempty" cbor:"10,keyasint,omitempty"` // x, y, z, w
	Euler      []float32   `json:"euler,omitempty" yaml:"euler,omitempty" cbor:"11,keyasint,omitempty"`          // roll, pitch, yaw (rad)
	Accuracy   *int16      `json:"accuracy,omitempty" yaml:"accuracy,omitempty" cbor:"12,keyasint,omitempty"`
	Status     string      `json:"status,omitempty" yaml:"status,omitempty" cbor:"13,keyasint,omitempty"`
	Scalar     *int32      `json:"scalar,omitempty" yaml:"scalar,omitempty" cbor:"14,keyasint,omitempty"`
	Event      *uint8      `json:"event,omitempty" yaml:"event,omitempty" cbor:"15,keyasint,omitempty"`
	RawTS      *uint32     `json:"raw_ts,omitempty" yaml:"raw_ts,omitempty" cbor:"16,keyasint,omitempty"`
	Debug      []byte      `json:"debug,omitempty" yaml:"debug,omitempty" cbor:"17,keyasint,omitempty"`
	Meta       *MetaSample `json:"meta,omitempty" yaml:"meta,omitempty" cbor:"18,keyasint,omitempty"`
}

// MetaSample is the payload of a meta event record.
type MetaSample struct {
	Kind   string `json:"kind" yaml:"kind" cbor:"1,keyasint"`
	Sensor string `json:"sensor,omitempty" yaml:"sensor,omitempty" cbor:"2,keyasint,omitempty"`
	Value  uint8  `json:"value,omitempty" yaml:"value,omitempty" cbor:"3,keyasint,omitempty"`
	Debug  uint8  `json:"debug,omitempty" yaml:"debug,omitempty" cbor:"4,keyasint,omitempty"`
	Count  uint16 `json:"count,omitempty" yaml:"count,omitempty" cbor:"5,keyasint,omitempty"`
}

// TelemetryStats answers a stats request on the bus.
type TelemetryStats struct {
	RunID        string `json:"run_id" yaml:"run_id" cbor:"1,keyasint"`
	Drains       uint64 `json:"drains" yaml:"drains" cbor:"2,keyasint"`
	Bytes        uint64 `json:"bytes" yaml:"bytes" cbor:"3,keyasint"`
	Events       uint64 `json:"events" yaml:"events" cbor:"4,keyasint"`
	DecodeErrors uint64 `json:"decode_errors" yaml:"decode_errors" cbor:"5,keyasint"`
	DeviceTS     uint32 `json:"device_ts" yaml:"device_ts" cbor:"6,keyasint"`
}
