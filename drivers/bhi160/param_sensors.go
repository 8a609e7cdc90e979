package bhi160

import (
	"encoding/binary"

	"go.uber.org/zap"
)

// Sensors page layout: information at index id, configuration at id+64.
const sensorConfigOffset = 64

// SensorInfo describes a virtual sensor. ID selects which sensor is read and
// must be set before ReadParam.
type SensorInfo struct {
	ID SensorID

	SensorType    SensorID // echoed by the device; should equal ID
	DriverID      uint8
	DriverVersion uint8
	Power         uint8 // 0.1 mA/LSB
	MaxRange      uint16
	Resolution    uint16 // bits
	MaxRate       uint16 // Hz
	FifoReserved  uint16
	FifoMax       uint16
	EventSize     uint8 // bytes, including the sensor id
	MinRate       uint8 // Hz
}

func (s SensorInfo) Param() ParamDesc {
	return ParamDesc{Page: PageSensors, Index: uint8(s.ID), Size: 16}
}

func (s *SensorInfo) DecodeParam(b []byte) {
	s.SensorType = SensorID(b[0])
	s.DriverID = b[1]
	s.DriverVersion = b[2]
	s.Power = b[3]
	s.MaxRange = binary.LittleEndian.Uint16(b[4:])
	s.Resolution = binary.LittleEndian.Uint16(b[6:])
	s.MaxRate = binary.LittleEndian.Uint16(b[8:])
	s.FifoReserved = binary.LittleEndian.Uint16(b[10:])
	s.FifoMax = binary.LittleEndian.Uint16(b[12:])
	s.EventSize = b[14]
	s.MinRate = b[15]
}

// SensorConfig requests a sensor state. Writing a non-zero SampleRate
// activates the sensor; reading back returns what the device actually chose.
type SensorConfig struct {
	ID SensorID

	SampleRate        uint16 // Hz
	MaxReportLatency  uint16 // ms, 0 disables batching
	ChangeSensitivity uint16
	DynamicRange      uint16 // 0 requests the default
}

func (s SensorConfig) Param() ParamDesc {
	return ParamDesc{Page: PageSensors, Index: uint8(s.ID) + sensorConfigOffset, Size: 8}
}

func (s SensorConfig) EncodeParam(b []byte) {
	binary.LittleEndian.PutUint16(b[0:], s.SampleRate)
	binary.LittleEndian.PutUint16(b[2:], s.MaxReportLatency)
	binary.LittleEndian.PutUint16(b[4:], s.ChangeSensitivity)
	binary.LittleEndian.PutUint16(b[6:], s.DynamicRange)
}

func (s *SensorConfig) DecodeParam(b []byte) {
	s.SampleRate = binary.LittleEndian.Uint16(b[0:])
	s.MaxReportLatency = binary.LittleEndian.Uint16(b[2:])
	s.ChangeSensitivity = binary.LittleEndian.Uint16(b[4:])
	s.DynamicRange = binary.LittleEndian.Uint16(b[6:])
}

// configurable reports whether id addresses a virtual sensor slot on the
// Sensors page (1..63).
func configurable(id SensorID) bool { return id >= 1 && id < sensorConfigOffset }

// SensorInfo reads the information parameter of id.
func (d *Device) SensorInfo(id SensorID) (SensorInfo, error) {
	if !configurable(id) {
		return SensorInfo{}, ErrUnknownSensor
	}
	info := SensorInfo{ID: id}
	err := d.ReadParam(&info)
	return info, err
}

// SensorConfig reads back the active configuration of id.
func (d *Device) SensorConfig(id SensorID) (SensorConfig, error) {
	if !configurable(id) {
		return SensorConfig{}, ErrUnknownSensor
	}
	cfg := SensorConfig{ID: id}
	err := d.ReadParam(&cfg)
	return cfg, err
}

// EnableSensor activates id at rateHz with the given batching latency.
func (d *Device) EnableSensor(id SensorID, rateHz, latencyMs uint16) error {
	if !configurable(id) {
		return ErrUnknownSensor
	}
	d.log.Debug("enable sensor", zap.Stringer("sensor", id), zap.Uint16("rate_hz", rateHz), zap.Uint16("latency_ms", latencyMs))
	return d.WriteParam(SensorConfig{ID: id, SampleRate: rateHz, MaxReportLatency: latencyMs})
}

// DisableSensor writes a zero sample rate for id.
func (d *Device) DisableSensor(id SensorID) error {
	if !configurable(id) {
		return ErrUnknownSensor
	}
	return d.WriteParam(SensorConfig{ID: id})
}

// MetaEvents reads the meta event enable bits.
func (d *Device) MetaEvents() (MetaEventControl, error) {
	var m MetaEventControl
	err := d.ReadParam(&m)
	return m, err
}

// SetMetaEvents writes the meta event enable bits.
func (d *Device) SetMetaEvents(m MetaEventControl) error { return d.WriteParam(m) }

// PhysicalSensorStatus reads rate, range and status of the physical sensors.
func (d *Device) PhysicalSensorStatus() (PhysicalSensorStatus, error) {
	var s PhysicalSensorStatus
	err := d.ReadParam(&s)
	return s, err
}
