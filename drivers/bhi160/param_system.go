package bhi160

import "encoding/binary"

// MetaEventFlags enables one meta event and its host interrupt.
type MetaEventFlags struct {
	IntEnable bool
	Enable    bool
}

// MetaEventControl holds the enable bits of meta events 1..32 (System page,
// parameter 1). Entry i controls meta event code i+1.
type MetaEventControl [32]MetaEventFlags

func (MetaEventControl) Param() ParamDesc {
	return ParamDesc{Page: PageSystem, Index: 1, Size: 8}
}

func (m MetaEventControl) EncodeParam(b []byte) {
	v := uint64(0)
	for i, f := range m {
		if f.IntEnable {
			v |= 1 << (2 * i)
		}
		if f.Enable {
			v |= 1 << (2*i + 1)
		}
	}
	binary.LittleEndian.PutUint64(b, v)
}

func (m *MetaEventControl) DecodeParam(b []byte) {
	v := binary.LittleEndian.Uint64(b)
	for i := range m {
		m[i] = MetaEventFlags{
			IntEnable: v&(1<<(2*i)) != 0,
			Enable:    v&(1<<(2*i+1)) != 0,
		}
	}
}

// Set updates the flags of one meta event kind.
func (m *MetaEventControl) Set(k MetaEventKind, f MetaEventFlags) {
	if k >= 1 && int(k) <= len(m) {
		m[k-1] = f
	}
}

// Get returns the flags of one meta event kind.
func (m MetaEventControl) Get(k MetaEventKind) MetaEventFlags {
	if k >= 1 && int(k) <= len(m) {
		return m[k-1]
	}
	return MetaEventFlags{}
}

// SensorPowerMode as reported in physical sensor status.
type SensorPowerMode uint8

const (
	PowerSensorNotPresent SensorPowerMode = iota
	PowerDown
	PowerSuspend
	PowerSelfTest
	PowerInterruptMotion
	PowerOneShot
	PowerLowPowerActive
	PowerActive
)

var powerModeNames = [...]string{
	"not_present", "power_down", "suspend", "self_test",
	"interrupt_motion", "one_shot", "low_power_active", "active",
}

func (m SensorPowerMode) String() string {
	if int(m) < len(powerModeNames) {
		return powerModeNames[m]
	}
	return "unknown"
}

// PhysicalSensorFlags is the per-sensor status byte.
type PhysicalSensorFlags struct {
	DataAvailable  bool
	I2CNack        bool
	DeviceIDError  bool
	TransientError bool
	DataLost       bool
	PowerMode      SensorPowerMode
}

func decodePhysicalSensorFlags(b byte) PhysicalSensorFlags {
	return PhysicalSensorFlags{
		DataAvailable:  bit(b, 0),
		I2CNack:        bit(b, 1),
		DeviceIDError:  bit(b, 2),
		TransientError: bit(b, 3),
		DataLost:       bit(b, 4),
		PowerMode:      SensorPowerMode(b >> 5),
	}
}

// PhysicalSensor is the rate, range and status of one physical sensor.
type PhysicalSensor struct {
	SampleRate   uint16
	DynamicRange uint16
	Flags        PhysicalSensorFlags
}

// PhysicalSensorStatus (System page, parameter 31) reports the physical
// accelerometer, gyroscope and magnetometer.
type PhysicalSensorStatus struct {
	Accel PhysicalSensor
	Gyro  PhysicalSensor
	Mag   PhysicalSensor
}

func (PhysicalSensorStatus) Param() ParamDesc {
	return ParamDesc{Page: PageSystem, Index: 31, Size: 15}
}

func (s *PhysicalSensorStatus) DecodeParam(b []byte) {
	for i, p := range []*PhysicalSensor{&s.Accel, &s.Gyro, &s.Mag} {
		o := i * 5
		p.SampleRate = binary.LittleEndian.Uint16(b[o:])
		p.DynamicRange = binary.LittleEndian.Uint16(b[o+2:])
		p.Flags = decodePhysicalSensorFlags(b[o+4])
	}
}
