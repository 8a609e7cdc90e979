package bhi160

import "strconv"

// SensorID identifies the producer of a FIFO record. Virtual sensors occupy
// 1..31 with their wakeup variant at id+32; 245..254 are reserved for debug,
// raw physical data, timestamps and meta events.
type SensorID uint8

const (
	SensorNone SensorID = 0

	Accelerometer             SensorID = 1
	GeomagneticField          SensorID = 2
	Orientation               SensorID = 3
	Gyroscope                 SensorID = 4
	Light                     SensorID = 5
	Pressure                  SensorID = 6
	Temperature               SensorID = 7
	Proximity                 SensorID = 8
	Gravity                   SensorID = 9
	LinearAcceleration        SensorID = 10
	RotationVector            SensorID = 11
	Humidity                  SensorID = 12
	AmbientTemperature        SensorID = 13
	MagneticFieldUncalibrated SensorID = 14
	GameRotationVector        SensorID = 15
	GyroscopeUncalibrated     SensorID = 16
	SignificantMotion         SensorID = 17
	StepDetector              SensorID = 18
	StepCounter               SensorID = 19
	GeomagneticRotationVector SensorID = 20
	HeartRate                 SensorID = 21
	TiltDetector              SensorID = 22
	WakeGesture               SensorID = 23
	GlanceGesture             SensorID = 24
	PickUpGesture             SensorID = 25
	ActivityRecognition       SensorID = 31

	// WakeupOffset separates a virtual sensor from its wakeup variant.
	WakeupOffset SensorID = 32

	Debug              SensorID = 245
	TimestampLswWakeup SensorID = 246
	TimestampMswWakeup SensorID = 247
	MetaEventWakeup    SensorID = 248
	RawGyro            SensorID = 249
	RawMag             SensorID = 250
	RawAccel           SensorID = 251
	TimestampLsw       SensorID = 252
	TimestampMsw       SensorID = 253
	MetaEventSensor    SensorID = 254
)

// Shape is the payload layout that follows a sensor id in the FIFO.
type Shape uint8

const (
	ShapeNone Shape = iota
	ShapeQuaternion
	ShapeVectorStatus
	ShapeScalar
	ShapeEvent
	ShapeVectorBias
	ShapeDebug
	ShapeVectorTimestamp
	ShapeMeta
)

var shapeNames = [...]string{
	ShapeNone:            "none",
	ShapeQuaternion:      "quaternion",
	ShapeVectorStatus:    "vector_status",
	ShapeScalar:          "scalar",
	ShapeEvent:           "event",
	ShapeVectorBias:      "vector_bias",
	ShapeDebug:           "debug",
	ShapeVectorTimestamp: "vector_timestamp",
	ShapeMeta:            "meta",
}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return "shape" + strconv.Itoa(int(s))
}

// scalarKind is the wire encoding of a ShapeScalar payload.
type scalarKind uint8

const (
	scalarNone scalarKind = iota
	scalarI16
	scalarU16
	scalarU24
	scalarU8
)

type sensorDesc struct {
	name   string
	shape  Shape
	scalar scalarKind
	known  bool
}

var sensorTable [256]sensorDesc

func init() {
	virtual := []struct {
		id     SensorID
		name   string
		shape  Shape
		scalar scalarKind
	}{
		{Accelerometer, "accelerometer", ShapeVectorStatus, scalarNone},
		{GeomagneticField, "geomagnetic_field", ShapeVectorStatus, scalarNone},
		{Orientation, "orientation", ShapeVectorStatus, scalarNone},
		{Gyroscope, "gyroscope", ShapeVectorStatus, scalarNone},
		{Light, "light", ShapeScalar, scalarI16},
		{Pressure, "pressure", ShapeScalar, scalarU24},
		{Temperature, "temperature", ShapeScalar, scalarI16},
		{Proximity, "proximity", ShapeScalar, scalarI16},
		{Gravity, "gravity", ShapeVectorStatus, scalarNone},
		{LinearAcceleration, "linear_acceleration", ShapeVectorStatus, scalarNone},
		{RotationVector, "rotation_vector", ShapeQuaternion, scalarNone},
		{Humidity, "humidity", ShapeScalar, scalarI16},
		{AmbientTemperature, "ambient_temperature", ShapeScalar, scalarI16},
		{MagneticFieldUncalibrated, "magnetic_field_uncalibrated", ShapeVectorBias, scalarNone},
		{GameRotationVector, "game_rotation_vector", ShapeQuaternion, scalarNone},
		{GyroscopeUncalibrated, "gyroscope_uncalibrated", ShapeVectorBias, scalarNone},
		{SignificantMotion, "significant_motion", ShapeEvent, scalarNone},
		{StepDetector, "step_detector", ShapeEvent, scalarNone},
		{StepCounter, "step_counter", ShapeScalar, scalarU16},
		{GeomagneticRotationVector, "geomagnetic_rotation_vector", ShapeQuaternion, scalarNone},
		{HeartRate, "heart_rate", ShapeScalar, scalarU8},
		{TiltDetector, "tilt_detector", ShapeEvent, scalarNone},
		{WakeGesture, "wake_gesture", ShapeEvent, scalarNone},
		{GlanceGesture, "glance_gesture", ShapeEvent, scalarNone},
		{PickUpGesture, "pick_up_gesture", ShapeEvent, scalarNone},
		{ActivityRecognition, "activity_recognition", ShapeScalar, scalarU16},
	}
	for _, v := range virtual {
		sensorTable[v.id] = sensorDesc{v.name, v.shape, v.scalar, true}
		sensorTable[v.id+WakeupOffset] = sensorDesc{v.name + "_wakeup", v.shape, v.scalar, true}
	}

	sensorTable[SensorNone] = sensorDesc{"none", ShapeNone, scalarNone, true}
	sensorTable[Debug] = sensorDesc{"debug", ShapeDebug, scalarNone, true}
	sensorTable[RawAccel] = sensorDesc{"raw_accel", ShapeVectorTimestamp, scalarNone, true}
	sensorTable[RawMag] = sensorDesc{"raw_mag", ShapeVectorTimestamp, scalarNone, true}
	sensorTable[RawGyro] = sensorDesc{"raw_gyro", ShapeVectorTimestamp, scalarNone, true}
	sensorTable[TimestampLsw] = sensorDesc{"timestamp_lsw", ShapeScalar, scalarU16, true}
	sensorTable[TimestampLswWakeup] = sensorDesc{"timestamp_lsw_wakeup", ShapeScalar, scalarU16, true}
	sensorTable[TimestampMsw] = sensorDesc{"timestamp_msw", ShapeScalar, scalarU16, true}
	sensorTable[TimestampMswWakeup] = sensorDesc{"timestamp_msw_wakeup", ShapeScalar, scalarU16, true}
	sensorTable[MetaEventSensor] = sensorDesc{"meta_event", ShapeMeta, scalarNone, true}
	sensorTable[MetaEventWakeup] = sensorDesc{"meta_event_wakeup", ShapeMeta, scalarNone, true}
}

// LookupSensor maps a raw id byte to a SensorID, reporting false for codes
// the device never emits.
func LookupSensor(b byte) (SensorID, bool) {
	return SensorID(b), sensorTable[b].known
}

// Known reports whether id is in the sensor table.
func (id SensorID) Known() bool { return sensorTable[id].known }

// Shape returns the payload layout of id (ShapeNone for unknown ids).
func (id SensorID) Shape() Shape { return sensorTable[id].shape }

// IsWakeup reports whether id is a wakeup variant.
func (id SensorID) IsWakeup() bool {
	switch id {
	case TimestampLswWakeup, TimestampMswWakeup, MetaEventWakeup:
		return true
	}
	return id > WakeupOffset && id < 2*WakeupOffset && sensorTable[id].known
}

// Base strips the wakeup variant.
func (id SensorID) Base() SensorID {
	switch id {
	case TimestampLswWakeup:
		return TimestampLsw
	case TimestampMswWakeup:
		return TimestampMsw
	case MetaEventWakeup:
		return MetaEventSensor
	}
	if id.IsWakeup() {
		return id - WakeupOffset
	}
	return id
}

// Wakeup returns the wakeup variant of a virtual sensor, or id unchanged.
func (id SensorID) Wakeup() SensorID {
	switch id {
	case TimestampLsw:
		return TimestampLswWakeup
	case TimestampMsw:
		return TimestampMswWakeup
	case MetaEventSensor:
		return MetaEventWakeup
	}
	if id >= 1 && id < WakeupOffset && sensorTable[id].known {
		return id + WakeupOffset
	}
	return id
}

func (id SensorID) String() string {
	if d := sensorTable[id]; d.known {
		return d.name
	}
	return "sensor" + strconv.Itoa(int(id))
}

// ParseSensorID resolves a name as returned by String, or a decimal id.
func ParseSensorID(s string) (SensorID, bool) {
	for i := range sensorTable {
		if sensorTable[i].known && sensorTable[i].name == s {
			return SensorID(i), true
		}
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, false
	}
	return LookupSensor(byte(n))
}

// payloadLen is the number of bytes that follow id in the FIFO.
func (id SensorID) payloadLen() int {
	d := sensorTable[id]
	switch d.shape {
	case ShapeQuaternion:
		return 10
	case ShapeVectorStatus:
		return 7
	case ShapeScalar:
		switch d.scalar {
		case scalarU8:
			return 1
		case scalarU24:
			return 3
		default:
			return 2
		}
	case ShapeEvent:
		return 1
	case ShapeVectorBias:
		return 13
	case ShapeDebug:
		return 13
	case ShapeVectorTimestamp:
		return 16
	case ShapeMeta:
		return 3
	}
	return 0
}
