package bhi160

import (
	"encoding/binary"
	"strconv"
)

// MetaEventKind is the leading code of a meta event record.
type MetaEventKind uint8

const (
	MetaFlushComplete       MetaEventKind = 1
	MetaSampleRateChanged   MetaEventKind = 2
	MetaPowerModeChanged    MetaEventKind = 3
	MetaError               MetaEventKind = 4
	MetaReserved            MetaEventKind = 5 // codes 5..10
	MetaSensorError         MetaEventKind = 11
	MetaFifoOverflow        MetaEventKind = 12
	MetaDynamicRangeChanged MetaEventKind = 13
	MetaFifoWatermark       MetaEventKind = 14
	MetaSelfTestResult      MetaEventKind = 15
	MetaInitialized         MetaEventKind = 16
)

func (k MetaEventKind) String() string {
	switch k {
	case MetaFlushComplete:
		return "flush_complete"
	case MetaSampleRateChanged:
		return "sample_rate_changed"
	case MetaPowerModeChanged:
		return "power_mode_changed"
	case MetaError:
		return "error"
	case MetaSensorError:
		return "sensor_error"
	case MetaFifoOverflow:
		return "fifo_overflow"
	case MetaDynamicRangeChanged:
		return "dynamic_range_changed"
	case MetaFifoWatermark:
		return "fifo_watermark"
	case MetaSelfTestResult:
		return "self_test_result"
	case MetaInitialized:
		return "initialized"
	}
	if k >= 5 && k <= 10 {
		return "reserved"
	}
	return "meta" + strconv.Itoa(int(k))
}

// MetaEvent is a decoded meta event. Which fields carry meaning depends on
// Kind:
//
//	FlushComplete, SampleRateChanged, DynamicRangeChanged  Sensor
//	PowerModeChanged, SensorError, SelfTestResult          Sensor, Value
//	Error                                                  Value (error register), Debug
//	FifoOverflow, FifoWatermark, Initialized               Count
//	Reserved                                               Value (raw code 5..10)
type MetaEvent struct {
	Kind   MetaEventKind
	Sensor SensorID
	Value  uint8
	Debug  uint8
	Count  uint16
}

// ParseMetaEvent decodes the three bytes of a meta event record. Codes 5..10
// all yield MetaReserved with the raw code kept in Value. An unknown code or an unknown embedded sensor id is
// a *DecodeError.
func ParseMetaEvent(b [3]byte) (MetaEvent, error) {
	k := MetaEventKind(b[0])
	switch k {
	case MetaFlushComplete, MetaSampleRateChanged, MetaDynamicRangeChanged:
		id, err := metaSensor(b)
		if err != nil {
			return MetaEvent{}, err
		}
		return MetaEvent{Kind: k, Sensor: id}, nil
	case MetaPowerModeChanged, MetaSensorError, MetaSelfTestResult:
		id, err := metaSensor(b)
		if err != nil {
			return MetaEvent{}, err
		}
		return MetaEvent{Kind: k, Sensor: id, Value: b[2]}, nil
	case MetaError:
		return MetaEvent{Kind: k, Value: b[1], Debug: b[2]}, nil
	case MetaFifoOverflow, MetaFifoWatermark, MetaInitialized:
		return MetaEvent{Kind: k, Count: binary.LittleEndian.Uint16(b[1:])}, nil
	}
	if k >= 5 && k <= 10 {
		return MetaEvent{Kind: MetaReserved, Value: b[0]}, nil
	}
	return MetaEvent{}, &DecodeError{Sensor: byte(MetaEventSensor), Value: b[0], Err: ErrInvalidMetaEvent}
}

func metaSensor(b [3]byte) (SensorID, error) {
	id, ok := LookupSensor(b[1])
	if !ok {
		return 0, &DecodeError{Sensor: byte(MetaEventSensor), Value: b[1], Err: ErrUnknownSensor}
	}
	return id, nil
}
