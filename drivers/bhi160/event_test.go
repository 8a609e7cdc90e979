package bhi160

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensorhub-go/errcode"
)

func TestReadEventAccelerometer(t *testing.T) {
	r := bytes.NewReader([]byte{0x01, 0xFE, 0xFF, 0x05, 0x00, 0x69, 0x08, 0x02})
	ev, err := ReadEvent(r)
	require.NoError(t, err)

	assert.Equal(t, Event{
		ID:   Accelerometer,
		Data: VectorStatus{Vector: Vector[int16]{-2, 5, 2153}, Status: StatusMedium},
	}, ev)
	assert.Zero(t, r.Len())
}

func TestReadEventShapes(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want Event
	}{
		{
			"rotation vector",
			[]byte{byte(RotationVector), 1, 0, 2, 0, 3, 0, 0x00, 0x40, 0xFF, 0xFF},
			Event{RotationVector, QuaternionAccuracy{Quaternion[int16]{1, 2, 3, 0x4000}, -1}},
		},
		{
			"game rotation vector wakeup",
			[]byte{byte(GameRotationVector + WakeupOffset), 0, 0, 0, 0, 0, 0, 0, 0, 7, 0},
			Event{GameRotationVector + WakeupOffset, QuaternionAccuracy{Accuracy: 7}},
		},
		{
			"light is signed",
			[]byte{byte(Light), 0xFF, 0xFF},
			Event{Light, Scalar(-1)},
		},
		{
			"step counter is unsigned",
			[]byte{byte(StepCounter), 0xFF, 0xFF},
			Event{StepCounter, Scalar(65535)},
		},
		{
			"pressure is 24 bit",
			[]byte{byte(Pressure), 0x01, 0x02, 0x03},
			Event{Pressure, Scalar(0x030201)},
		},
		{
			"heart rate",
			[]byte{byte(HeartRate + WakeupOffset), 200},
			Event{HeartRate + WakeupOffset, Scalar(200)},
		},
		{
			"temperature",
			[]byte{byte(AmbientTemperature), 0x9C, 0xFF},
			Event{AmbientTemperature, Scalar(-100)},
		},
		{
			"activity",
			[]byte{byte(ActivityRecognition), 0x00, 0x80},
			Event{ActivityRecognition, Scalar(0x8000)},
		},
		{
			"step detector",
			[]byte{byte(StepDetector), 1},
			Event{StepDetector, EventCode(1)},
		},
		{
			"gyro uncalibrated",
			[]byte{byte(GyroscopeUncalibrated), 1, 0, 2, 0, 3, 0, 0xFF, 0xFF, 0xFE, 0xFF, 0xFD, 0xFF, 3},
			Event{GyroscopeUncalibrated, VectorBiasStatus{Vector[int16]{1, 2, 3}, Vector[int16]{-1, -2, -3}, StatusHigh}},
		},
		{
			"debug",
			append([]byte{byte(Debug)}, seq(13)...),
			Event{Debug, DebugData(seq(13))},
		},
		{
			"raw accel",
			[]byte{byte(RawAccel), 0xFF, 0xFF, 0xFF, 0xFF, 2, 0, 0, 0, 3, 0, 0, 0, 0x78, 0x56, 0x34, 0x12},
			Event{RawAccel, VectorTimestamp{Vector[int32]{-1, 2, 3}, 0x12345678}},
		},
		{
			"timestamp lsw wakeup",
			[]byte{byte(TimestampLswWakeup), 0x34, 0x12},
			Event{TimestampLswWakeup, Scalar(0x1234)},
		},
		{
			"timestamp msw",
			[]byte{byte(TimestampMsw), 0xFF, 0xFF},
			Event{TimestampMsw, Scalar(0xFFFF)},
		},
		{
			"meta event",
			[]byte{byte(MetaEventSensor), 12, 0x05, 0x00},
			Event{MetaEventSensor, MetaEvent{Kind: MetaFifoOverflow, Count: 5}},
		},
		{
			"meta event wakeup",
			[]byte{byte(MetaEventWakeup), 1, byte(Gyroscope), 0},
			Event{MetaEventWakeup, MetaEvent{Kind: MetaFlushComplete, Sensor: Gyroscope}},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := bytes.NewReader(c.in)
			ev, err := ReadEvent(r)
			require.NoError(t, err)
			assert.Equal(t, c.want, ev)
			assert.Zero(t, r.Len(), "record length")
			assert.Equal(t, c.want.ID.Shape(), ev.Data.Shape())
		})
	}
}

func TestReadEventNoneTerminates(t *testing.T) {
	r := bytes.NewReader([]byte{0x00, 0x01})
	ev, err := ReadEvent(r)
	require.NoError(t, err)
	assert.True(t, ev.IsNone())
	assert.Nil(t, ev.Data)
	assert.Equal(t, 1, r.Len())
}

func TestReadEventUnknownSensor(t *testing.T) {
	for _, id := range []byte{26, 30, 64, 200, 244, 255} {
		r := bytes.NewReader([]byte{id, 1, 2, 3})
		ev, err := ReadEvent(r)
		assert.Equal(t, Event{}, ev)
		assert.ErrorIs(t, err, ErrUnknownSensor, "id %d", id)
		assert.Equal(t, errcode.Decode, errcode.Of(err))
		assert.Equal(t, 3, r.Len(), "nothing past the id byte is consumed")
	}
}

func TestReadEventBadStatus(t *testing.T) {
	_, err := ReadEvent(bytes.NewReader([]byte{byte(Gravity), 0, 0, 0, 0, 0, 0, 4}))
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, byte(Gravity), de.Sensor)
	assert.Equal(t, byte(4), de.Value)
}

func TestReadEventBadMeta(t *testing.T) {
	_, err := ReadEvent(bytes.NewReader([]byte{byte(MetaEventWakeup), 17, 0, 0}))
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.ErrorIs(t, err, ErrInvalidMetaEvent)
	assert.Equal(t, byte(MetaEventWakeup), de.Sensor)
}

func TestReadEventShortSource(t *testing.T) {
	_, err := ReadEvent(bytes.NewReader(nil))
	assert.Equal(t, io.EOF, err)

	_, err = ReadEvent(bytes.NewReader([]byte{byte(Accelerometer), 1, 2}))
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestParseSensorStatus(t *testing.T) {
	want := []SensorStatus{StatusUnreliable, StatusLow, StatusMedium, StatusHigh}
	for b, w := range want {
		s, err := ParseSensorStatus(byte(b))
		require.NoError(t, err)
		assert.Equal(t, w, s)
	}
	for _, b := range []byte{4, 5, 0x80, 0xFF} {
		_, err := ParseSensorStatus(b)
		assert.ErrorIs(t, err, ErrInvalidStatus)
	}
}

func TestParseMetaEvent(t *testing.T) {
	cases := []struct {
		in   [3]byte
		want MetaEvent
	}{
		{[3]byte{1, byte(Accelerometer), 9}, MetaEvent{Kind: MetaFlushComplete, Sensor: Accelerometer}},
		{[3]byte{2, byte(Light), 0}, MetaEvent{Kind: MetaSampleRateChanged, Sensor: Light}},
		{[3]byte{3, byte(Gyroscope), 7}, MetaEvent{Kind: MetaPowerModeChanged, Sensor: Gyroscope, Value: 7}},
		{[3]byte{4, 0x11, 0x22}, MetaEvent{Kind: MetaError, Value: 0x11, Debug: 0x22}},
		{[3]byte{11, byte(GeomagneticField), 0x10}, MetaEvent{Kind: MetaSensorError, Sensor: GeomagneticField, Value: 0x10}},
		{[3]byte{12, 0x05, 0x00}, MetaEvent{Kind: MetaFifoOverflow, Count: 5}},
		{[3]byte{13, byte(Accelerometer), 0}, MetaEvent{Kind: MetaDynamicRangeChanged, Sensor: Accelerometer}},
		{[3]byte{14, 0x00, 0x01}, MetaEvent{Kind: MetaFifoWatermark, Count: 256}},
		{[3]byte{15, byte(Gyroscope), 1}, MetaEvent{Kind: MetaSelfTestResult, Sensor: Gyroscope, Value: 1}},
		{[3]byte{16, 0x34, 0x12}, MetaEvent{Kind: MetaInitialized, Count: 0x1234}},
	}
	for _, c := range cases {
		got, err := ParseMetaEvent(c.in)
		require.NoError(t, err, "%v", c.in)
		assert.Equal(t, c.want, got)
	}

	for code := byte(5); code <= 10; code++ {
		got, err := ParseMetaEvent([3]byte{code, 0xAB, 0xCD})
		require.NoError(t, err)
		assert.Equal(t, MetaEvent{Kind: MetaReserved, Value: code}, got)
		assert.Equal(t, "reserved", MetaEventKind(code).String())
	}

	for _, code := range []byte{0, 17, 0xFF} {
		_, err := ParseMetaEvent([3]byte{code, 1, 0})
		assert.ErrorIs(t, err, ErrInvalidMetaEvent)
	}

	_, err := ParseMetaEvent([3]byte{1, 100, 0})
	assert.ErrorIs(t, err, ErrUnknownSensor)
}

func TestDecoderStopsAtNone(t *testing.T) {
	stream := []byte{
		byte(StepDetector), 1,
		byte(TimestampLsw), 0x10, 0x00,
		0x00,
		byte(StepDetector), 2,
	}
	dec := NewDecoder(bytes.NewReader(stream))

	var ids []SensorID
	for dec.Next() {
		ids = append(ids, dec.Event().ID)
	}
	require.NoError(t, dec.Err())
	assert.Equal(t, []SensorID{StepDetector, TimestampLsw}, ids)
	assert.Equal(t, 6, dec.Consumed())
	assert.False(t, dec.Next(), "stays finished")
}

func TestDecoderReportsSourceExhaustion(t *testing.T) {
	dec := NewDecoder(bytes.NewReader([]byte{byte(StepDetector), 1}))
	require.True(t, dec.Next())
	require.False(t, dec.Next())
	assert.Equal(t, io.EOF, dec.Err())
}

func TestDecodeAll(t *testing.T) {
	t.Run("boundary end is clean", func(t *testing.T) {
		evs, n, err := DecodeAll([]byte{byte(Light), 1, 0, byte(Light), 2, 0})
		require.NoError(t, err)
		assert.Equal(t, 6, n)
		require.Len(t, evs, 2)
		assert.Equal(t, Scalar(2), evs[1].Data)
	})

	t.Run("partial record", func(t *testing.T) {
		evs, n, err := DecodeAll([]byte{byte(Light), 1, 0, byte(Accelerometer), 1, 2})
		assert.Equal(t, io.ErrUnexpectedEOF, err)
		assert.Equal(t, 3, n)
		assert.Len(t, evs, 1)
	})

	t.Run("unknown id keeps earlier events", func(t *testing.T) {
		evs, _, err := DecodeAll([]byte{byte(Light), 1, 0, 0x60})
		assert.ErrorIs(t, err, ErrUnknownSensor)
		assert.Len(t, evs, 1)
	})
}

func TestSensorIDTable(t *testing.T) {
	assert.Equal(t, "accelerometer", Accelerometer.String())
	assert.Equal(t, "accelerometer_wakeup", (Accelerometer + WakeupOffset).String())
	assert.Equal(t, "sensor200", SensorID(200).String())

	assert.True(t, (Gravity + WakeupOffset).IsWakeup())
	assert.True(t, MetaEventWakeup.IsWakeup())
	assert.False(t, Gravity.IsWakeup())
	assert.Equal(t, Gravity, (Gravity + WakeupOffset).Base())
	assert.Equal(t, MetaEventSensor, MetaEventWakeup.Base())
	assert.Equal(t, TimestampMswWakeup, TimestampMsw.Wakeup())
	assert.Equal(t, RawGyro, RawGyro.Wakeup())

	id, ok := ParseSensorID("pick_up_gesture_wakeup")
	assert.True(t, ok)
	assert.Equal(t, PickUpGesture+WakeupOffset, id)
	id, ok = ParseSensorID("0x01")
	assert.True(t, ok)
	assert.Equal(t, Accelerometer, id)
	_, ok = ParseSensorID("26")
	assert.False(t, ok)

	n := 0
	for b := 0; b < 256; b++ {
		if _, ok := LookupSensor(byte(b)); ok {
			n++
		}
	}
	// 26 virtual sensors, their wakeup variants, 10 reserved ids and None.
	assert.Equal(t, 26*2+10+1, n)
}

func TestEuler(t *testing.T) {
	const eps = 1e-6

	e := Euler(Quaternion[float64]{W: 1})
	assert.InDeltaSlice(t, []float64{0, 0, 0}, e[:], eps)

	// 90 degrees about z.
	s := math.Sqrt2 / 2
	e = Euler(Quaternion[float64]{Z: s, W: s})
	assert.InDelta(t, math.Pi/2, e.Z(), eps)

	// Slightly denormalised input at the pitch singularity stays finite.
	e = Euler(Quaternion[float64]{Y: 0.7072, W: 0.7072})
	assert.False(t, math.IsNaN(e.Y()))
	assert.InDelta(t, math.Pi/2, e.Y(), 1e-3)

	q := ConvertQuaternion[float32](Quaternion[int16]{W: 16384}).Scale(QuaternionScale)
	assert.InDelta(t, 0, float64(Euler(q).X()), eps)
}

func TestVectorOps(t *testing.T) {
	a := Vector[int32]{1, 2, 3}
	b := Vector[int32]{4, 5, 6}
	assert.Equal(t, Vector[int32]{5, 7, 9}, a.Add(b))
	assert.Equal(t, Vector[int32]{3, 3, 3}, b.Sub(a))
	assert.Equal(t, Vector[int32]{4, 10, 18}, a.Mul(b))
	assert.Equal(t, Vector[int32]{4, 2, 2}, b.Div(a))
	assert.Equal(t, Vector[int32]{2, 4, 6}, a.Scale(2))
	assert.Equal(t, Vector[float32]{1, 2, 3}, ConvertVector[float32](a))
}
