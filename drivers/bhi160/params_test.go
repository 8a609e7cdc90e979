package bhi160

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensorhub-go/errcode"
)

func TestPageSelectSize(t *testing.T) {
	cases := []struct {
		size, limit int
		want        uint8
	}{
		{16, MaxReadParamSize, 0},
		{15, MaxReadParamSize, 15},
		{1, MaxReadParamSize, 1},
		{8, MaxWriteParamSize, 0},
		{7, MaxWriteParamSize, 7},
		{2, MaxWriteParamSize, 2},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, pageSelectSize(c.size, c.limit), "size=%d limit=%d", c.size, c.limit)
	}
}

func TestReadParamHandshake(t *testing.T) {
	f := newFakeBus()
	// Stale id first, then the echo of index 31.
	f.push(0x3A, []byte{5}, []byte{0}, []byte{31})
	f.set(0x3B,
		0x10, 0x00, 0xE8, 0x03, 0x07, // accel: 16 Hz, range 1000, data available|i2c nack|device id error
		0x00, 0x00, 0x00, 0x00, 0x00,
		0xC8, 0x00, 0x30, 0x00, 0xE1, // mag: 200 Hz, range 48, data available + active
	)
	d := newTestDevice(f)

	st, err := d.PhysicalSensorStatus()
	require.NoError(t, err)

	w := f.writes()
	require.Len(t, w, 2)
	assert.Equal(t, busOp{write: true, reg: 0x54, data: []byte{0xF1}}, w[0]) // system page, size 15
	assert.Equal(t, busOp{write: true, reg: 0x64, data: []byte{31}}, w[1])
	assert.Equal(t, 3, f.count(false, 0x3A))
	assert.Equal(t, 1, f.count(false, 0x3B))

	assert.Equal(t, uint16(16), st.Accel.SampleRate)
	assert.Equal(t, uint16(1000), st.Accel.DynamicRange)
	assert.True(t, st.Accel.Flags.DataAvailable)
	assert.True(t, st.Accel.Flags.DeviceIDError)
	assert.False(t, st.Accel.Flags.DataLost)
	assert.Equal(t, PowerSensorNotPresent, st.Gyro.Flags.PowerMode)
	assert.Equal(t, uint16(200), st.Mag.SampleRate)
	assert.Equal(t, PowerActive, st.Mag.Flags.PowerMode)
}

func TestReadParamFullWidthEncodesZero(t *testing.T) {
	f := newFakeBus()
	f.ackOnRequest()
	f.set(0x3B, byte(Accelerometer), 1, 2, 3, 0x10, 0x00, 12, 0, 0xC8, 0, 0, 0, 0x2C, 0x01, 8, 1)
	d := newTestDevice(f)

	info, err := d.SensorInfo(Accelerometer)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03}, f.writes()[0].data) // sensors page, size 16 -> 0
	assert.Equal(t, []byte{1}, f.writes()[1].data)
	assert.Equal(t, Accelerometer, info.SensorType)
	assert.Equal(t, uint16(16), info.MaxRange)
	assert.Equal(t, uint16(200), info.MaxRate)
	assert.Equal(t, uint16(300), info.FifoMax)
	assert.Equal(t, uint8(8), info.EventSize)
}

func TestWriteParamHandshake(t *testing.T) {
	f := newFakeBus()
	f.ackOnRequest()
	d := newTestDevice(f)

	require.NoError(t, d.EnableSensor(GameRotationVector, 100, 0))

	w := f.writes()
	require.Len(t, w, 4)
	assert.Equal(t, busOp{write: true, reg: 0x5C, data: []byte{100, 0, 0, 0, 0, 0, 0, 0}}, w[0])
	// Sensors page, size 8 encoded as 0.
	assert.Equal(t, busOp{write: true, reg: 0x54, data: []byte{0x03}}, w[1])
	// Index 15+64 with the write bit.
	assert.Equal(t, busOp{write: true, reg: 0x64, data: []byte{0x80 | 79}}, w[2])
	// Release.
	assert.Equal(t, busOp{write: true, reg: 0x64, data: []byte{0x00}}, w[3])
}

func TestWriteParamIgnoresReadEcho(t *testing.T) {
	f := newFakeBus()
	// The read-direction echo of the same index must not complete a write.
	f.push(0x3A, []byte{1}, []byte{0x81})
	d := newTestDevice(f)

	var m MetaEventControl
	m.Set(MetaFifoOverflow, MetaEventFlags{Enable: true, IntEnable: true})
	require.NoError(t, d.SetMetaEvents(m))
	assert.Equal(t, 2, f.count(false, 0x3A))

	w := f.writes()
	require.Len(t, w, 4)
	// event 12 -> bits 22,23
	assert.Equal(t, []byte{0, 0, 0xC0, 0, 0, 0, 0, 0}, w[0].data)
}

func TestParamErrorAcknowledge(t *testing.T) {
	f := newFakeBus()
	f.set(0x3A, 0x80)
	d := newTestDevice(f)

	err := d.ReadParamRaw(PageCustom13, 4, make([]byte, 4))
	require.Error(t, err)

	var pe *ParamError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, PageCustom13, pe.Page)
	assert.Equal(t, uint8(4), pe.Index)
	assert.Equal(t, DirRead, pe.Direction)
	assert.ErrorIs(t, err, ErrParamRejected)
	assert.Equal(t, errcode.ParamRejected, errcode.Of(err))
	assert.Zero(t, f.count(false, 0x3B), "data must not be read after an Error acknowledge")
}

func TestParamAckTimeoutByPolls(t *testing.T) {
	f := newFakeBus()
	d := New(f, Config{MaxPolls: 3})

	err := d.WriteParamRaw(PageAlgorithm, 9, []byte{1, 2})
	assert.ErrorIs(t, err, ErrAckTimeout)
	assert.Equal(t, errcode.Timeout, errcode.Of(err))
	assert.Equal(t, 3, f.count(false, 0x3A))
	// No release request after a failed write.
	assert.Equal(t, 1, f.count(true, 0x64))
}

func TestParamAckTimeoutByDeadline(t *testing.T) {
	f := newFakeBus()
	d := New(f, Config{AckTimeout: 5 * time.Millisecond, PollInterval: time.Millisecond})

	start := time.Now()
	_, err := d.MetaEvents()
	assert.ErrorIs(t, err, ErrAckTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestParamTransportErrorVerbatim(t *testing.T) {
	boom := errors.New("bus stuck")
	f := newFakeBus()
	f.fail[0x3A] = boom
	d := newTestDevice(f)

	err := d.ReadParamRaw(PageSystem, 1, make([]byte, 8))
	assert.Equal(t, boom, err)
	assert.Equal(t, errcode.Transport, errcode.MapDriverErr(err))
}

func TestParamSizeBounds(t *testing.T) {
	d := newTestDevice(newFakeBus())
	assert.ErrorIs(t, d.ReadParamRaw(PageSystem, 1, nil), ErrParamSize)
	assert.ErrorIs(t, d.ReadParamRaw(PageSystem, 1, make([]byte, 17)), ErrParamSize)
	assert.ErrorIs(t, d.WriteParamRaw(PageSystem, 1, make([]byte, 9)), ErrParamSize)
}

func TestSensorParamsRejectUnknownIDs(t *testing.T) {
	d := newTestDevice(newFakeBus())
	assert.ErrorIs(t, d.EnableSensor(MetaEventSensor, 1, 0), ErrUnknownSensor)
	assert.ErrorIs(t, d.DisableSensor(SensorNone), ErrUnknownSensor)
	_, err := d.SensorInfo(RawAccel)
	assert.ErrorIs(t, err, ErrUnknownSensor)
}

func TestMetaEventControlRoundTrip(t *testing.T) {
	var m MetaEventControl
	m.Set(MetaFlushComplete, MetaEventFlags{Enable: true})
	m.Set(MetaInitialized, MetaEventFlags{IntEnable: true})

	b := make([]byte, 8)
	m.EncodeParam(b)
	assert.Equal(t, []byte{0x02, 0, 0, 0x40, 0, 0, 0, 0}, b)

	var back MetaEventControl
	back.DecodeParam(b)
	assert.Equal(t, m, back)
	assert.True(t, back.Get(MetaFlushComplete).Enable)
	assert.False(t, back.Get(MetaFlushComplete).IntEnable)
}

func TestParseParameterPage(t *testing.T) {
	cases := map[string]ParameterPage{
		"system":   PageSystem,
		"sensors":  PageSensors,
		"custom13": PageCustom13,
		"2":        PageAlgorithm,
		"0x0e":     PageCustom14,
	}
	for in, want := range cases {
		got, ok := ParseParameterPage(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "bogus", "16"} {
		_, ok := ParseParameterPage(in)
		assert.False(t, ok, in)
	}
}
