package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensorhub-go/errcode"
	"sensorhub-go/types"
)

func sensorTopic(prefix, name string) Topic { return Topic{prefix, "sensor", name} }

func sample(name string, ts uint32) types.Sample {
	return types.Sample{Sensor: name, Shape: "vector_status", DeviceTS: ts, Vector: []int32{1, 2, 3}}
}

func next(t *testing.T, sub *Subscription) *Message {
	t.Helper()
	select {
	case m, ok := <-sub.Channel():
		require.True(t, ok, "subscription closed")
		return m
	case <-time.After(time.Second):
		t.Fatalf("no message on %s", sub.Topic())
	}
	return nil
}

func quiet(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected message on %s: %v", m.Topic, m.Payload)
	case <-time.After(30 * time.Millisecond):
	}
}

// sensorNames reads n samples and returns their sensor names in arrival order.
func sensorNames(t *testing.T, sub *Subscription, n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	for range n {
		out = append(out, next(t, sub).Payload.(types.Sample).Sensor)
	}
	return out
}

func TestSampleRoutingUnderPrefix(t *testing.T) {
	for _, prefix := range []string{"hub", "imu0"} {
		t.Run(prefix, func(t *testing.T) {
			b := NewBus(8)
			pub := b.NewConnection("telemetry")
			watch := b.NewConnection("watch")

			accel := watch.Subscribe(sensorTopic(prefix, "accelerometer"))
			anySensor := watch.Subscribe(Topic{prefix, "sensor", "+"})
			everything := watch.Subscribe(Topic{prefix, "#"})
			meta := watch.Subscribe(Topic{prefix, "meta", "+"})
			other := watch.Subscribe(Topic{"elsewhere", "#"})

			pub.Publish(pub.NewMessage(sensorTopic(prefix, "accelerometer"), sample("accelerometer", 10), false))
			pub.Publish(pub.NewMessage(sensorTopic(prefix, "gyroscope"), sample("gyroscope", 11), false))
			pub.Publish(pub.NewMessage(Topic{prefix, "meta", "fifo_overflow"},
				types.Sample{Sensor: "meta_event", Meta: &types.MetaSample{Kind: "fifo_overflow", Count: 3}}, false))

			m := next(t, accel)
			assert.Equal(t, prefix+"/sensor/accelerometer", m.Topic.String())
			assert.False(t, m.Retained)
			assert.Equal(t, uint32(10), m.Payload.(types.Sample).DeviceTS)
			quiet(t, accel)

			assert.Equal(t, []string{"accelerometer", "gyroscope"}, sensorNames(t, anySensor, 2))
			quiet(t, anySensor)

			assert.Len(t, sensorNames(t, everything, 3), 3)

			mm := next(t, meta).Payload.(types.Sample)
			require.NotNil(t, mm.Meta)
			assert.Equal(t, uint16(3), mm.Meta.Count)

			quiet(t, other)
		})
	}
}

func TestHubStateRetained(t *testing.T) {
	b := NewBus(4)
	hb := b.NewConnection("heartbeat")
	state := Topic{"hub", "state"}

	hb.Publish(hb.NewMessage(state, types.HubState{Level: "ready", Link: types.LinkUp, TS: 1}, true))
	hb.Publish(hb.NewMessage(state, types.HubState{Level: "degraded", Link: types.LinkDegraded, TS: 2}, true))

	// a late subscriber sees only the newest state, flagged as retained
	late := b.NewConnection("ui").Subscribe(Topic{"+", "state"})
	m := next(t, late)
	assert.True(t, m.Retained)
	assert.Equal(t, types.HubState{Level: "degraded", Link: types.LinkDegraded, TS: 2}, m.Payload)
	quiet(t, late)

	// live updates keep flowing to the same subscriber
	hb.Publish(hb.NewMessage(state, types.HubState{Level: "stopped", Link: types.LinkDown, TS: 3}, true))
	assert.Equal(t, "stopped", next(t, late).Payload.(types.HubState).Level)

	// a nil retained payload clears the topic
	hb.Publish(hb.NewMessage(state, nil, true))
	<-late.Channel()
	quiet(t, b.NewConnection("ui2").Subscribe(state))
}

func TestSamplesAreNotRetained(t *testing.T) {
	b := NewBus(4)
	pub := b.NewConnection("telemetry")
	pub.Publish(pub.NewMessage(sensorTopic("hub", "temperature"), sample("temperature", 1), false))

	quiet(t, b.NewConnection("late").Subscribe(Topic{"hub", "#"}))
}

func TestRetainedConfigSectionsByWildcard(t *testing.T) {
	b := NewBus(8)
	cfg := b.NewConnection("config")
	cfg.Publish(cfg.NewMessage(Topic{"config", "device"}, "device", true))
	cfg.Publish(cfg.NewMessage(Topic{"config", "telemetry"}, "telemetry", true))
	cfg.Publish(cfg.NewMessage(Topic{"config", "heartbeat"}, "heartbeat", true))
	cfg.Publish(cfg.NewMessage(Topic{"hub", "info"}, "info", true))

	sub := b.NewConnection("svc").Subscribe(Topic{"config", "+"})
	var got []string
	for range 3 {
		got = append(got, next(t, sub).Payload.(string))
	}
	assert.ElementsMatch(t, []string{"device", "telemetry", "heartbeat"}, got)
	quiet(t, sub)

	one := b.NewConnection("hb").Subscribe(Topic{"config", "heartbeat"})
	assert.Equal(t, "heartbeat", next(t, one).Payload)
}

func TestSlowConsumerLosesOldestSamples(t *testing.T) {
	b := NewBus(3)
	pub := b.NewConnection("telemetry")
	slow := b.NewConnection("slow").Subscribe(sensorTopic("hub", "accelerometer"))

	for ts := uint32(1); ts <= 5; ts++ {
		pub.Publish(pub.NewMessage(sensorTopic("hub", "accelerometer"), sample("accelerometer", ts), false))
	}

	var kept []uint32
	for range 3 {
		kept = append(kept, next(t, slow).Payload.(types.Sample).DeviceTS)
	}
	assert.Equal(t, []uint32{3, 4, 5}, kept)
	assert.Equal(t, uint64(2), b.Dropped())
	quiet(t, slow)
}

func TestStatsRequestReply(t *testing.T) {
	b := NewBus(8)
	tel := b.NewConnection("telemetry")
	statsTopic := Topic{"hub", "telemetry", "stats"}
	requests := tel.Subscribe(statsTopic)

	go func() {
		for req := range requests.Channel() {
			tel.Reply(req, types.TelemetryStats{RunID: "run-1", Events: 42}, false)
		}
	}()
	defer tel.Disconnect()

	client := b.NewConnection("client")
	req := client.NewMessage(statsTopic, nil, false)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	reply, err := client.RequestWait(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, types.TelemetryStats{RunID: "run-1", Events: 42}, reply.Payload)
	require.Len(t, req.ReplyTo, 2)
	assert.Equal(t, "_reply", req.ReplyTo[0])
	assert.Equal(t, req.ReplyTo.String(), reply.Topic.String())

	// the reply subscription is released after RequestWait
	quiet(t, client.Subscribe(Topic{"_reply", "#"}))
}

func TestStatsRequestTimesOut(t *testing.T) {
	b := NewBus(4)
	client := b.NewConnection("client")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.RequestWait(ctx, client.NewMessage(Topic{"hub", "telemetry", "stats"}, nil, false))
	require.Error(t, err)
	assert.Equal(t, errcode.Timeout, errcode.Of(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestReplyWithoutReplyToIsDropped(t *testing.T) {
	b := NewBus(4)
	tel := b.NewConnection("telemetry")
	all := b.NewConnection("watch").Subscribe(Topic{"#"})

	tel.Reply(&Message{Topic: Topic{"hub", "telemetry", "stats"}}, types.TelemetryStats{}, false)
	quiet(t, all)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus(4)
	pub := b.NewConnection("telemetry")
	watch := b.NewConnection("watch")
	keep := watch.Subscribe(Topic{"hub", "sensor", "#"})
	drop := watch.Subscribe(Topic{"hub", "sensor", "#"})

	drop.Unsubscribe()
	pub.Publish(pub.NewMessage(sensorTopic("hub", "gravity"), sample("gravity", 7), false))

	assert.Equal(t, "gravity", next(t, keep).Payload.(types.Sample).Sensor)
	quiet(t, drop)
}

func TestTopicAppend(t *testing.T) {
	base := Topic{"hub", "sensor"}
	acc := base.Append("accelerometer")
	gyr := base.Append("gyroscope")
	assert.Equal(t, "hub/sensor/accelerometer", acc.String())
	assert.Equal(t, "hub/sensor/gyroscope", gyr.String())
	assert.Equal(t, "hub/sensor", base.String())
}

func TestParseTopicAndMatch(t *testing.T) {
	got := ParseTopic("/hub/sensor/accelerometer/")
	assert.Equal(t, Topic{"hub", "sensor", "accelerometer"}, got)
	assert.Equal(t, "hub/sensor/accelerometer", got.String())
	assert.Empty(t, ParseTopic(""))

	cases := []struct {
		filter, topic string
		want          bool
	}{
		{"hub/#", "hub", true},
		{"hub/+/accelerometer", "hub/sensor/accelerometer", true},
		{"hub/+", "hub/sensor/accelerometer", false},
		{"hub/sensor", "hub/sensor/x", false},
		{"+/state", "imu0/state", true},
		{"#", "anything/at/all", true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Match(ParseTopic(c.filter), ParseTopic(c.topic)), "Match(%q, %q)", c.filter, c.topic)
	}
}

func TestInvalidFilterNeverReceives(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	assert.Error(t, Topic{"#", "sensor"}.Validate())
	s := c.Subscribe(Topic{"#", "sensor"})
	c.Publish(c.NewMessage(Topic{"hub", "sensor"}, "m", false))
	quiet(t, s)
}

func TestDisconnectClosesChannels(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("")
	assert.NotEmpty(t, c.ID())
	s1 := c.Subscribe(Topic{"hub", "state"})
	s2 := c.Subscribe(Topic{"hub", "sensor", "#"})
	c.Disconnect()

	for _, s := range []*Subscription{s1, s2} {
		_, ok := <-s.Channel()
		assert.False(t, ok)
	}
	// pruned topics still accept publishes
	c.Publish(c.NewMessage(sensorTopic("hub", "light"), sample("light", 1), false))
}
