package heartbeat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sensorhub-go/bus"
	"sensorhub-go/services/config"
	"sensorhub-go/types"
)

// DefaultTopicPrefix roots the state topic when Config leaves it empty.
const DefaultTopicPrefix = "hub"

// StateTopic is the retained hub state topic under prefix.
func StateTopic(prefix string) bus.Topic { return bus.Topic{prefix, "state"} }

type Config struct {
	Interval time.Duration
	// TopicPrefix is shared with telemetry so state sits beside the samples.
	TopicPrefix string
}

// StateFunc reports the current hub state. TS is filled in by the service.
type StateFunc func() types.HubState

type Service struct {
	interval time.Duration
	topic    bus.Topic
	state    StateFunc
	log      *zap.Logger
	now      func() time.Time
}

// New returns a heartbeat publishing state every cfg.Interval on
// <prefix>/state. A nil state reports the hub as ready.
func New(cfg Config, state StateFunc, log *zap.Logger) *Service {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	if state == nil {
		state = func() types.HubState { return types.HubState{Level: "ready", Status: "ok", Link: types.LinkUp} }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		interval: interval,
		topic:    StateTopic(prefix),
		state:    state,
		log:      log.Named("heartbeat"),
		now:      time.Now,
	}
}

// Topic returns the topic the state is published on.
func (s *Service) Topic() bus.Topic { return s.topic }

func (s *Service) beat(conn *bus.Connection) {
	st := s.state()
	st.TS = s.now().UnixMilli()
	conn.Publish(conn.NewMessage(s.topic, st, true))
	s.log.Debug("heartbeat", zap.String("level", st.Level), zap.String("link", string(st.Link)))
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(config.TopicHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	s.beat(conn)
	for {
		select {
		case <-ctx.Done():
			st := s.state()
			st.Level, st.Link, st.TS = "stopped", types.LinkDown, s.now().UnixMilli()
			conn.Publish(conn.NewMessage(s.topic, st, true))
			s.log.Info("heartbeat service stopping")
			return
		case <-tick.C:
			s.beat(conn)
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			hb, ok := msg.Payload.(config.HeartbeatConfig)
			if !ok || hb.Interval <= 0 || hb.Interval == s.interval {
				continue
			}
			s.interval = hb.Interval
			tick.Reset(hb.Interval)
			s.log.Info("heartbeat interval set", zap.Duration("interval", hb.Interval))
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
