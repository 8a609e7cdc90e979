// Package telemetry drains the hub FIFO, decodes its records and publishes
// them on the bus.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"sensorhub-go/bus"
	"sensorhub-go/drivers/bhi160"
	"sensorhub-go/errcode"
	"sensorhub-go/types"
)

const serviceName = "telemetry"

// Source yields raw FIFO bytes. *bhi160.Device satisfies it.
type Source interface {
	ReadFIFO(buf []byte) ([]byte, error)
}

type Config struct {
	// Interval between drain cycles.
	Interval time.Duration
	// BufferSize is the largest single FIFO read.
	BufferSize int
	// DrainRate caps FIFO reads per second across all cycles; zero is
	// unlimited. Burst is the limiter bucket size.
	DrainRate float64
	Burst     int
	// TopicPrefix roots every topic the service uses.
	TopicPrefix string
}

func DefaultConfig() Config {
	return Config{
		Interval:    20 * time.Millisecond,
		BufferSize:  256,
		DrainRate:   100,
		Burst:       4,
		TopicPrefix: "hub",
	}
}

func (c Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New("Interval must be positive")
	}
	if c.BufferSize <= 0 {
		return errors.New("BufferSize must be positive")
	}
	if c.DrainRate < 0 || c.Burst < 0 {
		return errors.New("DrainRate and Burst must not be negative")
	}
	return nil
}

func (c Config) limit() (rate.Limit, int) {
	burst := max(c.Burst, 1)
	if c.DrainRate == 0 {
		return rate.Inf, burst
	}
	return rate.Limit(c.DrainRate), burst
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// WithMetrics sets the counters to update. Without it the service keeps
// unregistered counters.
func WithMetrics(m *Metrics) Option { return func(s *Service) { s.m = m } }

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option { return func(s *Service) { s.runID = id } }

func withNow(now func() time.Time) Option { return func(s *Service) { s.now = now } }

type Service struct {
	src  Source
	conn *bus.Connection
	cfg  Config
	log  *zap.Logger
	m    *Metrics
	now  func() time.Time

	runID   string
	limiter *rate.Limiter

	// Owned by the draining goroutine.
	buf   []byte
	carry []byte
	clock Clock

	mu      sync.Mutex
	stats   types.TelemetryStats
	lastErr error
	linkErr bool
}

// New builds a telemetry service reading src and publishing on conn.
func New(src Source, conn *bus.Connection, cfg Config, opts ...Option) (*Service, error) {
	if src == nil || conn == nil {
		return nil, errcode.InvalidParams
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("telemetry config: %w", err)
	}
	s := &Service{src: src, conn: conn, cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.m == nil {
		s.m = NewMetrics(nil)
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	s.log = s.log.Named(serviceName).With(zap.String("run_id", s.runID))
	s.limiter = rate.NewLimiter(cfg.limit())
	s.buf = make([]byte, cfg.BufferSize)
	s.carry = make([]byte, 0, cfg.BufferSize+32)
	s.stats.RunID = s.runID
	return s, nil
}

func (s *Service) RunID() string { return s.runID }

// Topic helpers.
func (s *Service) SensorTopic(id bhi160.SensorID) bus.Topic {
	return bus.Topic{s.cfg.TopicPrefix, "sensor", id.Base().String()}
}

func (s *Service) MetaTopic(k bhi160.MetaEventKind) bus.Topic {
	return bus.Topic{s.cfg.TopicPrefix, "meta", k.String()}
}

func (s *Service) StatsTopic() bus.Topic {
	return bus.Topic{s.cfg.TopicPrefix, serviceName, "stats"}
}

// Stats returns a snapshot of the running totals.
func (s *Service) Stats() types.TelemetryStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// State summarises the service for the heartbeat.
func (s *Service) State() types.HubState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := types.HubState{Level: "ready", Status: "ok", Link: types.LinkUp}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
		st.Status = string(errcode.MapDriverErr(s.lastErr))
		if s.linkErr {
			st.Level, st.Link = "error", types.LinkDown
		} else {
			st.Level, st.Link = "degraded", types.LinkDegraded
		}
	}
	return st
}

func (s *Service) setErr(err error, link bool) {
	s.mu.Lock()
	s.lastErr, s.linkErr = err, link
	s.mu.Unlock()
}

// Drain reads the FIFO once, publishes every complete record and returns the
// number of records decoded. A record split across reads is held until the
// next Drain. After a decode failure the rest of the read is discarded and
// the *bhi160.DecodeError is returned.
func (s *Service) Drain(ctx context.Context) (int, error) {
	n, _, err := s.drain(ctx)
	return n, err
}

func (s *Service) drain(ctx context.Context) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	b, err := s.src.ReadFIFO(s.buf)
	s.m.Drains.Inc()
	if err != nil {
		s.m.DrainErrors.Inc()
		s.setErr(err, true)
		return 0, false, errcode.Wrap(errcode.MapDriverErr(err), "telemetry.Drain", err)
	}
	full := len(b) == len(s.buf)
	s.m.FIFOBytes.Add(float64(len(b)))

	s.mu.Lock()
	s.stats.Drains++
	s.stats.Bytes += uint64(len(b))
	s.mu.Unlock()

	if len(b) == 0 && len(s.carry) == 0 {
		return 0, false, nil
	}

	s.carry = append(s.carry, b...)
	events, used, derr := bhi160.DecodeAll(s.carry)

	now := s.now()
	for _, ev := range events {
		s.publish(ev, now)
	}

	switch {
	case derr == nil:
		// Whole records, possibly ended by None padding.
		s.carry = s.carry[:0]
	case errors.Is(derr, io.ErrUnexpectedEOF):
		k := copy(s.carry, s.carry[used:])
		s.carry = s.carry[:k]
		derr = nil
	default:
		s.m.DecodeErrors.WithLabelValues(decodeReason(derr)).Inc()
		s.log.Warn("fifo decode failed; discarding read",
			zap.Error(derr), zap.Int("discarded", len(s.carry)-used))
		s.carry = s.carry[:0]
	}
	s.m.Carry.Set(float64(len(s.carry)))

	s.mu.Lock()
	s.stats.Events += uint64(len(events))
	s.stats.DeviceTS = s.clock.Ticks()
	if derr != nil {
		s.stats.DecodeErrors++
	}
	s.mu.Unlock()

	if derr != nil {
		s.setErr(derr, false)
		return len(events), full, derr
	}
	s.setErr(nil, false)
	return len(events), full, nil
}

func decodeReason(err error) string {
	switch {
	case errors.Is(err, bhi160.ErrUnknownSensor):
		return "unknown_sensor"
	case errors.Is(err, bhi160.ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, bhi160.ErrInvalidMetaEvent):
		return "invalid_meta_event"
	}
	return "other"
}

func (s *Service) publish(ev bhi160.Event, now time.Time) {
	s.m.Events.WithLabelValues(ev.ID.Base().String()).Inc()

	if s.clock.Observe(ev) {
		s.m.DeviceTS.Set(float64(s.clock.Ticks()))
		return
	}

	sample := NewSample(ev, s.clock.Ticks(), s.runID, now)
	if m, ok := ev.Data.(bhi160.MetaEvent); ok {
		s.m.MetaEvents.WithLabelValues(m.Kind.String()).Inc()
		switch m.Kind {
		case bhi160.MetaFifoOverflow:
			s.log.Warn("fifo overflow", zap.Uint16("lost", m.Count))
		case bhi160.MetaError, bhi160.MetaSensorError:
			s.log.Warn("hub error event", zap.Stringer("kind", m.Kind),
				zap.Stringer("sensor", m.Sensor), zap.Uint8("value", m.Value))
		default:
			s.log.Debug("meta event", zap.Stringer("kind", m.Kind), zap.Stringer("sensor", m.Sensor))
		}
		s.conn.Publish(s.conn.NewMessage(s.MetaTopic(m.Kind), sample, false))
		return
	}
	s.conn.Publish(s.conn.NewMessage(s.SensorTopic(ev.ID), sample, false))
}

// drainBurst keeps reading while the FIFO fills the buffer and the limiter
// allows.
func (s *Service) drainBurst(ctx context.Context) {
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		_, full, err := s.drain(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("drain failed", zap.Error(err), zap.String("code", string(errcode.Of(err))))
			}
			return
		}
		if !full {
			return
		}
	}
}

// reconfigure applies pacing changes from the Run goroutine. BufferSize is
// fixed at construction.
func (s *Service) reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	lim, burst := cfg.limit()
	s.limiter.SetLimit(lim)
	s.limiter.SetBurst(burst)
	s.cfg.Interval, s.cfg.DrainRate, s.cfg.Burst = cfg.Interval, cfg.DrainRate, cfg.Burst
	return nil
}

// Run drains the FIFO every Interval and answers stats requests until ctx is
// done. updates, when non-nil, delivers new pacing settings; closing it
// leaves the current pacing in place.
func (s *Service) Run(ctx context.Context, updates <-chan Config) error {
	statsSub := s.conn.Subscribe(s.StatsTopic())
	defer s.conn.Unsubscribe(statsSub)

	tick := time.NewTicker(s.cfg.Interval)
	defer tick.Stop()

	s.log.Info("telemetry started",
		zap.Duration("interval", s.cfg.Interval), zap.Int("buffer", s.cfg.BufferSize))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("telemetry stopping", zap.Uint64("events", s.Stats().Events))
			return nil
		case <-tick.C:
			s.drainBurst(ctx)
		case req, ok := <-statsSub.Channel():
			if !ok {
				return nil
			}
			s.conn.Reply(req, s.Stats(), false)
		case cfg, ok := <-updates:
			if !ok {
				s.log.Debug("config updates closed")
				updates = nil
				continue
			}
			if err := s.reconfigure(cfg); err != nil {
				s.log.Warn("telemetry config rejected", zap.Error(err))
				continue
			}
			tick.Reset(cfg.Interval)
			s.log.Info("telemetry reconfigured", zap.Duration("interval", cfg.Interval), zap.Float64("rate", cfg.DrainRate))
		}
	}
}

// Start runs the service in a goroutine.
func (s *Service) Start(ctx context.Context, updates <-chan Config) error {
	go func() { _ = s.Run(ctx, updates) }()
	return nil
}
