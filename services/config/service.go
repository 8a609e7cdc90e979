package config

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"sensorhub-go/bus"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

// Section topics. Payloads are the section structs by value.
var (
	TopicDevice    = bus.Topic{configPrefix, "device"}
	TopicTelemetry = bus.Topic{configPrefix, "telemetry"}
	TopicLogging   = bus.Topic{configPrefix, "logging"}
	TopicMetrics   = bus.Topic{configPrefix, "metrics"}
	TopicHeartbeat = bus.Topic{configPrefix, "heartbeat"}
)

// Service publishes each configuration section as a retained message so
// late subscribers see the current value.
type Service struct {
	Name string

	cfg *Config
	log *zap.Logger
}

func NewService(cfg *Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Name: serviceName, cfg: cfg, log: log.Named(serviceName)}
}

// Publish sends every section of cfg as retained messages.
func (s *Service) Publish(conn *bus.Connection, cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	sections := []struct {
		topic   bus.Topic
		payload any
	}{
		{TopicDevice, cfg.Device},
		{TopicTelemetry, cfg.Telemetry},
		{TopicLogging, cfg.Logging},
		{TopicMetrics, cfg.Metrics},
		{TopicHeartbeat, cfg.Heartbeat},
	}
	for _, sec := range sections {
		conn.Publish(conn.NewMessage(sec.topic, sec.payload, true))
	}
	s.cfg = cfg
	s.log.Debug("config published", zap.Int("sections", len(sections)))
	return nil
}

// Start publishes the initial configuration.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Publish(conn, s.cfg)
}
