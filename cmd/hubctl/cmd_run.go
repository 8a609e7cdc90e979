package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sensorhub-go/bus"
	"sensorhub-go/drivers/bhi160"
	"sensorhub-go/services/config"
	"sensorhub-go/services/heartbeat"
	"sensorhub-go/services/telemetry"
	"sensorhub-go/x/logx"
)

func runRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var c common
	c.register(fs)
	watch := fs.Bool("watch", true, "Reload pacing and heartbeat settings when the config file changes")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	loader, err := config.NewLoader(c.configPath)
	if err != nil {
		return err
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if err := c.apply(cfg); err != nil {
		return err
	}
	log, err := logx.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	h, err := openHub(cfg, log, nil)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := prepareHub(h, cfg, log); err != nil {
		return err
	}

	b := bus.NewBus(64, bus.WithLogger(log))

	cfgSvc := config.NewService(cfg, log)
	cfgConn := b.NewConnection("config")
	if err := cfgSvc.Start(ctx, cfgConn); err != nil {
		return err
	}

	reg := telemetry.NewRegistry()
	tcfg := telemetryConfig(cfg.Telemetry)
	tel, err := telemetry.New(h.dev, b.NewConnection("telemetry"), tcfg,
		telemetry.WithLogger(log), telemetry.WithMetrics(telemetry.NewMetrics(reg)))
	if err != nil {
		return err
	}

	info, err := readHubInfo(h, cfg.Device.Bus)
	if err != nil {
		return err
	}
	info.RunID = tel.RunID()
	cfgConn.Publish(cfgConn.NewMessage(bus.Topic{cfg.Telemetry.TopicPrefix, "info"}, info, true))

	updates := make(chan telemetry.Config, 1)
	if *watch && loader.File() != "" {
		loader.Watch(func(next *config.Config) {
			log.Info("config changed", zap.String("file", loader.File()))
			_ = cfgSvc.Publish(cfgConn, next)
			select {
			case updates <- telemetryConfig(next.Telemetry):
			default:
			}
		}, func(err error) {
			log.Warn("config reload rejected", zap.Error(err))
		})
	}

	hb := heartbeat.New(heartbeat.Config{
		Interval:    cfg.Heartbeat.Interval,
		TopicPrefix: cfg.Telemetry.TopicPrefix,
	}, tel.State, log)
	if err := hb.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		return err
	}

	var srv *http.Server
	if cfg.Metrics.Enable {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, telemetry.Handler(reg))
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", zap.Error(err))
			}
		}()
		log.Info("metrics listening", zap.String("addr", cfg.Metrics.Addr), zap.String("path", cfg.Metrics.Path))
	}

	runErr := tel.Run(ctx, updates)

	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}
	for _, s := range cfg.Device.Sensors {
		id, _ := bhi160.ParseSensorID(s.Name)
		if err := h.dev.DisableSensor(id); err != nil {
			log.Warn("disable sensor", zap.Stringer("sensor", id), zap.Error(err))
		}
	}
	return runErr
}

// prepareHub loads firmware when configured, enables meta events and the
// configured sensors, and flushes stale FIFO content.
func prepareHub(h *hub, cfg *config.Config, log *zap.Logger) error {
	if cfg.Device.Firmware != "" {
		fw, err := bhi160.ReadFirmware(cfg.Device.Firmware)
		if err != nil {
			return err
		}
		if err := h.dev.LoadFirmware(fw); err != nil {
			return err
		}
		// the firmware reports Initialized once it is running
		time.Sleep(50 * time.Millisecond)
	}

	meta, err := h.dev.MetaEvents()
	if err != nil {
		return err
	}
	for _, k := range []bhi160.MetaEventKind{
		bhi160.MetaError, bhi160.MetaSensorError, bhi160.MetaFifoOverflow, bhi160.MetaInitialized,
	} {
		meta.Set(k, bhi160.MetaEventFlags{Enable: true, IntEnable: true})
	}
	if err := h.dev.SetMetaEvents(meta); err != nil {
		return err
	}

	for _, s := range cfg.Device.Sensors {
		id, _ := bhi160.ParseSensorID(s.Name)
		if err := h.dev.EnableSensor(id, s.RateHz, s.LatencyMs); err != nil {
			return err
		}
		log.Info("sensor enabled", zap.Stringer("sensor", id), zap.Uint16("rate_hz", s.RateHz))
	}
	return h.dev.FlushFIFO(bhi160.FlushAll)
}

func telemetryConfig(t config.TelemetryConfig) telemetry.Config {
	return telemetry.Config{
		Interval:    t.Interval,
		BufferSize:  t.BufferSize,
		DrainRate:   t.DrainRate,
		Burst:       t.Burst,
		TopicPrefix: t.TopicPrefix,
	}
}
