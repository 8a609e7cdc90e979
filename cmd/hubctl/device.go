package main

import (
	"flag"
	"fmt"

	"go.uber.org/zap"

	"sensorhub-go/drivers/bhi160"
	"sensorhub-go/services/config"
	"sensorhub-go/x/i2cdev"
	"sensorhub-go/x/logx"
)

// common holds the flags shared by device commands.
type common struct {
	configPath string
	bus        string
	addr       uint
	verbose    bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Config file (default: $SENSORHUB_CONFIG or ./sensorhub.yaml)")
	fs.StringVar(&c.bus, "bus", "", "I2C adapter, overrides device.bus")
	fs.UintVar(&c.addr, "addr", 0, "I2C address, overrides device.address")
	fs.BoolVar(&c.verbose, "v", false, "Log register traffic")
}

func (c *common) load() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	return cfg, c.apply(cfg)
}

// apply lays the command line overrides over cfg.
func (c *common) apply(cfg *config.Config) error {
	if c.bus != "" {
		cfg.Device.Bus = c.bus
	}
	if c.addr != 0 {
		cfg.Device.Address = uint16(c.addr)
	}
	if c.verbose {
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "console"
	}
	return cfg.Validate()
}

// hub is an opened device with its adapter.
type hub struct {
	dev  *bhi160.Device
	bus  *i2cdev.Bus
	addr uint16
}

func openHub(cfg *config.Config, log *zap.Logger, progress func(done, total int)) (*hub, error) {
	b, err := i2cdev.Open(cfg.Device.Bus)
	if err != nil {
		return nil, err
	}
	dcfg := cfg.DriverConfig()
	dcfg.Logger = log
	dcfg.Progress = progress
	dev := bhi160.New(bhi160.NewI2C(b, cfg.Device.Address), dcfg)

	id, err := dev.ProductID()
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("probe %s@0x%02X: %w", cfg.Device.Bus, cfg.Device.Address, err)
	}
	if id != bhi160.ProductIDBHI160 {
		log.Warn("unexpected product id", zap.Uint8("product_id", uint8(id)))
	}
	return &hub{dev: dev, bus: b, addr: cfg.Device.Address}, nil
}

func (h *hub) Close() error { return h.bus.Close() }

// setup loads the configuration, builds the logger and opens the hub.
// progress, when set, receives firmware upload progress.
func setup(c *common, progress func(done, total int)) (*config.Config, *zap.Logger, *hub, error) {
	cfg, err := c.load()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := logx.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	h, err := openHub(cfg, log, progress)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, h, nil
}
