package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"sensorhub-go/drivers/bhi160"
	"sensorhub-go/types"
)

type sensorEntry struct {
	Name   string              `json:"name" yaml:"name"`
	Info   bhi160.SensorInfo   `json:"info" yaml:"info"`
	Config bhi160.SensorConfig `json:"config" yaml:"config"`
}

type infoReport struct {
	Hub         types.HubInfo                `json:"hub" yaml:"hub"`
	Host        bhi160.HostStatus            `json:"host_status" yaml:"host_status"`
	Chip        bhi160.ChipStatus            `json:"chip_status" yaml:"chip_status"`
	FIFOPending int                          `json:"fifo_pending" yaml:"fifo_pending"`
	Physical    *bhi160.PhysicalSensorStatus `json:"physical,omitempty" yaml:"physical,omitempty"`
	Sensors     []sensorEntry                `json:"sensors,omitempty" yaml:"sensors,omitempty"`
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	var c common
	c.register(fs)
	format := fs.String("format", "yaml", "Output format: yaml, json, text")
	sensors := fs.Bool("sensors", false, "List sensors the loaded firmware provides (needs firmware running)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, log, h, err := setup(&c, nil)
	if err != nil {
		return err
	}
	defer h.Close()
	defer log.Sync()

	hi, err := readHubInfo(h, cfg.Device.Bus)
	if err != nil {
		return err
	}
	rep := infoReport{Hub: hi}
	if err := h.dev.ReadReg(&rep.Host); err != nil {
		return err
	}
	if err := h.dev.ReadReg(&rep.Chip); err != nil {
		return err
	}
	if rep.FIFOPending, err = h.dev.Pending(); err != nil {
		return err
	}

	if *sensors {
		ps, err := h.dev.PhysicalSensorStatus()
		if err != nil {
			return err
		}
		rep.Physical = &ps
		rep.Sensors = listSensors(h.dev, log)
	}

	enc, err := newEncoder(os.Stdout, *format)
	if err != nil {
		return err
	}
	if err := enc.Encode(rep); err != nil {
		return err
	}
	return finish(enc)
}

func readHubInfo(h *hub, busPath string) (types.HubInfo, error) {
	info := types.HubInfo{Driver: "bhi160", Addr: h.addr, Bus: busPath}
	pid, err := h.dev.ProductID()
	if err != nil {
		return info, err
	}
	rev, err := h.dev.RevisionID()
	if err != nil {
		return info, err
	}
	rom, err := h.dev.RomVersion()
	if err != nil {
		return info, err
	}
	ram, err := h.dev.RamVersion()
	if err != nil {
		return info, err
	}
	info.ProductID, info.RevisionID = uint8(pid), uint8(rev)
	info.RomVersion, info.RamVersion = uint16(rom), uint16(ram)
	return info, nil
}

// listSensors reads info and config for every virtual sensor the firmware
// reports as present (non-zero type).
func listSensors(dev *bhi160.Device, log *zap.Logger) []sensorEntry {
	var out []sensorEntry
	for id := bhi160.SensorID(1); id < 2*bhi160.WakeupOffset; id++ {
		if !id.Known() {
			continue
		}
		si, err := dev.SensorInfo(id)
		if err != nil {
			log.Debug("sensor info", zap.Stringer("sensor", id), zap.Error(err))
			continue
		}
		if si.SensorType == bhi160.SensorNone {
			continue
		}
		sc, err := dev.SensorConfig(id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s config: %v\n", id, err)
		}
		out = append(out, sensorEntry{Name: id.String(), Info: si, Config: sc})
	}
	return out
}
