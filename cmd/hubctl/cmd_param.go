package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"sensorhub-go/drivers/bhi160"
)

const paramUsage = `hubctl param - Read or write a parameter

Usage:
  hubctl param read    [flags] -page <page> -index <n> [-size <1..16>]
  hubctl param write   [flags] -page <page> -index <n> -data <hex, 1..8 bytes>
  hubctl param enable  [flags] -sensor <name|id> [-rate <hz>] [-latency <ms>]
  hubctl param disable [flags] -sensor <name|id>
  hubctl param meta    [flags]

Pages: ack, system, algorithm, sensors, custom12..custom14 or a number.

Flags:
`

func runParam(args []string) error {
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, paramUsage)
		return errUsage
	}
	action, args := args[0], args[1:]

	fs := flag.NewFlagSet("param "+action, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, paramUsage)
		fs.PrintDefaults()
	}
	var c common
	c.register(fs)
	pageName := fs.String("page", "system", "Parameter page")
	index := fs.Uint("index", 0, "Parameter index (0..127)")
	size := fs.Int("size", bhi160.MaxReadParamSize, "Bytes to read")
	data := fs.String("data", "", "Bytes to write, hex")
	sensor := fs.String("sensor", "", "Sensor name or id")
	rate := fs.Uint("rate", 25, "Sample rate in Hz")
	latency := fs.Uint("latency", 0, "Max report latency in ms")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	page, ok := bhi160.ParseParameterPage(*pageName)
	if !ok {
		return fmt.Errorf("unknown page %q", *pageName)
	}
	if *index > 0x7F {
		return fmt.Errorf("index %d out of range", *index)
	}
	if action == "read" {
		if err := checkReadSize(*size); err != nil {
			return err
		}
	}

	var id bhi160.SensorID
	if action == "enable" || action == "disable" {
		if id, ok = bhi160.ParseSensorID(*sensor); !ok {
			return fmt.Errorf("unknown sensor %q", *sensor)
		}
	}

	_, log, h, err := setup(&c, nil)
	if err != nil {
		return err
	}
	defer h.Close()
	defer log.Sync()

	switch action {
	case "read":
		buf := make([]byte, *size)
		if err := h.dev.ReadParamRaw(page, uint8(*index), buf); err != nil {
			return err
		}
		fmt.Printf("%s[%d] = %s\n", page, *index, hex.EncodeToString(buf))
	case "write":
		b, err := parseHex(*data)
		if err != nil {
			return fmt.Errorf("-data: %w", err)
		}
		if err := h.dev.WriteParamRaw(page, uint8(*index), b); err != nil {
			return err
		}
		fmt.Printf("%s[%d] <- %s\n", page, *index, hex.EncodeToString(b))
	case "enable":
		if *rate > 0xFFFF || *latency > 0xFFFF {
			return fmt.Errorf("rate and latency must fit 16 bits")
		}
		if err := h.dev.EnableSensor(id, uint16(*rate), uint16(*latency)); err != nil {
			return err
		}
		sc, err := h.dev.SensorConfig(id)
		if err != nil {
			return err
		}
		fmt.Printf("%s: rate=%d Hz latency=%d ms range=%d\n", id, sc.SampleRate, sc.MaxReportLatency, sc.DynamicRange)
	case "disable":
		if err := h.dev.DisableSensor(id); err != nil {
			return err
		}
		fmt.Printf("%s: disabled\n", id)
	case "meta":
		m, err := h.dev.MetaEvents()
		if err != nil {
			return err
		}
		for k := bhi160.MetaEventKind(1); k <= bhi160.MetaInitialized; k++ {
			f := m.Get(k)
			fmt.Printf("%2d %-22s enable=%-5t int=%t\n", k, k, f.Enable, f.IntEnable)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown param action: %s\n", action)
		fmt.Fprint(os.Stderr, paramUsage)
		return errUsage
	}
	return nil
}

// checkReadSize bounds -size before a buffer is allocated for it.
func checkReadSize(n int) error {
	if n < 1 || n > bhi160.MaxReadParamSize {
		return fmt.Errorf("-size %d out of range 1..%d: %w", n, bhi160.MaxReadParamSize, errUsage)
	}
	return nil
}
