// Command hubctl drives a BHI160 sensor hub from a Linux host.
//
// Usage:
//
//	hubctl <command> [flags] [args]
//
// Commands:
//
//	info     Show chip identity and, optionally, the sensor table
//	upload   Validate and upload a RAM firmware image
//	param    Read or write a raw parameter
//	decode   Decode captured FIFO bytes
//	config   Print the effective configuration
//	run      Load firmware, enable sensors and publish telemetry
//
// Examples:
//
//	# Identify the hub on /dev/i2c-1
//	hubctl info -sensors
//
//	# Upload firmware and start the CPU
//	hubctl upload Bosch_PCB_7183_di03_BMI160-7183_di03.2.1.11696.fw
//
//	# Read the meta event control parameter
//	hubctl param read -page system -index 1 -size 8
//
//	# Decode a hex dump of FIFO bytes as YAML
//	hubctl decode -hex -format yaml capture.txt
package main

import (
	"errors"
	"fmt"
	"os"

	"sensorhub-go/errcode"
)

const usage = `hubctl - BHI160 sensor hub tool

Usage:
  hubctl <command> [flags] [args]

Commands:
  info     Show chip identity and, optionally, the sensor table
  upload   Validate and upload a RAM firmware image
  param    Read or write a raw parameter
  decode   Decode captured FIFO bytes
  config   Print the effective configuration
  run      Load firmware, enable sensors and publish telemetry

Every command accepts -config <file>; settings may also come from
SENSORHUB_* environment variables.

Use "hubctl <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "info":
		err = runInfo(args)
	case "upload":
		err = runUpload(args)
	case "param":
		err = runParam(args)
	case "decode":
		err = runDecode(args)
	case "config":
		err = runConfig(args)
	case "run":
		err = runRun(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

var errUsage = errors.New("usage")

func fatal(err error) {
	if errors.Is(err, errUsage) {
		if err != errUsage {
			fmt.Fprintf(os.Stderr, "hubctl: %v\n", err)
		}
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "hubctl: %v (code=%s)\n", err, errcode.MapDriverErr(err))
	os.Exit(1)
}
