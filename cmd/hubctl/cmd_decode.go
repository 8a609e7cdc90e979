package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"sensorhub-go/drivers/bhi160"
	"sensorhub-go/services/telemetry"
)

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `hubctl decode - Decode captured FIFO bytes

Usage:
  hubctl decode [flags] <file|->

Flags:
`)
		fs.PrintDefaults()
	}
	isHex := fs.Bool("hex", false, "Input is a hex dump (whitespace ignored)")
	format := fs.String("format", "text", "Output format: text, json, yaml, cbor")
	withTS := fs.Bool("timestamps", false, "Also emit timestamp records")

	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: input file required")
		fs.Usage()
		return errUsage
	}

	var in io.Reader = os.Stdin
	if p := fs.Arg(0); p != "-" {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	if *isHex {
		raw, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		b, err := parseHex(string(raw))
		if err != nil {
			return err
		}
		in = bytes.NewReader(b)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	n, err := decodeStream(in, out, *format, *withTS)
	fmt.Fprintf(os.Stderr, "%d records\n", n)
	return err
}

// parseHex accepts "0a 1b2c", "0x0a,0x1b" and line-broken dumps.
func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer("0x", "", "0X", "", ",", " ").Replace(s)
	return hex.DecodeString(strings.Join(strings.Fields(s), ""))
}

// decodeStream decodes records from r until a None record or the end of
// input and writes one sample per record. It returns the number of records
// decoded, timestamp records included.
func decodeStream(r io.Reader, w io.Writer, format string, withTS bool) (int, error) {
	enc, err := newEncoder(w, format)
	if err != nil {
		return 0, err
	}

	var (
		clock telemetry.Clock
		n     int
		now   = time.Now()
	)
	dec := bhi160.NewDecoder(bufio.NewReader(r))
	for dec.Next() {
		ev := dec.Event()
		n++
		if clock.Observe(ev) && !withTS {
			continue
		}
		if err := enc.Encode(telemetry.NewSample(ev, clock.Ticks(), "", now)); err != nil {
			return n, err
		}
	}
	if err := finish(enc); err != nil {
		return n, err
	}
	if err := dec.Err(); err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("after %d bytes: %w", dec.Consumed(), err)
	}
	return n, nil
}
