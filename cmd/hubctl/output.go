package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"sensorhub-go/types"
)

// encoder writes a stream of values in one output format.
type encoder interface {
	Encode(v any) error
}

type closer interface{ Close() error }

func newEncoder(w io.Writer, format string) (encoder, error) {
	switch format {
	case "json", "":
		return json.NewEncoder(w), nil
	case "yaml":
		return yaml.NewEncoder(w), nil
	case "cbor":
		return types.NewCBOREncoder(w), nil
	case "text":
		return textEncoder{w}, nil
	}
	return nil, fmt.Errorf("unknown format %q (json, yaml, cbor, text)", format)
}

// finish flushes encoders that buffer, such as YAML.
func finish(e encoder) error {
	if c, ok := e.(closer); ok {
		return c.Close()
	}
	return nil
}

type textEncoder struct{ w io.Writer }

func (t textEncoder) Encode(v any) error {
	var err error
	switch x := v.(type) {
	case types.Sample:
		_, err = fmt.Fprintln(t.w, sampleLine(x))
	default:
		_, err = fmt.Fprintf(t.w, "%+v\n", v)
	}
	return err
}

func sampleLine(s types.Sample) string {
	head := fmt.Sprintf("%10d %-28s", s.DeviceTS, s.Sensor)
	if s.Wakeup {
		head += " (wakeup)"
	}
	switch {
	case s.Quaternion != nil:
		return fmt.Sprintf("%s q=%v acc=%d euler=%.3f", head, s.Quaternion, *s.Accuracy, s.Euler)
	case s.Bias != nil:
		return fmt.Sprintf("%s v=%v bias=%v %s", head, s.Vector, s.Bias, s.Status)
	case s.RawTS != nil:
		return fmt.Sprintf("%s v=%v t=%d", head, s.Vector, *s.RawTS)
	case s.Vector != nil:
		return fmt.Sprintf("%s v=%v %s", head, s.Vector, s.Status)
	case s.Scalar != nil:
		return fmt.Sprintf("%s %d", head, *s.Scalar)
	case s.Event != nil:
		return fmt.Sprintf("%s event=%d", head, *s.Event)
	case s.Meta != nil:
		m := s.Meta
		return fmt.Sprintf("%s %s sensor=%s value=%d debug=%d count=%d", head, m.Kind, m.Sensor, m.Value, m.Debug, m.Count)
	case s.Debug != nil:
		return fmt.Sprintf("%s % x", head, s.Debug)
	}
	return head
}
