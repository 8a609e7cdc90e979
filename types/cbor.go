package types

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Deterministic encoding with integer keys; decoding tolerates indefinite
// lengths from other producers.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("types: cbor encoder mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("types: cbor decoder mode: %v", err))
	}
}

// EncodeCBOR encodes any telemetry payload.
func EncodeCBOR(v any) ([]byte, error) { return encMode.Marshal(v) }

// DecodeCBOR decodes into v.
func DecodeCBOR(b []byte, v any) error { return decMode.Unmarshal(b, v) }

// NewCBOREncoder streams payloads to w as a CBOR sequence.
func NewCBOREncoder(w io.Writer) *cbor.Encoder { return encMode.NewEncoder(w) }

// NewCBORDecoder reads a CBOR sequence from r.
func NewCBORDecoder(r io.Reader) *cbor.Decoder { return decMode.NewDecoder(r) }
