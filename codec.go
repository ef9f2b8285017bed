package cpor

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Canonical CBOR on the wire: deterministic map-key ordering, shortest
// integer forms. Re-encoding a decoded message yields the same bytes,
// which is what ties Encode to Sign and Verify.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cpor: building CBOR encode mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cpor: building CBOR decode mode: %v", err))
	}
}

// Encode serializes msg to its canonical CBOR mapping. Unset optional
// fields are omitted entirely, never encoded as null. The message is
// validated first so an invalid instance can never reach the wire.
func Encode(msg Message) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// Decode deserializes data as a message of the known kind M, applying
// protocol defaults and re-validating every invariant. It is the exact
// inverse of Encode for that kind.
//
//	req, err := cpor.Decode[cpor.ConnectRequest](data)
func Decode[M any, PM interface {
	*M
	Message
}](data []byte) (PM, error) {
	var m M
	pm := PM(&m)
	if err := decMode.Unmarshal(data, pm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	pm.fillDefaults()
	if err := pm.Validate(); err != nil {
		return nil, err
	}
	return pm, nil
}

// decodeMapping decodes data as a string-keyed mapping for kind
// dispatch. Anything else on the wire is a poisoned frame.
func decodeMapping(data []byte) (map[string]any, error) {
	var v any
	if err := decMode.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: malformed CBOR: %v", ErrSerialization, err)
	}
	fields, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: payload must be a mapping", ErrSerialization)
	}
	return fields, nil
}
