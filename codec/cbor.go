package codec

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/Neumenon/regular/regular"
)

// cborEnc uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer and float forms, definite lengths. Equal values
// encode to identical bytes.
var cborEnc cbor.EncMode

// cborDec decodes untyped maps as map[string]any so the result can go
// straight to regular.FromAny.
var cborDec cbor.DecMode

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

func decodeCBOR(data []byte) (*regular.Value, error) {
	var x any
	if err := cborDec.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("CBOR parse error: %w", err)
	}
	return regular.FromAny(x)
}

func encodeCBOR(v *regular.Value) ([]byte, error) {
	x, err := regular.ToAny(v)
	if err != nil {
		return nil, err
	}
	return cborEnc.Marshal(x)
}
