// Package cbor provides a CBOR codec built on the granola token stream.
//
// Values are walked by the generic serializer into a plain value tree that
// fxamacker/cbor encodes with Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, smallest integer and float encodings, no indefinite
// lengths. The same logical value always produces identical bytes. Decoding
// reverses the path, so struct layout follows granola tags in both
// directions. Binary data travels as CBOR byte strings.
package cbor

import (
	"errors"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/zoobzio/granola"
)

// DefaultMaxDepth bounds nesting for documents decoded through the Codec.
const DefaultMaxDepth = 512

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cbor: encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Untyped maps decode as map[string]any so the tree parser can
		// walk them; non-string keys are rejected.
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		MaxNestedLevels: DefaultMaxDepth,
	}.DecMode()
	if err != nil {
		panic("cbor: decoder initialization failed: " + err.Error())
	}
}

// cborCodec implements granola.Codec for CBOR.
type cborCodec struct{}

// New returns a CBOR codec.
func New() granola.Codec {
	return &cborCodec{}
}

// ContentType returns the MIME type for CBOR.
func (c *cborCodec) ContentType() string {
	return "application/cbor"
}

// Marshal encodes v as one deterministic CBOR data item.
func (c *cborCodec) Marshal(v any) ([]byte, error) {
	p := &treePrinter{}
	if err := granola.Encode(p, v); err != nil {
		return nil, granola.NewCodecError(granola.ErrMarshal, err)
	}
	data, err := encMode.Marshal(p.root)
	if err != nil {
		cause := granola.NewEncodeError(granola.ErrUnsupportedType, "marshal", err)
		return nil, granola.NewCodecError(granola.ErrMarshal, cause)
	}
	return data, nil
}

// Unmarshal decodes a single CBOR data item into v. Bytes after the item
// are an error.
func (c *cborCodec) Unmarshal(data []byte, v any) error {
	var tree any
	rest, err := decMode.UnmarshalFirst(data, &tree)
	if err != nil {
		return granola.NewCodecError(granola.ErrUnmarshal, classify(err))
	}
	if len(rest) != 0 {
		offset := int64(len(data) - len(rest))
		cause := granola.NewDecodeError(granola.ErrSizeMismatch, "unmarshal", offset, nil)
		return granola.NewCodecError(granola.ErrUnmarshal, cause)
	}
	if err := granola.Decode(newTreeParser(tree, DefaultMaxDepth), v); err != nil {
		return granola.NewCodecError(granola.ErrUnmarshal, err)
	}
	return nil
}

// classify maps a cbor library error onto the granola sentinels.
func classify(err error) error {
	var nested *cbor.MaxNestedLevelError
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return granola.NewDecodeError(granola.ErrTruncated, "readItem", 0, err)
	case errors.As(err, &nested):
		return granola.NewDecodeError(granola.ErrTooDeep, "readItem", 0, err)
	default:
		return granola.NewDecodeError(granola.ErrUnexpectedToken, "readItem", 0, err)
	}
}
