// Package bson implements a streaming codec for a BSON-compatible binary
// format.
//
// Documents are length-prefixed containers of typed, named entries:
//
//	int32 totalLen | entry* | 0x00
//	entry = tag byte | cstring name | payload
//
// All integers are little-endian. A Decoder produces the granola token
// stream lazily from an io.Reader; an Encoder accepts granola printer calls
// and writes finished documents to an io.Writer. Both keep an explicit stack
// of open containers, so nesting depth is bounded by memory (or WithMaxDepth),
// never by the goroutine stack.
package bson

import (
	"bytes"
	"reflect"

	"github.com/zoobzio/granola"
)

// DefaultMaxDepth bounds nesting for documents decoded through the Codec.
const DefaultMaxDepth = 512

// bsonCodec implements granola.Codec on top of the streaming Encoder and
// Decoder and the generic serializer.
type bsonCodec struct{}

// New returns a BSON codec.
func New() granola.Codec {
	return &bsonCodec{}
}

// ContentType returns the MIME type for BSON.
func (c *bsonCodec) ContentType() string {
	return "application/bson"
}

// Marshal encodes v as one BSON document.
func (c *bsonCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := granola.Encode(NewEncoder(&buf), v); err != nil {
		return nil, granola.NewCodecError(granola.ErrMarshal, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a single BSON document into v. The expected root kind
// follows from the type of v; trailing bytes are an error.
func (c *bsonCodec) Unmarshal(data []byte, v any) error {
	dec := NewDecoder(bytes.NewReader(data),
		WithRoot(granola.RootOf(reflect.TypeOf(v))),
		WithMaxDepth(DefaultMaxDepth),
	)
	if err := granola.Decode(dec, v); err != nil {
		return granola.NewCodecError(granola.ErrUnmarshal, err)
	}
	if rest := int64(len(data)) - dec.Offset(); rest != 0 {
		cause := granola.NewDecodeError(granola.ErrSizeMismatch, "unmarshal", dec.Offset(), nil)
		return granola.NewCodecError(granola.ErrUnmarshal, cause)
	}
	return nil
}
