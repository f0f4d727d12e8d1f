// Package msgpack provides a MessagePack codec.
//
// Encoding is delegated to vmihailenco/msgpack configured to read granola
// struct tags, so the same types describe their layout once for every
// codec. Map keys are sorted and integers use their smallest encoding.
package msgpack

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/zoobzio/granola"
)

// structTag is the struct tag msgpack reads field names from.
const structTag = "granola"

// msgpackCodec implements granola.Codec for MessagePack.
type msgpackCodec struct{}

// New returns a MessagePack codec.
func New() granola.Codec {
	return &msgpackCodec{}
}

// ContentType returns the MIME type for MessagePack.
func (c *msgpackCodec) ContentType() string {
	return "application/msgpack"
}

// Marshal encodes v as MessagePack.
func (c *msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag(structTag)
	enc.SetSortMapKeys(true)
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, granola.NewCodecError(granola.ErrMarshal, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes one MessagePack value into v. Bytes left over after the
// value are an error.
func (c *msgpackCodec) Unmarshal(data []byte, v any) error {
	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)
	dec.SetCustomStructTag(structTag)
	if err := dec.Decode(v); err != nil {
		return granola.NewCodecError(granola.ErrUnmarshal, err)
	}
	if r.Len() != 0 {
		offset := int64(len(data) - r.Len())
		cause := granola.NewDecodeError(granola.ErrSizeMismatch, "unmarshal", offset, nil)
		return granola.NewCodecError(granola.ErrUnmarshal, cause)
	}
	return nil
}
