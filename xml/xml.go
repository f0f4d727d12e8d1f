// Package xml provides an XML codec.
//
// XML has attributes, character data and element order that a plain
// map/array token stream cannot describe, so this codec stays on
// encoding/xml and its xml struct tags. Errors are wrapped like every
// other granola codec.
package xml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"

	"github.com/zoobzio/granola"
)

// Option configures the XML codec.
type Option func(*xmlCodec)

// WithHeader prefixes marshaled output with the standard XML declaration.
func WithHeader() Option {
	return func(c *xmlCodec) { c.header = true }
}

// WithIndent indents marshaled output.
func WithIndent(prefix, indent string) Option {
	return func(c *xmlCodec) { c.prefix, c.indent = prefix, indent }
}

// xmlCodec implements granola.Codec for XML.
type xmlCodec struct {
	header bool
	prefix string
	indent string
}

// New returns an XML codec.
func New(opts ...Option) granola.Codec {
	c := &xmlCodec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ContentType returns the MIME type for XML.
func (c *xmlCodec) ContentType() string {
	return "application/xml"
}

// Marshal encodes v as XML.
func (c *xmlCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if c.header && v != nil {
		buf.WriteString(xml.Header)
	}
	enc := xml.NewEncoder(&buf)
	enc.Indent(c.prefix, c.indent)
	if err := enc.Encode(v); err != nil {
		cause := granola.NewEncodeError(granola.ErrUnsupportedType, "marshal", err)
		return nil, granola.NewCodecError(granola.ErrMarshal, cause)
	}
	if err := enc.Close(); err != nil {
		return nil, granola.NewCodecError(granola.ErrMarshal, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes XML data into v.
func (c *xmlCodec) Unmarshal(data []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return granola.NewCodecError(granola.ErrUnmarshal, classify(err, dec.InputOffset()))
	}
	return nil
}

// classify maps an encoding/xml failure onto the granola sentinels.
func classify(err error, offset int64) error {
	var syntax *xml.SyntaxError
	var num *strconv.NumError
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return granola.NewDecodeError(granola.ErrTruncated, "decode", offset, err)
	case errors.As(err, &syntax):
		return granola.NewDecodeError(granola.ErrUnexpectedToken, "decode", offset, err)
	case errors.As(err, &num):
		return granola.NewDecodeError(granola.ErrTypeMismatch, "decode", offset, err)
	default:
		return granola.NewDecodeError(granola.ErrUnexpectedToken, "decode", offset, err)
	}
}
