// Package yaml provides a YAML codec built on the granola token stream.
//
// Struct layout follows granola tags. Binary data is written as !!binary
// scalars and floats outside the finite range use .nan and .inf.
package yaml

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/zoobzio/granola"
)

// DefaultMaxDepth bounds nesting for documents decoded through the Codec.
const DefaultMaxDepth = 512

// Option configures the YAML codec.
type Option func(*yamlCodec)

// WithIndentation sets the indent width of marshaled output.
func WithIndentation(spaces int) Option {
	return func(c *yamlCodec) { c.indent = spaces }
}

// yamlCodec implements granola.Codec for YAML.
type yamlCodec struct {
	indent int
}

// New returns a YAML codec.
func New(opts ...Option) granola.Codec {
	c := &yamlCodec{indent: 2}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ContentType returns the MIME type for YAML.
func (c *yamlCodec) ContentType() string {
	return "application/yaml"
}

// Marshal encodes v as a single YAML document.
func (c *yamlCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := granola.Encode(NewPrinter(&buf, WithIndent(c.indent)), v); err != nil {
		return nil, granola.NewCodecError(granola.ErrMarshal, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes the first YAML document into v. A second document in
// data is an error.
func (c *yamlCodec) Unmarshal(data []byte, v any) error {
	p := NewParser(bytes.NewReader(data), WithMaxDepth(DefaultMaxDepth))
	if err := granola.Decode(p, v); err != nil {
		return granola.NewCodecError(granola.ErrUnmarshal, err)
	}
	var extra yaml.Node
	if err := p.dec.Decode(&extra); !errors.Is(err, io.EOF) {
		cause := granola.NewDecodeError(granola.ErrSizeMismatch, "unmarshal", int64(extra.Line), err)
		return granola.NewCodecError(granola.ErrUnmarshal, cause)
	}
	return nil
}
