// Package json provides a JSON codec built on the granola token stream.
//
// Values travel through the generic serializer, so struct layout follows
// granola tags rather than json tags. Binary data is base64 encoded.
package json

import (
	"bytes"

	"github.com/tidwall/jsonc"

	"github.com/zoobzio/granola"
)

// DefaultMaxDepth bounds nesting for documents decoded through the Codec.
const DefaultMaxDepth = 512

// Option configures the JSON codec.
type Option func(*jsonCodec)

// WithComments accepts JSONC input: line and block comments and trailing
// commas are stripped before parsing.
func WithComments() Option {
	return func(c *jsonCodec) { c.comments = true }
}

// WithPrettyPrint indents marshaled output.
func WithPrettyPrint(indent string) Option {
	return func(c *jsonCodec) { c.indent = indent }
}

// jsonCodec implements granola.Codec for JSON.
type jsonCodec struct {
	comments bool
	indent   string
}

// New returns a JSON codec.
func New(opts ...Option) granola.Codec {
	c := &jsonCodec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return "application/json"
}

// Marshal encodes v as JSON.
func (c *jsonCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	var popts []PrinterOption
	if c.indent != "" {
		popts = append(popts, WithIndent(c.indent))
	}
	if err := granola.Encode(NewPrinter(&buf, popts...), v); err != nil {
		return nil, granola.NewCodecError(granola.ErrMarshal, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes one JSON document into v. Anything but whitespace after
// the document is an error.
func (c *jsonCodec) Unmarshal(data []byte, v any) error {
	if c.comments {
		data = jsonc.ToJSON(data)
	}
	p := NewParser(bytes.NewReader(data), WithMaxDepth(DefaultMaxDepth))
	if err := granola.Decode(p, v); err != nil {
		return granola.NewCodecError(granola.ErrUnmarshal, err)
	}
	if p.dec.More() {
		cause := granola.NewDecodeError(granola.ErrSizeMismatch, "unmarshal", p.Offset(), nil)
		return granola.NewCodecError(granola.ErrUnmarshal, cause)
	}
	return nil
}
