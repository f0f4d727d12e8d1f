package json

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/zoobzio/granola"
)

// frame is one open JSON container. wantKey alternates inside objects.
type frame struct {
	kind    granola.Container
	wantKey bool
}

// Parser turns JSON text into the granola token stream.
//
// JSON is self-describing, so unlike BSON the root kind is read from the
// input. Integral numbers that fit in an int64 report KindInt64, all other
// numbers KindFloat64. Binary values travel as base64 strings: they report
// KindString and ReadBinary decodes them.
type Parser struct {
	dec      *json.Decoder
	frames   []frame
	maxDepth int

	key     string
	pending json.Token
	hasVal  bool

	started  bool
	rootDone bool
	done     bool
	err      error
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithMaxDepth bounds container nesting. Zero means unbounded.
func WithMaxDepth(n int) ParserOption {
	return func(p *Parser) { p.maxDepth = n }
}

// NewParser returns a Parser reading one JSON document from r.
func NewParser(r io.Reader, opts ...ParserOption) *Parser {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	p := &Parser{dec: dec}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Offset reports the input offset of the decoder.
func (p *Parser) Offset() int64 { return p.dec.InputOffset() }

// NextToken advances the stream by one token.
func (p *Parser) NextToken() (granola.Token, error) {
	if p.err != nil {
		return granola.TokenError, p.err
	}
	p.hasVal = false
	p.pending = nil

	switch {
	case !p.started:
		p.started = true
		return granola.TokenDocStart, nil
	case p.done:
		return granola.TokenError, p.fail(granola.ErrDocumentComplete, "nextToken", nil)
	case p.rootDone:
		p.done = true
		return granola.TokenDocEnd, nil
	}

	if top := p.top(); top != nil && top.kind == granola.ContainerMap && top.wantKey {
		return p.readKey()
	}
	return p.readValue()
}

func (p *Parser) top() *frame {
	if len(p.frames) == 0 {
		return nil
	}
	return &p.frames[len(p.frames)-1]
}

func (p *Parser) readKey() (granola.Token, error) {
	tok, err := p.token("readKey")
	if err != nil {
		return granola.TokenError, err
	}
	switch t := tok.(type) {
	case json.Delim:
		if t != '}' {
			return granola.TokenError, p.fail(granola.ErrUnexpectedToken, "readKey", nil)
		}
		p.close()
		return granola.TokenMapEnd, nil
	case string:
		p.key = t
		p.top().wantKey = false
		return granola.TokenKey, nil
	default:
		return granola.TokenError, p.fail(granola.ErrUnexpectedToken, "readKey", nil)
	}
}

func (p *Parser) readValue() (granola.Token, error) {
	tok, err := p.token("readValue")
	if err != nil {
		return granola.TokenError, err
	}

	if d, ok := tok.(json.Delim); ok {
		switch d {
		case '{':
			return granola.TokenMapStart, p.open(granola.ContainerMap)
		case '[':
			return granola.TokenArrayStart, p.open(granola.ContainerArray)
		case ']':
			p.close()
			return granola.TokenArrayEnd, nil
		default:
			return granola.TokenError, p.fail(granola.ErrUnexpectedToken, "readValue", nil)
		}
	}

	if top := p.top(); top == nil || top.kind == granola.ContainerArray {
		p.key = ""
	}
	p.pending = tok
	p.hasVal = true
	p.valueDone()
	return granola.TokenValue, nil
}

func (p *Parser) open(kind granola.Container) error {
	if p.maxDepth > 0 && len(p.frames) >= p.maxDepth {
		return p.fail(granola.ErrTooDeep, "openContainer", nil)
	}
	p.frames = append(p.frames, frame{kind: kind, wantKey: kind == granola.ContainerMap})
	return nil
}

func (p *Parser) close() {
	p.frames = p.frames[:len(p.frames)-1]
	p.valueDone()
}

// valueDone records that a complete value was produced at the current level.
func (p *Parser) valueDone() {
	top := p.top()
	switch {
	case top == nil:
		p.rootDone = true
	case top.kind == granola.ContainerMap:
		top.wantKey = true
	}
}

func (p *Parser) token(op string) (json.Token, error) {
	tok, err := p.dec.Token()
	if err == nil {
		return tok, nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, p.fail(granola.ErrTruncated, op, io.ErrUnexpectedEOF)
	}
	return nil, p.fail(granola.ErrUnexpectedToken, op, err)
}

// Key returns the current object member name, or "" inside arrays.
func (p *Parser) Key() string { return p.key }

// Kind reports the kind of the pending value.
func (p *Parser) Kind() granola.Kind {
	if !p.hasVal {
		return granola.KindInvalid
	}
	switch v := p.pending.(type) {
	case nil:
		return granola.KindNull
	case bool:
		return granola.KindBool
	case string:
		return granola.KindString
	case json.Number:
		if isIntegral(v) {
			if _, err := v.Int64(); err == nil {
				return granola.KindInt64
			}
		}
		return granola.KindFloat64
	default:
		return granola.KindInvalid
	}
}

func isIntegral(n json.Number) bool {
	return !strings.ContainsAny(string(n), ".eE")
}

// RawValue renders the pending value as text. Strings are quoted.
func (p *Parser) RawValue() (string, error) {
	if err := p.check("getRawValue"); err != nil {
		return "", err
	}
	switch v := p.pending.(type) {
	case nil:
		return "null", nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case string:
		return `"` + v + `"`, nil
	case json.Number:
		return v.String(), nil
	default:
		return "", p.fail(granola.ErrTypeMismatch, "getRawValue", nil)
	}
}

func (p *Parser) ReadBool() (bool, error) {
	if err := p.check("readBool"); err != nil {
		return false, err
	}
	b, ok := p.pending.(bool)
	if !ok {
		return false, p.fail(granola.ErrTypeMismatch, "readBool", nil)
	}
	p.consume()
	return b, nil
}

func (p *Parser) ReadInt() (int64, error) {
	if err := p.check("readInt"); err != nil {
		return 0, err
	}
	n, ok := p.pending.(json.Number)
	if !ok || !isIntegral(n) {
		return 0, p.fail(granola.ErrTypeMismatch, "readInt", nil)
	}
	v, err := n.Int64()
	if err != nil {
		return 0, p.fail(granola.ErrOverflow, "readInt", err)
	}
	p.consume()
	return v, nil
}

func (p *Parser) ReadFloat() (float64, error) {
	if err := p.check("readFloat"); err != nil {
		return 0, err
	}
	n, ok := p.pending.(json.Number)
	if !ok {
		return 0, p.fail(granola.ErrTypeMismatch, "readFloat", nil)
	}
	v, err := n.Float64()
	if err != nil {
		return 0, p.fail(granola.ErrOverflow, "readFloat", err)
	}
	p.consume()
	return v, nil
}

func (p *Parser) ReadString() (string, error) {
	if err := p.check("readString"); err != nil {
		return "", err
	}
	s, ok := p.pending.(string)
	if !ok {
		return "", p.fail(granola.ErrTypeMismatch, "readString", nil)
	}
	p.consume()
	return s, nil
}

// ReadBinary decodes a base64 string value.
func (p *Parser) ReadBinary() ([]byte, error) {
	if err := p.check("readBinary"); err != nil {
		return nil, err
	}
	s, ok := p.pending.(string)
	if !ok {
		return nil, p.fail(granola.ErrTypeMismatch, "readBinary", nil)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, p.fail(granola.ErrTypeMismatch, "readBinary", err)
	}
	p.consume()
	return b, nil
}

func (p *Parser) ReadNull() error {
	if err := p.check("readNull"); err != nil {
		return err
	}
	if p.pending != nil {
		return p.fail(granola.ErrTypeMismatch, "readNull", nil)
	}
	p.consume()
	return nil
}

func (p *Parser) check(op string) error {
	if p.err != nil {
		return p.err
	}
	if !p.hasVal {
		return p.fail(granola.ErrNoValue, op, nil)
	}
	return nil
}

func (p *Parser) consume() {
	p.hasVal = false
	p.pending = nil
}

func (p *Parser) fail(sentinel error, op string, cause error) error {
	p.err = &granola.DecodeError{
		Err:    sentinel,
		Op:     op,
		Offset: p.dec.InputOffset(),
		Byte:   granola.NoByte,
		Cause:  cause,
	}
	return p.err
}
