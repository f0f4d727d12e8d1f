package yaml

import (
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zoobzio/granola"
)

// YAML tags the parser recognizes on scalars.
const (
	tagNull   = "!!null"
	tagBool   = "!!bool"
	tagInt    = "!!int"
	tagFloat  = "!!float"
	tagStr    = "!!str"
	tagBinary = "!!binary"
	tagMerge  = "!!merge"
)

type frame struct {
	node *yaml.Node
	next int // index into node.Content
}

// Parser walks a decoded YAML document node by node and reports it as the
// granola token stream. yaml.v3 has no pull API, so each document is read
// into a node tree on the first NextToken; the walk over that tree is lazy
// and uses an explicit stack.
//
// Aliases are resolved to their anchors and "<<" merge keys are expanded.
// Scalars are classified by their resolved tag; !!binary scalars report
// KindBinary and any tag the parser does not know (timestamps, application
// tags) reads as a string.
// DecodeError offsets from this parser are 1-based line numbers.
type Parser struct {
	dec      *yaml.Decoder
	frames   []frame
	maxDepth int

	root    *yaml.Node
	key     string
	pending *yaml.Node
	line    int

	started bool
	done    bool
	err     error
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithMaxDepth bounds container nesting. Zero means unbounded.
func WithMaxDepth(n int) ParserOption {
	return func(p *Parser) { p.maxDepth = n }
}

// NewParser returns a Parser reading the next YAML document from r.
func NewParser(r io.Reader, opts ...ParserOption) *Parser {
	p := &Parser{dec: yaml.NewDecoder(r)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NextToken advances the stream by one token.
func (p *Parser) NextToken() (granola.Token, error) {
	if p.err != nil {
		return granola.TokenError, p.err
	}
	p.pending = nil

	if !p.started {
		p.started = true
		var doc yaml.Node
		if err := p.dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return granola.TokenError, p.fail(granola.ErrTruncated, "readDocument", io.ErrUnexpectedEOF)
			}
			return granola.TokenError, p.fail(granola.ErrUnexpectedToken, "readDocument", err)
		}
		p.root = &doc
		if doc.Kind == yaml.DocumentNode {
			p.root = &yaml.Node{Kind: yaml.ScalarNode, Tag: tagNull, Line: doc.Line}
			if len(doc.Content) > 0 {
				p.root = doc.Content[0]
			}
		}
		return granola.TokenDocStart, nil
	}

	if p.root != nil {
		n := p.root
		p.root = nil
		return p.emit(n)
	}

	if len(p.frames) == 0 {
		if p.done {
			return granola.TokenError, p.fail(granola.ErrDocumentComplete, "nextToken", nil)
		}
		p.done = true
		return granola.TokenDocEnd, nil
	}

	top := &p.frames[len(p.frames)-1]
	switch top.node.Kind {
	case yaml.MappingNode:
		if top.next >= len(top.node.Content) {
			p.frames = p.frames[:len(p.frames)-1]
			return granola.TokenMapEnd, nil
		}
		if top.next%2 == 0 {
			k := resolve(top.node.Content[top.next])
			top.next++
			if k.Kind != yaml.ScalarNode {
				p.line = k.Line
				return granola.TokenError, p.fail(granola.ErrInvalidKey, "readKey", nil)
			}
			p.key = k.Value
			return granola.TokenKey, nil
		}
		n := top.node.Content[top.next]
		top.next++
		return p.emit(n)
	default:
		if top.next >= len(top.node.Content) {
			p.frames = p.frames[:len(p.frames)-1]
			return granola.TokenArrayEnd, nil
		}
		n := top.node.Content[top.next]
		top.next++
		p.key = ""
		return p.emit(n)
	}
}

// emit produces the token that starts node n.
func (p *Parser) emit(n *yaml.Node) (granola.Token, error) {
	n = resolve(n)
	p.line = n.Line

	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		if p.maxDepth > 0 && len(p.frames) >= p.maxDepth {
			return granola.TokenError, p.fail(granola.ErrTooDeep, "openContainer", nil)
		}
		if n.Kind == yaml.MappingNode {
			p.frames = append(p.frames, frame{node: merged(n)})
			return granola.TokenMapStart, nil
		}
		p.frames = append(p.frames, frame{node: n})
		return granola.TokenArrayStart, nil
	case yaml.ScalarNode:
		p.pending = n
		return granola.TokenValue, nil
	default:
		return granola.TokenError, p.fail(granola.ErrUnexpectedToken, "nextToken", nil)
	}
}

// merged applies "<<" merge keys: entries of the merged mappings come
// first, minus any key the mapping sets itself. Mappings without merge keys
// are returned unchanged.
func merged(n *yaml.Node) *yaml.Node {
	var own, from []*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode || k.ShortTag() != tagMerge {
			own = append(own, k, v)
			continue
		}
		v = resolve(v)
		if v.Kind == yaml.SequenceNode {
			for _, item := range v.Content {
				from = append(from, resolve(item))
			}
		} else {
			from = append(from, v)
		}
	}
	if from == nil {
		return n
	}

	seen := make(map[string]bool)
	for i := 0; i < len(own); i += 2 {
		seen[resolve(own[i]).Value] = true
	}
	var content []*yaml.Node
	for _, m := range from {
		if m.Kind != yaml.MappingNode {
			continue
		}
		m = merged(m)
		for i := 0; i+1 < len(m.Content); i += 2 {
			key := resolve(m.Content[i]).Value
			if seen[key] {
				continue
			}
			seen[key] = true
			content = append(content, m.Content[i], m.Content[i+1])
		}
	}
	out := *n
	out.Content = append(content, own...)
	return &out
}

// resolve follows alias chains to the anchored node.
func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// Key returns the current mapping key, or "" inside sequences.
func (p *Parser) Key() string { return p.key }

// Kind reports the kind of the pending scalar.
func (p *Parser) Kind() granola.Kind {
	if p.pending == nil {
		return granola.KindInvalid
	}
	switch p.pending.ShortTag() {
	case tagNull:
		return granola.KindNull
	case tagBool:
		return granola.KindBool
	case tagInt:
		var n int64
		if p.pending.Decode(&n) != nil {
			return granola.KindFloat64
		}
		return granola.KindInt64
	case tagFloat:
		return granola.KindFloat64
	case tagBinary:
		return granola.KindBinary
	default:
		return granola.KindString
	}
}

// RawValue returns the scalar text as written; strings are quoted.
func (p *Parser) RawValue() (string, error) {
	if err := p.check("getRawValue"); err != nil {
		return "", err
	}
	if p.Kind() == granola.KindString {
		return `"` + p.pending.Value + `"`, nil
	}
	return p.pending.Value, nil
}

func (p *Parser) ReadBool() (bool, error) {
	var b bool
	if err := p.read("readBool", &b, tagBool); err != nil {
		return false, err
	}
	return b, nil
}

func (p *Parser) ReadInt() (int64, error) {
	var n int64
	if err := p.check("readInt"); err != nil {
		return 0, err
	}
	if p.pending.ShortTag() != tagInt {
		return 0, p.fail(granola.ErrTypeMismatch, "readInt", nil)
	}
	if err := p.pending.Decode(&n); err != nil {
		return 0, p.fail(granola.ErrOverflow, "readInt", err)
	}
	p.pending = nil
	return n, nil
}

func (p *Parser) ReadFloat() (float64, error) {
	var f float64
	if err := p.read("readFloat", &f, tagFloat, tagInt); err != nil {
		return 0, err
	}
	return f, nil
}

func (p *Parser) ReadString() (string, error) {
	if err := p.check("readString"); err != nil {
		return "", err
	}
	if p.Kind() != granola.KindString {
		return "", p.fail(granola.ErrTypeMismatch, "readString", nil)
	}
	s := p.pending.Value
	p.pending = nil
	return s, nil
}

// ReadBinary decodes a !!binary scalar. Line breaks inside the base64 text
// are ignored.
func (p *Parser) ReadBinary() ([]byte, error) {
	if err := p.check("readBinary"); err != nil {
		return nil, err
	}
	if p.pending.ShortTag() != tagBinary {
		return nil, p.fail(granola.ErrTypeMismatch, "readBinary", nil)
	}
	b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(p.pending.Value), ""))
	if err != nil {
		return nil, p.fail(granola.ErrTypeMismatch, "readBinary", err)
	}
	p.pending = nil
	return b, nil
}

func (p *Parser) ReadNull() error {
	if err := p.check("readNull"); err != nil {
		return err
	}
	if p.pending.ShortTag() != tagNull {
		return p.fail(granola.ErrTypeMismatch, "readNull", nil)
	}
	p.pending = nil
	return nil
}

// read decodes the pending scalar into out when its tag is one of tags.
func (p *Parser) read(op string, out any, tags ...string) error {
	if err := p.check(op); err != nil {
		return err
	}
	tag := p.pending.ShortTag()
	for _, want := range tags {
		if tag != want {
			continue
		}
		if err := p.pending.Decode(out); err != nil {
			return p.fail(granola.ErrTypeMismatch, op, err)
		}
		p.pending = nil
		return nil
	}
	return p.fail(granola.ErrTypeMismatch, op, nil)
}

func (p *Parser) check(op string) error {
	if p.err != nil {
		return p.err
	}
	if p.pending == nil {
		return p.fail(granola.ErrNoValue, op, nil)
	}
	return nil
}

func (p *Parser) fail(sentinel error, op string, cause error) error {
	p.err = &granola.DecodeError{
		Err:    sentinel,
		Op:     op,
		Offset: int64(p.line),
		Byte:   granola.NoByte,
		Cause:  cause,
	}
	return p.err
}
