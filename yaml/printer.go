package yaml

import (
	"bytes"
	"encoding/base64"
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/zoobzio/granola"
)

// Printer builds a yaml.Node tree from granola printer calls and encodes it
// when the document closes. Documents after the first are preceded by a
// "---" separator. Binary values are written as !!binary scalars.
type Printer struct {
	w      io.Writer
	indent int

	stack  []*yaml.Node
	root   *yaml.Node
	key    string
	hasKey bool
	inDoc  bool
	docs   int

	err error
}

// PrinterOption configures a Printer.
type PrinterOption func(*Printer)

// WithIndent sets the number of spaces per nesting level. The default is 2.
func WithIndent(spaces int) PrinterOption {
	return func(p *Printer) { p.indent = spaces }
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer, opts ...PrinterOption) *Printer {
	p := &Printer{w: w, indent: 2}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Printer) OpenDoc() error {
	if p.err != nil {
		return p.err
	}
	if p.inDoc {
		return p.fail(granola.ErrUnexpectedToken, "openDoc", nil)
	}
	p.inDoc = true
	p.root = nil
	return nil
}

func (p *Printer) CloseDoc() error {
	if p.err != nil {
		return p.err
	}
	if !p.inDoc || len(p.stack) > 0 || p.root == nil {
		return p.fail(granola.ErrUnexpectedToken, "closeDoc", nil)
	}
	p.inDoc = false

	var buf bytes.Buffer
	if p.docs > 0 {
		buf.WriteString("---\n")
	}
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(p.indent)
	if err := enc.Encode(p.root); err != nil {
		return p.fail(granola.ErrUnsupportedType, "encodeDoc", err)
	}
	if err := enc.Close(); err != nil {
		return p.fail(granola.ErrUnsupportedType, "encodeDoc", err)
	}
	p.docs++
	if _, err := p.w.Write(buf.Bytes()); err != nil {
		return p.fail(granola.ErrWrite, "flush", err)
	}
	return nil
}

func (p *Printer) OpenMap(int) error { return p.open(yaml.MappingNode, "openMap") }
func (p *Printer) CloseMap() error   { return p.close(yaml.MappingNode, "closeMap") }

func (p *Printer) OpenArray(int) error { return p.open(yaml.SequenceNode, "openArray") }
func (p *Printer) CloseArray() error   { return p.close(yaml.SequenceNode, "closeArray") }

// AddKey records the name of the next mapping entry. Inside sequences the
// name is ignored.
func (p *Printer) AddKey(name string) error {
	if p.err != nil {
		return p.err
	}
	p.key = name
	p.hasKey = true
	return nil
}

func (p *Printer) AddInt8(v int8) error   { return p.AddInt64(int64(v)) }
func (p *Printer) AddInt16(v int16) error { return p.AddInt64(int64(v)) }
func (p *Printer) AddInt32(v int32) error { return p.AddInt64(int64(v)) }

func (p *Printer) AddInt64(v int64) error {
	return p.scalar(tagInt, strconv.FormatInt(v, 10))
}

func (p *Printer) AddUint8(v uint8) error   { return p.AddUint64(uint64(v)) }
func (p *Printer) AddUint16(v uint16) error { return p.AddUint64(uint64(v)) }
func (p *Printer) AddUint32(v uint32) error { return p.AddUint64(uint64(v)) }

func (p *Printer) AddUint64(v uint64) error {
	return p.scalar(tagInt, strconv.FormatUint(v, 10))
}

func (p *Printer) AddFloat32(v float32) error { return p.addFloat(float64(v), 32) }
func (p *Printer) AddFloat64(v float64) error { return p.addFloat(v, 64) }

func (p *Printer) addFloat(v float64, bits int) error {
	var text string
	switch {
	case math.IsNaN(v):
		text = ".nan"
	case math.IsInf(v, 1):
		text = ".inf"
	case math.IsInf(v, -1):
		text = "-.inf"
	default:
		text = strconv.FormatFloat(v, 'g', -1, bits)
	}
	return p.scalar(tagFloat, text)
}

func (p *Printer) AddBool(v bool) error {
	return p.scalar(tagBool, strconv.FormatBool(v))
}

func (p *Printer) AddString(v string) error {
	return p.scalar(tagStr, v)
}

// AddRaw writes v as a base64 !!binary scalar.
func (p *Printer) AddRaw(v []byte) error {
	return p.scalar(tagBinary, base64.StdEncoding.EncodeToString(v))
}

func (p *Printer) AddNull() error {
	return p.scalar(tagNull, "null")
}

func (p *Printer) scalar(tag, value string) error {
	return p.attach(&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}, "addValue")
}

func (p *Printer) open(kind yaml.Kind, op string) error {
	n := &yaml.Node{Kind: kind}
	if err := p.attach(n, op); err != nil {
		return err
	}
	p.stack = append(p.stack, n)
	return nil
}

func (p *Printer) close(kind yaml.Kind, op string) error {
	if p.err != nil {
		return p.err
	}
	if len(p.stack) == 0 || p.stack[len(p.stack)-1].Kind != kind {
		return p.fail(granola.ErrUnexpectedToken, op, nil)
	}
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

// attach places n at the current position: as the document root, as the
// next sequence item, or as the value of the pending mapping key.
func (p *Printer) attach(n *yaml.Node, op string) error {
	if p.err != nil {
		return p.err
	}
	if !p.inDoc {
		return p.fail(granola.ErrUnexpectedToken, op, nil)
	}
	if len(p.stack) == 0 {
		if p.root != nil {
			return p.fail(granola.ErrUnexpectedToken, op, nil)
		}
		p.root = n
		return nil
	}

	parent := p.stack[len(p.stack)-1]
	if parent.Kind == yaml.MappingNode {
		if !p.hasKey {
			return p.fail(granola.ErrMissingKey, op, nil)
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: p.key}
		parent.Content = append(parent.Content, key, n)
	} else {
		parent.Content = append(parent.Content, n)
	}
	p.hasKey = false
	return nil
}

func (p *Printer) fail(sentinel error, op string, cause error) error {
	p.err = granola.NewEncodeError(sentinel, op, cause)
	return p.err
}
