package json

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/zoobzio/granola"
)

type level struct {
	kind  granola.Container
	count int
}

// Printer writes the granola printer calls as JSON text. Each document is
// buffered and handed to the writer in a single Write when it closes;
// consecutive documents are separated by a newline.
type Printer struct {
	w      io.Writer
	buf    bytes.Buffer
	indent string

	levels []level
	key    string
	hasKey bool
	inDoc  bool
	docs   int
	wrote  bool // root value written

	scratch bytes.Buffer
	strEnc  *json.Encoder

	err error
}

// PrinterOption configures a Printer.
type PrinterOption func(*Printer)

// WithIndent pretty-prints with the given per-level indent.
func WithIndent(indent string) PrinterOption {
	return func(p *Printer) { p.indent = indent }
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer, opts ...PrinterOption) *Printer {
	p := &Printer{w: w}
	p.strEnc = json.NewEncoder(&p.scratch)
	p.strEnc.SetEscapeHTML(false)
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
	p.wrote = false
	p.buf.Reset()
	if p.docs > 0 {
		p.buf.WriteByte('\n')
	}
	return nil
}

func (p *Printer) CloseDoc() error {
	if p.err != nil {
		return p.err
	}
	if !p.inDoc || len(p.levels) > 0 || !p.wrote {
		return p.fail(granola.ErrUnexpectedToken, "closeDoc", nil)
	}
	p.inDoc = false
	p.docs++
	if _, err := p.w.Write(p.buf.Bytes()); err != nil {
		return p.fail(granola.ErrWrite, "flush", err)
	}
	return nil
}

func (p *Printer) OpenMap(int) error   { return p.open(granola.ContainerMap, '{', "openMap") }
func (p *Printer) CloseMap() error     { return p.close(granola.ContainerMap, '}', "closeMap") }
func (p *Printer) OpenArray(int) error { return p.open(granola.ContainerArray, '[', "openArray") }
func (p *Printer) CloseArray() error   { return p.close(granola.ContainerArray, ']', "closeArray") }

// AddKey records the name of the next object member. Inside arrays the name
// is ignored.
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
	return p.scalar(func(b []byte) []byte { return strconv.AppendInt(b, v, 10) })
}

func (p *Printer) AddUint8(v uint8) error   { return p.AddUint64(uint64(v)) }
func (p *Printer) AddUint16(v uint16) error { return p.AddUint64(uint64(v)) }
func (p *Printer) AddUint32(v uint32) error { return p.AddUint64(uint64(v)) }

func (p *Printer) AddUint64(v uint64) error {
	return p.scalar(func(b []byte) []byte { return strconv.AppendUint(b, v, 10) })
}

func (p *Printer) AddFloat32(v float32) error { return p.addFloat(float64(v), 32) }
func (p *Printer) AddFloat64(v float64) error { return p.addFloat(v, 64) }

func (p *Printer) addFloat(v float64, bits int) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return p.fail(granola.ErrUnsupportedType, "addFloat", nil)
	}
	return p.scalar(func(b []byte) []byte { return strconv.AppendFloat(b, v, 'g', -1, bits) })
}

func (p *Printer) AddBool(v bool) error {
	return p.scalar(func(b []byte) []byte { return strconv.AppendBool(b, v) })
}

func (p *Printer) AddString(v string) error {
	if err := p.entry("addValue"); err != nil {
		return err
	}
	quoted, err := p.quote(v)
	if err != nil {
		return p.fail(granola.ErrUnsupportedType, "addString", err)
	}
	p.buf.Write(quoted)
	p.done()
	return nil
}

// AddRaw writes binary data as a base64 string.
func (p *Printer) AddRaw(v []byte) error {
	return p.scalar(func(b []byte) []byte {
		b = append(b, '"')
		b = base64.StdEncoding.AppendEncode(b, v)
		return append(b, '"')
	})
}

func (p *Printer) AddNull() error {
	return p.scalar(func(b []byte) []byte { return append(b, "null"...) })
}

func (p *Printer) open(kind granola.Container, delim byte, op string) error {
	if err := p.entry(op); err != nil {
		return err
	}
	p.buf.WriteByte(delim)
	p.levels = append(p.levels, level{kind: kind})
	return nil
}

func (p *Printer) close(kind granola.Container, delim byte, op string) error {
	if p.err != nil {
		return p.err
	}
	n := len(p.levels)
	if n == 0 || p.levels[n-1].kind != kind {
		return p.fail(granola.ErrUnexpectedToken, op, nil)
	}
	count := p.levels[n-1].count
	p.levels = p.levels[:n-1]
	if count > 0 {
		p.newline()
	}
	p.buf.WriteByte(delim)
	p.done()
	return nil
}

func (p *Printer) scalar(appendValue func([]byte) []byte) error {
	if err := p.entry("addValue"); err != nil {
		return err
	}
	p.buf.Write(appendValue(nil))
	p.done()
	return nil
}

// entry writes the separator, indentation and member name that precede a
// value at the current position.
func (p *Printer) entry(op string) error {
	if p.err != nil {
		return p.err
	}
	if !p.inDoc || (len(p.levels) == 0 && p.wrote) {
		return p.fail(granola.ErrUnexpectedToken, op, nil)
	}
	if len(p.levels) == 0 {
		return nil
	}

	top := &p.levels[len(p.levels)-1]
	if top.kind == granola.ContainerMap && !p.hasKey {
		return p.fail(granola.ErrMissingKey, op, nil)
	}
	if top.count > 0 {
		p.buf.WriteByte(',')
	}
	top.count++
	p.newline()

	if top.kind == granola.ContainerMap {
		quoted, err := p.quote(p.key)
		if err != nil {
			return p.fail(granola.ErrInvalidKey, "addKey", err)
		}
		p.buf.Write(quoted)
		p.buf.WriteByte(':')
		if p.indent != "" {
			p.buf.WriteByte(' ')
		}
	}
	p.hasKey = false
	return nil
}

func (p *Printer) done() {
	if len(p.levels) == 0 {
		p.wrote = true
	}
}

func (p *Printer) newline() {
	if p.indent == "" {
		return
	}
	p.buf.WriteByte('\n')
	p.buf.WriteString(strings.Repeat(p.indent, len(p.levels)))
}

// quote renders s as a JSON string literal without HTML escaping.
func (p *Printer) quote(s string) ([]byte, error) {
	p.scratch.Reset()
	if err := p.strEnc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(p.scratch.Bytes(), []byte{'\n'}), nil
}

func (p *Printer) fail(sentinel error, op string, cause error) error {
	p.err = granola.NewEncodeError(sentinel, op, cause)
	return p.err
}
