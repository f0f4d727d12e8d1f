package bson

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/zoobzio/granola"
)

// Encoder writes granola printer calls as BSON documents.
//
// Each root document is assembled in memory. Container length headers are
// written as placeholders and patched when the container closes, so callers
// may pass granola.SizeUnknown. A supplied size is written as given and
// checked against the bytes actually produced. The finished document is
// handed to the writer in a single Write once its root closes.
//
// An Encoder is not safe for concurrent use. After any error it is spent.
type Encoder struct {
	w      io.Writer
	buf    []byte
	frames stack

	key    string
	hasKey bool

	err error
}

var (
	_ granola.Printer = (*Encoder)(nil)
	_ granola.Sizer   = (*Encoder)(nil)
)

// NewEncoder returns an Encoder writing documents to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// OpenDoc begins a document. No bytes are produced.
func (e *Encoder) OpenDoc() error {
	if e.err != nil {
		return e.err
	}
	if !e.frames.empty() {
		return e.fail(granola.ErrUnexpectedToken, "openDoc", nil)
	}
	e.buf = e.buf[:0]
	e.hasKey = false
	return nil
}

// CloseDoc ends a document. Every container must already be closed.
func (e *Encoder) CloseDoc() error {
	if e.err != nil {
		return e.err
	}
	if !e.frames.empty() {
		return e.fail(granola.ErrUnexpectedToken, "closeDoc", nil)
	}
	return nil
}

// OpenMap starts a map, either the document root or the value of the
// pending entry.
func (e *Encoder) OpenMap(size int) error {
	return e.open(granola.ContainerMap, TagMap, size, "openMap")
}

// CloseMap finishes the innermost map.
func (e *Encoder) CloseMap() error {
	return e.close(granola.ContainerMap, "closeMap")
}

// OpenArray starts an array, either the document root or the value of the
// pending entry.
func (e *Encoder) OpenArray(size int) error {
	return e.open(granola.ContainerArray, TagArray, size, "openArray")
}

// CloseArray finishes the innermost array.
func (e *Encoder) CloseArray() error {
	return e.close(granola.ContainerArray, "closeArray")
}

// AddKey records the name of the next entry. Nothing is written until the
// entry's value arrives, because the type tag precedes the name on the wire.
// Inside arrays the name is ignored and the element index is written instead.
func (e *Encoder) AddKey(name string) error {
	if e.err != nil {
		return e.err
	}
	if strings.IndexByte(name, 0x00) >= 0 {
		return e.fail(granola.ErrInvalidKey, "addKey", nil)
	}
	e.key = name
	e.hasKey = true
	return nil
}

func (e *Encoder) AddInt8(v int8) error     { return e.addInt32(int32(v)) }
func (e *Encoder) AddInt16(v int16) error   { return e.addInt32(int32(v)) }
func (e *Encoder) AddInt32(v int32) error   { return e.addInt32(v) }
func (e *Encoder) AddInt64(v int64) error   { return e.addInt64(v) }
func (e *Encoder) AddUint8(v uint8) error   { return e.addInt32(int32(v)) }
func (e *Encoder) AddUint16(v uint16) error { return e.addInt32(int32(v)) }
func (e *Encoder) AddUint32(v uint32) error { return e.addInt64(int64(v)) }

// AddUint64 writes v as an int64. Values above math.MaxInt64 are rejected.
func (e *Encoder) AddUint64(v uint64) error {
	if e.err != nil {
		return e.err
	}
	if v > math.MaxInt64 {
		return e.fail(granola.ErrOverflow, "addUint64", nil)
	}
	return e.addInt64(int64(v))
}

func (e *Encoder) AddFloat32(v float32) error { return e.AddFloat64(float64(v)) }

func (e *Encoder) AddFloat64(v float64) error {
	if err := e.entry(TagDouble, "addFloat64"); err != nil {
		return err
	}
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
	return e.done()
}

func (e *Encoder) AddBool(v bool) error {
	if err := e.entry(TagBool, "addBool"); err != nil {
		return err
	}
	if v {
		e.buf = append(e.buf, 0x01)
	} else {
		e.buf = append(e.buf, 0x00)
	}
	return e.done()
}

func (e *Encoder) AddString(v string) error {
	if err := e.entry(TagString, "addString"); err != nil {
		return err
	}
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(v)+1)) // #nosec G115 -- bounded by checkSize at close
	e.buf = append(e.buf, v...)
	e.buf = append(e.buf, 0x00)
	return e.done()
}

// AddRaw writes v as generic binary (subtype 0x00).
func (e *Encoder) AddRaw(v []byte) error {
	if err := e.entry(TagBinary, "addRaw"); err != nil {
		return err
	}
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(v))) // #nosec G115 -- bounded by checkSize at close
	e.buf = append(e.buf, 0x00)
	e.buf = append(e.buf, v...)
	return e.done()
}

func (e *Encoder) AddNull() error {
	if err := e.entry(TagNull, "addNull"); err != nil {
		return err
	}
	return e.done()
}

func (e *Encoder) addInt32(v int32) error {
	if err := e.entry(TagInt32, "addInt32"); err != nil {
		return err
	}
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v)) // #nosec G115 -- two's complement reinterpretation
	return e.done()
}

func (e *Encoder) addInt64(v int64) error {
	if err := e.entry(TagInt64, "addInt64"); err != nil {
		return err
	}
	e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v)) // #nosec G115 -- two's complement reinterpretation
	return e.done()
}

func (e *Encoder) open(kind granola.Container, tag Tag, size int, op string) error {
	if size != granola.SizeUnknown && (size < containerOverhead || size > math.MaxInt32) {
		return e.fail(granola.ErrSizeMismatch, op, nil)
	}
	if !e.frames.empty() {
		if err := e.entry(tag, op); err != nil {
			return err
		}
	} else if e.err != nil {
		return e.err
	} else {
		e.buf = e.buf[:0]
	}
	start := len(e.buf)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(max(size, 0))) // #nosec G115 -- range checked above
	e.frames.push(frame{kind: kind, size: int32(size), start: start})   // #nosec G115 -- range checked above
	return nil
}

func (e *Encoder) close(kind granola.Container, op string) error {
	if e.err != nil {
		return e.err
	}
	if e.frames.empty() || e.frames.top().kind != kind {
		return e.fail(granola.ErrUnexpectedToken, op, nil)
	}
	f := e.frames.pop()
	e.buf = append(e.buf, 0x00)
	if err := e.patch(f, op); err != nil {
		return err
	}
	e.hasKey = false
	if e.frames.empty() {
		return e.flush()
	}
	return nil
}

// entry writes the tag and name that introduce a value. At the document
// root it opens an implicit value container with an empty name instead.
func (e *Encoder) entry(tag Tag, op string) error {
	if e.err != nil {
		return e.err
	}
	if e.frames.empty() {
		e.buf = e.buf[:0]
		e.frames.push(frame{kind: granola.ContainerValue, size: granola.SizeUnknown})
		e.buf = append(e.buf, 0, 0, 0, 0, byte(tag), 0x00)
		return nil
	}
	f := e.frames.top()
	e.buf = append(e.buf, byte(tag))
	switch f.kind {
	case granola.ContainerArray:
		e.buf = strconv.AppendInt(e.buf, int64(f.index), 10)
		f.index++
	default:
		if !e.hasKey {
			return e.fail(granola.ErrMissingKey, op, nil)
		}
		e.buf = append(e.buf, e.key...)
	}
	e.buf = append(e.buf, 0x00)
	e.key = ""
	e.hasKey = false
	return nil
}

// done finishes an implicit value root once its single value is written.
func (e *Encoder) done() error {
	if e.frames.depth() != 1 || e.frames.top().kind != granola.ContainerValue {
		return nil
	}
	f := e.frames.pop()
	e.buf = append(e.buf, 0x00)
	if err := e.patch(f, "closeValue"); err != nil {
		return err
	}
	return e.flush()
}

func (e *Encoder) patch(f frame, op string) error {
	actual := len(e.buf) - f.start
	if actual > math.MaxInt32 {
		return e.fail(granola.ErrOverflow, op, nil)
	}
	if f.size != granola.SizeUnknown && int(f.size) != actual {
		return e.fail(granola.ErrSizeMismatch, op, nil)
	}
	binary.LittleEndian.PutUint32(e.buf[f.start:], uint32(actual)) // #nosec G115 -- range checked above
	return nil
}

func (e *Encoder) flush() error {
	_, err := e.w.Write(e.buf)
	e.buf = e.buf[:0]
	if err != nil {
		return e.fail(granola.ErrWrite, "flush", err)
	}
	return nil
}

func (e *Encoder) fail(sentinel error, op string, cause error) error {
	e.err = granola.NewEncodeError(sentinel, op, cause)
	return e.err
}
