package bson

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strconv"

	"github.com/zoobzio/granola"
)

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithRoot sets the expected kind of the document root. Maps, arrays and
// bare values are indistinguishable on the wire, so the caller must say
// which one it expects. The default is granola.ContainerMap.
func WithRoot(root granola.Container) DecoderOption {
	return func(d *Decoder) {
		d.root = root
	}
}

// WithMaxDepth bounds container nesting. Zero means no bound beyond memory.
func WithMaxDepth(depth int) DecoderOption {
	return func(d *Decoder) {
		d.maxDepth = depth
	}
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

// Decoder turns a BSON document into a granola token stream, pulling bytes
// from the underlying reader only as tokens are requested.
//
// A Decoder handles a single document and is not safe for concurrent use.
type Decoder struct {
	r        byteReader
	root     granola.Container
	maxDepth int

	frames stack
	next   granola.Token // one-token lookahead
	tag    Tag
	key    string

	// pending is set while the payload of the last Value token is unread.
	pending bool
	// settled is cleared after a Value token; the next call re-checks the
	// enclosing container for its end.
	settled bool

	offset  int64
	err     error
	scratch [8]byte
}

var _ granola.Parser = (*Decoder)(nil)

// NewDecoder returns a Decoder reading one document from r.
func NewDecoder(r io.Reader, opts ...DecoderOption) *Decoder {
	br, ok := r.(byteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	d := &Decoder{
		r:       br,
		root:    granola.ContainerMap,
		next:    granola.TokenDocStart,
		settled: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int64 {
	return d.offset
}

// Depth returns the number of open containers.
func (d *Decoder) Depth() int {
	return d.frames.depth()
}

// NextToken advances exactly one token.
func (d *Decoder) NextToken() (granola.Token, error) {
	if d.err != nil {
		return granola.TokenError, d.err
	}
	tok, err := d.advance()
	if err != nil {
		d.err = err
		return granola.TokenError, err
	}
	return tok, nil
}

func (d *Decoder) advance() (granola.Token, error) {
	if !d.settled {
		d.settled = true
		if d.pending {
			if err := d.skipValue(); err != nil {
				return granola.TokenError, err
			}
		}
		if err := d.settle(); err != nil {
			return granola.TokenError, err
		}
	}

	// The loop re-enters at most once: a Key inside an array or a value
	// container resolves straight to the token that follows it.
	for {
		tok := d.next
		switch tok {
		case granola.TokenDocStart:
			switch d.root {
			case granola.ContainerArray:
				d.next = granola.TokenArrayStart
			case granola.ContainerValue:
				if err := d.openContainer(granola.ContainerValue); err != nil {
					return granola.TokenError, err
				}
				if err := d.settle(); err != nil {
					return granola.TokenError, err
				}
			default:
				d.next = granola.TokenMapStart
			}
			return tok, nil

		case granola.TokenMapStart, granola.TokenArrayStart:
			kind := granola.ContainerMap
			if tok == granola.TokenArrayStart {
				kind = granola.ContainerArray
			}
			if err := d.openContainer(kind); err != nil {
				return granola.TokenError, err
			}
			if err := d.settle(); err != nil {
				return granola.TokenError, err
			}
			return tok, nil

		case granola.TokenMapEnd, granola.TokenArrayEnd:
			if err := d.closeContainer(); err != nil {
				return granola.TokenError, err
			}
			if d.frames.empty() {
				d.next = granola.TokenDocEnd
			} else if err := d.settle(); err != nil {
				return granola.TokenError, err
			}
			return tok, nil

		case granola.TokenKey:
			if err := d.readKey(); err != nil {
				return granola.TokenError, err
			}
			switch d.tag {
			case TagMap:
				d.next = granola.TokenMapStart
			case TagArray:
				d.next = granola.TokenArrayStart
			default:
				d.next = granola.TokenValue
			}
			if kind := d.frames.top().kind; kind == granola.ContainerArray || kind == granola.ContainerValue {
				continue
			}
			return tok, nil

		case granola.TokenValue:
			d.pending = true
			d.settled = false
			return tok, nil

		case granola.TokenDocEnd:
			if !d.frames.empty() && d.frames.top().kind == granola.ContainerValue {
				if err := d.closeContainer(); err != nil {
					return granola.TokenError, err
				}
			}
			d.next = granola.TokenError
			return tok, nil

		default:
			return granola.TokenError, d.fail(granola.ErrDocumentComplete, "nextToken", granola.NoByte, nil)
		}
	}
}

// settle decides what follows inside the innermost container: its end
// token when only the terminator is left, otherwise another key.
func (d *Decoder) settle() error {
	f := d.frames.top()
	switch {
	case f.left == 1:
		switch f.kind {
		case granola.ContainerMap:
			d.next = granola.TokenMapEnd
		case granola.ContainerArray:
			d.next = granola.TokenArrayEnd
		default:
			d.next = granola.TokenDocEnd
		}
	case f.left < 1:
		return d.fail(granola.ErrSizeMismatch, "endOfContainer", granola.NoByte, nil)
	default:
		d.next = granola.TokenKey
	}
	return nil
}

func (d *Decoder) openContainer(kind granola.Container) error {
	if d.maxDepth > 0 && d.frames.depth() >= d.maxDepth {
		return d.fail(granola.ErrTooDeep, "openContainer", granola.NoByte, nil)
	}
	size, err := d.readInt32("readSize")
	if err != nil {
		return err
	}
	if size < containerOverhead {
		return d.failAt(granola.ErrSizeMismatch, "readSize", d.offset-4, granola.NoByte, nil)
	}
	if !d.frames.empty() && int64(size) > d.frames.top().left-1 {
		return d.failAt(granola.ErrSizeMismatch, "readSize", d.offset-4, granola.NoByte, nil)
	}
	d.frames.push(frame{kind: kind, size: size, left: int64(size) - 4})
	return nil
}

// closeContainer consumes the terminator, pops the frame and charges the
// child's full declared size to its parent.
func (d *Decoder) closeContainer() error {
	b, err := d.readByte("readEndOfContainer")
	if err != nil {
		return err
	}
	f := d.frames.top()
	f.left--
	if b != 0x00 {
		return d.failAt(granola.ErrBadTerminator, "readEndOfContainer", d.offset-1, int(b), nil)
	}
	if f.left != 0 {
		return d.fail(granola.ErrSizeMismatch, "readEndOfContainer", granola.NoByte, nil)
	}
	child := d.frames.pop()
	if !d.frames.empty() {
		d.frames.top().left -= int64(child.size)
	}
	return nil
}

func (d *Decoder) readKey() error {
	b, err := d.readByte("readKey")
	if err != nil {
		return err
	}
	tag := Tag(b)
	if !tag.Known() {
		return d.failAt(granola.ErrUnknownTag, "readKey", d.offset-1, int(b), nil)
	}
	name, err := d.readCString("readKey", d.frames.top().left-2)
	if err != nil {
		return err
	}
	d.consume(1 + int64(len(name)) + 1)
	d.tag = tag
	if d.frames.top().kind == granola.ContainerMap {
		d.key = name
	} else {
		d.key = ""
	}
	return nil
}

// skipValue discards an unread payload according to its tag's width.
func (d *Decoder) skipValue() error {
	d.pending = false
	if width, ok := d.tag.fixedWidth(); ok {
		if err := d.discard("ignoreDataValue", int64(width)); err != nil {
			return err
		}
		d.consume(int64(width))
		return nil
	}
	switch d.tag {
	case TagString:
		size, err := d.readLength("ignoreDataValue", 1, 4)
		if err != nil {
			return err
		}
		if err := d.discard("ignoreDataValue", int64(size)); err != nil {
			return err
		}
		d.consume(4 + int64(size))
	case TagBinary:
		size, err := d.readLength("ignoreDataValue", 0, 5)
		if err != nil {
			return err
		}
		if err := d.discard("ignoreDataValue", 1+int64(size)); err != nil {
			return err
		}
		d.consume(5 + int64(size))
	default:
		return d.fail(granola.ErrUnknownTag, "ignoreDataValue", int(d.tag), nil)
	}
	return nil
}

// Key returns the name read by the last Key token.
func (d *Decoder) Key() string {
	return d.key
}

// Kind reports the kind of the pending value.
func (d *Decoder) Kind() granola.Kind {
	if !d.pending {
		return granola.KindInvalid
	}
	return d.tag.Kind()
}

// ReadBool reads a pending boolean.
func (d *Decoder) ReadBool() (bool, error) {
	if err := d.begin("readBool", TagBool); err != nil {
		return false, err
	}
	b, err := d.readByte("readBool")
	if err != nil {
		return false, err
	}
	d.consume(1)
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, d.failAt(granola.ErrTypeMismatch, "readBool", d.offset-1, int(b), nil)
	}
}

// ReadInt reads a pending int32 or int64.
func (d *Decoder) ReadInt() (int64, error) {
	if err := d.begin("readInt", TagInt32, TagInt64); err != nil {
		return 0, err
	}
	return d.readInteger("readInt")
}

func (d *Decoder) readInteger(op string) (int64, error) {
	if d.tag == TagInt32 {
		v, err := d.readInt32(op)
		if err != nil {
			return 0, err
		}
		d.consume(4)
		return int64(v), nil
	}
	if err := d.readFull(op, d.scratch[:8]); err != nil {
		return 0, err
	}
	d.consume(8)
	return int64(binary.LittleEndian.Uint64(d.scratch[:8])), nil // #nosec G115 -- two's complement reinterpretation
}

// ReadFloat reads a pending double. Integer values are widened.
func (d *Decoder) ReadFloat() (float64, error) {
	if err := d.begin("readFloat", TagDouble, TagInt32, TagInt64); err != nil {
		return 0, err
	}
	if d.tag != TagDouble {
		v, err := d.readInteger("readFloat")
		return float64(v), err
	}
	if err := d.readFull("readFloat", d.scratch[:8]); err != nil {
		return 0, err
	}
	d.consume(8)
	return math.Float64frombits(binary.LittleEndian.Uint64(d.scratch[:8])), nil
}

// ReadString reads a pending string.
func (d *Decoder) ReadString() (string, error) {
	if err := d.begin("readString", TagString); err != nil {
		return "", err
	}
	size, err := d.readLength("readString", 1, 4)
	if err != nil {
		return "", err
	}
	buf := make([]byte, size)
	if err := d.readFull("readString", buf); err != nil {
		return "", err
	}
	d.consume(4 + int64(size))
	if buf[size-1] != 0x00 {
		return "", d.failAt(granola.ErrBadTerminator, "readString", d.offset-1, int(buf[size-1]), nil)
	}
	return string(buf[:size-1]), nil
}

// ReadBinary reads a pending binary payload. The subtype byte is consumed
// and discarded.
func (d *Decoder) ReadBinary() ([]byte, error) {
	if err := d.begin("readBinary", TagBinary); err != nil {
		return nil, err
	}
	size, err := d.readLength("readBinary", 0, 5)
	if err != nil {
		return nil, err
	}
	if _, err := d.readByte("readBinary"); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if err := d.readFull("readBinary", buf); err != nil {
		return nil, err
	}
	d.consume(5 + int64(size))
	return buf, nil
}

// ReadNull consumes a pending null.
func (d *Decoder) ReadNull() error {
	return d.begin("readNull", TagNull)
}

// RawValue renders the pending value without interpreting it: numbers as
// decimal text, strings wrapped in double quotes, binary as its raw bytes.
func (d *Decoder) RawValue() (string, error) {
	if d.err != nil {
		return "", d.err
	}
	switch d.tag {
	case TagInt32, TagInt64:
		v, err := d.ReadInt()
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(v, 10), nil
	case TagDouble:
		v, err := d.ReadFloat()
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case TagBool:
		v, err := d.ReadBool()
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(v), nil
	case TagNull:
		if err := d.ReadNull(); err != nil {
			return "", err
		}
		return "null", nil
	case TagString:
		v, err := d.ReadString()
		if err != nil {
			return "", err
		}
		return `"` + v + `"`, nil
	case TagBinary:
		v, err := d.ReadBinary()
		if err != nil {
			return "", err
		}
		return string(v), nil
	default:
		return "", d.fail(granola.ErrTypeMismatch, "getRawValue", int(d.tag), nil)
	}
}

// begin checks that a value of one of the given tags is pending and marks
// it consumed.
func (d *Decoder) begin(op string, tags ...Tag) error {
	if d.err != nil {
		return d.err
	}
	if !d.pending {
		return d.fail(granola.ErrNoValue, op, granola.NoByte, nil)
	}
	for _, t := range tags {
		if d.tag == t {
			d.pending = false
			return nil
		}
	}
	return d.fail(granola.ErrTypeMismatch, op, int(d.tag), nil)
}

// consume charges n bytes to the innermost container.
func (d *Decoder) consume(n int64) {
	d.frames.top().left -= n
}

// readLength reads an int32 length prefix and checks that min <= length and
// that overhead+length still fits before the container's terminator.
func (d *Decoder) readLength(op string, min int32, overhead int64) (int32, error) {
	size, err := d.readInt32(op)
	if err != nil {
		return 0, err
	}
	if size < min || overhead+int64(size) > d.frames.top().left-1 {
		return 0, d.failAt(granola.ErrSizeMismatch, op, d.offset-4, granola.NoByte, nil)
	}
	return size, nil
}

func (d *Decoder) readInt32(op string) (int32, error) {
	if err := d.readFull(op, d.scratch[:4]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(d.scratch[:4])), nil // #nosec G115 -- two's complement reinterpretation
}

func (d *Decoder) readByte(op string) (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, d.truncated(op, err)
	}
	d.offset++
	return b, nil
}

func (d *Decoder) readFull(op string, p []byte) error {
	n, err := io.ReadFull(d.r, p)
	d.offset += int64(n)
	if err != nil {
		return d.truncated(op, err)
	}
	return nil
}

func (d *Decoder) discard(op string, n int64) error {
	copied, err := io.CopyN(io.Discard, d.r, n)
	d.offset += copied
	if err != nil {
		return d.truncated(op, err)
	}
	return nil
}

// readCString reads a NUL-terminated name of at most limit bytes, NUL included.
func (d *Decoder) readCString(op string, limit int64) (string, error) {
	var name []byte
	for {
		if int64(len(name)) >= limit {
			return "", d.fail(granola.ErrSizeMismatch, op, granola.NoByte, nil)
		}
		b, err := d.readByte(op)
		if err != nil {
			return "", err
		}
		if b == 0x00 {
			return string(name), nil
		}
		name = append(name, b)
	}
}

func (d *Decoder) truncated(op string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return d.fail(granola.ErrTruncated, op, granola.NoByte, err)
}

func (d *Decoder) fail(sentinel error, op string, b int, cause error) error {
	return d.failAt(sentinel, op, d.offset, b, cause)
}

func (d *Decoder) failAt(sentinel error, op string, offset int64, b int, cause error) error {
	d.err = &granola.DecodeError{Err: sentinel, Op: op, Offset: offset, Byte: b, Cause: cause}
	return d.err
}
