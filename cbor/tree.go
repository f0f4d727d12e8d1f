package cbor

import (
	"encoding/hex"
	"math"
	"sort"
	"strconv"

	"github.com/zoobzio/granola"
)

// node is one open container in a treePrinter.
type node struct {
	isMap bool
	m     map[string]any
	s     []any
	key   string
}

// treePrinter collects granola printer calls into plain Go values:
// map[string]any, []any, int64, uint64, float32, float64, bool, string,
// []byte and nil. The cbor library then encodes that tree.
type treePrinter struct {
	stack  []*node
	root   any
	key    string
	hasKey bool
	done   bool
	inDoc  bool
	err    error
}

func (p *treePrinter) OpenDoc() error {
	if p.err != nil {
		return p.err
	}
	if p.inDoc || p.done {
		return p.fail(granola.ErrUnexpectedToken, "openDoc")
	}
	p.inDoc = true
	return nil
}

func (p *treePrinter) CloseDoc() error {
	if p.err != nil {
		return p.err
	}
	if !p.inDoc || len(p.stack) > 0 || !p.done {
		return p.fail(granola.ErrUnexpectedToken, "closeDoc")
	}
	p.inDoc = false
	return nil
}

func (p *treePrinter) OpenMap(int) error {
	return p.open(&node{isMap: true, m: make(map[string]any)}, "openMap")
}

func (p *treePrinter) CloseMap() error { return p.close(true, "closeMap") }

func (p *treePrinter) OpenArray(int) error {
	return p.open(&node{s: make([]any, 0)}, "openArray")
}

func (p *treePrinter) CloseArray() error { return p.close(false, "closeArray") }

func (p *treePrinter) AddKey(name string) error {
	if p.err != nil {
		return p.err
	}
	p.key = name
	p.hasKey = true
	return nil
}

func (p *treePrinter) AddInt8(v int8) error   { return p.add(int64(v)) }
func (p *treePrinter) AddInt16(v int16) error { return p.add(int64(v)) }
func (p *treePrinter) AddInt32(v int32) error { return p.add(int64(v)) }
func (p *treePrinter) AddInt64(v int64) error { return p.add(v) }

func (p *treePrinter) AddUint8(v uint8) error   { return p.add(uint64(v)) }
func (p *treePrinter) AddUint16(v uint16) error { return p.add(uint64(v)) }
func (p *treePrinter) AddUint32(v uint32) error { return p.add(uint64(v)) }
func (p *treePrinter) AddUint64(v uint64) error { return p.add(v) }

func (p *treePrinter) AddFloat32(v float32) error { return p.add(v) }
func (p *treePrinter) AddFloat64(v float64) error { return p.add(v) }
func (p *treePrinter) AddBool(v bool) error       { return p.add(v) }
func (p *treePrinter) AddString(v string) error   { return p.add(v) }

func (p *treePrinter) AddRaw(v []byte) error {
	return p.add(append([]byte{}, v...))
}

func (p *treePrinter) AddNull() error { return p.add(nil) }

func (p *treePrinter) add(v any) error {
	return p.attach(v, "addValue")
}

func (p *treePrinter) open(n *node, op string) error {
	if err := p.check(op); err != nil {
		return err
	}
	if len(p.stack) > 0 && p.stack[len(p.stack)-1].isMap {
		if !p.hasKey {
			return p.fail(granola.ErrMissingKey, op)
		}
		n.key = p.key
	}
	p.hasKey = false
	p.stack = append(p.stack, n)
	return nil
}

func (p *treePrinter) close(isMap bool, op string) error {
	if p.err != nil {
		return p.err
	}
	if len(p.stack) == 0 || p.stack[len(p.stack)-1].isMap != isMap {
		return p.fail(granola.ErrUnexpectedToken, op)
	}
	n := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]

	var v any = n.s
	if isMap {
		v = n.m
	}
	if len(p.stack) == 0 {
		p.root = v
		p.done = true
		return nil
	}
	parent := p.stack[len(p.stack)-1]
	if parent.isMap {
		parent.m[n.key] = v
	} else {
		parent.s = append(parent.s, v)
	}
	return nil
}

// attach places a scalar at the current position.
func (p *treePrinter) attach(v any, op string) error {
	if err := p.check(op); err != nil {
		return err
	}
	if len(p.stack) == 0 {
		p.root = v
		p.done = true
		return nil
	}
	top := p.stack[len(p.stack)-1]
	if top.isMap {
		if !p.hasKey {
			return p.fail(granola.ErrMissingKey, op)
		}
		top.m[p.key] = v
	} else {
		top.s = append(top.s, v)
	}
	p.hasKey = false
	return nil
}

func (p *treePrinter) check(op string) error {
	if p.err != nil {
		return p.err
	}
	if !p.inDoc || p.done {
		return p.fail(granola.ErrUnexpectedToken, op)
	}
	return nil
}

func (p *treePrinter) fail(sentinel error, op string) error {
	p.err = granola.NewEncodeError(sentinel, op, nil)
	return p.err
}

// level is one open container in a treeParser. Map keys are visited in
// sorted order.
type level struct {
	isMap bool
	m     map[string]any
	keys  []string
	s     []any
	next  int
}

// treeParser reports a decoded value tree as the granola token stream.
type treeParser struct {
	levels   []*level
	maxDepth int

	root    any
	key     string
	pending any
	hasVal  bool

	started  bool
	rootDone bool
	done     bool
	err      error
}

func newTreeParser(root any, maxDepth int) *treeParser {
	return &treeParser{root: root, maxDepth: maxDepth}
}

func (p *treeParser) NextToken() (granola.Token, error) {
	if p.err != nil {
		return granola.TokenError, p.err
	}
	p.pending, p.hasVal = nil, false

	if !p.started {
		p.started = true
		return granola.TokenDocStart, nil
	}
	if !p.rootDone {
		p.rootDone = true
		return p.emit(p.root)
	}
	if len(p.levels) == 0 {
		if p.done {
			return granola.TokenError, p.fail(granola.ErrDocumentComplete, "nextToken", nil)
		}
		p.done = true
		return granola.TokenDocEnd, nil
	}

	top := p.levels[len(p.levels)-1]
	if top.isMap {
		if top.next >= 2*len(top.keys) {
			p.levels = p.levels[:len(p.levels)-1]
			return granola.TokenMapEnd, nil
		}
		k := top.keys[top.next/2]
		top.next++
		if top.next%2 == 1 {
			p.key = k
			return granola.TokenKey, nil
		}
		return p.emit(top.m[k])
	}
	if top.next >= len(top.s) {
		p.levels = p.levels[:len(p.levels)-1]
		return granola.TokenArrayEnd, nil
	}
	v := top.s[top.next]
	top.next++
	p.key = ""
	return p.emit(v)
}

func (p *treeParser) emit(v any) (granola.Token, error) {
	switch x := v.(type) {
	case map[string]any:
		if err := p.push(); err != nil {
			return granola.TokenError, err
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		p.levels = append(p.levels, &level{isMap: true, m: x, keys: keys})
		return granola.TokenMapStart, nil
	case []any:
		if err := p.push(); err != nil {
			return granola.TokenError, err
		}
		p.levels = append(p.levels, &level{s: x})
		return granola.TokenArrayStart, nil
	default:
		p.pending, p.hasVal = v, true
		return granola.TokenValue, nil
	}
}

func (p *treeParser) push() error {
	if p.maxDepth > 0 && len(p.levels) >= p.maxDepth {
		return p.fail(granola.ErrTooDeep, "openContainer", nil)
	}
	return nil
}

func (p *treeParser) Key() string { return p.key }

func (p *treeParser) Kind() granola.Kind {
	if !p.hasVal {
		return granola.KindInvalid
	}
	switch x := p.pending.(type) {
	case nil:
		return granola.KindNull
	case bool:
		return granola.KindBool
	case int64:
		return granola.KindInt64
	case uint64:
		if x > math.MaxInt64 {
			return granola.KindFloat64
		}
		return granola.KindInt64
	case float32, float64:
		return granola.KindFloat64
	case string:
		return granola.KindString
	case []byte:
		return granola.KindBinary
	default:
		return granola.KindInvalid
	}
}

func (p *treeParser) RawValue() (string, error) {
	if err := p.check("getRawValue"); err != nil {
		return "", err
	}
	switch x := p.pending.(type) {
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case string:
		return strconv.Quote(x), nil
	case []byte:
		return "h'" + hex.EncodeToString(x) + "'", nil
	default:
		return "", p.fail(granola.ErrTypeMismatch, "getRawValue", nil)
	}
}

func (p *treeParser) ReadBool() (bool, error) {
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

func (p *treeParser) ReadInt() (int64, error) {
	if err := p.check("readInt"); err != nil {
		return 0, err
	}
	switch x := p.pending.(type) {
	case int64:
		p.consume()
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, p.fail(granola.ErrOverflow, "readInt", nil)
		}
		p.consume()
		return int64(x), nil
	default:
		return 0, p.fail(granola.ErrTypeMismatch, "readInt", nil)
	}
}

func (p *treeParser) ReadFloat() (float64, error) {
	if err := p.check("readFloat"); err != nil {
		return 0, err
	}
	var f float64
	switch x := p.pending.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint64:
		f = float64(x)
	default:
		return 0, p.fail(granola.ErrTypeMismatch, "readFloat", nil)
	}
	p.consume()
	return f, nil
}

func (p *treeParser) ReadString() (string, error) {
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

func (p *treeParser) ReadBinary() ([]byte, error) {
	if err := p.check("readBinary"); err != nil {
		return nil, err
	}
	b, ok := p.pending.([]byte)
	if !ok {
		return nil, p.fail(granola.ErrTypeMismatch, "readBinary", nil)
	}
	p.consume()
	return b, nil
}

func (p *treeParser) ReadNull() error {
	if err := p.check("readNull"); err != nil {
		return err
	}
	if p.pending != nil {
		return p.fail(granola.ErrTypeMismatch, "readNull", nil)
	}
	p.consume()
	return nil
}

func (p *treeParser) consume() {
	p.pending, p.hasVal = nil, false
}

func (p *treeParser) check(op string) error {
	if p.err != nil {
		return p.err
	}
	if !p.hasVal {
		return p.fail(granola.ErrNoValue, op, nil)
	}
	return nil
}

// fail records a sticky error. A tree has no byte offsets, so the offset is
// the nesting depth at the point of failure.
func (p *treeParser) fail(sentinel error, op string, cause error) error {
	p.err = granola.NewDecodeError(sentinel, op, int64(len(p.levels)), cause)
	return p.err
}
