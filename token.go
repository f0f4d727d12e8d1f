package granola

// Token is one event in the structural stream shared by every Parser and
// Printer. A document is always bracketed by TokenDocStart and TokenDocEnd
// and contains exactly one root: a map, an array, or a bare value.
type Token int

const (
	// TokenError is returned alongside a non-nil error and after a document
	// has been fully produced. Callers must stop once they see it.
	TokenError Token = iota
	TokenDocStart
	TokenDocEnd
	TokenMapStart
	TokenMapEnd
	TokenArrayStart
	TokenArrayEnd
	TokenKey
	TokenValue
)

var tokenNames = [...]string{
	TokenError:      "Error",
	TokenDocStart:   "DocStart",
	TokenDocEnd:     "DocEnd",
	TokenMapStart:   "MapStart",
	TokenMapEnd:     "MapEnd",
	TokenArrayStart: "ArrayStart",
	TokenArrayEnd:   "ArrayEnd",
	TokenKey:        "Key",
	TokenValue:      "Value",
}

func (t Token) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return "Unknown"
}

// Kind describes the scalar carried by the most recent TokenValue.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindInt32
	KindInt64
	KindFloat64
	KindString
	KindBinary
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindNull:    "null",
	KindBool:    "bool",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindFloat64: "float64",
	KindString:  "string",
	KindBinary:  "binary",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Container is the kind of a size-prefixed span of entries.
type Container int

const (
	// ContainerMap holds ordered key/value pairs with string keys.
	ContainerMap Container = iota
	// ContainerArray holds ordered values. Element names are synthesized
	// by the format and never surface as Key tokens.
	ContainerArray
	// ContainerValue wraps a single scalar when the document root is not
	// a map or an array.
	ContainerValue
)

func (c Container) String() string {
	switch c {
	case ContainerMap:
		return "map"
	case ContainerArray:
		return "array"
	case ContainerValue:
		return "value"
	default:
		return "unknown"
	}
}

// SizeUnknown is passed to OpenMap and OpenArray when the caller has not
// pre-computed the container size.
const SizeUnknown = -1
