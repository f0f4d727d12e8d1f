package granola

// Parser produces a lazy token stream from an encoded document.
//
// NextToken advances exactly one token. Key is valid immediately after a
// TokenKey; Kind, RawValue and the typed reads are valid immediately after a
// TokenValue. A typed read consumes the pending value; if the caller reads
// nothing the next NextToken skips it. Once NextToken has returned an error
// the parser is spent and the document must be discarded.
type Parser interface {
	NextToken() (Token, error)

	// Key returns the name of the most recent TokenKey. Array elements and
	// bare root values report an empty key.
	Key() string

	// Kind reports the scalar kind of the pending value.
	Kind() Kind

	// RawValue returns an uninterpreted textual rendering of the pending value.
	RawValue() (string, error)

	ReadBool() (bool, error)
	ReadInt() (int64, error)
	ReadFloat() (float64, error)
	ReadString() (string, error)
	ReadBinary() ([]byte, error)
	ReadNull() error
}

// Printer accepts structural and value calls mirroring the token stream.
//
// For every entry, AddKey is called first and then exactly one of the Add
// methods, OpenMap or OpenArray. Array elements are also preceded by AddKey;
// formats that name array elements ignore the supplied name.
type Printer interface {
	OpenDoc() error
	CloseDoc() error

	// OpenMap and OpenArray take the container's total encoded size, or
	// SizeUnknown when the caller did not compute it.
	OpenMap(size int) error
	CloseMap() error
	OpenArray(size int) error
	CloseArray() error

	AddKey(name string) error

	AddInt8(v int8) error
	AddInt16(v int16) error
	AddInt32(v int32) error
	AddInt64(v int64) error
	AddUint8(v uint8) error
	AddUint16(v uint16) error
	AddUint32(v uint32) error
	AddUint64(v uint64) error
	AddFloat32(v float32) error
	AddFloat64(v float64) error
	AddBool(v bool) error
	AddString(v string) error
	AddRaw(v []byte) error
	AddNull() error
}

// Sizer is implemented by printers whose wire format needs container sizes
// before their contents. Every method is pure: it reports exactly the number
// of bytes a matching write would emit.
type Sizer interface {
	// SizeOfValue returns the payload size of a scalar value.
	SizeOfValue(v any) (int, error)

	// SizeOfMap returns the fixed overhead of a map with the given number of
	// entries. Callers add SizeOfKey and the payload size of each entry.
	SizeOfMap(entries int) int

	// SizeOfArray returns the fixed overhead of an array with the given
	// number of elements, including element names. Callers add payload sizes.
	SizeOfArray(entries int) int

	// SizeOfKey returns the bytes an entry name occupies.
	SizeOfKey(name string) int

	// SizeOfRaw returns the payload size of a raw value of n bytes.
	SizeOfRaw(n int) int
}
