package bson

import (
	"math"
	"strconv"

	"github.com/zoobzio/granola"
)

// SizeOfValue returns the payload bytes v occupies. Strings carry a length
// prefix and terminator; nil is a null with no payload.
func (e *Encoder) SizeOfValue(v any) (int, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case bool:
		return 1, nil
	case int8, int16, int32, uint8, uint16:
		return 4, nil
	case int, int64, uint32, float32, float64:
		return 8, nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, granola.ErrOverflow
		}
		return 8, nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, granola.ErrOverflow
		}
		return 8, nil
	case string:
		return 4 + len(x) + 1, nil
	case []byte:
		return e.SizeOfRaw(len(x)), nil
	default:
		return 0, granola.ErrUnsupportedType
	}
}

// SizeOfMap returns the length header, the terminator and one tag byte per entry.
func (*Encoder) SizeOfMap(entries int) int {
	return containerOverhead + entries
}

// SizeOfArray is SizeOfMap plus the generated element names "0", "1", ...
func (*Encoder) SizeOfArray(entries int) int {
	n := containerOverhead
	for i := 0; i < entries; i++ {
		n += 2 + len(strconv.Itoa(i))
	}
	return n
}

// SizeOfKey returns the name bytes plus the terminating NUL.
func (*Encoder) SizeOfKey(name string) int {
	return len(name) + 1
}

// SizeOfRaw returns the length prefix, the subtype byte and the data.
func (*Encoder) SizeOfRaw(n int) int {
	return 4 + 1 + n
}
