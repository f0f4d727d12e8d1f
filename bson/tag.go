package bson

import (
	"fmt"

	"github.com/zoobzio/granola"
)

// Tag is the one-byte discriminant preceding every entry on the wire.
type Tag byte

const (
	TagDouble     Tag = 0x01
	TagString     Tag = 0x02
	TagMap        Tag = 0x03
	TagArray      Tag = 0x04
	TagBinary     Tag = 0x05
	TagObjectID   Tag = 0x07
	TagBool       Tag = 0x08
	TagNull       Tag = 0x0A
	TagInt32      Tag = 0x10
	TagInt64      Tag = 0x12
	TagDecimal128 Tag = 0x13
)

// widthPrefixed marks tags whose payload carries its own int32 length.
const widthPrefixed = -1

// tagInfo is one row of the closed tag table.
type tagInfo struct {
	name  string
	kind  granola.Kind
	width int // payload bytes, or widthPrefixed
}

var tagTable = map[Tag]tagInfo{
	TagDouble:     {"double", granola.KindFloat64, 8},
	TagString:     {"string", granola.KindString, widthPrefixed},
	TagMap:        {"map", granola.KindInvalid, widthPrefixed},
	TagArray:      {"array", granola.KindInvalid, widthPrefixed},
	TagBinary:     {"binary", granola.KindBinary, widthPrefixed},
	TagObjectID:   {"objectid", granola.KindInvalid, 12},
	TagBool:       {"bool", granola.KindBool, 1},
	TagNull:       {"null", granola.KindNull, 0},
	TagInt32:      {"int32", granola.KindInt32, 4},
	TagInt64:      {"int64", granola.KindInt64, 8},
	TagDecimal128: {"decimal128", granola.KindInvalid, 16},
}

// Known reports whether t is in the supported tag table.
func (t Tag) Known() bool {
	_, ok := tagTable[t]
	return ok
}

// Kind maps t to the scalar kind exposed through the Parser. Containers,
// object ids and decimal128 values have no typed read and report KindInvalid.
func (t Tag) Kind() granola.Kind {
	return tagTable[t].kind
}

func (t Tag) String() string {
	if info, ok := tagTable[t]; ok {
		return info.name
	}
	return fmt.Sprintf("tag(0x%02X)", byte(t))
}

// fixedWidth returns the payload width of a fixed-size tag.
func (t Tag) fixedWidth() (int, bool) {
	info, ok := tagTable[t]
	if !ok || info.width == widthPrefixed {
		return 0, false
	}
	return info.width, true
}
