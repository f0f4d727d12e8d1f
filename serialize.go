package granola

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// Encode walks v and describes it to p as one document.
//
// Structs become maps of their exported fields in declaration order, maps
// become maps with sorted keys, slices and arrays become arrays, []byte is
// written raw, and nil pointers, interfaces, maps and slices are null.
// Container sizes are passed as SizeUnknown.
func Encode(p Printer, v any) error {
	if err := p.OpenDoc(); err != nil {
		return err
	}
	if err := encodeValue(p, reflect.ValueOf(v)); err != nil {
		return err
	}
	return p.CloseDoc()
}

func encodeValue(p Printer, rv reflect.Value) error {
	if !rv.IsValid() {
		return p.AddNull()
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return p.AddNull()
		}
		return encodeValue(p, rv.Elem())
	case reflect.Bool:
		return p.AddBool(rv.Bool())
	case reflect.Int8:
		return p.AddInt8(int8(rv.Int()))
	case reflect.Int16:
		return p.AddInt16(int16(rv.Int()))
	case reflect.Int32:
		return p.AddInt32(int32(rv.Int()))
	case reflect.Int, reflect.Int64:
		return p.AddInt64(rv.Int())
	case reflect.Uint8:
		return p.AddUint8(uint8(rv.Uint()))
	case reflect.Uint16:
		return p.AddUint16(uint16(rv.Uint()))
	case reflect.Uint32:
		return p.AddUint32(uint32(rv.Uint()))
	case reflect.Uint, reflect.Uint64:
		return p.AddUint64(rv.Uint())
	case reflect.Float32:
		return p.AddFloat32(float32(rv.Float()))
	case reflect.Float64:
		return p.AddFloat64(rv.Float())
	case reflect.String:
		return p.AddString(rv.String())
	case reflect.Slice:
		if rv.IsNil() {
			return p.AddNull()
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return p.AddRaw(rv.Bytes())
		}
		return encodeArray(p, rv)
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			raw := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(raw), rv)
			return p.AddRaw(raw)
		}
		return encodeArray(p, rv)
	case reflect.Map:
		if rv.IsNil() {
			return p.AddNull()
		}
		return encodeMap(p, rv)
	case reflect.Struct:
		return encodeStruct(p, rv)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
	}
}

func encodeArray(p Printer, rv reflect.Value) error {
	if err := p.OpenArray(SizeUnknown); err != nil {
		return err
	}
	for i := 0; i < rv.Len(); i++ {
		if err := p.AddKey(""); err != nil {
			return err
		}
		if err := encodeValue(p, rv.Index(i)); err != nil {
			return err
		}
	}
	return p.CloseArray()
}

func encodeMap(p Printer, rv reflect.Value) error {
	type entry struct {
		key string
		val reflect.Value
	}
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := formatMapKey(iter.Key())
		if err != nil {
			return err
		}
		entries = append(entries, entry{key: key, val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	if err := p.OpenMap(SizeUnknown); err != nil {
		return err
	}
	for _, e := range entries {
		if err := p.AddKey(e.key); err != nil {
			return err
		}
		if err := encodeValue(p, e.val); err != nil {
			return err
		}
	}
	return p.CloseMap()
}

func encodeStruct(p Printer, rv reflect.Value) error {
	plan := planFor(rv.Type())

	var filter map[string]bool
	if f, ok := filterOf(rv); ok {
		filter = f.FieldFilter()
	}

	if err := p.OpenMap(SizeUnknown); err != nil {
		return err
	}
	for _, field := range plan.fields {
		if keep, ok := filter[field.name]; ok && !keep {
			continue
		}
		fv := rv.FieldByIndex(field.index)
		if field.omitEmpty && fv.IsZero() {
			continue
		}
		if err := p.AddKey(field.name); err != nil {
			return err
		}
		if err := encodeValue(p, fv); err != nil {
			return err
		}
	}
	return p.CloseMap()
}

// filterOf finds a Filterable implementation on rv or, when addressable, on
// its pointer.
func filterOf(rv reflect.Value) (Filterable, bool) {
	if rv.Type().Implements(filterableType) && rv.CanInterface() {
		f, ok := rv.Interface().(Filterable)
		return f, ok
	}
	if rv.CanAddr() && reflect.PointerTo(rv.Type()).Implements(filterableType) {
		f, ok := rv.Addr().Interface().(Filterable)
		return f, ok
	}
	return nil, false
}

func formatMapKey(k reflect.Value) (string, error) {
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10), nil
	default:
		return "", fmt.Errorf("%w: map key %s", ErrUnsupportedType, k.Type())
	}
}
