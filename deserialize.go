package granola

import (
	"fmt"
	"reflect"
	"strconv"
)

// Decode reads one document from p into v, which must be a non-nil pointer.
//
// Keys with no matching struct field are skipped, including whole nested
// containers. Pointers are allocated as needed and set to nil on null. An
// untyped target (any) receives map[string]any, []any, or the scalar that
// matches the value's Kind.
func Decode(p Parser, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: %T", ErrInvalidTarget, v)
	}

	d := &decodeState{p: p}
	if err := d.expect(TokenDocStart); err != nil {
		return err
	}
	tok, err := d.p.NextToken()
	if err != nil {
		return err
	}
	if err := d.value(tok, rv.Elem()); err != nil {
		return err
	}
	return d.expect(TokenDocEnd)
}

type decodeState struct {
	p Parser
}

func (d *decodeState) expect(want Token) error {
	tok, err := d.p.NextToken()
	if err != nil {
		return err
	}
	if tok != want {
		return unexpected(tok, want.String())
	}
	return nil
}

func unexpected(tok Token, want string) error {
	return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedToken, tok, want)
}

func mismatch(what string, rt reflect.Type) error {
	return fmt.Errorf("%w: cannot decode %s into %s", ErrTypeMismatch, what, rt)
}

// value decodes the value introduced by tok into rv.
func (d *decodeState) value(tok Token, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Ptr:
		if tok == TokenValue && d.p.Kind() == KindNull {
			rv.SetZero()
			return d.p.ReadNull()
		}
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return d.value(tok, rv.Elem())
	case reflect.Interface:
		if rv.NumMethod() != 0 {
			return mismatch("value", rv.Type())
		}
		x, err := d.anyValue(tok)
		if err != nil {
			return err
		}
		if x == nil {
			rv.SetZero()
		} else {
			rv.Set(reflect.ValueOf(x))
		}
		return nil
	}

	switch tok {
	case TokenMapStart:
		return d.mapInto(rv)
	case TokenArrayStart:
		return d.arrayInto(rv)
	case TokenValue:
		return d.scalarInto(rv)
	default:
		return unexpected(tok, "value")
	}
}

func (d *decodeState) mapInto(rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Struct:
		return d.structInto(rv)
	case reflect.Map:
	default:
		return mismatch("map", rv.Type())
	}

	rt := rv.Type()
	if rv.IsNil() {
		rv.Set(reflect.MakeMap(rt))
	}
	for {
		key, tok, done, err := d.entry()
		if err != nil || done {
			return err
		}
		k, err := parseMapKey(rt.Key(), key)
		if err != nil {
			return err
		}
		elem := reflect.New(rt.Elem()).Elem()
		if err := d.value(tok, elem); err != nil {
			return err
		}
		rv.SetMapIndex(k, elem)
	}
}

func (d *decodeState) structInto(rv reflect.Value) error {
	plan := planFor(rv.Type())
	for {
		key, tok, done, err := d.entry()
		if err != nil || done {
			return err
		}
		i, ok := plan.byName[key]
		if !ok {
			if err := d.skip(tok); err != nil {
				return err
			}
			continue
		}
		if err := d.value(tok, rv.FieldByIndex(plan.fields[i].index)); err != nil {
			return err
		}
	}
}

// entry reads the next map entry header: its key and the token that starts
// its value. done is set at the end of the map.
func (d *decodeState) entry() (key string, tok Token, done bool, err error) {
	tok, err = d.p.NextToken()
	if err != nil {
		return "", TokenError, false, err
	}
	if tok == TokenMapEnd {
		return "", tok, true, nil
	}
	if tok != TokenKey {
		return "", TokenError, false, unexpected(tok, TokenKey.String())
	}
	key = d.p.Key()
	tok, err = d.p.NextToken()
	return key, tok, false, err
}

func (d *decodeState) arrayInto(rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Slice:
		s := reflect.MakeSlice(rv.Type(), 0, 0)
		for {
			tok, err := d.p.NextToken()
			if err != nil {
				return err
			}
			if tok == TokenArrayEnd {
				rv.Set(s)
				return nil
			}
			elem := reflect.New(rv.Type().Elem()).Elem()
			if err := d.value(tok, elem); err != nil {
				return err
			}
			s = reflect.Append(s, elem)
		}
	case reflect.Array:
		for i := 0; ; i++ {
			tok, err := d.p.NextToken()
			if err != nil {
				return err
			}
			if tok == TokenArrayEnd {
				for ; i < rv.Len(); i++ {
					rv.Index(i).SetZero()
				}
				return nil
			}
			if i >= rv.Len() {
				if err := d.skip(tok); err != nil {
					return err
				}
				continue
			}
			if err := d.value(tok, rv.Index(i)); err != nil {
				return err
			}
		}
	default:
		return mismatch("array", rv.Type())
	}
}

func (d *decodeState) scalarInto(rv reflect.Value) error {
	if d.p.Kind() == KindNull {
		rv.SetZero()
		return d.p.ReadNull()
	}

	switch rv.Kind() {
	case reflect.Bool:
		b, err := d.p.ReadBool()
		if err != nil {
			return err
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := d.p.ReadInt()
		if err != nil {
			return err
		}
		if rv.OverflowInt(n) {
			return fmt.Errorf("%w: %d into %s", ErrOverflow, n, rv.Type())
		}
		rv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := d.p.ReadInt()
		if err != nil {
			return err
		}
		if n < 0 || rv.OverflowUint(uint64(n)) {
			return fmt.Errorf("%w: %d into %s", ErrOverflow, n, rv.Type())
		}
		rv.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		f, err := d.p.ReadFloat()
		if err != nil {
			return err
		}
		if rv.OverflowFloat(f) {
			return fmt.Errorf("%w: %g into %s", ErrOverflow, f, rv.Type())
		}
		rv.SetFloat(f)
	case reflect.String:
		s, err := d.p.ReadString()
		if err != nil {
			return err
		}
		rv.SetString(s)
	case reflect.Slice:
		if rv.Type().Elem().Kind() != reflect.Uint8 {
			return mismatch(d.p.Kind().String(), rv.Type())
		}
		b, err := d.p.ReadBinary()
		if err != nil {
			return err
		}
		rv.SetBytes(b)
	case reflect.Array:
		if rv.Type().Elem().Kind() != reflect.Uint8 {
			return mismatch(d.p.Kind().String(), rv.Type())
		}
		b, err := d.p.ReadBinary()
		if err != nil {
			return err
		}
		if len(b) != rv.Len() {
			return fmt.Errorf("%w: %d bytes into %s", ErrSizeMismatch, len(b), rv.Type())
		}
		reflect.Copy(rv, reflect.ValueOf(b))
	default:
		return mismatch(d.p.Kind().String(), rv.Type())
	}
	return nil
}

// anyValue builds an untyped Go value for the value introduced by tok.
// Values with no scalar kind (object ids, decimal128) are left for the
// parser to skip and decode as nil.
func (d *decodeState) anyValue(tok Token) (any, error) {
	switch tok {
	case TokenMapStart:
		m := make(map[string]any)
		for {
			key, tok, done, err := d.entry()
			if err != nil {
				return nil, err
			}
			if done {
				return m, nil
			}
			if m[key], err = d.anyValue(tok); err != nil {
				return nil, err
			}
		}
	case TokenArrayStart:
		s := make([]any, 0)
		for {
			tok, err := d.p.NextToken()
			if err != nil {
				return nil, err
			}
			if tok == TokenArrayEnd {
				return s, nil
			}
			x, err := d.anyValue(tok)
			if err != nil {
				return nil, err
			}
			s = append(s, x)
		}
	case TokenValue:
		switch d.p.Kind() {
		case KindNull:
			return nil, d.p.ReadNull()
		case KindBool:
			return d.p.ReadBool()
		case KindInt32:
			n, err := d.p.ReadInt()
			return int32(n), err // #nosec G115 -- the parser reported an int32
		case KindInt64:
			return d.p.ReadInt()
		case KindFloat64:
			return d.p.ReadFloat()
		case KindString:
			return d.p.ReadString()
		case KindBinary:
			return d.p.ReadBinary()
		default:
			return nil, nil
		}
	default:
		return nil, unexpected(tok, "value")
	}
}

// skip discards the value introduced by tok. Scalars are left unread for
// the parser; containers are drained by depth.
func (d *decodeState) skip(tok Token) error {
	switch tok {
	case TokenValue:
		return nil
	case TokenMapStart, TokenArrayStart:
	default:
		return unexpected(tok, "value")
	}
	for depth := 1; depth > 0; {
		tok, err := d.p.NextToken()
		if err != nil {
			return err
		}
		switch tok {
		case TokenMapStart, TokenArrayStart:
			depth++
		case TokenMapEnd, TokenArrayEnd:
			depth--
		}
	}
	return nil
}

func parseMapKey(rt reflect.Type, key string) (reflect.Value, error) {
	k := reflect.New(rt).Elem()
	switch rt.Kind() {
	case reflect.String:
		k.SetString(key)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(key, 10, rt.Bits())
		if err != nil {
			return k, fmt.Errorf("%w: map key %q into %s", ErrTypeMismatch, key, rt)
		}
		k.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(key, 10, rt.Bits())
		if err != nil {
			return k, fmt.Errorf("%w: map key %q into %s", ErrTypeMismatch, key, rt)
		}
		k.SetUint(n)
	default:
		return k, fmt.Errorf("%w: map key %s", ErrUnsupportedType, rt)
	}
	return k, nil
}
