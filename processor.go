package granola

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/zoobzio/sentinel"
)

// Field action tags understood by Processor.
const (
	tagDecodeHash   = "decode.hash"
	tagEncodeRedact = "encode.redact"
)

// Processor pairs a Codec with tag-driven field transformations:
//
//	decode.hash:"argon2"    hash the field after decoding (e.g. passwords)
//	encode.redact:"***"     replace the field before encoding, on a clone
//
// Eligible fields are string, []byte, []string and maps with string values,
// including those reached through nested structs and struct pointers.
//
// Processors are safe for concurrent use. SetHasher may be called at any
// time; validation runs once, on the first Decode or Encode.
type Processor[T Cloner[T]] struct {
	codec Codec

	mu      sync.RWMutex
	hashers map[HashAlgo]Hasher

	validateOnce sync.Once
	validateErr  error

	plans *actionPlans
}

// actionPlans holds the transformation plan for one type.
type actionPlans struct {
	typeName     string
	hashFields   []actionPlan
	redactFields []actionPlan
}

// actionPlan describes how to reach and transform a single field.
type actionPlan struct {
	index      []int  // reflect.Value.FieldByIndex access path
	name       string // dotted Go field path for error messages
	tagVal     string // algorithm or replacement text
	ptrIndices []int  // positions in index that need a pointer dereference
	isBytes    bool
	isSlice    bool
	isMap      bool
}

var actionCache sync.Map // reflect.Type -> *actionPlans

// ProcessorOption configures a Processor at construction.
type ProcessorOption func(*processorOptions)

type processorOptions struct {
	hashers map[HashAlgo]Hasher
}

// WithHasher registers or replaces the hasher for algo.
func WithHasher(algo HashAlgo, h Hasher) ProcessorOption {
	return func(o *processorOptions) {
		o.hashers[algo] = h
	}
}

// NewProcessor creates a Processor for type T with the builtin hashers.
// It fails if a decode.hash tag names an unknown algorithm.
func NewProcessor[T Cloner[T]](codec Codec, opts ...ProcessorOption) (*Processor[T], error) {
	plans, err := actionPlansFor[T]()
	if err != nil {
		return nil, err
	}

	o := &processorOptions{hashers: builtinHashers()}
	for _, opt := range opts {
		opt(o)
	}

	p := &Processor[T]{
		codec:   codec,
		hashers: o.hashers,
		plans:   plans,
	}

	emitProcessorCreated(context.Background(), codec.ContentType(), plans.typeName)
	return p, nil
}

// SetHasher registers a hasher for the given algorithm.
// Returns the processor for chaining.
func (p *Processor[T]) SetHasher(algo HashAlgo, h Hasher) *Processor[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hashers[algo] = h
	return p
}

// Validate checks that every decode.hash field has a registered hasher.
// It also runs automatically before the first Decode or Encode.
func (p *Processor[T]) Validate() error {
	p.validateOnce.Do(func() {
		p.mu.RLock()
		defer p.mu.RUnlock()
		p.validateErr = p.validateCapabilities()
	})
	return p.validateErr
}

func (p *Processor[T]) validateCapabilities() error {
	var zero T
	if _, ok := any(&zero).(Hashable); ok {
		return nil
	}
	for _, plan := range p.plans.hashFields {
		if _, ok := p.hashers[HashAlgo(plan.tagVal)]; !ok {
			return newConfigError(ErrMissingHasher, plan.tagVal, plan.name)
		}
	}
	return nil
}

// Decode unmarshals data and applies decode.hash actions.
func (p *Processor[T]) Decode(ctx context.Context, data []byte) (*T, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	contentType := p.codec.ContentType()
	emitDecodeStart(ctx, contentType, p.plans.typeName)

	var retErr error
	defer func() {
		emitDecodeComplete(ctx, contentType, p.plans.typeName,
			len(data), time.Since(start), len(p.plans.hashFields), retErr)
	}()

	var obj T
	if err := p.codec.Unmarshal(data, &obj); err != nil {
		retErr = fmt.Errorf("unmarshal: %w", err)
		return nil, retErr
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if h, ok := any(&obj).(Hashable); ok {
		if err := h.Hash(p.hashers); err != nil {
			retErr = newTransformError(ErrHash, "hash", p.plans.typeName, err)
			return nil, retErr
		}
		return &obj, nil
	}

	rv := reflect.ValueOf(&obj).Elem()
	for _, plan := range p.plans.hashFields {
		hasher := p.hashers[HashAlgo(plan.tagVal)]
		err := transformField(rv, plan, func(s string) (string, error) {
			return hasher.Hash([]byte(s))
		})
		if err != nil {
			retErr = newTransformError(ErrHash, "hash", plan.name, err)
			return nil, retErr
		}
	}
	return &obj, nil
}

// Encode applies encode.redact actions to a clone of obj and marshals the
// clone. obj itself is never modified.
func (p *Processor[T]) Encode(ctx context.Context, obj *T) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	contentType := p.codec.ContentType()
	emitEncodeStart(ctx, contentType, p.plans.typeName)

	var retErr error
	var retData []byte
	defer func() {
		emitEncodeComplete(ctx, contentType, p.plans.typeName,
			len(retData), time.Since(start), len(p.plans.redactFields), retErr)
	}()

	if obj == nil {
		retData, retErr = p.codec.Marshal(nil)
		return retData, retErr
	}

	clone := (*obj).Clone()

	if r, ok := any(&clone).(Redactable); ok {
		if err := r.Redact(); err != nil {
			retErr = newTransformError(ErrRedact, "redact", p.plans.typeName, err)
			return nil, retErr
		}
	} else {
		rv := reflect.ValueOf(&clone).Elem()
		for _, plan := range p.plans.redactFields {
			replacement := plan.tagVal
			// Replacement cannot fail.
			_ = transformField(rv, plan, func(string) (string, error) { //nolint:errcheck
				return replacement, nil
			})
		}
	}

	data, err := p.codec.Marshal(&clone)
	if err != nil {
		retErr = fmt.Errorf("marshal: %w", err)
		return nil, retErr
	}
	retData = data
	return retData, nil
}

// transformField rewrites every string reachable through plan with fn.
func transformField(rv reflect.Value, plan actionPlan, fn func(string) (string, error)) error {
	field, ok := resolveField(rv, plan)
	if !ok {
		return nil
	}

	switch {
	case plan.isSlice:
		for i := 0; i < field.Len(); i++ {
			elem := field.Index(i)
			out, err := fn(elem.String())
			if err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
			elem.SetString(out)
		}
	case plan.isMap:
		elemType := field.Type().Elem()
		iter := field.MapRange()
		for iter.Next() {
			out, err := fn(iter.Value().String())
			if err != nil {
				return fmt.Errorf("key %v: %w", iter.Key().Interface(), err)
			}
			field.SetMapIndex(iter.Key(), reflect.ValueOf(out).Convert(elemType))
		}
	case !field.CanSet():
	case plan.isBytes:
		out, err := fn(string(field.Bytes()))
		if err != nil {
			return err
		}
		field.SetBytes([]byte(out))
	default:
		out, err := fn(field.String())
		if err != nil {
			return err
		}
		field.SetString(out)
	}
	return nil
}

// resolveField follows plan.index, dereferencing pointers at ptrIndices.
// A nil pointer on the way means there is nothing to transform.
func resolveField(rv reflect.Value, plan actionPlan) (reflect.Value, bool) {
	if len(plan.ptrIndices) == 0 {
		return rv.FieldByIndex(plan.index), true
	}

	current := rv
	next := 0
	for i, idx := range plan.index {
		current = current.Field(idx)
		if next < len(plan.ptrIndices) && plan.ptrIndices[next] == i {
			next++
			if current.IsNil() {
				return reflect.Value{}, false
			}
			current = current.Elem()
		}
	}
	return current, true
}

// actionPlansFor returns the cached plans for T, scanning its tags on first use.
func actionPlansFor[T any]() (*actionPlans, error) {
	rt := reflect.TypeFor[T]()
	if cached, ok := actionCache.Load(rt); ok {
		return cached.(*actionPlans), nil
	}

	meta := sentinel.Scan[T]()
	plans := &actionPlans{typeName: meta.TypeName}
	seen := map[reflect.Type]bool{rt: true}
	if err := collectActions(plans, meta, nil, nil, "", seen); err != nil {
		return nil, err
	}

	actual, _ := actionCache.LoadOrStore(rt, plans)
	return actual.(*actionPlans), nil
}

// collectActions walks struct metadata, descending into nested structs and
// struct pointers. seen stops recursion through self-referencing types.
func collectActions(plans *actionPlans, meta sentinel.Metadata, parentIndex, ptrIndices []int, prefix string, seen map[reflect.Type]bool) error {
	for _, field := range meta.Fields {
		fullIndex := append(append([]int{}, parentIndex...), field.Index...)
		fullName := field.Name
		if prefix != "" {
			fullName = prefix + "." + field.Name
		}

		ft := field.ReflectType
		switch {
		case ft.Kind() == reflect.Struct:
			if !seen[ft] {
				seen[ft] = true
				if err := collectActions(plans, scanNestedType(ft), fullIndex, ptrIndices, fullName, seen); err != nil {
					return err
				}
				delete(seen, ft)
			}
			continue
		case ft.Kind() == reflect.Ptr && ft.Elem().Kind() == reflect.Struct:
			if !seen[ft.Elem()] {
				seen[ft.Elem()] = true
				ptrs := append(append([]int{}, ptrIndices...), len(fullIndex)-1)
				if err := collectActions(plans, scanNestedType(ft.Elem()), fullIndex, ptrs, fullName, seen); err != nil {
					return err
				}
				delete(seen, ft.Elem())
			}
			continue
		}

		isString := ft.Kind() == reflect.String
		isBytes := ft.Kind() == reflect.Slice && ft.Elem().Kind() == reflect.Uint8
		isSlice := ft.Kind() == reflect.Slice && ft.Elem().Kind() == reflect.String
		isMap := ft.Kind() == reflect.Map && ft.Elem().Kind() == reflect.String
		if !isString && !isBytes && !isSlice && !isMap {
			continue
		}

		base := actionPlan{
			index:      fullIndex,
			name:       fullName,
			ptrIndices: ptrIndices,
			isBytes:    isBytes,
			isSlice:    isSlice,
			isMap:      isMap,
		}

		if val, ok := field.Tags[tagDecodeHash]; ok {
			if !IsValidHashAlgo(HashAlgo(val)) {
				return newConfigError(ErrInvalidTag, val, fullName)
			}
			plan := base
			plan.tagVal = val
			plans.hashFields = append(plans.hashFields, plan)
		}
		if val, ok := field.Tags[tagEncodeRedact]; ok {
			plan := base
			plan.tagVal = val
			plans.redactFields = append(plans.redactFields, plan)
		}
	}
	return nil
}
