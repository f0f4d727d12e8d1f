package granola

import (
	"reflect"
	"sync"
)

// processorKey identifies a cached processor: one per Go type per wire format.
type processorKey struct {
	typ         reflect.Type
	contentType string
}

var (
	processors   = make(map[processorKey]any)
	processorsMu sync.RWMutex
)

// Use returns the shared Processor for T and codec's content type, building
// it on first use. opts only apply when the processor is built; later calls
// get the cached instance unchanged.
func Use[T Cloner[T]](codec Codec, opts ...ProcessorOption) (*Processor[T], error) {
	key := processorKey{typ: reflect.TypeFor[T](), contentType: codec.ContentType()}

	processorsMu.RLock()
	cached, ok := processors[key]
	processorsMu.RUnlock()
	if ok {
		return cached.(*Processor[T]), nil
	}

	processorsMu.Lock()
	defer processorsMu.Unlock()

	// Another caller may have built it while we waited for the lock.
	if cached, ok := processors[key]; ok {
		return cached.(*Processor[T]), nil
	}

	p, err := NewProcessor[T](codec, opts...)
	if err != nil {
		return nil, err
	}
	processors[key] = p
	return p, nil
}

// MustUse is like Use but panics on error. Intended for package-level
// variables whose types are known to carry valid tags.
func MustUse[T Cloner[T]](codec Codec, opts ...ProcessorOption) *Processor[T] {
	p, err := Use[T](codec, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Reset drops every cached processor. Mostly useful between tests.
func Reset() {
	processorsMu.Lock()
	defer processorsMu.Unlock()
	processors = make(map[processorKey]any)
}
