package granola

import (
	"reflect"
	"strings"
	"sync"

	"github.com/zoobzio/sentinel"
)

// tagName is the struct tag consulted for wire names and options.
const tagName = "granola"

func init() {
	sentinel.Tag(tagName)
	sentinel.Tag(tagDecodeHash)
	sentinel.Tag(tagEncodeRedact)
}

// Filterable lets a value suppress fields at encode time. Every field whose
// wire name maps to false is omitted entirely; names that are absent or map
// to true are written as usual.
type Filterable interface {
	FieldFilter() map[string]bool
}

var filterableType = reflect.TypeFor[Filterable]()

// fieldPlan is the precomputed access path for one serialized field.
type fieldPlan struct {
	name      string
	index     []int
	typ       reflect.Type
	omitEmpty bool
}

// structPlan lists a struct's serialized fields in declaration order.
type structPlan struct {
	fields []fieldPlan
	byName map[string]int
}

var plans sync.Map // reflect.Type -> *structPlan

// planFor returns the cached plan for struct type rt, building it on first use.
func planFor(rt reflect.Type) *structPlan {
	if cached, ok := plans.Load(rt); ok {
		return cached.(*structPlan)
	}

	meta := scanNestedType(rt)
	plan := &structPlan{byName: make(map[string]int, len(meta.Fields))}
	for _, field := range meta.Fields {
		sf := rt.FieldByIndex(field.Index)
		if !sf.IsExported() {
			continue
		}
		name, omitEmpty, skip := parseWireTag(field, sf)
		if skip {
			continue
		}
		plan.byName[name] = len(plan.fields)
		plan.fields = append(plan.fields, fieldPlan{
			name:      name,
			index:     field.Index,
			typ:       sf.Type,
			omitEmpty: omitEmpty,
		})
	}

	actual, _ := plans.LoadOrStore(rt, plan)
	return actual.(*structPlan)
}

// parseWireTag reads `granola:"name,omitempty"`. A tag of "-" skips the field.
func parseWireTag(field sentinel.FieldMetadata, sf reflect.StructField) (name string, omitEmpty, skip bool) {
	tag, ok := field.Tags[tagName]
	if !ok {
		tag = sf.Tag.Get(tagName)
	}
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = field.Name
	}
	for _, opt := range strings.Split(opts, ",") {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

// scanNestedType returns struct metadata from the sentinel registry when the
// type has been scanned there, or builds it by reflection otherwise.
func scanNestedType(rt reflect.Type) sentinel.Metadata {
	if meta, ok := sentinel.Lookup(rt.String()); ok && len(meta.Fields) > 0 {
		return meta
	}

	meta := sentinel.Metadata{
		TypeName:    rt.Name(),
		PackageName: rt.PkgPath(),
		Fields:      make([]sentinel.FieldMetadata, 0, rt.NumField()),
	}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		fm := sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        lookupTags(sf.Tag),
		}
		switch sf.Type.Kind() {
		case reflect.Struct:
			fm.Kind = sentinel.KindStruct
		case reflect.Ptr:
			fm.Kind = sentinel.KindPointer
		case reflect.Slice, reflect.Array:
			fm.Kind = sentinel.KindSlice
		case reflect.Map:
			fm.Kind = sentinel.KindMap
		case reflect.Interface:
			fm.Kind = sentinel.KindInterface
		default:
			fm.Kind = sentinel.KindScalar
		}
		meta.Fields = append(meta.Fields, fm)
	}
	return meta
}

// lookupTags extracts the tags this package understands.
func lookupTags(tag reflect.StructTag) map[string]string {
	tags := make(map[string]string)
	for _, key := range []string{tagName, tagDecodeHash, tagEncodeRedact} {
		if val, ok := tag.Lookup(key); ok {
			tags[key] = val
		}
	}
	return tags
}

// RootOf reports which container a value of type t encodes as at the root
// of a document. Formats that cannot tell roots apart on the wire use it to
// configure their parser.
func RootOf(t reflect.Type) Container {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return ContainerValue
	}
	switch t.Kind() {
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return ContainerValue
		}
		return ContainerArray
	case reflect.Array:
		return ContainerArray
	case reflect.Struct, reflect.Map, reflect.Interface:
		// An untyped target takes whatever document arrives; maps are the common case.
		return ContainerMap
	default:
		return ContainerValue
	}
}
