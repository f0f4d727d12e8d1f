package bson

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zoobzio/granola"
	mongo "go.mongodb.org/mongo-driver/bson"
)

func TestNew(t *testing.T) {
	c := New()
	if c == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	c := New()
	if c.ContentType() != "application/bson" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/bson")
	}
}

type nested struct {
	V int32 `granola:"v"`
}

type record struct {
	Name    string   `granola:"name"`
	Count   int32    `granola:"count"`
	Total   int64    `granola:"total"`
	Ratio   float64  `granola:"ratio"`
	Active  bool     `granola:"active"`
	Blob    []byte   `granola:"blob"`
	Tags    []string `granola:"tags"`
	Nested  nested   `granola:"nested"`
	Missing *string  `granola:"missing"`
	Skipped string   `granola:"-"`
}

func sampleRecord() record {
	return record{
		Name:    "widget",
		Count:   3,
		Total:   9,
		Ratio:   0.25,
		Active:  true,
		Blob:    []byte{1, 2},
		Tags:    []string{"a", "b"},
		Nested:  nested{V: 1},
		Skipped: "never written",
	}
}

func sampleDoc() mongo.D {
	return mongo.D{
		{Key: "name", Value: "widget"},
		{Key: "count", Value: int32(3)},
		{Key: "total", Value: int64(9)},
		{Key: "ratio", Value: 0.25},
		{Key: "active", Value: true},
		{Key: "blob", Value: []byte{1, 2}},
		{Key: "tags", Value: mongo.A{"a", "b"}},
		{Key: "nested", Value: mongo.D{{Key: "v", Value: int32(1)}}},
		{Key: "missing", Value: nil},
	}
}

func TestMarshal_MatchesMongoDriver(t *testing.T) {
	got, err := New().Marshal(sampleRecord())
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want, err := mongo.Marshal(sampleDoc())
	if err != nil {
		t.Fatalf("mongo.Marshal() error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Marshal() bytes mismatch (-mongo +granola):\n%s", diff)
	}
	if err := mongo.Raw(got).Validate(); err != nil {
		t.Errorf("mongo.Raw.Validate() error: %v", err)
	}
}

func TestUnmarshal_MongoDriverOutput(t *testing.T) {
	data, err := mongo.Marshal(sampleDoc())
	if err != nil {
		t.Fatalf("mongo.Marshal() error: %v", err)
	}

	var got record
	if err := New().Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	want := sampleRecord()
	want.Skipped = ""
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unmarshal() mismatch (-want +got):\n%s", diff)
	}
}

// filtered carries a per-value field filter.
type filtered struct {
	M1   string `granola:"m1"`
	M2   string `granola:"m2"`
	hide map[string]bool
}

func (f filtered) FieldFilter() map[string]bool { return f.hide }

func TestMarshal_FieldFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter map[string]bool
		want   []byte
	}{
		{
			name: "no filter",
			want: []byte(filterDoc),
		},
		{
			name:   "everything kept",
			filter: map[string]bool{"m1": true, "m2": true},
			want:   []byte(filterDoc),
		},
		{
			name:   "m1 only",
			filter: map[string]bool{"m2": false},
			want:   document(elem(TagString, "m1", str("Data 1"))),
		},
		{
			name:   "m2 only",
			filter: map[string]bool{"m1": false},
			want:   document(elem(TagString, "m2", str("Other Stuff"))),
		},
		{
			name:   "neither",
			filter: map[string]bool{"m1": false, "m2": false},
			want:   []byte{0x05, 0x00, 0x00, 0x00, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().Marshal(filtered{M1: "Data 1", M2: "Other Stuff", hide: tt.filter})
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Marshal() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTrip_Roots(t *testing.T) {
	c := New()

	t.Run("array", func(t *testing.T) {
		in := []int{1, 2, 3, 4, 5, 6, 7, 8, 101, 102, 9, 10}
		data, err := c.Marshal(in)
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		var out []int
		if err := c.Unmarshal(data, &out); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if diff := cmp.Diff(in, out); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("value", func(t *testing.T) {
		data, err := c.Marshal(int32(42))
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		want := []byte{0x0B, 0x00, 0x00, 0x00, 0x10, 0x00, 0x2A, 0x00, 0x00, 0x00, 0x00}
		if diff := cmp.Diff(want, data); diff != "" {
			t.Errorf("Marshal() mismatch (-want +got):\n%s", diff)
		}
		var out int32
		if err := c.Unmarshal(data, &out); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if out != 42 {
			t.Errorf("Unmarshal() = %d, want 42", out)
		}
	})

	t.Run("map", func(t *testing.T) {
		in := map[string][]string{"b": {"x"}, "a": {}, "c": nil}
		data, err := c.Marshal(in)
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		var out map[string][]string
		if err := c.Unmarshal(data, &out); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if diff := cmp.Diff(in, out); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestUnmarshal_Untyped(t *testing.T) {
	data, err := mongo.Marshal(mongo.D{
		{Key: "s", Value: "text"},
		{Key: "i", Value: int32(1)},
		{Key: "l", Value: int64(2)},
		{Key: "list", Value: mongo.A{true, nil}},
	})
	if err != nil {
		t.Fatalf("mongo.Marshal() error: %v", err)
	}

	var got any
	if err := New().Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	want := map[string]any{
		"s":    "text",
		"i":    int32(1),
		"l":    int64(2),
		"list": []any{true, nil},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unmarshal() mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshal_SkipsUnknownFields(t *testing.T) {
	data, err := mongo.Marshal(mongo.D{
		{Key: "extra", Value: mongo.D{{Key: "deep", Value: mongo.A{int32(1), mongo.D{}}}}},
		{Key: "m2", Value: "Other Stuff"},
		{Key: "more", Value: 1.5},
	})
	if err != nil {
		t.Fatalf("mongo.Marshal() error: %v", err)
	}

	var got struct {
		M2 string `granola:"m2"`
	}
	if err := New().Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if got.M2 != "Other Stuff" {
		t.Errorf("Unmarshal() M2 = %q, want %q", got.M2, "Other Stuff")
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	overflow, err := mongo.Marshal(mongo.D{{Key: "v", Value: int64(300)}})
	if err != nil {
		t.Fatalf("mongo.Marshal() error: %v", err)
	}

	tests := []struct {
		name    string
		data    []byte
		target  any
		wantErr error
	}{
		{"invalid bson", []byte("invalid bson"), &struct{}{}, granola.ErrUnmarshal},
		{"trailing bytes", append([]byte(filterDoc), 0x00), &map[string]string{}, granola.ErrSizeMismatch},
		{"truncated", []byte(filterDoc)[:30], &map[string]string{}, granola.ErrTruncated},
		{"overflow", overflow, &struct {
			V int8 `granola:"v"`
		}{}, granola.ErrOverflow},
		{"type mismatch", []byte(filterDoc), &map[string]int{}, granola.ErrTypeMismatch},
		{"non-pointer", []byte(filterDoc), map[string]string{}, granola.ErrInvalidTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Unmarshal(tt.data, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Unmarshal() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, granola.ErrUnmarshal) {
				t.Errorf("Unmarshal() error = %v, want wrapped ErrUnmarshal", err)
			}
		})
	}
}

func TestMarshal_Errors(t *testing.T) {
	_, err := New().Marshal(map[string]any{"big": uint64(1 << 63)})
	if !errors.Is(err, granola.ErrOverflow) {
		t.Errorf("Marshal() error = %v, want ErrOverflow", err)
	}
	if !errors.Is(err, granola.ErrMarshal) {
		t.Errorf("Marshal() error = %v, want wrapped ErrMarshal", err)
	}

	_, err = New().Marshal(map[string]any{"ch": make(chan int)})
	if !errors.Is(err, granola.ErrUnsupportedType) {
		t.Errorf("Marshal() error = %v, want ErrUnsupportedType", err)
	}
}
