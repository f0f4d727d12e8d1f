package json

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zoobzio/granola"
)

type point struct {
	X int     `granola:"x"`
	Y float64 `granola:"y"`
}

type record struct {
	Name   string         `granola:"name"`
	Tags   []string       `granola:"tags"`
	Blob   []byte         `granola:"blob"`
	Where  *point         `granola:"where"`
	Extra  map[string]any `granola:"extra,omitempty"`
	Hidden string         `granola:"-"`
}

func TestNew(t *testing.T) {
	if New() == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	if got := New().ContentType(); got != "application/json" {
		t.Errorf("ContentType() = %q, want %q", got, "application/json")
	}
}

func TestMarshal(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		in   any
		want string
	}{
		{"nil", nil, nil, "null"},
		{"string root", nil, "a<b>", `"a<b>"`},
		{"empty array", nil, []int{}, "[]"},
		{"empty map", nil, map[string]int{}, "{}"},
		{
			"record", nil,
			record{Name: "n", Tags: []string{"a", "b"}, Blob: []byte{0xff}, Where: &point{X: 1, Y: 2.5}, Hidden: "h"},
			`{"name":"n","tags":["a","b"],"blob":"/w==","where":{"x":1,"y":2.5}}`,
		},
		{
			"indented", []Option{WithPrettyPrint("  ")},
			map[string]any{"a": []int{1, 2}, "b": map[string]int{}},
			"{\n  \"a\": [\n    1,\n    2\n  ],\n  \"b\": {}\n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.opts...).Marshal(tt.in)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarshal_Errors(t *testing.T) {
	_, err := New().Marshal(map[string]float64{"nan": math.NaN()})
	if !errors.Is(err, granola.ErrMarshal) || !errors.Is(err, granola.ErrUnsupportedType) {
		t.Errorf("Marshal() error = %v, want ErrMarshal wrapping ErrUnsupportedType", err)
	}
}

func TestRoundTrip(t *testing.T) {
	c := New()
	in := record{
		Name:  "n",
		Tags:  []string{"x"},
		Blob:  []byte("bin"),
		Where: &point{X: -3, Y: 0.125},
		Extra: map[string]any{"k": "v", "n": int64(7), "f": 1.5, "nil": nil, "list": []any{true}},
	}

	data, err := c.Marshal(&in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var out record
	if err := c.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshal_Comments(t *testing.T) {
	src := []byte(`{
		// a comment
		"x": 4, /* another */
		"y": 1e2,
	}`)

	var p point
	if err := New().Unmarshal(src, &p); err == nil {
		t.Error("Unmarshal() without WithComments should reject comments")
	}
	if err := New(WithComments()).Unmarshal(src, &p); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if p != (point{X: 4, Y: 100}) {
		t.Errorf("Unmarshal() = %+v, want {4 100}", p)
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		target  any
		wantErr error
	}{
		{"invalid", "invalid json", new(point), granola.ErrUnexpectedToken},
		{"empty", "", new(point), granola.ErrTruncated},
		{"truncated", `{"x": 1`, new(point), granola.ErrTruncated},
		{"trailing", `{} {}`, new(point), granola.ErrSizeMismatch},
		{"float into int", `{"x": 1.5}`, new(point), granola.ErrTypeMismatch},
		{"int overflow", `{"x": 99999999999999999999}`, new(point), granola.ErrOverflow},
		{"bad base64", `{"blob": "!!"}`, new(record), granola.ErrTypeMismatch},
		{"too deep", strings.Repeat("[", DefaultMaxDepth+1), new(any), granola.ErrTooDeep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Unmarshal([]byte(tt.in), tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Unmarshal() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, granola.ErrUnmarshal) {
				t.Errorf("Unmarshal() error = %v, want ErrUnmarshal", err)
			}
		})
	}
}
