package msgpack

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zoobzio/granola"
)

type item struct {
	Name   string            `granola:"name"`
	Value  int               `granola:"value"`
	Data   []byte            `granola:"data,omitempty"`
	Meta   map[string]string `granola:"meta,omitempty"`
	Secret string            `granola:"-"`
}

func TestNew(t *testing.T) {
	if New() == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	if got := New().ContentType(); got != "application/msgpack" {
		t.Errorf("ContentType() = %q, want %q", got, "application/msgpack")
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	c := New()
	original := item{Name: "test", Value: 42, Data: []byte{1, 2}, Meta: map[string]string{"a": "b"}, Secret: "s"}

	data, err := c.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var restored item
	if err := c.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	want := original
	want.Secret = ""
	if diff := cmp.Diff(want, restored); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshal_StructTags(t *testing.T) {
	data, err := New().Marshal(item{Name: "n", Value: 1, Secret: "s"})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var m map[string]any
	if err := New().Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if len(m) != 2 || m["name"] != "n" {
		t.Errorf("Unmarshal() = %v, want only the name and value keys", m)
	}
}

func TestMarshal_Deterministic(t *testing.T) {
	in := map[string]int{"z": 1, "a": 2, "m": 3, "b": 4}
	first, err := New().Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	for range 10 {
		got, err := New().Marshal(in)
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		if !bytes.Equal(got, first) {
			t.Fatalf("Marshal() = %x, want %x", got, first)
		}
	}
	if first[0] == '{' {
		t.Error("MessagePack output should be binary, not JSON")
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	valid, err := New().Marshal(item{Name: "x"})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	tests := []struct {
		name    string
		in      []byte
		wantErr error
	}{
		{"invalid", []byte("not msgpack"), granola.ErrUnmarshal},
		{"truncated", valid[:len(valid)-1], granola.ErrUnmarshal},
		{"trailing", append(append([]byte{}, valid...), 0xc0), granola.ErrSizeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v item
			err := New().Unmarshal(tt.in, &v)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Unmarshal() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
