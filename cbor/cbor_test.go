package cbor

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zoobzio/granola"
)

type sensor struct {
	ID       string            `granola:"id"`
	Reading  float32           `granola:"reading"`
	Count    int64             `granola:"count"`
	Raw      []byte            `granola:"raw"`
	Parent   *sensor           `granola:"parent,omitempty"`
	Labels   map[string]string `granola:"labels"`
	Internal string            `granola:"-"`
}

func TestNew(t *testing.T) {
	if New() == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	if got := New().ContentType(); got != "application/cbor" {
		t.Errorf("ContentType() = %q, want %q", got, "application/cbor")
	}
}

func TestMarshal(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "f6"},
		{"small int", 10, "0a"},
		{"negative int", int8(-1), "20"},
		{"sorted keys", map[string]int{"b": 1, "a": 2}, "a2616102616201"},
		{"bytes", []byte{1, 2}, "420102"},
		{"struct tags", struct {
			Name string `granola:"name"`
			Skip int    `granola:"-"`
		}{Name: "x", Skip: 1}, "a1646e616d656178"},
		{"shortest float", 1.5, "f93e00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().Marshal(tt.in)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if hex.EncodeToString(got) != tt.want {
				t.Errorf("Marshal() = %x, want %s", got, tt.want)
			}
		})
	}
}

func TestMarshal_Deterministic(t *testing.T) {
	in := map[string]any{"z": []int{1, 2}, "a": map[string]bool{"y": true, "b": false}, "m": "s"}
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
}

func TestRoundTrip(t *testing.T) {
	c := New()
	in := sensor{
		ID:       "s-1",
		Reading:  21.5,
		Count:    -40,
		Raw:      []byte{0xde, 0xad},
		Parent:   &sensor{ID: "root", Labels: map[string]string{}},
		Labels:   map[string]string{"room": "lab"},
		Internal: "dropped",
	}

	data, err := c.Marshal(&in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var out sensor
	if err := c.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	want := in
	want.Internal = ""
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshal_Untyped(t *testing.T) {
	// {"a": [1, -2, 2.5, h'ff', null, true]}
	data, _ := hex.DecodeString("a16161860121f9410041fff6f5")

	var v any
	if err := New().Unmarshal(data, &v); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	want := map[string]any{"a": []any{int64(1), int64(-2), 2.5, []byte{0xff}, nil, true}}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("Unmarshal() mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	valid, err := New().Marshal(map[string]string{"id": "x"})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	tests := []struct {
		name    string
		in      []byte
		wantErr error
	}{
		{"empty", nil, granola.ErrTruncated},
		{"truncated", valid[:len(valid)-1], granola.ErrTruncated},
		{"trailing", append(append([]byte{}, valid...), 0xf6), granola.ErrSizeMismatch},
		{"wrong type", []byte{0xa1, 0x62, 'i', 'd', 0x01}, granola.ErrTypeMismatch},
		{"too deep", append(bytes.Repeat([]byte{0x81}, DefaultMaxDepth+1), 0xf6), granola.ErrTooDeep},
		{"reserved byte", []byte{0x1c}, granola.ErrUnexpectedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v sensor
			err := New().Unmarshal(tt.in, &v)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Unmarshal() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, granola.ErrUnmarshal) {
				t.Errorf("Unmarshal() error = %v, want ErrUnmarshal", err)
			}
		})
	}
}

func TestTreeParser_Tokens(t *testing.T) {
	tree := map[string]any{
		"b": []any{uint64(1), int64(-1), 0.5, "s", []byte{1, 2}},
		"a": nil,
	}
	p := newTreeParser(tree, 0)

	var got []string
	for {
		tok, err := p.NextToken()
		if err != nil {
			t.Fatalf("NextToken() error: %v", err)
		}
		s := tok.String()
		switch tok {
		case granola.TokenKey:
			s += "[" + p.Key() + "]"
		case granola.TokenValue:
			raw, err := p.RawValue()
			if err != nil {
				t.Fatalf("RawValue() error: %v", err)
			}
			s += "=" + raw + "/" + p.Kind().String()
		}
		got = append(got, s)
		if tok == granola.TokenDocEnd {
			break
		}
	}

	want := "DocStart MapStart Key[a] Value=null/null Key[b] ArrayStart Value=1/int64 Value=-1/int64 " +
		"Value=0.5/float64 Value=\"s\"/string Value=h'0102'/binary ArrayEnd MapEnd DocEnd"
	if s := strings.Join(got, " "); s != want {
		t.Errorf("tokens =\n%s\nwant\n%s", s, want)
	}
	if _, err := p.NextToken(); !errors.Is(err, granola.ErrDocumentComplete) {
		t.Errorf("NextToken() error = %v, want ErrDocumentComplete", err)
	}
}

func TestTreeParser_TypedReads(t *testing.T) {
	p := newTreeParser([]any{uint64(1) << 63, "x"}, 0)
	p.NextToken() // DocStart
	p.NextToken() // ArrayStart
	p.NextToken() // Value

	if k := p.Kind(); k != granola.KindFloat64 {
		t.Errorf("Kind() = %v, want %v", k, granola.KindFloat64)
	}
	if _, err := p.ReadInt(); !errors.Is(err, granola.ErrOverflow) {
		t.Fatalf("ReadInt() error = %v, want ErrOverflow", err)
	}
	if _, err := p.ReadString(); !errors.Is(err, granola.ErrOverflow) {
		t.Errorf("ReadString() after failure error = %v, want the sticky ErrOverflow", err)
	}

	p = newTreeParser("x", 0)
	p.NextToken()
	p.NextToken()
	if s, err := p.ReadString(); err != nil || s != "x" {
		t.Fatalf("ReadString() = %q, %v, want \"x\"", s, err)
	}
	if _, err := p.ReadString(); !errors.Is(err, granola.ErrNoValue) {
		t.Errorf("second ReadString() error = %v, want ErrNoValue", err)
	}
}

func TestTreePrinter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		calls   func(p *treePrinter) error
		wantErr error
	}{
		{
			"missing key",
			func(p *treePrinter) error {
				p.OpenDoc()
				p.OpenMap(granola.SizeUnknown)
				return p.AddBool(true)
			},
			granola.ErrMissingKey,
		},
		{
			"second root",
			func(p *treePrinter) error {
				p.OpenDoc()
				p.AddNull()
				return p.AddNull()
			},
			granola.ErrUnexpectedToken,
		},
		{
			"mismatched close",
			func(p *treePrinter) error {
				p.OpenDoc()
				p.OpenArray(granola.SizeUnknown)
				return p.CloseMap()
			},
			granola.ErrUnexpectedToken,
		},
		{
			"empty document",
			func(p *treePrinter) error {
				p.OpenDoc()
				return p.CloseDoc()
			},
			granola.ErrUnexpectedToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.calls(&treePrinter{}); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
