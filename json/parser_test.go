package json

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/zoobzio/granola"
)

// tokens renders the whole stream as "Token[key]=raw" strings.
func tokens(t *testing.T, p *Parser) []string {
	t.Helper()
	var out []string
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
		out = append(out, s)
		if tok == granola.TokenDocEnd {
			return out
		}
	}
}

func TestParser_Tokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"scalar root", `42`, "DocStart Value=42/int64 DocEnd"},
		{"null root", `null`, "DocStart Value=null/null DocEnd"},
		{"empty map", `{}`, "DocStart MapStart MapEnd DocEnd"},
		{
			"nested",
			`{"a": [1, 2.5, "s"], "b": {"c": true}, "d": null}`,
			"DocStart MapStart Key[a] ArrayStart Value=1/int64 Value=2.5/float64 Value=\"s\"/string ArrayEnd " +
				"Key[b] MapStart Key[c] Value=true/bool MapEnd Key[d] Value=null/null MapEnd DocEnd",
		},
		{"array of maps", `[{}, []]`, "DocStart ArrayStart MapStart MapEnd ArrayStart ArrayEnd ArrayEnd DocEnd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(tokens(t, NewParser(strings.NewReader(tt.in))), " ")
			if got != tt.want {
				t.Errorf("tokens =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestParser_DocumentComplete(t *testing.T) {
	p := NewParser(strings.NewReader(`1`))
	tokens(t, p)
	if _, err := p.NextToken(); !errors.Is(err, granola.ErrDocumentComplete) {
		t.Errorf("NextToken() error = %v, want ErrDocumentComplete", err)
	}
}

func TestParser_TypedReads(t *testing.T) {
	p := NewParser(strings.NewReader(`["aGk=", 3]`))
	p.NextToken() // DocStart
	p.NextToken() // ArrayStart
	p.NextToken() // Value

	if _, err := p.ReadInt(); !errors.Is(err, granola.ErrTypeMismatch) {
		t.Fatalf("ReadInt() error = %v, want ErrTypeMismatch", err)
	}
	if _, err := p.NextToken(); !errors.Is(err, granola.ErrTypeMismatch) {
		t.Errorf("NextToken() after failure error = %v, want the sticky ErrTypeMismatch", err)
	}

	p = NewParser(strings.NewReader(`["aGk=", 3]`))
	p.NextToken()
	p.NextToken()
	p.NextToken()
	b, err := p.ReadBinary()
	if err != nil || string(b) != "hi" {
		t.Fatalf("ReadBinary() = %q, %v, want \"hi\"", b, err)
	}
	if _, err := p.ReadBinary(); !errors.Is(err, granola.ErrNoValue) {
		t.Errorf("second ReadBinary() error = %v, want ErrNoValue", err)
	}
}

func TestPrinter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		calls   func(p *Printer) error
		wantErr error
	}{
		{
			"missing key",
			func(p *Printer) error {
				p.OpenDoc()
				p.OpenMap(granola.SizeUnknown)
				return p.AddInt32(1)
			},
			granola.ErrMissingKey,
		},
		{
			"second root",
			func(p *Printer) error {
				p.OpenDoc()
				p.AddNull()
				return p.AddNull()
			},
			granola.ErrUnexpectedToken,
		},
		{
			"mismatched close",
			func(p *Printer) error {
				p.OpenDoc()
				p.OpenMap(granola.SizeUnknown)
				return p.CloseArray()
			},
			granola.ErrUnexpectedToken,
		},
		{
			"unclosed document",
			func(p *Printer) error {
				p.OpenDoc()
				p.OpenArray(granola.SizeUnknown)
				return p.CloseDoc()
			},
			granola.ErrUnexpectedToken,
		},
		{
			"value outside document",
			func(p *Printer) error { return p.AddBool(true) },
			granola.ErrUnexpectedToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.calls(NewPrinter(&buf)); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if buf.Len() != 0 {
				t.Errorf("wrote %q for a failed document", buf.String())
			}
		})
	}
}

func TestPrinter_MultipleDocuments(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	for _, v := range []any{1, "two", []bool{true}} {
		if err := granola.Encode(p, v); err != nil {
			t.Fatalf("Encode() error: %v", err)
		}
	}
	want := "1\n\"two\"\n[true]"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
