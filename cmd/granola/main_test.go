package main

import (
	"bytes"
	"strings"
	"testing"
)

// run executes the CLI with args and stdin and returns stdout.
func run(t *testing.T, stdin []byte, args ...string) ([]byte, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(bytes.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.Bytes(), err
}

func TestConvert_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		root string
		in   string
	}{
		{"map", "map", `{"a":1,"b":[true,"x",null],"c":{"d":2.5}}`},
		{"array", "array", `[1,"two",{"three":3}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin, err := run(t, []byte(tt.in), "convert", "--from", "json", "--to", "bson")
			if err != nil {
				t.Fatalf("json to bson error: %v", err)
			}
			got, err := run(t, bin, "convert", "--from", "bson", "--to", "json", "--root", tt.root)
			if err != nil {
				t.Fatalf("bson to json error: %v", err)
			}
			if string(got) != tt.in {
				t.Errorf("convert = %q, want %q", got, tt.in)
			}
		})
	}
}

func TestConvert_Formats(t *testing.T) {
	in := []byte(`{"name":"granola","tags":["a","b"]}`)
	for _, format := range []string{"cbor", "msgpack", "yaml"} {
		t.Run(format, func(t *testing.T) {
			mid, err := run(t, in, "convert", "--to", format)
			if err != nil {
				t.Fatalf("json to %s error: %v", format, err)
			}
			got, err := run(t, mid, "convert", "--from", format)
			if err != nil {
				t.Fatalf("%s to json error: %v", format, err)
			}
			if string(got) != string(in) {
				t.Errorf("convert = %q, want %q", got, in)
			}
		})
	}
}

func TestConvert_Indent(t *testing.T) {
	got, err := run(t, []byte(`{"a":[1]}`), "convert", "--indent", "  ")
	if err != nil {
		t.Fatalf("convert error: %v", err)
	}
	want := "{\n  \"a\": [\n    1\n  ]\n}"
	if string(got) != want {
		t.Errorf("convert = %q, want %q", got, want)
	}
}

func TestTokens(t *testing.T) {
	got, err := run(t, []byte(`{"a":[1,"s"],"b":null}`), "tokens", "--format", "json")
	if err != nil {
		t.Fatalf("tokens error: %v", err)
	}
	want := strings.Join([]string{
		"DocStart",
		"MapStart",
		"  Key a",
		"  ArrayStart",
		"    Value int64 1",
		"    Value string \"s\"",
		"  ArrayEnd",
		"  Key b",
		"  Value null null",
		"MapEnd",
		"DocEnd",
		"",
	}, "\n")
	if string(got) != want {
		t.Errorf("tokens =\n%s\nwant\n%s", got, want)
	}
}

func TestTokens_BSON(t *testing.T) {
	bin, err := run(t, []byte(`{"n":"x","list":[true]}`), "convert", "--to", "bson")
	if err != nil {
		t.Fatalf("convert error: %v", err)
	}
	got, err := run(t, bin, "tokens")
	if err != nil {
		t.Fatalf("tokens error: %v", err)
	}
	for _, want := range []string{"Key list", "ArrayStart", "Value bool true", "Key n", "DocEnd"} {
		if !strings.Contains(string(got), want) {
			t.Errorf("tokens output missing %q:\n%s", want, got)
		}
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown input format", []string{"convert", "--from", "toml"}, `unknown format "toml"`},
		{"unknown output format", []string{"convert", "--to", "toml"}, `unknown format "toml"`},
		{"unknown root", []string{"convert", "--root", "tree"}, `unknown root "tree"`},
		{"no parser", []string{"tokens", "--format", "cbor"}, `unknown format "cbor"`},
		{"bad input", []string{"convert"}, "decode json"},
		{"missing file", []string{"tokens", "/nonexistent/doc.bson"}, "no such file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, []byte("{"), tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}
