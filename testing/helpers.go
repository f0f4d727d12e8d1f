// Package testing provides fixtures and helpers shared by granola's
// integration tests and benchmarks.
package testing

import (
	stdtesting "testing"

	"github.com/zoobzio/granola"
	"github.com/zoobzio/granola/bson"
	"github.com/zoobzio/granola/cbor"
	"github.com/zoobzio/granola/compress"
	"github.com/zoobzio/granola/json"
	"github.com/zoobzio/granola/msgpack"
	"github.com/zoobzio/granola/yaml"
)

// Codecs returns one instance of every codec that honors granola struct
// tags, keyed by a short name. XML is absent because it uses xml tags.
func Codecs() map[string]granola.Codec {
	return map[string]granola.Codec{
		"bson":      bson.New(),
		"json":      json.New(),
		"yaml":      yaml.New(),
		"msgpack":   msgpack.New(),
		"cbor":      cbor.New(),
		"bson+zstd": compress.Zstd(bson.New()),
		"json+lz4":  compress.LZ4(json.New()),
	}
}

// RoundTrip marshals v with c and unmarshals the result into out, failing
// the test on either error. It returns the encoded bytes.
func RoundTrip(tb stdtesting.TB, c granola.Codec, v, out any) []byte {
	tb.Helper()
	data, err := c.Marshal(v)
	if err != nil {
		tb.Fatalf("%s Marshal() error: %v", c.ContentType(), err)
	}
	if err := c.Unmarshal(data, out); err != nil {
		tb.Fatalf("%s Unmarshal() error: %v", c.ContentType(), err)
	}
	return data
}

// SimpleUser is a test type with no transformation tags.
type SimpleUser struct {
	ID   string `granola:"id"`
	Name string `granola:"name"`
}

// Clone implements Cloner[SimpleUser].
func (u SimpleUser) Clone() SimpleUser { return u }

// SanitizedUser hashes its password on decode and redacts it, and its note,
// on encode.
type SanitizedUser struct {
	ID       string `granola:"id"`
	Email    string `granola:"email"`
	Password string `granola:"password" decode.hash:"sha256" encode.redact:"***"`
	Token    []byte `granola:"token,omitempty" decode.hash:"blake3"`
	Note     string `granola:"note" encode.redact:"[REDACTED]"`
}

// Clone implements Cloner[SanitizedUser].
func (u SanitizedUser) Clone() SanitizedUser {
	c := u
	if u.Token != nil {
		c.Token = append([]byte(nil), u.Token...)
	}
	return c
}

// Address is nested inside Document.
type Address struct {
	Street string `granola:"street"`
	Zip    int32  `granola:"zip"`
}

// Document exercises every value kind the generic serializer writes.
type Document struct {
	Name    string            `granola:"name"`
	Count   int32             `granola:"count"`
	Total   int64             `granola:"total"`
	Ratio   float64           `granola:"ratio"`
	Active  bool              `granola:"active"`
	Blob    []byte            `granola:"blob"`
	Home    *Address          `granola:"home"`
	Work    *Address          `granola:"work"`
	History []Address         `granola:"history"`
	Scores  []int64           `granola:"scores"`
	Labels  map[string]string `granola:"labels"`
	Skipped string            `granola:"-"`
}

// SampleDocument returns a fully populated Document. Work is left nil.
func SampleDocument() Document {
	return Document{
		Name:    "granola",
		Count:   -7,
		Total:   1 << 40,
		Ratio:   0.25,
		Active:  true,
		Blob:    []byte{0x00, 0x7f, 0xff},
		Home:    &Address{Street: "1 Main St", Zip: 12345},
		History: []Address{{Street: "a", Zip: 1}, {Street: "b", Zip: 2}},
		Scores:  []int64{3, -1, 4},
		Labels:  map[string]string{"team": "core", "tier": "1"},
	}
}
