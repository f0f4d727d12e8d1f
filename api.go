// Package granola provides format-agnostic serialization over a shared
// token stream.
//
// Every wire format in this module is expressed as a Parser (bytes to
// tokens) and a Printer (calls to bytes). The generic serializer walks Go
// values against those two contracts, so a type written once can travel as
// BSON, JSON or YAML without format-specific code.
//
// # Token Stream
//
// A document is a well-nested sequence of tokens:
//
//	DocStart  MapStart  Key Value  Key MapStart ... MapEnd  MapEnd  DocEnd
//
// Arrays contain values without keys. A document whose root is neither a
// map nor an array holds a single Value.
//
// # Struct Tags
//
// Field names on the wire come from the granola tag:
//
//	type User struct {
//	    ID       string `granola:"id"`
//	    Email    string `granola:"email,omitempty"`
//	    Internal string `granola:"-"`
//	}
//
// Types implementing Filterable may drop fields per value at encode time.
//
// # Codecs
//
// Codec wraps a format as Marshal/Unmarshal. Providers:
//
//   - bson - streaming binary documents (application/bson)
//   - json - JSON over the token stream (application/json)
//   - yaml - YAML over the token stream (application/yaml)
//   - msgpack - MessagePack (application/msgpack)
//   - cbor - deterministic CBOR (application/cbor)
//   - xml - XML (application/xml)
//   - compress - zstd or lz4 framing around any other codec
//
// # Processor
//
// Processor[T] pairs a codec with field transformations declared in tags:
//
//	type Account struct {
//	    Password string `granola:"password" decode.hash:"argon2" encode.redact:"***"`
//	}
//
//	func (a Account) Clone() Account { return a }
//
//	proc, _ := granola.NewProcessor[Account](bson.New())
//	acct, _ := proc.Decode(ctx, data)   // password hashed after decoding
//	out, _ := proc.Encode(ctx, acct)    // password redacted on a clone
//
// Hash algorithms: argon2, bcrypt, sha256, sha512, blake3. Types may
// implement Hashable or Redactable to bypass reflection.
package granola

// Codec provides content-type aware marshaling.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/bson").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}

// Cloner allows types to provide deep copy logic. Processor requires it so
// that encode-time redaction never touches the caller's value.
//
// For types with reference fields, copy them:
//
//	func (o Order) Clone() Order {
//	    items := make([]Item, len(o.Items))
//	    copy(items, o.Items)
//	    return Order{ID: o.ID, Items: items}
//	}
type Cloner[T any] interface {
	Clone() T
}
