package granola

// Override interfaces let a type take over its own field transformations.
// When T implements one, the Processor calls it instead of walking the
// struct by reflection, and skips capability validation for that action.

// Hashable replaces reflection for decode.hash actions.
type Hashable interface {
	// Hash transforms the receiver's fields in place. It is called on the
	// freshly decoded value with every registered hasher.
	Hash(hashers map[HashAlgo]Hasher) error
}

// Redactable replaces reflection for encode.redact actions.
type Redactable interface {
	// Redact overwrites sensitive fields. The receiver is a clone, so
	// mutations never reach the caller's value.
	Redact() error
}
