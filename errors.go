package granola

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrTruncated indicates the input ended before a required read completed.
	ErrTruncated = errors.New("truncated input")

	// ErrBadTerminator indicates a container did not end with a 0x00 byte.
	ErrBadTerminator = errors.New("bad container terminator")

	// ErrUnknownTag indicates a type tag outside the supported table.
	ErrUnknownTag = errors.New("unknown type tag")

	// ErrSizeMismatch indicates a declared size disagrees with the bytes
	// actually present or written.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrTypeMismatch indicates a typed read that does not match the pending value.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrNoValue indicates a value read without a pending value.
	ErrNoValue = errors.New("no pending value")

	// ErrDocumentComplete is returned once a document has been fully produced.
	ErrDocumentComplete = errors.New("document complete")

	// ErrTooDeep indicates nesting beyond the configured maximum depth.
	ErrTooDeep = errors.New("nesting too deep")

	// ErrUnexpectedToken indicates a token out of place in the stream.
	ErrUnexpectedToken = errors.New("unexpected token")

	// ErrOverflow indicates a number that does not fit its target.
	ErrOverflow = errors.New("numeric overflow")

	// ErrWrite indicates the underlying writer failed.
	ErrWrite = errors.New("write failed")

	// ErrMissingKey indicates a map entry written without a preceding key.
	ErrMissingKey = errors.New("missing key")

	// ErrInvalidKey indicates an entry name the format cannot represent.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidTarget indicates Decode was given something other than a non-nil pointer.
	ErrInvalidTarget = errors.New("invalid decode target")

	// ErrUnsupportedType indicates a Go type the generic serializer cannot walk.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrMissingHasher indicates a required hasher was not registered.
	ErrMissingHasher = errors.New("missing hasher")

	// ErrInvalidTag indicates a struct tag has an invalid format or value.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrUnmarshal indicates the codec failed to unmarshal input data.
	ErrUnmarshal = errors.New("unmarshal failed")

	// ErrMarshal indicates the codec failed to marshal output data.
	ErrMarshal = errors.New("marshal failed")

	// ErrCompression indicates compressed input that could not be expanded,
	// or output that could not be compressed.
	ErrCompression = errors.New("compression failed")

	// ErrHash indicates hashing of a field failed.
	ErrHash = errors.New("hash failed")

	// ErrRedact indicates redaction of a field failed.
	ErrRedact = errors.New("redact failed")
)

// NoByte marks a DecodeError that has no offending byte value.
const NoByte = -1

// DecodeError is a fatal wire-format violation. The stream position is no
// longer trustworthy once one has been returned.
type DecodeError struct {
	Err    error  // Underlying sentinel error (ErrTruncated, ErrBadTerminator, etc.)
	Op     string // Operation that failed (readKey, readEndOfContainer, ...)
	Offset int64  // Byte offset in the input where the failure was detected
	Byte   int    // Offending byte value, or NoByte
	Cause  error  // Original error from the reader, if any
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s: %s at offset %d", e.Op, e.Err.Error(), e.Offset)
	if e.Byte != NoByte {
		msg += fmt.Sprintf(" (byte 0x%02X)", e.Byte)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// EncodeError is a failure while producing output. With well-formed calls
// the only source is the underlying writer.
type EncodeError struct {
	Err   error  // Underlying sentinel error (ErrWrite, ErrSizeMismatch, etc.)
	Op    string // Operation that failed
	Cause error  // Original error from the writer, if any
}

func (e *EncodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Err.Error(), e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err.Error())
}

func (e *EncodeError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// NewDecodeError creates a DecodeError with no offending byte.
func NewDecodeError(sentinel error, op string, offset int64, cause error) error {
	return &DecodeError{Err: sentinel, Op: op, Offset: offset, Byte: NoByte, Cause: cause}
}

// NewEncodeError creates an EncodeError.
func NewEncodeError(sentinel error, op string, cause error) error {
	return &EncodeError{Err: sentinel, Op: op, Cause: cause}
}

// ConfigError represents a processor configuration error.
// It wraps a sentinel error with additional context about the field and algorithm.
type ConfigError struct {
	Err       error  // Underlying sentinel error (ErrMissingHasher, ErrInvalidTag)
	Field     string // Field name that triggered the error
	Algorithm string // Algorithm that was missing/invalid
}

func (e *ConfigError) Error() string {
	if e.Field != "" && e.Algorithm != "" {
		return fmt.Sprintf("%s for algorithm %q (field %s)", e.Err.Error(), e.Algorithm, e.Field)
	}
	if e.Algorithm != "" {
		return fmt.Sprintf("%s for algorithm %q", e.Err.Error(), e.Algorithm)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s (field %s)", e.Err.Error(), e.Field)
	}
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// TransformError represents an error during field transformation.
type TransformError struct {
	Err       error  // Underlying sentinel error (ErrHash, ErrRedact)
	Field     string // Field name that failed
	Operation string // Operation that failed (hash, redact)
	Cause     error  // Original error from the underlying operation
}

func (e *TransformError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s field %s: %v", e.Operation, e.Field, e.Cause)
	}
	return fmt.Sprintf("%s field %s", e.Operation, e.Field)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// CodecError represents a marshal/unmarshal error.
type CodecError struct {
	Err   error // Underlying sentinel error (ErrMarshal, ErrUnmarshal)
	Cause error // Original error from the codec
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Err.Error(), e.Cause)
	}
	return e.Err.Error()
}

func (e *CodecError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// NewCodecError wraps a codec failure. Codec implementations use it so
// callers can test for ErrMarshal/ErrUnmarshal regardless of format.
func NewCodecError(sentinel error, cause error) error {
	return &CodecError{
		Err:   sentinel,
		Cause: cause,
	}
}

// newConfigError creates a ConfigError for missing handler scenarios.
func newConfigError(sentinel error, algorithm, field string) error {
	return &ConfigError{
		Err:       sentinel,
		Algorithm: algorithm,
		Field:     field,
	}
}

// newTransformError creates a TransformError for field transformation failures.
func newTransformError(sentinel error, operation, field string, cause error) error {
	return &TransformError{
		Err:       sentinel,
		Field:     field,
		Operation: operation,
		Cause:     cause,
	}
}
