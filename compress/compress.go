// Package compress wraps a granola.Codec so its output is compressed.
//
// The wrapped codec still decides the document format; the wrapper only
// transforms the bytes. Content types gain a "+zstd" or "+lz4" suffix.
package compress

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/zoobzio/granola"
)

// zstdEncoder and zstdDecoder are shared; EncodeAll and DecodeAll are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

// compressed is a granola.Codec that runs inner's output through a
// compression algorithm.
type compressed struct {
	inner      granola.Codec
	suffix     string
	compress   func([]byte) ([]byte, error)
	decompress func([]byte) ([]byte, error)
}

// Zstd returns a codec that zstd-compresses the output of inner.
func Zstd(inner granola.Codec) granola.Codec {
	return &compressed{
		inner:  inner,
		suffix: "+zstd",
		compress: func(data []byte) ([]byte, error) {
			return zstdEncoder.EncodeAll(data, nil), nil
		},
		decompress: func(data []byte) ([]byte, error) {
			return zstdDecoder.DecodeAll(data, nil)
		},
	}
}

// LZ4 returns a codec that wraps the output of inner in an LZ4 frame.
func LZ4(inner granola.Codec) granola.Codec {
	return &compressed{
		inner:      inner,
		suffix:     "+lz4",
		compress:   compressLZ4,
		decompress: decompressLZ4,
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}

// ContentType returns the inner content type with the compression suffix.
func (c *compressed) ContentType() string {
	return c.inner.ContentType() + c.suffix
}

// Marshal encodes v with the inner codec and compresses the result.
func (c *compressed) Marshal(v any) ([]byte, error) {
	data, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	out, err := c.compress(data)
	if err != nil {
		return nil, granola.NewCodecError(granola.ErrMarshal, granola.NewEncodeError(granola.ErrCompression, "compress", err))
	}
	return out, nil
}

// Unmarshal decompresses data and decodes it with the inner codec.
func (c *compressed) Unmarshal(data []byte, v any) error {
	raw, err := c.decompress(data)
	if err != nil {
		return granola.NewCodecError(granola.ErrUnmarshal, granola.NewDecodeError(granola.ErrCompression, "decompress", 0, err))
	}
	return c.inner.Unmarshal(raw, v)
}
