// Package codec implements the lossless audio payload codec: zlib-compressed
// PCM16 bytes carried as base64 text on the wire.
package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// ErrorKind classifies a codec failure for the caller's recovery decision.
type ErrorKind string

const (
	// KindTruncated means the payload ended before the compressed stream
	// did. The sender may retransmit.
	KindTruncated ErrorKind = "truncated"

	// KindInvalid means the payload is not a zlib stream or fails its
	// checksum. Retransmission will not help.
	KindInvalid ErrorKind = "invalid"

	// KindInternal means the failure is on our side, not the payload's.
	KindInternal ErrorKind = "internal"
)

// Error wraps a compression or decompression failure with its kind.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("codec %s: %s payload: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var encoderPool = sync.Pool{
	New: func() any {
		return zlib.NewWriter(io.Discard)
	},
}

// Encode compresses PCM bytes with zlib. Empty input yields a valid empty
// stream that Decode round-trips to zero bytes.
func Encode(pcm []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := encoderPool.Get().(*zlib.Writer)
	zw.Reset(&buf)

	if _, err := zw.Write(pcm); err != nil {
		encoderPool.Put(zw)
		return nil, &Error{Kind: KindInternal, Op: "encode", Err: err}
	}
	if err := zw.Close(); err != nil {
		encoderPool.Put(zw)
		return nil, &Error{Kind: KindInternal, Op: "encode", Err: err}
	}
	encoderPool.Put(zw)
	return buf.Bytes(), nil
}

// Decode decompresses a zlib stream back into PCM bytes. Failures are
// classified: a stream that ends early is KindTruncated, a stream that was
// never zlib or fails its checksum is KindInvalid.
func Decode(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, classify("decode", err)
	}
	defer zr.Close()

	pcm, err := io.ReadAll(zr)
	if err != nil {
		return nil, classify("decode", err)
	}
	return pcm, nil
}

func classify(op string, err error) *Error {
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return &Error{Kind: KindTruncated, Op: op, Err: err}
	case errors.Is(err, zlib.ErrHeader), errors.Is(err, zlib.ErrChecksum),
		errors.Is(err, zlib.ErrDictionary):
		return &Error{Kind: KindInvalid, Op: op, Err: err}
	default:
		return &Error{Kind: KindInternal, Op: op, Err: err}
	}
}

// EncodeTransport compresses PCM bytes and wraps them in base64 for a JSON
// payload field.
func EncodeTransport(pcm []byte) (string, error) {
	compressed, err := Encode(pcm)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(compressed), nil
}

// DecodeTransport reverses EncodeTransport. A payload that is not valid
// base64 is KindInvalid.
func DecodeTransport(payload string) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &Error{Kind: KindInvalid, Op: "decode", Err: err}
	}
	return Decode(compressed)
}

// DecodeRaw decodes a base64 payload that was sent uncompressed.
func DecodeRaw(payload string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &Error{Kind: KindInvalid, Op: "decode", Err: err}
	}
	return pcm, nil
}

// EncodeRaw wraps payload bytes in base64 without compressing them.
func EncodeRaw(payload []byte) string {
	return base64.StdEncoding.EncodeToString(payload)
}

// Ratio reports compressed size over original size. Returns 1 when the
// original is empty.
func Ratio(originalLen, compressedLen int) float64 {
	if originalLen == 0 {
		return 1
	}
	return float64(compressedLen) / float64(originalLen)
}
