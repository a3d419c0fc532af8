// Package datafile reads and writes data files that may be gzip or zstd
// compressed. Compression is detected from the leading magic bytes on read
// and chosen from the file extension on write.
package datafile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Codec identifies the compression applied to a file.
type Codec string

const (
	CodecNone Codec = "none"
	CodecGzip Codec = "gzip"
	CodecZstd Codec = "zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// decoderPool provides reusable zstd decoders to avoid repeated allocations.
var decoderPool = sync.Pool{
	New: func() any {
		d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			// This should never fail with nil input and default options.
			panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
		}
		return d
	},
}

// Sniff reports the codec of data from its magic bytes.
func Sniff(data []byte) Codec {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return CodecZstd
	case bytes.HasPrefix(data, gzipMagic):
		return CodecGzip
	default:
		return CodecNone
	}
}

// CodecFor picks the codec implied by a file name's extension.
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return CodecGzip
	case ".zst", ".zstd":
		return CodecZstd
	default:
		return CodecNone
	}
}

// TrimCodecExt strips a compression extension, so "zips.geojson.gz" yields
// "zips.geojson".
func TrimCodecExt(path string) string {
	if CodecFor(path) == CodecNone {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// ReadFile reads the whole file at path and returns its decompressed
// contents. The os error is wrapped so callers can test for fs.ErrNotExist.
func ReadFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(raw)
}

// Decode decompresses data according to its magic bytes. Uncompressed data
// is returned as is.
func Decode(data []byte) ([]byte, error) {
	switch Sniff(data) {
	case CodecZstd:
		decoder := decoderPool.Get().(*zstd.Decoder)
		defer decoderPool.Put(decoder)

		out, err := decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompression failed: %w", err)
		}
		return out, nil
	case CodecGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip header: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("gzip decompression failed: %w", err)
		}
		return out, nil
	default:
		return data, nil
	}
}

// Create opens path for writing, compressing the stream when the extension
// asks for it. Closing the returned writer flushes the compressor and then
// closes the file.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	switch CodecFor(path) {
	case CodecGzip:
		return &stackedWriter{w: gzip.NewWriter(f), f: f}, nil
	case CodecZstd:
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		return &stackedWriter{w: zw, f: f}, nil
	default:
		return f, nil
	}
}

// stackedWriter closes the compressor before the file underneath it.
type stackedWriter struct {
	w io.WriteCloser
	f *os.File
}

func (s *stackedWriter) Write(p []byte) (int, error) { return s.w.Write(p) }

func (s *stackedWriter) Close() error {
	werr := s.w.Close()
	ferr := s.f.Close()
	if werr != nil {
		return werr
	}
	return ferr
}
