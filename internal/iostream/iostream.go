// Package iostream opens CLI input/output streams, transparently
// de/compressing files with a .zst extension.
package iostream

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// OpenInput opens path for reading. Empty path or "-" means stdin. A .zst
// file is decompressed on the fly.
func OpenInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open zstd input %s: %w", path, err)
	}
	return &zstdReadCloser{dec: dec, file: f}, nil
}

// OpenOutput opens path for writing, truncating any existing file. Empty
// path or "-" means stdout. A .zst file is compressed on the fly.
func OpenOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create zstd output %s: %w", path, err)
	}
	return &zstdWriteCloser{enc: enc, file: f}, nil
}

type zstdReadCloser struct {
	dec  *zstd.Decoder
	file *os.File
}

func (z *zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.file.Close()
}

type zstdWriteCloser struct {
	enc  *zstd.Encoder
	file *os.File
}

func (z *zstdWriteCloser) Write(p []byte) (int, error) { return z.enc.Write(p) }

func (z *zstdWriteCloser) Close() error {
	if err := z.enc.Close(); err != nil {
		z.file.Close()
		return err
	}
	return z.file.Close()
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
