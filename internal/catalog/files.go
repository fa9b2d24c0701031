// Package catalog reads, joins and writes flare catalog files.
//
// Supported file types are chosen by extension: ".csv", ".csv.gz" and, for
// the unified event schema, ".parquet".
package catalog

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
)

const readBufferSize = 256 * 1024

// IsGzip reports whether path names a gzip-compressed file.
func IsGzip(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// IsParquet reports whether path names a Parquet file.
func IsParquet(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".parquet")
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens path for reading, transparently decompressing ".gz" files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	bufReader := bufio.NewReaderSize(f, readBufferSize)
	if !IsGzip(path) {
		return &readCloser{Reader: bufReader, closers: []io.Closer{f}}, nil
	}

	gz, err := gzip.NewReader(bufReader)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "gzip %s", path)
	}
	return &readCloser{Reader: gz, closers: []io.Closer{f, gz}}, nil
}

// AtomicWriter writes to a temp file that replaces the target on Close.
type AtomicWriter struct {
	io.Writer
	closers []io.Closer
	tmpPath string
	path    string
}

// Abort closes every layer and removes the temp file.
func (w *AtomicWriter) Abort() {
	for i := len(w.closers) - 1; i >= 0; i-- {
		w.closers[i].Close()
	}
	os.Remove(w.tmpPath)
}

// Close flushes every layer, then renames the temp file into place.
func (w *AtomicWriter) Close() error {
	var first error
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	if first != nil {
		os.Remove(w.tmpPath)
		return errors.Wrapf(first, "write %s", w.path)
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		os.Remove(w.tmpPath)
		return errors.Wrapf(err, "rename %s", w.path)
	}
	return nil
}

type bufCloser struct{ *bufio.Writer }

func (b bufCloser) Close() error { return b.Flush() }

// Create opens path for writing via a temp file that is renamed on Close.
// ".gz" paths are compressed with parallel gzip.
func Create(path string) (*AtomicWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "create directory %s", dir)
		}
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", tmpPath)
	}

	w := &AtomicWriter{tmpPath: tmpPath, path: path, closers: []io.Closer{f}}
	if IsGzip(path) {
		gz := pgzip.NewWriter(f)
		w.Writer = gz
		w.closers = append(w.closers, gz)
		return w, nil
	}

	buf := bufio.NewWriterSize(f, readBufferSize)
	w.Writer = buf
	w.closers = append(w.closers, bufCloser{buf})
	return w, nil
}
