// Package compressor wraps archive files in gzip using klauspost/compress,
// which the teacher already pulls in indirectly (via gin's dependency
// graph). No library in the reference pack provides a bzip2 *writer* —
// compress/bzip2 in the standard library is decode-only — so gzip is the
// closest already-vendored compressed-archive format and is used here
// instead of a hand-rolled bzip2 encoder.
package compressor

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// Writer wraps an underlying file writer with gzip compression.
type Writer struct {
	gz *gzip.Writer
}

// NewWriter returns a Writer that compresses into w at the default level.
func NewWriter(w io.Writer) *Writer {
	return &Writer{gz: gzip.NewWriter(w)}
}

func (c *Writer) Write(p []byte) (int, error) {
	return c.gz.Write(p)
}

// Close flushes and closes the gzip stream. It does not close the
// underlying writer.
func (c *Writer) Close() error {
	return c.gz.Close()
}
