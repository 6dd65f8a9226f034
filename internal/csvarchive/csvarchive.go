// Package csvarchive writes archive rows as CSV using the standard
// library's encoding/csv. No library in the reference pack offers a CSV
// writer beyond what encoding/csv already provides, so this is a
// deliberate standard-library choice rather than a gap.
package csvarchive

import (
	"encoding/csv"
	"io"
)

// Writer appends rows to an underlying io.Writer as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter wraps w, writing header as the first row.
func NewWriter(w io.Writer, header []string) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, err
	}
	return &Writer{csv: cw}, nil
}

// WriteRow appends one row and flushes immediately so a crash mid-archive
// loses at most the in-flight row rather than the whole buffered batch.
func (w *Writer) WriteRow(row []string) error {
	if err := w.csv.Write(row); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}
