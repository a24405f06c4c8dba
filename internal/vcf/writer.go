package vcf

import (
	"bufio"
	"io"
)

// Writer writes a VCF header followed by data records.
// Output is buffered; call Flush when done.
type Writer struct {
	w       *bufio.Writer
	records int
}

// NewWriter creates a new VCF writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header lines, ending with the #CHROM line.
func (vw *Writer) WriteHeader(h *Header) error {
	for _, line := range h.Lines() {
		if _, err := vw.w.WriteString(line); err != nil {
			return err
		}
		if err := vw.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// WriteRecord writes a single data line.
func (vw *Writer) WriteRecord(r *Record) error {
	if _, err := vw.w.WriteString(r.String()); err != nil {
		return err
	}
	if err := vw.w.WriteByte('\n'); err != nil {
		return err
	}
	vw.records++
	return nil
}

// Records returns the number of records written so far.
func (vw *Writer) Records() int {
	return vw.records
}

// Flush flushes the underlying writer.
func (vw *Writer) Flush() error {
	return vw.w.Flush()
}
