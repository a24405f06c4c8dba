package vcf

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Reader reads a VCF file, decoding each data line against the file's header.
type Reader struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	header     *Header
}

// NewReader opens a VCF file for reading. Plain and gzipped input are both
// accepted; "-" reads from stdin.
func NewReader(path string) (*Reader, error) {
	if path == "-" {
		return NewReaderFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	r := &Reader{file: file}

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		file.Close()
		return nil, fmt.Errorf("read vcf header: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek vcf file: %w", err)
	}

	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		r.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		r.reader = bufio.NewReader(r.gzipReader)
	} else {
		r.reader = bufio.NewReader(file)
	}

	if err := r.readHeader(); err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

// NewReaderFromReader creates a reader from an io.Reader (e.g., stdin).
func NewReaderFromReader(rd io.Reader) (*Reader, error) {
	r := &Reader{reader: bufio.NewReader(rd)}
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

// readHeader reads header lines up to and including #CHROM.
func (r *Reader) readHeader() error {
	h := NewHeader()
	h.FileFormat = ""

	for {
		line, err := r.reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("read header: %w", err)
		}
		r.lineNumber++
		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "##") {
			if err := parseMetaLine(h, line); err != nil {
				return &ParseError{Line: r.lineNumber, Message: err.Error(), Err: err}
			}
			continue
		}

		if strings.HasPrefix(line, "#CHROM") {
			if h.FileFormat == "" {
				return &ParseError{Line: r.lineNumber, Message: "missing ##fileformat line"}
			}
			fields := strings.Split(line, "\t")
			if len(fields) < len(DefaultColumns) {
				return &ParseError{
					Line:    r.lineNumber,
					Message: fmt.Sprintf("expected at least %d header columns, found %d", len(DefaultColumns), len(fields)),
				}
			}
			if len(fields) > len(DefaultColumns)+1 {
				for _, name := range fields[len(DefaultColumns)+1:] {
					if err := h.AddSample(name); err != nil {
						return &ParseError{Line: r.lineNumber, Message: err.Error(), Err: err}
					}
				}
			}
			r.header = h
			return nil
		}

		return &ParseError{Line: r.lineNumber, Message: "expected #CHROM header line"}
	}

	return &ParseError{Line: r.lineNumber, Message: "no #CHROM header line found"}
}

// parseMetaLine adds a single ## line to the header.
func parseMetaLine(h *Header, line string) error {
	key, value, ok := strings.Cut(line[2:], "=")
	if !ok {
		return fmt.Errorf("malformed header line %q", line)
	}

	switch key {
	case "fileformat":
		h.FileFormat = value
		return nil
	case "INFO", "FORMAT":
		fields, err := parseStructured(value)
		if err != nil {
			return err
		}
		def := &Definition{
			ID:          fields["ID"],
			Number:      fields["Number"],
			Type:        fields["Type"],
			Description: fields["Description"],
		}
		if key == "INFO" {
			return h.AddInfoDefinition(def)
		}
		return h.AddFormatDefinition(def)
	}

	// Other structured lines (FILTER, contig, ALT) are kept verbatim.
	h.Meta = append(h.Meta, MetaEntry{Key: key, Value: value})
	return nil
}

// parseStructured parses <K=V,K="quoted, value",...>.
func parseStructured(s string) (map[string]string, error) {
	if !strings.HasPrefix(s, "<") || !strings.HasSuffix(s, ">") {
		return nil, fmt.Errorf("malformed structured header value %q", s)
	}
	body := s[1 : len(s)-1]
	fields := make(map[string]string)

	var key, val strings.Builder
	inKey, inQuotes, escaped := true, false, false
	flush := func() {
		if key.Len() > 0 {
			fields[key.String()] = val.String()
		}
		key.Reset()
		val.Reset()
		inKey = true
	}

	for _, c := range body {
		switch {
		case escaped:
			val.WriteRune(c)
			escaped = false
		case inQuotes && c == '\\':
			escaped = true
		case c == '"':
			inQuotes = !inQuotes
		case inQuotes:
			val.WriteRune(c)
		case inKey && c == '=':
			inKey = false
		case c == ',':
			flush()
		case inKey:
			key.WriteRune(c)
		default:
			val.WriteRune(c)
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quote in %q", s)
	}
	flush()

	if fields["ID"] == "" {
		return nil, fmt.Errorf("missing ID in %q", s)
	}
	return fields, nil
}

// Header returns the parsed header.
func (r *Reader) Header() *Header {
	return r.header
}

// Next reads and decodes the next record.
// Returns nil, nil when there are no more records.
func (r *Reader) Next() (*Record, error) {
	for {
		line, err := r.reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("read record line: %w", err)
		}
		r.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue // Skip empty lines
		}

		rec, err := Decode(line, r.header)
		if err != nil {
			return nil, &ParseError{Line: r.lineNumber, Message: err.Error(), Err: err}
		}
		return rec, nil
	}
}

// LineNumber returns the current line number being processed.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// Close closes the reader and underlying file.
func (r *Reader) Close() error {
	if r.gzipReader != nil {
		r.gzipReader.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ParseError represents an error during VCF reading with line context.
type ParseError struct {
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }
