package vcf

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Decode errors. A *DecodeError wraps one of these.
var (
	ErrColumnCount   = errors.New("wrong number of columns")
	ErrInvalidField  = errors.New("invalid field")
	ErrUnknownInfo   = errors.New("INFO key not declared in header")
	ErrUnknownFormat = errors.New("FORMAT key not declared in header")
	ErrArity         = errors.New("wrong number of values")
)

// DecodeError reports why a data line failed validation against a header.
type DecodeError struct {
	Column string // VCF column, e.g. POS, INFO or a sample name
	Detail string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Column, e.Err, e.Detail)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(column string, err error, format string, args ...any) *DecodeError {
	return &DecodeError{Column: column, Err: err, Detail: fmt.Sprintf(format, args...)}
}

// reGenotype matches an unphased or phased genotype such as 0/1, 1|2 or ./.
var reGenotype = regexp.MustCompile(`^(\.|\d+)([/|](\.|\d+))*$`)

// Decode parses a tab-separated data line and validates it against the
// header: column count, POS, ALT and QUAL syntax, declared INFO and FORMAT
// keys, value types and counts, and genotype allele indices.
func Decode(line string, h *Header) (*Record, error) {
	fields := strings.Split(line, "\t")

	want := len(DefaultColumns)
	if len(h.Samples) > 0 {
		want += 1 + len(h.Samples)
	}
	if len(fields) != want {
		return nil, decodeErr("line", ErrColumnCount, "expected %d columns, found %d", want, len(fields))
	}

	if fields[0] == "" {
		return nil, decodeErr("CHROM", ErrInvalidField, "empty chromosome")
	}
	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || pos < 0 {
		return nil, decodeErr("POS", ErrInvalidField, "invalid position: %s", fields[1])
	}
	if fields[3] == "" || fields[3] == Missing {
		return nil, decodeErr("REF", ErrInvalidField, "missing reference allele")
	}

	r := &Record{
		Chrom:  fields[0],
		Pos:    pos,
		ID:     fields[2],
		Ref:    fields[3],
		Qual:   fields[5],
		Filter: fields[6],
	}

	if fields[4] != Missing {
		r.Alt = strings.Split(fields[4], ",")
		for _, a := range r.Alt {
			if a == "" {
				return nil, decodeErr("ALT", ErrInvalidField, "empty allele in %q", fields[4])
			}
		}
	}

	if r.Qual != Missing {
		if _, err := strconv.ParseFloat(r.Qual, 64); err != nil {
			return nil, decodeErr("QUAL", ErrInvalidField, "invalid quality: %s", r.Qual)
		}
	}
	if r.Filter == "" {
		return nil, decodeErr("FILTER", ErrInvalidField, "empty filter")
	}

	if r.Info, err = decodeInfo(fields[7], h, len(r.Alt)); err != nil {
		return nil, err
	}

	if len(h.Samples) == 0 {
		return r, nil
	}

	if r.Format, err = decodeFormat(fields[8], h); err != nil {
		return nil, err
	}

	r.Samples = make([][]string, len(h.Samples))
	for i, name := range h.Samples {
		values := strings.Split(fields[9+i], ":")
		if len(values) != len(r.Format) {
			return nil, decodeErr(name, ErrArity, "genotype %q has %d fields, FORMAT declares %d",
				fields[9+i], len(values), len(r.Format))
		}
		for j, v := range values {
			def, _ := h.Format(r.Format[j])
			if detail, err := checkValue(def, v, len(r.Alt)); err != nil {
				return nil, decodeErr(name, err, "%s: %s", r.Format[j], detail)
			}
			if def.ID == "GT" {
				if err := checkGenotype(v, len(r.Alt)); err != nil {
					return nil, decodeErr(name, ErrInvalidField, "GT: %v", err)
				}
			}
		}
		r.Samples[i] = values
	}

	return r, nil
}

func decodeInfo(s string, h *Header, altCount int) ([]InfoField, error) {
	if s == Missing {
		return nil, nil
	}
	if s == "" {
		return nil, decodeErr("INFO", ErrInvalidField, "empty INFO column")
	}

	var out []InfoField
	seen := make(map[string]bool)
	for _, kv := range strings.Split(s, ";") {
		key, value, hasValue := strings.Cut(kv, "=")
		if key == "" {
			return nil, decodeErr("INFO", ErrInvalidField, "empty key in %q", s)
		}
		if seen[key] {
			return nil, decodeErr("INFO", ErrInvalidField, "duplicate key %s", key)
		}
		seen[key] = true

		def, ok := h.Info(key)
		if !ok {
			return nil, decodeErr("INFO", ErrUnknownInfo, "%s", key)
		}

		if !hasValue {
			if def.Type != TypeFlag {
				return nil, decodeErr("INFO", ErrInvalidField, "%s: missing value for %s key", key, def.Type)
			}
			out = append(out, InfoField{Key: key, Flag: true})
			continue
		}
		if def.Type == TypeFlag {
			return nil, decodeErr("INFO", ErrInvalidField, "%s: flag key has a value", key)
		}
		if detail, err := checkValue(def, value, altCount); err != nil {
			return nil, decodeErr("INFO", err, "%s: %s", key, detail)
		}
		out = append(out, InfoField{Key: key, Value: value})
	}
	return out, nil
}

func decodeFormat(s string, h *Header) ([]string, error) {
	if s == "" || s == Missing {
		return nil, decodeErr("FORMAT", ErrInvalidField, "samples present but FORMAT is empty")
	}
	keys := strings.Split(s, ":")
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, ok := h.Format(k); !ok {
			return nil, decodeErr("FORMAT", ErrUnknownFormat, "%s", k)
		}
		if seen[k] {
			return nil, decodeErr("FORMAT", ErrInvalidField, "duplicate key %s", k)
		}
		seen[k] = true
	}
	return keys, nil
}

// checkValue validates a comma-separated value against a definition's Type
// and Number. A lone "." is always accepted.
func checkValue(def Definition, value string, altCount int) (string, error) {
	if value == Missing {
		return "", nil
	}
	values := strings.Split(value, ",")

	want := -1
	switch def.Number {
	case "A":
		want = altCount
	case "R":
		want = altCount + 1
	case "G", ".", "":
	default:
		if n, err := strconv.Atoi(def.Number); err == nil {
			want = n
		}
	}
	if want >= 0 && len(values) != want {
		return fmt.Sprintf("expected %d, found %d", want, len(values)), ErrArity
	}

	for _, v := range values {
		if v == Missing {
			continue
		}
		valid := true
		switch def.Type {
		case TypeInteger:
			_, err := strconv.ParseInt(v, 10, 32)
			valid = err == nil
		case TypeFloat:
			_, err := strconv.ParseFloat(v, 32)
			valid = err == nil
		case TypeCharacter:
			valid = len([]rune(v)) == 1
		}
		if !valid {
			return fmt.Sprintf("%q is not a valid %s", v, def.Type), ErrInvalidField
		}
	}
	return "", nil
}

func checkGenotype(gt string, altCount int) error {
	if gt == Missing {
		return nil
	}
	if !reGenotype.MatchString(gt) {
		return fmt.Errorf("malformed genotype %q", gt)
	}
	for _, allele := range strings.FieldsFunc(gt, func(r rune) bool { return r == '/' || r == '|' }) {
		if allele == Missing {
			continue
		}
		idx, err := strconv.Atoi(allele)
		if err != nil {
			return fmt.Errorf("malformed genotype %q", gt)
		}
		if idx > altCount {
			return fmt.Errorf("allele index %d in %q exceeds %d alternate allele(s)", idx, gt, altCount)
		}
	}
	return nil
}
