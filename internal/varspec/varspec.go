// Package varspec parses the compact variant notation used on the command line:
//
//	CHR-POS-REF-ALT[,ALT...]|GENOTYPE[|GENOTYPE...]
//
// e.g. 1-12345-AG-T,TC,TTT|0/1|1/1|1/2. Delimiters are fixed and cannot be escaped.
package varspec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Delimiters of the variant notation.
const (
	SectionSep  = "|"
	LocationSep = "-"
	AlleleSep   = ","
)

// MissingInfo is the INFO value used when a variant has no annotation.
const MissingInfo = "."

// Variant is a parsed variant specification.
type Variant struct {
	Chrom     string
	Pos       int64    // 1-based
	Ref       string
	Alt       []string // in the order given
	Info      string   // raw INFO string, or MissingInfo
	Genotypes []string // one colon-delimited tuple per sample, unvalidated
}

// Kind identifies why a specification failed to parse.
type Kind int

const (
	MalformedSpec Kind = iota + 1
	MalformedLocation
	InvalidPosition
)

func (k Kind) String() string {
	switch k {
	case MalformedSpec:
		return "malformed spec"
	case MalformedLocation:
		return "malformed location"
	case InvalidPosition:
		return "invalid position"
	}
	return "unknown"
}

// Sentinel errors, one per Kind, for use with errors.Is.
var (
	ErrMalformedSpec     = errors.New("invalid variant format: genotype section required")
	ErrMalformedLocation = errors.New("invalid variant format: expected CHR-POS-REF-ALT")
	ErrInvalidPosition   = errors.New("invalid variant position")
)

// Error is returned by Parse. Input is the offending text: the whole
// specification, the location block, or the position field.
type Error struct {
	Kind  Kind
	Input string
	Err   error // underlying cause, e.g. a *strconv.NumError
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%v: %q", e.sentinel(), e.Input)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case MalformedSpec:
		return ErrMalformedSpec
	case MalformedLocation:
		return ErrMalformedLocation
	case InvalidPosition:
		return ErrInvalidPosition
	}
	return errors.New(e.Kind.String())
}

// Is reports whether target is the sentinel for this error's Kind.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) Unwrap() error { return e.Err }

// Parse parses a variant specification. info is the raw INFO string for the
// variant; an empty info resolves to MissingInfo.
//
// Genotype tuples are not split or checked here: their width can only be
// validated against the FORMAT keys and sample list of a header.
func Parse(spec, info string) (*Variant, error) {
	sections := strings.Split(spec, SectionSep)
	if len(sections) < 2 {
		return nil, &Error{Kind: MalformedSpec, Input: spec}
	}

	loc := strings.Split(sections[0], LocationSep)
	if len(loc) != 4 {
		return nil, &Error{Kind: MalformedLocation, Input: sections[0]}
	}

	pos, err := parsePosition(loc[1])
	if err != nil {
		return nil, &Error{Kind: InvalidPosition, Input: loc[1], Err: err}
	}

	if info == "" {
		info = MissingInfo
	}

	return &Variant{
		Chrom:     loc[0],
		Pos:       pos,
		Ref:       loc[2],
		Alt:       strings.Split(loc[3], AlleleSep),
		Info:      info,
		Genotypes: append([]string(nil), sections[1:]...),
	}, nil
}

// parsePosition accepts unsigned decimal integers only; signs are rejected.
func parsePosition(s string) (int64, error) {
	u, err := strconv.ParseUint(s, 10, 63)
	if err != nil {
		return 0, err
	}
	return int64(u), nil
}

// Line composes the canonical tab-separated data line for the variant:
// ID, QUAL and FILTER are missing, FORMAT is the colon-joined key list.
func (v *Variant) Line(format []string) string {
	var b strings.Builder
	b.Grow(64)

	b.WriteString(v.Chrom)
	b.WriteByte('\t')
	b.WriteString(strconv.FormatInt(v.Pos, 10))
	b.WriteString("\t.\t")
	b.WriteString(v.Ref)
	b.WriteByte('\t')
	b.WriteString(strings.Join(v.Alt, AlleleSep))
	b.WriteString("\t.\t.\t")
	b.WriteString(v.Info)
	b.WriteByte('\t')
	b.WriteString(strings.Join(format, ":"))
	for _, gt := range v.Genotypes {
		b.WriteByte('\t')
		b.WriteString(gt)
	}
	return b.String()
}

// String formats the variant back into its specification form.
func (v *Variant) String() string {
	return strings.Join([]string{v.Chrom, strconv.FormatInt(v.Pos, 10), v.Ref, strings.Join(v.Alt, AlleleSep)}, LocationSep) +
		SectionSep + strings.Join(v.Genotypes, SectionSep)
}
