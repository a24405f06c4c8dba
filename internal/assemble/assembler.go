package assemble

import (
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/inodb/makevcf/internal/varspec"
	"github.com/inodb/makevcf/internal/vcf"
)

// ErrSampleCountMismatch is wrapped by *SampleCountError.
var ErrSampleCountMismatch = errors.New("genotype count does not match sample count")

// SampleCountError reports a variant whose genotype count differs from the
// number of declared samples.
type SampleCountError struct {
	Genotypes int
	Samples   int
}

func (e *SampleCountError) Error() string {
	return fmt.Sprintf("number of genotypes (%d) does not match number of samples (%d)", e.Genotypes, e.Samples)
}

func (e *SampleCountError) Unwrap() error { return ErrSampleCountMismatch }

// VariantError tags a parse or build failure with the 0-based position of
// the variant in the input list and its raw specification.
type VariantError struct {
	Index int
	Input string
	Err   error
}

func (e *VariantError) Error() string {
	return fmt.Sprintf("variant %d (%q): %v", e.Index, e.Input, e.Err)
}

func (e *VariantError) Unwrap() error { return e.Err }

// Input is one raw variant specification and its INFO string.
type Input struct {
	Spec string
	Info string
}

// Inputs pairs variant specifications with INFO strings by position.
// Variants without a matching INFO string get an empty one.
func Inputs(specs, infos []string) []Input {
	inputs := make([]Input, len(specs))
	for i, spec := range specs {
		inputs[i].Spec = spec
		if i < len(infos) {
			inputs[i].Info = infos[i]
		}
	}
	return inputs
}

// Assembler builds data records against a fixed header. The header is only
// read, so an Assembler may be used from several goroutines.
type Assembler struct {
	header *vcf.Header
	format []string
	logger *zap.Logger
}

// NewAssembler creates an assembler for the given header.
func NewAssembler(h *vcf.Header) *Assembler {
	return &Assembler{
		header: h,
		format: h.FormatKeys(),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages.
func (a *Assembler) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Header returns the header records are built against.
func (a *Assembler) Header() *vcf.Header {
	return a.header
}

// Build checks the variant's genotype count against the header's samples,
// composes its data line, and decodes the line against the header.
func (a *Assembler) Build(index int, v *varspec.Variant) (*vcf.Record, error) {
	return a.build(index, v.String(), v)
}

// BuildInput parses a raw input and builds its record.
func (a *Assembler) BuildInput(index int, in Input) (*vcf.Record, error) {
	v, err := varspec.Parse(in.Spec, in.Info)
	if err != nil {
		return nil, &VariantError{Index: index, Input: in.Spec, Err: err}
	}
	return a.build(index, in.Spec, v)
}

func (a *Assembler) build(index int, raw string, v *varspec.Variant) (*vcf.Record, error) {
	if len(v.Genotypes) != len(a.header.Samples) {
		return nil, &VariantError{
			Index: index,
			Input: raw,
			Err:   &SampleCountError{Genotypes: len(v.Genotypes), Samples: len(a.header.Samples)},
		}
	}

	line := v.Line(a.format)
	rec, err := vcf.Decode(line, a.header)
	if err != nil {
		return nil, &VariantError{Index: index, Input: raw, Err: err}
	}

	a.logger.Debug("built record",
		zap.Int("index", index),
		zap.String("chrom", rec.Chrom),
		zap.Int64("pos", rec.Pos),
		zap.Int("alts", len(rec.Alt)))
	return rec, nil
}

// Records returns a sequence of records built from inputs in order.
// The sequence stops after the first error.
func (a *Assembler) Records(inputs []Input) iter.Seq2[*vcf.Record, error] {
	return func(yield func(*vcf.Record, error) bool) {
		for i, in := range inputs {
			rec, err := a.BuildInput(i, in)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}
