package assemble

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/makevcf/internal/vcf"
)

// Request describes one fixture to generate.
type Request struct {
	Assembly string
	Format   []string
	Samples  []string
	Variants []string // raw variant specifications, in output order
	Infos    []string // INFO strings matched to Variants by position
	Workers  int      // values above 1 build records in parallel
}

// RecordWriter receives the header once, then every record in input order.
type RecordWriter interface {
	WriteHeader(h *vcf.Header) error
	WriteRecord(r *vcf.Record) error
	Flush() error
}

// Summary describes a completed run.
type Summary struct {
	Header  *vcf.Header
	Records int
}

// Generate runs the whole pipeline: it validates the assembly, builds the
// header, writes it, then builds and writes one record per variant in input
// order. The first error in input order aborts the run.
func Generate(ctx context.Context, req Request, w RecordWriter, logger *zap.Logger) (*Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := ValidateAssembly(req.Assembly); err != nil {
		return nil, err
	}

	h, err := BuildHeader(req.Assembly, req.Format, req.Samples, req.Infos)
	if err != nil {
		return nil, fmt.Errorf("build header: %w", err)
	}
	logger.Debug("built header",
		zap.Strings("format", h.FormatKeys()),
		zap.Strings("info", h.InfoKeys()),
		zap.Strings("samples", h.Samples))

	if len(req.Infos) > len(req.Variants) {
		logger.Warn("more INFO strings than variants; extra INFO keys are declared but unused",
			zap.Int("infos", len(req.Infos)),
			zap.Int("variants", len(req.Variants)))
	}

	if err := w.WriteHeader(h); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	a := NewAssembler(h)
	a.SetLogger(logger)
	inputs := Inputs(req.Variants, req.Infos)
	summary := &Summary{Header: h}

	emit := func(rec *vcf.Record) error {
		if err := w.WriteRecord(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		summary.Records++
		return nil
	}

	if req.Workers > 1 {
		buildCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		err = OrderedCollect(a.ParallelBuild(buildCtx, inputs, req.Workers), func(r WorkResult) error {
			if r.Err != nil {
				cancel()
				return r.Err
			}
			if err := emit(r.Record); err != nil {
				cancel()
				return err
			}
			return nil
		})
	} else {
		for rec, buildErr := range a.Records(inputs) {
			if err = ctx.Err(); err != nil {
				break
			}
			if buildErr != nil {
				err = buildErr
				break
			}
			if err = emit(rec); err != nil {
				break
			}
		}
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if summary.Records != len(inputs) {
		return nil, fmt.Errorf("built %d of %d records", summary.Records, len(inputs))
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	logger.Debug("generated records", zap.Int("records", summary.Records))
	return summary, nil
}
