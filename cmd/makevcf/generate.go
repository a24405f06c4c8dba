package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/makevcf/internal/assemble"
	"github.com/inodb/makevcf/internal/catalog"
	"github.com/inodb/makevcf/internal/vcf"
)

func runGenerate(cmd *cobra.Command, v *viper.Viper, opts *generateOptions, logger *zap.Logger) error {
	if opts.out == "" {
		return errors.New("--out is required")
	}
	if len(opts.variants) == 0 {
		return errors.New("at least one --variant is required")
	}

	req := assemble.Request{
		Assembly: v.GetString("assembly"),
		Format:   splitValues(listSetting(cmd, v, "format", opts.formats), ":"),
		Samples:  splitValues(listSetting(cmd, v, "sample", opts.samples), ","),
		Variants: opts.variants,
		Infos:    opts.infos,
		Workers:  v.GetInt("workers"),
	}
	if err := assemble.ValidateAssembly(req.Assembly); err != nil {
		return err
	}

	catalogPath := v.GetString("catalog")
	summary, records, err := writeVCF(cmd.Context(), opts.out, req, catalogPath != "", logger)
	if err != nil {
		return err
	}

	var size int64
	if info, err := os.Stat(opts.out); err == nil {
		size = info.Size()
	}
	logger.Info("wrote VCF",
		zap.String("path", opts.out),
		zap.Int("records", summary.Records),
		zap.String("size", formatSize(size)))

	if catalogPath == "" {
		return nil
	}
	return recordFixture(catalogPath, catalog.Fixture{
		Path:     opts.out,
		Size:     size,
		Assembly: req.Assembly,
		Samples:  req.Samples,
		Format:   req.Format,
	}, records, logger)
}

// listSetting returns the flag values when the flag was given, otherwise
// the configured list.
func listSetting(cmd *cobra.Command, v *viper.Viper, name string, flagValues []string) []string {
	if cmd.Flags().Changed(name) {
		return flagValues
	}
	return v.GetStringSlice(name)
}

// splitValues splits every value on sep and drops empty parts.
func splitValues(values []string, sep string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, sep) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// collectingWriter keeps every written record for the catalog.
type collectingWriter struct {
	*vcf.Writer
	records []*vcf.Record
}

func (c *collectingWriter) WriteRecord(r *vcf.Record) error {
	if err := c.Writer.WriteRecord(r); err != nil {
		return err
	}
	c.records = append(c.records, r)
	return nil
}

// writeVCF generates the file into a temporary file next to path, re-reads
// it to check the record count, and renames it into place. On any error the
// destination is left untouched.
func writeVCF(ctx context.Context, path string, req assemble.Request, collect bool, logger *zap.Logger) (*assemble.Summary, []*vcf.Record, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			os.Remove(tmpPath)
		}
	}()

	vw := vcf.NewWriter(tmp)
	var w assemble.RecordWriter = vw
	var cw *collectingWriter
	if collect {
		cw = &collectingWriter{Writer: vw}
		w = cw
	}

	summary, err := assemble.Generate(ctx, req, w, logger)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close temp file: %w", closeErr)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := verifyVCF(tmpPath, summary.Records); err != nil {
		return nil, nil, err
	}

	if err := os.Chmod(tmpPath, 0644); err != nil {
		return nil, nil, fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, nil, fmt.Errorf("rename file: %w", err)
	}
	renamed = true

	var records []*vcf.Record
	if cw != nil {
		records = cw.records
	}
	return summary, records, nil
}

// verifyVCF re-reads a written file and checks that every record decodes
// and that the record count matches.
func verifyVCF(path string, want int) error {
	r, err := vcf.NewReader(path)
	if err != nil {
		return fmt.Errorf("re-read output: %w", err)
	}
	defer r.Close()

	n := 0
	for {
		rec, err := r.Next()
		if err != nil {
			return fmt.Errorf("re-read output: %w", err)
		}
		if rec == nil {
			break
		}
		n++
	}
	if n != want {
		return fmt.Errorf("re-read output: found %d records, wrote %d", n, want)
	}
	return nil
}

func recordFixture(catalogPath string, f catalog.Fixture, records []*vcf.Record, logger *zap.Logger) error {
	store, err := catalog.Open(catalogPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	if abs, err := filepath.Abs(f.Path); err == nil {
		f.Path = abs
	}
	f, err = store.WriteFixture(f, records)
	if err != nil {
		return fmt.Errorf("record fixture: %w", err)
	}

	logger.Info("recorded fixture",
		zap.String("id", f.ID),
		zap.String("catalog", catalogPath),
		zap.Int64("variants", f.VariantCount))
	return nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
