package vcf

import (
	"strconv"
	"strings"
)

// Missing is the VCF placeholder for an absent value.
const Missing = "."

// InfoField is a single INFO entry. Flag entries have no value.
type InfoField struct {
	Key   string
	Value string
	Flag  bool
}

// Record is a decoded VCF data line.
type Record struct {
	Chrom   string
	Pos     int64 // 1-based
	ID      string
	Ref     string
	Alt     []string // empty when ALT is "."
	Qual    string   // "." or a number
	Filter  string
	Info    []InfoField // in line order
	Format  []string
	Samples [][]string // one value per FORMAT key, per sample
}

// InfoValue returns the value of an INFO key. Flags report an empty value.
func (r *Record) InfoValue(key string) (string, bool) {
	for _, f := range r.Info {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// SampleValue returns the FORMAT value for sample i.
func (r *Record) SampleValue(i int, key string) (string, bool) {
	if i < 0 || i >= len(r.Samples) {
		return "", false
	}
	for j, k := range r.Format {
		if k == key && j < len(r.Samples[i]) {
			return r.Samples[i][j], true
		}
	}
	return "", false
}

// Genotypes returns the raw colon-joined tuple of every sample.
func (r *Record) Genotypes() []string {
	gts := make([]string, len(r.Samples))
	for i, s := range r.Samples {
		gts[i] = strings.Join(s, ":")
	}
	return gts
}

// InfoString formats the INFO column.
func (r *Record) InfoString() string {
	if len(r.Info) == 0 {
		return Missing
	}
	var b strings.Builder
	for i, f := range r.Info {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(f.Key)
		if !f.Flag {
			b.WriteByte('=')
			b.WriteString(f.Value)
		}
	}
	return b.String()
}

// String formats the record as a tab-separated data line without a newline.
func (r *Record) String() string {
	var b strings.Builder
	b.Grow(128)

	b.WriteString(r.Chrom)
	b.WriteByte('\t')
	b.WriteString(strconv.FormatInt(r.Pos, 10))
	b.WriteByte('\t')
	b.WriteString(orMissing(r.ID))
	b.WriteByte('\t')
	b.WriteString(r.Ref)
	b.WriteByte('\t')
	if len(r.Alt) == 0 {
		b.WriteString(Missing)
	} else {
		b.WriteString(strings.Join(r.Alt, ","))
	}
	b.WriteByte('\t')
	b.WriteString(orMissing(r.Qual))
	b.WriteByte('\t')
	b.WriteString(orMissing(r.Filter))
	b.WriteByte('\t')
	b.WriteString(r.InfoString())

	if len(r.Format) > 0 {
		b.WriteByte('\t')
		b.WriteString(strings.Join(r.Format, ":"))
		for _, s := range r.Samples {
			b.WriteByte('\t')
			b.WriteString(strings.Join(s, ":"))
		}
	}
	return b.String()
}

func orMissing(s string) string {
	if s == "" {
		return Missing
	}
	return s
}
