package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/makevcf/internal/varspec"
	"github.com/inodb/makevcf/internal/vcf"
)

func newTestAssembler(t *testing.T, format, samples, infos []string) *Assembler {
	t.Helper()
	h, err := BuildHeader("GRCh38", format, samples, infos)
	require.NoError(t, err)
	return NewAssembler(h)
}

func TestInputs(t *testing.T) {
	inputs := Inputs([]string{"a", "b", "c"}, []string{"DP=1"})
	assert.Equal(t, []Input{{Spec: "a", Info: "DP=1"}, {Spec: "b"}, {Spec: "c"}}, inputs)

	assert.Empty(t, Inputs(nil, []string{"DP=1"}))
}

func TestBuild_EndToEndLine(t *testing.T) {
	a := newTestAssembler(t, []string{"GT", "DP"}, []string{"S1", "S2"}, nil)

	v, err := varspec.Parse("2-500-C-G|0/1:30|1/1:45", "")
	require.NoError(t, err)

	rec, err := a.Build(0, v)
	require.NoError(t, err)
	assert.Equal(t, "2\t500\t.\tC\tG\t.\t.\t.\tGT:DP\t0/1:30\t1/1:45", rec.String())
}

func TestBuild_RoundTripsVariant(t *testing.T) {
	a := newTestAssembler(t, []string{"GT"}, []string{"S1", "S2", "S3"}, []string{"AF=0.1,0.2,0.3"})

	v, err := varspec.Parse("1-12345-AG-T,TC,TTT|0/1|1/1|1/2", "AF=0.1,0.2,0.3")
	require.NoError(t, err)

	rec, err := a.Build(0, v)
	require.NoError(t, err)

	assert.Equal(t, v.Chrom, rec.Chrom)
	assert.Equal(t, v.Pos, rec.Pos)
	assert.Equal(t, v.Ref, rec.Ref)
	assert.Equal(t, []string{"T", "TC", "TTT"}, rec.Alt)
	assert.Equal(t, v.Genotypes, rec.Genotypes())

	af, ok := rec.InfoValue("AF")
	assert.True(t, ok)
	assert.Equal(t, "0.1,0.2,0.3", af)
}

func TestBuild_MissingInfoPlaceholder(t *testing.T) {
	a := newTestAssembler(t, []string{"GT"}, []string{"S1"}, nil)

	rec, err := a.BuildInput(0, Input{Spec: "1-100-A-T|0/1"})
	require.NoError(t, err)
	assert.Empty(t, rec.Info)
	assert.Equal(t, vcf.Missing, rec.InfoString())
}

func TestBuild_CustomFlag(t *testing.T) {
	a := newTestAssembler(t, []string{"GT"}, []string{"S1"}, []string{"CUSTOM"})

	rec, err := a.BuildInput(0, Input{Spec: "1-100-A-T|0/1", Info: "CUSTOM"})
	require.NoError(t, err)
	assert.Equal(t, []vcf.InfoField{{Key: "CUSTOM", Flag: true}}, rec.Info)
	assert.Equal(t, "1\t100\t.\tA\tT\t.\t.\tCUSTOM\tGT\t0/1", rec.String())
}

func TestBuild_SampleCountMismatch(t *testing.T) {
	a := newTestAssembler(t, []string{"GT"}, []string{"S1", "S2"}, nil)

	tests := []struct {
		spec      string
		genotypes int
	}{
		{"1-100-A-T|0/1", 1},
		{"1-100-A-T|0/1|0/1|1/1", 3},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			rec, err := a.BuildInput(4, Input{Spec: tt.spec})
			require.Error(t, err)
			assert.Nil(t, rec)
			assert.ErrorIs(t, err, ErrSampleCountMismatch)

			var scErr *SampleCountError
			require.ErrorAs(t, err, &scErr)
			assert.Equal(t, tt.genotypes, scErr.Genotypes)
			assert.Equal(t, 2, scErr.Samples)

			var vErr *VariantError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, 4, vErr.Index)
			assert.Equal(t, tt.spec, vErr.Input)
		})
	}
}

func TestBuild_CodecErrors(t *testing.T) {
	tests := []struct {
		name    string
		format  []string
		infos   []string
		in      Input
		wantErr error
	}{
		{"genotype wider than FORMAT", []string{"GT"}, nil, Input{Spec: "1-100-A-T|0/1:30"}, vcf.ErrArity},
		{"genotype narrower than FORMAT", []string{"GT", "DP"}, nil, Input{Spec: "1-100-A-T|0/1"}, vcf.ErrArity},
		{"non-integer DP", []string{"GT", "DP"}, nil, Input{Spec: "1-100-A-T|0/1:deep"}, vcf.ErrInvalidField},
		{"allele index beyond ALT", []string{"GT"}, nil, Input{Spec: "1-100-A-T|1/2"}, vcf.ErrInvalidField},
		{"AF count differs from ALT count", []string{"GT"}, []string{"AF=0.5"}, Input{Spec: "1-100-A-T,C|0/1", Info: "AF=0.5"}, vcf.ErrArity},
		{"info key not collected", []string{"GT"}, []string{"DP=1"}, Input{Spec: "1-100-A-T|0/1", Info: "XX=1"}, vcf.ErrUnknownInfo},
		{"custom key used with and without value", []string{"GT"}, []string{"MIXED", "MIXED=1"}, Input{Spec: "1-100-A-T|0/1", Info: "MIXED"}, vcf.ErrInvalidField},
		{"empty alternate allele", []string{"GT"}, nil, Input{Spec: "1-100-A-T,|0/1"}, vcf.ErrInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAssembler(t, tt.format, []string{"S1"}, tt.infos)

			_, err := a.BuildInput(2, tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var dErr *vcf.DecodeError
			assert.ErrorAs(t, err, &dErr)

			var vErr *VariantError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, 2, vErr.Index)
		})
	}
}

func TestBuildInput_ParseErrors(t *testing.T) {
	a := newTestAssembler(t, []string{"GT"}, []string{"S1"}, nil)

	_, err := a.BuildInput(7, Input{Spec: "1-abc-A-T|0/1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, varspec.ErrInvalidPosition)

	var vErr *VariantError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 7, vErr.Index)
	assert.Equal(t, `variant 7 ("1-abc-A-T|0/1"): invalid variant position: "abc": strconv.ParseUint: parsing "abc": invalid syntax`, err.Error())
}

func TestRecords_InputOrder(t *testing.T) {
	a := newTestAssembler(t, []string{"GT"}, []string{"S1"}, nil)
	inputs := Inputs([]string{"9-1-A-T|0/1", "1-5-C-G|1/1", "X-3-G-A|0/0"}, nil)

	var chroms []string
	for rec, err := range a.Records(inputs) {
		require.NoError(t, err)
		chroms = append(chroms, rec.Chrom)
	}
	assert.Equal(t, []string{"9", "1", "X"}, chroms)
}

func TestRecords_StopsAtFirstError(t *testing.T) {
	a := newTestAssembler(t, []string{"GT"}, []string{"S1"}, nil)
	inputs := Inputs([]string{"1-1-A-T|0/1", "1-x-A-T|0/1", "1-3-A-T"}, nil)

	var built int
	var errs []error
	for rec, err := range a.Records(inputs) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		assert.NotNil(t, rec)
		built++
	}
	assert.Equal(t, 1, built)
	require.Len(t, errs, 1)

	var vErr *VariantError
	require.ErrorAs(t, errs[0], &vErr)
	assert.Equal(t, 1, vErr.Index)
}

func TestRecords_EarlyBreak(t *testing.T) {
	a := newTestAssembler(t, []string{"GT"}, []string{"S1"}, nil)
	inputs := Inputs([]string{"1-1-A-T|0/1", "1-2-A-T|0/1", "1-3-A-T|0/1"}, nil)

	count := 0
	for range a.Records(inputs) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestAssembler_LogsBuiltRecords(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	a := newTestAssembler(t, []string{"GT"}, []string{"S1"}, nil)
	a.SetLogger(zap.New(core))

	_, err := a.BuildInput(0, Input{Spec: "1-100-A-T|0/1"})
	require.NoError(t, err)

	entries := logs.FilterMessage("built record").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "1", entries[0].ContextMap()["chrom"])
	assert.Equal(t, int64(100), entries[0].ContextMap()["pos"])
}
