package vcf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHeader(t *testing.T) *Header {
	t.Helper()
	h := NewHeader()
	require.NoError(t, h.SetMeta("assembly", "GRCh38"))
	require.NoError(t, h.AddInfo("AF"))
	require.NoError(t, h.AddInfo("DB"))
	require.NoError(t, h.AddInfo("FOO"))
	require.NoError(t, h.AddFormat("GT"))
	require.NoError(t, h.AddFormat("DP"))
	require.NoError(t, h.AddSample("S1"))
	require.NoError(t, h.AddSample("S2"))
	return h
}

func TestHeader_Lines(t *testing.T) {
	h := newTestHeader(t)

	want := []string{
		"##fileformat=VCFv4.2",
		`##INFO=<ID=AF,Number=A,Type=Float,Description="Allele frequency for each ALT allele in the same order as listed">`,
		`##INFO=<ID=DB,Number=0,Type=Flag,Description="dbSNP membership">`,
		`##INFO=<ID=FOO,Number=.,Type=String,Description="">`,
		`##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">`,
		`##FORMAT=<ID=DP,Number=1,Type=Integer,Description="Read depth">`,
		"##assembly=GRCh38",
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\tS2",
	}
	assert.Equal(t, want, h.Lines())
}

func TestHeader_LinesWithoutSamples(t *testing.T) {
	h := NewHeader()
	lines := h.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, FileFormatVersionLine, lines[0])
	assert.Equal(t, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO", lines[1])
}

func TestHeader_KeyOnlyDeclarationsStayMinimal(t *testing.T) {
	h := newTestHeader(t)

	// The stored declaration carries only the key; resolution happens on lookup.
	assert.Equal(t, &Definition{ID: "DP"}, h.Formats[1])

	def, ok := h.Format("DP")
	require.True(t, ok)
	assert.Equal(t, "1", def.Number)
	assert.Equal(t, TypeInteger, def.Type)

	_, ok = h.Format("GQ")
	assert.False(t, ok)
}

func TestHeader_ExplicitDefinitionWins(t *testing.T) {
	h := NewHeader()
	require.NoError(t, h.AddInfoDefinition(&Definition{ID: "DP", Number: "2", Type: TypeFloat, Description: "custom"}))

	def, ok := h.Info("DP")
	require.True(t, ok)
	assert.Equal(t, Definition{ID: "DP", Number: "2", Type: TypeFloat, Description: "custom"}, def)
}

func TestHeader_InvalidDeclarations(t *testing.T) {
	tests := []struct {
		name    string
		add     func(h *Header) error
		wantErr error
	}{
		{"empty INFO key", func(h *Header) error { return h.AddInfo("") }, ErrInvalidKey},
		{"INFO key with space", func(h *Header) error { return h.AddInfo("A B") }, ErrInvalidKey},
		{"INFO key starting with digit", func(h *Header) error { return h.AddInfo("1X") }, ErrInvalidKey},
		{"FORMAT key with equals", func(h *Header) error { return h.AddFormat("G=T") }, ErrInvalidKey},
		{"duplicate FORMAT key", func(h *Header) error {
			_ = h.AddFormat("GT")
			return h.AddFormat("GT")
		}, ErrDuplicateKey},
		{"duplicate sample", func(h *Header) error {
			_ = h.AddSample("S1")
			return h.AddSample("S1")
		}, ErrDuplicateKey},
		{"empty sample", func(h *Header) error { return h.AddSample("") }, ErrInvalidKey},
		{"reserved meta key", func(h *Header) error { return h.SetMeta("fileformat", "x") }, ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.add(NewHeader())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var herr *HeaderError
			assert.ErrorAs(t, err, &herr)
		})
	}
}

func TestHeader_1000GIsValidKey(t *testing.T) {
	h := NewHeader()
	require.NoError(t, h.AddInfo("1000G"))
	def, ok := h.Info("1000G")
	require.True(t, ok)
	assert.Equal(t, TypeFlag, def.Type)
}

func TestHeader_SetMetaReplaces(t *testing.T) {
	h := NewHeader()
	require.NoError(t, h.SetMeta("assembly", "hg19"))
	require.NoError(t, h.SetMeta("assembly", "hg38"))

	require.Len(t, h.Meta, 1)
	v, ok := h.MetaValue("assembly")
	assert.True(t, ok)
	assert.Equal(t, "hg38", v)
}
