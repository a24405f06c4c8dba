package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/makevcf/internal/vcf"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecords(t *testing.T) []*vcf.Record {
	t.Helper()
	h := vcf.NewHeader()
	require.NoError(t, h.AddInfo("DB"))
	require.NoError(t, h.AddFormat("GT"))
	require.NoError(t, h.AddFormat("DP"))
	require.NoError(t, h.AddSample("S1"))
	require.NoError(t, h.AddSample("S2"))

	var recs []*vcf.Record
	for _, line := range []string{
		"2\t500\t.\tC\tG\t.\t.\t.\tGT:DP\t0/1:30\t1/1:45",
		"1\t12345\t.\tAG\tT,TC\t.\t.\tDB\tGT:DP\t1/2:3\t0/0:4",
	} {
		rec, err := vcf.Decode(line, h)
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	return recs
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Equal(t, "", s.Path())
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
}

func TestWriteAndListFixtures(t *testing.T) {
	s := openInMemory(t)

	older := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	first, err := s.WriteFixture(Fixture{
		Path: "/tmp/a.vcf", Size: 2048, Assembly: "GRCh38",
		Samples: []string{"S1", "S2"}, Format: []string{"GT", "DP"},
		CreatedAt: older,
	}, testRecords(t))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, int64(2), first.VariantCount)

	second, err := s.WriteFixture(Fixture{
		ID: "fixed-id", Path: "/tmp/b.vcf", Assembly: "hg19",
		Samples: []string{"S1"}, Format: []string{"GT"},
		CreatedAt: older.Add(time.Hour),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", second.ID)

	fixtures, err := s.ListFixtures()
	require.NoError(t, err)
	require.Len(t, fixtures, 2)

	assert.Equal(t, "fixed-id", fixtures[0].ID)
	assert.Equal(t, int64(0), fixtures[0].VariantCount)
	assert.Equal(t, first.ID, fixtures[1].ID)
	assert.Equal(t, "/tmp/a.vcf", fixtures[1].Path)
	assert.Equal(t, int64(2048), fixtures[1].Size)
	assert.Equal(t, "GRCh38", fixtures[1].Assembly)
	assert.Equal(t, []string{"S1", "S2"}, fixtures[1].Samples)
	assert.Equal(t, []string{"GT", "DP"}, fixtures[1].Format)
	assert.True(t, older.Equal(fixtures[1].CreatedAt.UTC()))
}

func TestFindVariant(t *testing.T) {
	s := openInMemory(t)

	f, err := s.WriteFixture(Fixture{Path: "/tmp/a.vcf", Assembly: "GRCh38"}, testRecords(t))
	require.NoError(t, err)

	found, err := s.FindVariant("1", 12345)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, FixtureVariant{
		FixtureID: f.ID,
		Path:      "/tmp/a.vcf",
		Index:     1,
		Chrom:     "1",
		Pos:       12345,
		Ref:       "AG",
		Alt:       "T,TC",
		Info:      "DB",
		Genotypes: "1/2:3\t0/0:4",
	}, found[0])

	found, err = s.FindVariant("1", 99999)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestWriteFixture_DuplicateID(t *testing.T) {
	s := openInMemory(t)

	_, err := s.WriteFixture(Fixture{ID: "dup"}, nil)
	require.NoError(t, err)
	_, err = s.WriteFixture(Fixture{ID: "dup"}, nil)
	assert.Error(t, err)
}

func TestWriteFixture_RollsBackOnVariantError(t *testing.T) {
	s := openInMemory(t)

	// A stale variant row makes the appender hit the primary key.
	_, err := s.DB().Exec(`INSERT INTO fixture_variants VALUES ('clash', 0, '1', 1, 'A', 'T', '.', '0/1')`)
	require.NoError(t, err)

	_, err = s.WriteFixture(Fixture{ID: "clash", Path: "/tmp/clash.vcf"}, testRecords(t))
	require.Error(t, err)

	fixtures, err := s.ListFixtures()
	require.NoError(t, err)
	assert.Empty(t, fixtures)

	// The store stays usable after the rollback.
	f, err := s.WriteFixture(Fixture{Path: "/tmp/ok.vcf"}, testRecords(t))
	require.NoError(t, err)
	found, err := s.FindVariant("2", 500)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, f.ID, found[0].FixtureID)
}
