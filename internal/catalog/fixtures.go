package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/makevcf/internal/vcf"
)

// Fixture describes one generated VCF file.
type Fixture struct {
	ID           string
	Path         string
	Size         int64 // file size in bytes
	Assembly     string
	Samples      []string
	Format       []string
	VariantCount int64
	CreatedAt    time.Time
}

// FixtureVariant is one record of a cataloged fixture.
type FixtureVariant struct {
	FixtureID string
	Path      string
	Index     int64
	Chrom     string
	Pos       int64
	Ref       string
	Alt       string
	Info      string
	Genotypes string // tab-joined sample tuples
}

// WriteFixture inserts a fixture and its records in one transaction. An
// empty ID is replaced by a new UUID and a zero CreatedAt by the current
// time; the stored fixture is returned.
func (s *Store) WriteFixture(f Fixture, records []*vcf.Record) (Fixture, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	f.VariantCount = int64(len(records))

	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return f, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	// The appender writes through the same connection, so both tables
	// share the transaction.
	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return f, fmt.Errorf("begin transaction: %w", err)
	}
	if err := writeFixture(ctx, conn, f, records); err != nil {
		if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
			return f, errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return f, err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return f, fmt.Errorf("commit fixture: %w", err)
	}
	return f, nil
}

func writeFixture(ctx context.Context, conn *sql.Conn, f Fixture, records []*vcf.Record) error {
	if _, err := conn.ExecContext(ctx, `INSERT INTO fixtures
		(id, path, size, assembly, samples, format, variant_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Path, f.Size, f.Assembly,
		strings.Join(f.Samples, ","), strings.Join(f.Format, ":"),
		f.VariantCount, f.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert fixture: %w", err)
	}

	if len(records) == 0 {
		return nil
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "fixture_variants")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for i, r := range records {
		if err := appender.AppendRow(
			f.ID, int64(i), r.Chrom, r.Pos, r.Ref,
			strings.Join(r.Alt, ","), r.InfoString(), strings.Join(r.Genotypes(), "\t"),
		); err != nil {
			appender.Close()
			return fmt.Errorf("append fixture variant: %w", err)
		}
	}

	if err := appender.Flush(); err != nil {
		appender.Close()
		return fmt.Errorf("flush fixture variants: %w", err)
	}
	if err := appender.Close(); err != nil {
		return fmt.Errorf("close appender: %w", err)
	}
	return nil
}

// ListFixtures returns all cataloged fixtures, newest first.
func (s *Store) ListFixtures() ([]Fixture, error) {
	rows, err := s.db.Query(`SELECT
		id, path, size, assembly, samples, format, variant_count, created_at
		FROM fixtures
		ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query fixtures: %w", err)
	}
	defer rows.Close()

	var fixtures []Fixture
	for rows.Next() {
		var f Fixture
		var samples, format string
		if err := rows.Scan(&f.ID, &f.Path, &f.Size, &f.Assembly, &samples, &format, &f.VariantCount, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fixture: %w", err)
		}
		f.Samples = splitNonEmpty(samples, ",")
		f.Format = splitNonEmpty(format, ":")
		fixtures = append(fixtures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fixtures: %w", err)
	}
	return fixtures, nil
}

// FindVariant returns every cataloged record at the given position,
// ordered by fixture creation time and record index.
func (s *Store) FindVariant(chrom string, pos int64) ([]FixtureVariant, error) {
	rows, err := s.db.Query(`SELECT
		v.fixture_id, f.path, v.idx, v.chrom, v.pos, v.ref, v.alt, v.info, v.genotypes
		FROM fixture_variants v
		JOIN fixtures f ON f.id = v.fixture_id
		WHERE v.chrom=? AND v.pos=?
		ORDER BY f.created_at, v.fixture_id, v.idx`, chrom, pos)
	if err != nil {
		return nil, fmt.Errorf("query variant: %w", err)
	}
	defer rows.Close()

	var out []FixtureVariant
	for rows.Next() {
		var fv FixtureVariant
		if err := rows.Scan(
			&fv.FixtureID, &fv.Path, &fv.Index, &fv.Chrom, &fv.Pos,
			&fv.Ref, &fv.Alt, &fv.Info, &fv.Genotypes,
		); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		out = append(out, fv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}
	return out, nil
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}
