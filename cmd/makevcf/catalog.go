package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/makevcf/internal/catalog"
)

func newCatalogCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Query the fixture catalog",
		Long:  "List generated fixtures and find which fixtures contain a variant. Requires --catalog or the catalog config key.",
		Example: `  makevcf catalog list --catalog fixtures.duckdb
  makevcf catalog find 1 12345 --catalog fixtures.duckdb`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cataloged fixtures, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCatalog(v)
			if err != nil {
				return err
			}
			defer store.Close()
			return runCatalogList(cmd.OutOrStdout(), store)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "find <chrom> <pos>",
		Short: "Find fixtures containing a variant at a position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid position %q: %w", args[1], err)
			}
			store, err := openCatalog(v)
			if err != nil {
				return err
			}
			defer store.Close()
			return runCatalogFind(cmd.OutOrStdout(), store, args[0], pos)
		},
	})

	return cmd
}

func openCatalog(v *viper.Viper) (*catalog.Store, error) {
	path := v.GetString("catalog")
	if path == "" {
		return nil, errors.New("no catalog configured: use --catalog or set the catalog config key")
	}
	return catalog.Open(path)
}

func runCatalogList(w io.Writer, store *catalog.Store) error {
	fixtures, err := store.ListFixtures()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tASSEMBLY\tVARIANTS\tSAMPLES\tSIZE\tPATH")
	for _, f := range fixtures {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			f.ID, f.CreatedAt.Format("2006-01-02 15:04:05"), f.Assembly,
			f.VariantCount, strings.Join(f.Samples, ","), formatSize(f.Size), f.Path)
	}
	return tw.Flush()
}

func runCatalogFind(w io.Writer, store *catalog.Store, chrom string, pos int64) error {
	found, err := store.FindVariant(chrom, pos)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Fprintf(w, "No fixtures contain %s:%d\n", chrom, pos)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIXTURE\tINDEX\tREF\tALT\tINFO\tPATH")
	for _, fv := range found {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			fv.FixtureID, fv.Index, fv.Ref, fv.Alt, fv.Info, fv.Path)
	}
	return tw.Flush()
}
