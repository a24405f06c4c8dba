// Package main provides the makevcf command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/makevcf/internal/assemble"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const configName = ".makevcf.yaml"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := newRootCmd(viper.New())
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

// generateOptions holds the root command flags.
type generateOptions struct {
	cfgFile  string
	out      string
	variants []string
	infos    []string
	formats  []string
	samples  []string
	verbose  bool
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "makevcf",
		Short: "Generate small VCF files from compact variant specifications",
		Long: `makevcf builds a VCF 4.2 file from one or more variant specifications of
the form CHR-POS-REF-ALT|GT[|GT...], validating every record against the
generated header.`,
		Example: `  # Single sample, one variant
  makevcf --out test.vcf --format GT --sample S1 --variant '1-12345-A-T|0/1'

  # Two samples with INFO and multi-allelic ALT
  makevcf --out test.vcf --format GT:DP --sample S1,S2 \
    --variant '1-100-AG-T,TC|1/2:3|0/0:4' --info 'AF=0.1,0.2;DB'`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, opts.cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), opts.verbose)
			defer logger.Sync() //nolint:errcheck
			return runGenerate(cmd, v, opts, logger)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "Config file (default: ~/"+configName+")")
	pf.String("catalog", "", "DuckDB fixture catalog; generated files are recorded when set")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	f := cmd.Flags()
	f.StringVarP(&opts.out, "out", "o", "", "Output VCF path (required)")
	f.String("assembly", "GRCh38", "Genome assembly: "+strings.Join(assemble.SupportedAssemblies, ", "))
	f.StringArrayVar(&opts.variants, "variant", nil, "Variant specification CHR-POS-REF-ALT|GT[|GT...], one genotype per sample (repeatable)")
	f.StringArrayVar(&opts.infos, "info", nil, "INFO string for the variant at the same position (repeatable)")
	f.StringArrayVar(&opts.formats, "format", nil, "Colon-delimited FORMAT keys, e.g. GT:DP (repeatable)")
	f.StringArrayVar(&opts.samples, "sample", nil, "Comma-delimited sample names (repeatable)")
	f.Int("workers", 1, "Number of record-building workers")

	_ = v.BindPFlag("catalog", pf.Lookup("catalog"))
	_ = v.BindPFlag("assembly", f.Lookup("assembly"))
	_ = v.BindPFlag("workers", f.Lookup("workers"))

	cmd.AddCommand(newConfigCmd(v))
	cmd.AddCommand(newCatalogCmd(v))

	return cmd
}

// initConfig loads the config file and MAKEVCF_* environment variables.
// A missing default config file is not an error.
func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("MAKEVCF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.SetConfigFile(filepath.Join(home, configName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", v.ConfigFileUsed(), err)
	}
	return nil
}

// newLogger returns a console logger on w; verbose enables debug output.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}
