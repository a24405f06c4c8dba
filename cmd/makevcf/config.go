package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/makevcf/internal/assemble"
)

func newConfigCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage makevcf configuration",
		Long: `Show, get, or set configuration values. Config is stored in ~/` + configName + `.

Keys: assembly, format, sample, workers, catalog. Values may also be set with
MAKEVCF_<KEY> environment variables.`,
		Example: `  makevcf config                           # show all config
  makevcf config set assembly GRCh37        # default assembly
  makevcf config set format GT:DP           # default FORMAT keys
  makevcf config get assembly               # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout(), v)
		},
	}

	cmd.AddCommand(newConfigSetCmd(v))
	cmd.AddCommand(newConfigGetCmd(v))

	return cmd
}

func newConfigSetCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd.OutOrStdout(), v, args[0], args[1])
		},
	}
}

func newConfigGetCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd.OutOrStdout(), v, args[0])
		},
	}
}

// configFileSettings returns only the values read from the config file or
// set explicitly, without flag defaults.
func configFileSettings(v *viper.Viper) map[string]any {
	settings := make(map[string]any)
	for _, key := range v.AllKeys() {
		if v.InConfig(key) {
			settings[key] = v.Get(key)
		}
	}
	return settings
}

func runConfigShow(w io.Writer, v *viper.Viper) error {
	settings := configFileSettings(v)
	if len(settings) == 0 {
		fmt.Fprintf(w, "# No configuration set. Config file: ~/%s\n", configName)
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(w, string(out))
	return nil
}

func runConfigSet(w io.Writer, v *viper.Viper, key, value string) error {
	var val any = value
	switch key {
	case "assembly":
		if err := assemble.ValidateAssembly(value); err != nil {
			return err
		}
	case "workers":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("workers must be a positive integer, got %q", value)
		}
		val = n
	}

	settings := configFileSettings(v)
	settings[key] = val

	// Ensure config file exists
	cfgFile := v.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, configName)
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(cfgFile, out, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	v.Set(key, val)

	fmt.Fprintf(w, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(w io.Writer, v *viper.Viper, key string) error {
	val := v.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(w, val)
	return nil
}
