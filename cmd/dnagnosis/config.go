package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/aaditya29/DNAgnosis/internal/ncbi"
	"github.com/aaditya29/DNAgnosis/internal/scoring"
	"github.com/aaditya29/DNAgnosis/internal/ucsc"
	"github.com/aaditya29/DNAgnosis/internal/upstream"
)

const configName = ".dnagnosis"

// setDefaults registers every configuration key with its default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("ucsc.url", ucsc.DefaultURL)
	v.SetDefault("genes.search_url", ncbi.DefaultGeneSearchURL)
	v.SetDefault("ncbi.eutils_url", ncbi.DefaultEUtilsURL)
	v.SetDefault("ncbi.api_key", "")
	v.SetDefault("ncbi.rate_limit", 0.0)
	v.SetDefault("scoring.url", "")
	v.SetDefault("scoring.timeout", scoring.DefaultTimeout)
	v.SetDefault("http.timeout", upstream.DefaultTimeout)
	v.SetDefault("log.level", "warn")
	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("assembly", "hg38")
}

// initConfig loads ~/.dnagnosis.yaml (or cfgFile) and DNAGNOSIS_* environment
// variables into the global viper instance. A missing file is not an error.
func initConfig(cfgFile string) error {
	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("DNAGNOSIS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (cfgFile == "" && os.IsNotExist(err)) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage dnagnosis configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.dnagnosis.yaml.",
		Example: `  dnagnosis config                                   # show the effective config
  dnagnosis config set scoring.url https://example.org/analyze  # point at a scoring service
  dnagnosis config get ncbi.rate_limit                # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd, args[0])
		},
	}
}

func runConfigShow(cmd *cobra.Command) error {
	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

// runConfigSet writes key into the config file alone. Defaults and
// environment values never reach the file.
func runConfigSet(cmd *cobra.Command, key, value string) error {
	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, configName+".yaml")
	}

	file := viper.New()
	file.SetConfigFile(cfgFile)
	file.SetConfigType("yaml")
	if _, err := os.Stat(cfgFile); err == nil {
		if err := file.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading config: %w", err)
	}

	switch value {
	case "true", "yes", "on":
		file.Set(key, true)
	case "false", "no", "off":
		file.Set(key, false)
	default:
		file.Set(key, value)
	}

	if err := file.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(cmd *cobra.Command, key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}
