package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "PAGE_LOADER"

// cfgFile holds the path to the configuration file.
var cfgFile string

// Config is the resolved command configuration: flags override
// PAGE_LOADER_* environment variables, which override the config file.
type Config struct {
	Output      string
	Debug       bool
	Timeout     time.Duration
	Concurrency int
	UserAgent   string
	Export      []string
	Progress    bool
}

func loadConfig(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("page-loader")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{
		Output:      v.GetString("output"),
		Debug:       v.GetBool("debug"),
		Timeout:     v.GetDuration("timeout"),
		Concurrency: v.GetInt("concurrency"),
		UserAgent:   v.GetString("user-agent"),
		Export:      v.GetStringSlice("export"),
		Progress:    !v.GetBool("no-progress"),
	}

	if cfg.Output == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		cfg.Output = wd
	}
	abs, err := filepath.Abs(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("resolving output directory: %w", err)
	}
	cfg.Output = abs

	return cfg, nil
}
