// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pmc-harvester CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/pmc-harvester/internal/logging"
	"github.com/pdiddy/pmc-harvester/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built from configuration before any subcommand runs.
var logger = zap.NewNop()

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// exitError carries a process exit status out of a command.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// rootCmd is the base command for the pmc-harvester CLI.
var rootCmd = &cobra.Command{
	Use:   "pmc-harvester",
	Short: "Download full-text articles from PubMed Central by keyword",
	Long: `pmc-harvester searches PubMed Central for a keyword and downloads every
matching open-access article as XML, plain text, or a JSON record with
extracted bibliographic metadata. Articles already on disk are skipped, so
runs can be repeated safely.

Use download for a single keyword, batch for a keyword list, and history to
review past runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		logger = log

		s, err := secrets.Load(secrets.DefaultDir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./pmc-harvester.yaml or ~/.config/pmc-harvester/pmc-harvester.yaml)")
	pf.String("output-dir", "", "base directory for downloaded articles (default publications)")
	pf.String("api-key", "", "NCBI API key")
	pf.String("email", "", "contact email sent to NCBI")
	pf.String("format", "", "output format: json, xml, or txt (default json)")
	pf.Int("workers", 0, "concurrent downloads (default 5)")
	pf.Bool("sequential", false, "download one article at a time in search order")
	pf.Bool("exclude-text", false, "omit plain_text from JSON records")
	pf.Duration("request-delay", 0, "pause after each download request (default 340ms)")
	pf.Duration("retry-delay", 0, "base delay between retries (default 2s)")
	pf.Duration("timeout", 0, "per-request timeout (default 60s)")
	pf.Float64("requests-per-second", 0, "global request rate ceiling (default 10 with API key, 3 without; negative disables)")
	pf.String("ledger", "", "run ledger database (default <output-dir>/harvest.db)")
	pf.Bool("no-ledger", false, "do not record runs in the ledger")
	pf.BoolP("verbose", "v", false, "debug logging")
	pf.String("log-format", "", "log format: console or json")
	pf.String("log-file", "", "also write logs to this rotated file")

	for key, flag := range map[string]string{
		"output_dir":          "output-dir",
		"api_key":             "api-key",
		"email":               "email",
		"format":              "format",
		"workers":             "workers",
		"sequential":          "sequential",
		"exclude_text":        "exclude-text",
		"request_delay":       "request-delay",
		"retry_delay":         "retry-delay",
		"timeout":             "timeout",
		"requests_per_second": "requests-per-second",
		"ledger":              "ledger",
		"no_ledger":           "no-ledger",
		"verbose":             "verbose",
		"log.format":          "log-format",
		"log.file.filename":   "log-file",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pmc-harvester")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pmc-harvester"))
		}
	}

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("PMC_HARVESTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from the log.* keys.
func newLogger() (*zap.Logger, error) {
	cfg := logging.DefaultConfig()
	if err := viper.UnmarshalKey("log", &cfg); err != nil {
		return nil, fmt.Errorf("reading log configuration: %w", err)
	}
	if viper.GetBool("verbose") {
		cfg.Level = "debug"
	}
	return logging.New(cfg, os.Stderr)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	var ee exitError
	switch {
	case errors.As(err, &ee):
		os.Exit(ee.code)
	case err != nil:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
