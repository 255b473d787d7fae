// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/pmc-harvester/internal/batch"
	"github.com/pdiddy/pmc-harvester/internal/eutils"
	"github.com/pdiddy/pmc-harvester/internal/harvest"
	"github.com/pdiddy/pmc-harvester/internal/ledger"
	"github.com/pdiddy/pmc-harvester/internal/logging"
	"github.com/pdiddy/pmc-harvester/internal/secrets"
	"github.com/pdiddy/pmc-harvester/pkg/types"
)

const defaultOutputDir = "publications"

func setDefaults(v *viper.Viper) {
	v.SetDefault("output_dir", defaultOutputDir)
	v.SetDefault("tool", eutils.DefaultTool)
	v.SetDefault("max_results", harvest.DefaultMaxResults)
	v.SetDefault("format", string(types.FormatJSON))
	v.SetDefault("workers", harvest.DefaultWorkers)
	v.SetDefault("request_delay", harvest.DefaultRequestDelay)
	v.SetDefault("retry_delay", eutils.DefaultRetryDelay)
	v.SetDefault("timeout", eutils.DefaultTimeout)

	v.SetDefault("batch.keyword_timeout", batch.DefaultKeywordTimeout)
	v.SetDefault("batch.pause", batch.DefaultPause)
	v.SetDefault("batch.default_max_results", batch.DefaultMaxResults)
	v.SetDefault("batch.max_results_cap", batch.DefaultMaxResultsCap)

	lc := logging.DefaultConfig()
	v.SetDefault("log.level", lc.Level)
	v.SetDefault("log.format", lc.Format)
	v.SetDefault("log.file.max_size", lc.File.MaxSize)
	v.SetDefault("log.file.max_age", lc.File.MaxAge)
	v.SetDefault("log.file.max_backups", lc.File.MaxBackups)
}

// eutilsConfig assembles client settings, resolving the API key and contact
// email from configuration, .secrets/, and the legacy key file.
func eutilsConfig() types.EutilsConfig {
	key, source := secrets.APIKey(viper.GetString("api_key"), loadedSecrets, secrets.LegacyAPIKeyFile)
	if key == "" {
		logger.Warn("no NCBI API key found, requests are limited to 3 per second")
	} else {
		logger.Debug("using NCBI API key", zap.String("source", source))
	}

	email := viper.GetString("email")
	if email == "" {
		email = loadedSecrets[secrets.NCBIEmail]
	}

	return types.EutilsConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:           viper.GetDuration("timeout"),
			UserAgent:         fmt.Sprintf("pmc-harvester/%s", version),
			RequestsPerSecond: viper.GetFloat64("requests_per_second"),
		},
		APIKey:     key,
		Tool:       viper.GetString("tool"),
		Email:      email,
		RetryDelay: viper.GetDuration("retry_delay"),
	}
}

// harvestConfig reads the per-keyword run settings.
func harvestConfig() (types.HarvestConfig, error) {
	format, err := types.ParseOutputFormat(viper.GetString("format"))
	if err != nil {
		return types.HarvestConfig{}, err
	}
	return types.HarvestConfig{
		OutputDir:    viper.GetString("output_dir"),
		MaxResults:   viper.GetInt("max_results"),
		Format:       format,
		Sequential:   viper.GetBool("sequential"),
		Workers:      viper.GetInt("workers"),
		SkipText:     viper.GetBool("exclude_text"),
		RequestDelay: viper.GetDuration("request_delay"),
	}, nil
}

func batchConfig() types.BatchConfig {
	return types.BatchConfig{
		KeywordTimeout:    viper.GetDuration("batch.keyword_timeout"),
		Pause:             viper.GetDuration("batch.pause"),
		ResultsDir:        viper.GetString("batch.results_dir"),
		DefaultMaxResults: viper.GetInt("batch.default_max_results"),
		MaxResultsCap:     viper.GetInt("batch.max_results_cap"),
	}
}

// newHarvester wires the E-utilities client into an orchestrator.
func newHarvester(cfg types.HarvestConfig, out io.Writer) *harvest.Harvester {
	client := eutils.NewClient(eutilsConfig(), logger.Named("eutils"))
	return &harvest.Harvester{
		Searcher:     client,
		Fetcher:      client,
		Log:          logger.Named("harvest"),
		Out:          out,
		OutputDir:    cfg.OutputDir,
		RequestDelay: cfg.RequestDelay,
	}
}

// baseRequest converts the run settings into a harvest request template.
func baseRequest(cfg types.HarvestConfig) harvest.Request {
	return harvest.Request{
		MaxResults: cfg.MaxResults,
		Format:     cfg.Format,
		Sequential: cfg.Sequential,
		Workers:    cfg.Workers,
		SkipText:   cfg.SkipText,
	}
}

// ledgerPath returns the configured ledger location.
func ledgerPath() string {
	if p := viper.GetString("ledger"); p != "" {
		return p
	}
	return filepath.Join(viper.GetString("output_dir"), ledger.DefaultFile)
}

// openLedger opens the run ledger unless disabled. A ledger that cannot be
// opened is logged and skipped; downloads do not depend on it.
func openLedger() *ledger.Store {
	if viper.GetBool("no_ledger") {
		return nil
	}
	store, err := ledger.Open(ledgerPath())
	if err != nil {
		logger.Warn("run ledger unavailable", zap.String("path", ledgerPath()), zap.Error(err))
		return nil
	}
	return store
}
