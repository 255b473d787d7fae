package types

import "time"

// HTTPConfig holds shared HTTP settings for E-utilities requests.
type HTTPConfig struct {
	// Timeout bounds each individual search or fetch request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pmc-harvester/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// RequestsPerSecond caps the request rate across all workers. Zero
	// selects the NCBI default for the presence or absence of an API key;
	// a negative value disables the limiter.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// EutilsConfig holds credentials and retry settings for NCBI E-utilities.
type EutilsConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the NCBI API key. Requests are sent without one when empty.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Tool and Email identify the caller to NCBI.
	Tool  string `json:"tool,omitempty" yaml:"tool,omitempty"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// RetryDelay is the base delay between attempts (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`
}

// HarvestConfig holds settings for a single keyword run.
type HarvestConfig struct {
	// OutputDir is the base directory; each keyword gets a subdirectory.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// MaxResults caps the identifiers requested from search (default 100).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// Format selects the on-disk format for each article.
	Format OutputFormat `json:"format" yaml:"format"`

	// Sequential disables the worker pool.
	Sequential bool `json:"sequential" yaml:"sequential"`

	// Workers is the worker pool size in concurrent mode (default 5).
	Workers int `json:"workers" yaml:"workers"`

	// SkipText omits plain text from structured output.
	SkipText bool `json:"exclude_text" yaml:"exclude_text"`

	// RequestDelay is the pause after each remote fetch (default 340ms).
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay"`
}

// BatchConfig holds settings for the keyword-list driver.
type BatchConfig struct {
	// KeywordTimeout bounds each keyword run (default 10m).
	KeywordTimeout time.Duration `json:"keyword_timeout" yaml:"keyword_timeout"`

	// Pause is the delay between keywords (default 2s).
	Pause time.Duration `json:"pause" yaml:"pause"`

	// ResultsDir receives download_results_*.csv files.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`

	// DefaultMaxResults applies when a keyword has no expected-article range.
	DefaultMaxResults int `json:"default_max_results" yaml:"default_max_results"`

	// MaxResultsCap bounds the per-keyword maximum (default 100).
	MaxResultsCap int `json:"max_results_cap" yaml:"max_results_cap"`
}
