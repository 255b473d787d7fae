// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"time"
)

// Exit codes reported for a single keyword run.
const (
	ExitOK        = 0
	ExitNoResults = 1
	ExitFailed    = 2
)

// DownloadStats summarizes one keyword run. Every requested identifier
// resolves to exactly one of Successful, Skipped, Unavailable, or Errors.
type DownloadStats struct {
	Keyword     string        `json:"keyword" yaml:"keyword"`
	TotalFound  int           `json:"total_found" yaml:"total_found"`
	Requested   int           `json:"requested" yaml:"requested"`
	Successful  int           `json:"successful" yaml:"successful"`
	Skipped     int           `json:"skipped" yaml:"skipped"`
	Unavailable int           `json:"unavailable" yaml:"unavailable"`
	Errors      int           `json:"errors" yaml:"errors"`
	Duration    time.Duration `json:"-" yaml:"-"`
	OutputDir   string        `json:"output_location" yaml:"output_location"`
}

// Failed returns the number of identifiers that did not produce a file.
func (s DownloadStats) Failed() int {
	return s.Unavailable + s.Errors
}

// DurationSeconds returns the run duration in seconds.
func (s DownloadStats) DurationSeconds() float64 {
	return s.Duration.Seconds()
}

// SuccessRate returns successful downloads as a percentage of requested.
func (s DownloadStats) SuccessRate() float64 {
	if s.Requested == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.Requested) * 100
}

// ExitCode maps the run outcome to a process exit status: new downloads and
// idempotent re-runs are OK, an empty search is ExitNoResults, and anything
// else means every attempted download failed.
func (s DownloadStats) ExitCode() int {
	switch {
	case s.Successful > 0:
		return ExitOK
	case s.Skipped > 0 && s.Errors == 0:
		return ExitOK
	case s.Requested == 0:
		return ExitNoResults
	default:
		return ExitFailed
	}
}

// statsRecord is the serialized form of DownloadStats. It adds the derived
// failed count and the duration in seconds.
type statsRecord struct {
	plainStats      `yaml:",inline"`
	Failed          int     `json:"failed" yaml:"failed"`
	DurationSeconds float64 `json:"duration_seconds" yaml:"duration_seconds"`
}

type plainStats DownloadStats

func (s DownloadStats) record() statsRecord {
	return statsRecord{
		plainStats:      plainStats(s),
		Failed:          s.Failed(),
		DurationSeconds: s.DurationSeconds(),
	}
}

// MarshalJSON includes failed and duration_seconds alongside the counters.
func (s DownloadStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.record())
}

// MarshalYAML includes failed and duration_seconds alongside the counters.
func (s DownloadStats) MarshalYAML() (any, error) {
	return s.record(), nil
}
