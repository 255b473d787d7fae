// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the pmc-harvester pipeline:
// article records persisted to disk, per-keyword download statistics, and the
// configuration passed between the CLI and the harvesting stages.
package types

import (
	"fmt"
	"time"
)

// DisplayPrefix is prepended to numeric PMC identifiers for filenames and
// display. The remote fetch endpoint expects the bare numeric form.
const DisplayPrefix = "PMC"

// SourceLabel identifies the repository recorded in every ArticleRecord.
const SourceLabel = "PMC"

// OutputFormat selects how a fetched article is persisted.
type OutputFormat string

const (
	FormatXML  OutputFormat = "xml"
	FormatJSON OutputFormat = "json"
	FormatText OutputFormat = "txt"
)

// Extension returns the filename extension for the format, including the dot.
func (f OutputFormat) Extension() string {
	switch f {
	case FormatXML:
		return ".xml"
	case FormatText:
		return ".txt"
	default:
		return ".json"
	}
}

// ParseOutputFormat validates a user-supplied format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatXML, FormatJSON, FormatText:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q: want json, xml, or txt", s)
}

// FetchStatus is the terminal outcome of fetching one article.
type FetchStatus string

const (
	StatusSuccess     FetchStatus = "success"
	StatusExists      FetchStatus = "exists"
	StatusUnavailable FetchStatus = "unavailable"
	StatusError       FetchStatus = "error"
)

// FetchOptions controls how a fetched article is written.
type FetchOptions struct {
	Format OutputFormat

	// SkipText omits the plain_text field from structured output.
	SkipText bool
}

// PubDate is the nested publication date kept alongside the flat fields.
type PubDate struct {
	Year  string `json:"year"`
	Month string `json:"month,omitempty"`
	Day   string `json:"day,omitempty"`
}

// Metadata holds bibliographic fields extracted from a JATS article. Every
// field is optional and omitted from JSON when the source lacks it.
type Metadata struct {
	Title            string   `json:"title,omitempty"`
	Journal          string   `json:"journal,omitempty"`
	JournalTitle     string   `json:"journal_title,omitempty"`
	JournalNLMTA     string   `json:"journal_nlm_ta,omitempty"`
	JournalISOAbbrev string   `json:"journal_iso_abbrev,omitempty"`
	PMID             string   `json:"pmid,omitempty"`
	PMCID            string   `json:"pmcid,omitempty"`
	DOI              string   `json:"doi,omitempty"`
	Year             string   `json:"year,omitempty"`
	Month            string   `json:"month,omitempty"`
	Day              string   `json:"day,omitempty"`
	PubDate          *PubDate `json:"pub_date,omitempty"`
	Authors          []string `json:"authors,omitempty"`
	Abstract         string   `json:"abstract,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
}

// IsEmpty reports whether no field was extracted.
func (m Metadata) IsEmpty() bool {
	return m.Title == "" && m.Journal == "" && m.JournalTitle == "" &&
		m.JournalNLMTA == "" && m.JournalISOAbbrev == "" &&
		m.PMID == "" && m.PMCID == "" && m.DOI == "" &&
		m.Year == "" && m.Month == "" && m.Day == "" && m.PubDate == nil &&
		len(m.Authors) == 0 && m.Abstract == "" && len(m.Keywords) == 0
}

// Identifiable reports whether the metadata carries a title or a PMCID.
func (m Metadata) Identifiable() bool {
	return m.Title != "" || m.PMCID != ""
}

// ArticleRecord is the structured on-disk form of a fetched article. Field
// order here is the serialized field order.
type ArticleRecord struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	DownloadDate time.Time `json:"download_date"`
	Metadata     Metadata  `json:"metadata"`
	RawDocument  string    `json:"raw_document"`
	PlainText    *string   `json:"plain_text,omitempty"`
}
