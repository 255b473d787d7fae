// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package article

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/pmc-harvester/pkg/types"
)

// NewRecord builds the structured record for a fetched document. The plain
// text field is left nil when skipText is set.
func NewRecord(id, raw string, skipText bool, now time.Time) types.ArticleRecord {
	rec := types.ArticleRecord{
		ID:           DisplayID(id),
		Source:       types.SourceLabel,
		DownloadDate: now,
		Metadata:     Extract(raw),
		RawDocument:  raw,
	}
	if !skipText {
		text := PlainText(raw)
		rec.PlainText = &text
	}
	return rec
}

// Render produces the file contents for a fetched document in the requested
// format. For structured output the extracted metadata is returned too so the
// caller can check its quality; it is nil for the other formats.
func Render(id string, raw []byte, opts types.FetchOptions, now time.Time) ([]byte, *types.Metadata, error) {
	switch opts.Format {
	case types.FormatXML:
		return raw, nil, nil
	case types.FormatText:
		return []byte(PlainText(string(raw))), nil, nil
	case types.FormatJSON:
		rec := NewRecord(id, string(raw), opts.SkipText, now)
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rec); err != nil {
			return nil, nil, fmt.Errorf("encoding record: %w", err)
		}
		return buf.Bytes(), &rec.Metadata, nil
	default:
		return nil, nil, fmt.Errorf("unknown output format %q", opts.Format)
	}
}

// WriteFile creates the parent directory if needed and writes data through a
// temporary file renamed into place, so an interrupted write never leaves a
// partial file at path.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".harvest-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Exists reports whether a file is already present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
