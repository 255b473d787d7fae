// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pmc-harvester/internal/article"
	"github.com/pdiddy/pmc-harvester/pkg/types"
)

const resultsTimeFmt = "20060102_150405"

var csvHeader = []string{
	"keyword", "category", "priority", "total_found", "requested", "successful",
	"failed", "skipped", "unavailable", "errors", "duration_seconds", "output_location",
	"articles", "error", "timestamp",
}

// ResultsPath returns the results file path in dir for a batch started at
// started, with the given extension.
func ResultsPath(dir string, started time.Time, ext string) string {
	return filepath.Join(dir, "download_results_"+started.Format(resultsTimeFmt)+ext)
}

// WriteCSV writes one row per keyword to download_results_<timestamp>.csv in
// dir and returns the path.
func WriteCSV(dir string, rep Report) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, r := range rep.Results {
		s := r.Stats
		row := []string{
			r.Keyword.Keyword, r.Keyword.Category, r.Keyword.Priority,
			strconv.Itoa(s.TotalFound), strconv.Itoa(s.Requested), strconv.Itoa(s.Successful),
			strconv.Itoa(s.Failed()), strconv.Itoa(s.Skipped), strconv.Itoa(s.Unavailable),
			strconv.Itoa(s.Errors), strconv.FormatFloat(s.DurationSeconds(), 'f', 2, 64),
			s.OutputDir, strconv.Itoa(r.Articles()), r.Error,
			r.Timestamp.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}

	path := ResultsPath(dir, rep.Started, ".csv")
	if err := article.WriteFile(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("writing results: %w", err)
	}
	return path, nil
}

// yamlReport is the YAML form of a batch report.
type yamlReport struct {
	BatchID        string       `yaml:"batch_id"`
	Started        time.Time    `yaml:"started"`
	ElapsedSeconds float64      `yaml:"elapsed_seconds"`
	Keywords       []yamlResult `yaml:"keywords"`
}

type yamlResult struct {
	Keyword   Keyword             `yaml:",inline"`
	Stats     types.DownloadStats `yaml:"stats"`
	Error     string              `yaml:"error,omitempty"`
	Timestamp time.Time           `yaml:"timestamp"`
}

// WriteYAML writes the full report next to the CSV and returns the path.
func WriteYAML(dir string, rep Report) (string, error) {
	out := yamlReport{
		BatchID:        rep.BatchID,
		Started:        rep.Started,
		ElapsedSeconds: rep.Elapsed.Seconds(),
	}
	for _, r := range rep.Results {
		out.Keywords = append(out.Keywords, yamlResult{
			Keyword:   r.Keyword,
			Stats:     r.Stats,
			Error:     r.Error,
			Timestamp: r.Timestamp,
		})
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}
	path := ResultsPath(dir, rep.Started, ".yaml")
	if err := article.WriteFile(path, data); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// PriorityTotals aggregates results for one priority level.
type PriorityTotals struct {
	Priority  string
	Keywords  int
	Articles  int
	Requested int
}

// ByPriority aggregates results per priority in processing order.
func ByPriority(results []Result) []PriorityTotals {
	idx := map[string]int{}
	var out []PriorityTotals
	for _, r := range results {
		p := r.Keyword.Priority
		i, ok := idx[p]
		if !ok {
			i = len(out)
			idx[p] = i
			out = append(out, PriorityTotals{Priority: p})
		}
		out[i].Keywords++
		out[i].Articles += r.Articles()
		out[i].Requested += r.Stats.Requested
	}
	sort.SliceStable(out, func(i, j int) bool {
		return priorityRank(out[i].Priority) < priorityRank(out[j].Priority)
	})
	return out
}

// TopKeywords returns up to n results with the most articles, ties in
// processing order.
func TopKeywords(results []Result, n int) []Result {
	top := make([]Result, len(results))
	copy(top, results)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Articles() > top[j].Articles()
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}

// PrintSummary writes the end-of-batch report to w.
func PrintSummary(w io.Writer, rep Report, resultsPath string) {
	var articles, requested int
	var failed []Result
	for _, r := range rep.Results {
		articles += r.Articles()
		requested += r.Stats.Requested
		if r.Error != "" {
			failed = append(failed, r)
		}
	}
	rule := strings.Repeat("=", 80)

	fmt.Fprintf(w, "\n%s\nDOWNLOAD COMPLETE\n%s\n", rule, rule)
	fmt.Fprintf(w, "Total time: %.1f minutes\n", rep.Elapsed.Minutes())
	fmt.Fprintf(w, "Keywords processed: %d\n", len(rep.Results))
	fmt.Fprintf(w, "Articles on disk: %d\n", articles)
	fmt.Fprintf(w, "Articles requested: %d\n", requested)
	rate := 0.0
	if requested > 0 {
		rate = float64(articles) / float64(requested) * 100
	}
	fmt.Fprintf(w, "Success rate: %.1f%%\n", rate)

	fmt.Fprintf(w, "\nFailed keywords: %d\n", len(failed))
	for _, r := range failed {
		fmt.Fprintf(w, "  - %s: %s\n", r.Keyword.Keyword, r.Error)
	}
	if resultsPath != "" {
		fmt.Fprintf(w, "\nResults saved to: %s\n", resultsPath)
	}

	fmt.Fprintf(w, "\n%s\nDOWNLOADS BY PRIORITY LEVEL\n%s\n", rule, rule)
	fmt.Fprintf(w, "%-10s %8s %10s %10s\n", "priority", "keywords", "articles", "requested")
	for _, p := range ByPriority(rep.Results) {
		fmt.Fprintf(w, "%-10s %8d %10d %10d\n", p.Priority, p.Keywords, p.Articles, p.Requested)
	}

	fmt.Fprintf(w, "\n%s\nTOP 10 MOST SUCCESSFUL KEYWORDS\n%s\n", rule, rule)
	for _, r := range TopKeywords(rep.Results, 10) {
		kw := r.Keyword.Keyword
		if len(kw) > 60 {
			kw = kw[:60]
		}
		fmt.Fprintf(w, "  [%-8s] %-60s (%d articles)\n", r.Keyword.Priority, kw, r.Articles())
	}
}
