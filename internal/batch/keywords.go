// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Keyword is one row of a keyword list.
type Keyword struct {
	Keyword          string `yaml:"keyword"`
	Category         string `yaml:"category,omitempty"`
	Priority         string `yaml:"priority,omitempty"`
	ExpectedArticles string `yaml:"expected_articles,omitempty"`
}

// keywordFile is the YAML form of a keyword list.
type keywordFile struct {
	Keywords []Keyword `yaml:"keywords"`
}

// CSV header names, matched case-insensitively.
const (
	colKeyword  = "keyword"
	colCategory = "category"
	colPriority = "priority"
	colExpected = "expected_articles"
)

// LoadKeywords reads a keyword list from path. Files ending in .yaml or .yml
// are parsed as YAML; anything else as CSV with a header row. Rows without a
// keyword are dropped.
func LoadKeywords(path string) ([]Keyword, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening keyword list: %w", err)
	}
	defer f.Close()

	var kws []Keyword
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		kws, err = parseYAML(f)
	default:
		kws, err = parseCSV(f)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing keyword list %s: %w", path, err)
	}
	return kws, nil
}

func parseYAML(r io.Reader) ([]Keyword, error) {
	var kf keywordFile
	if err := yaml.NewDecoder(r).Decode(&kf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	var out []Keyword
	for _, k := range kf.Keywords {
		k.Keyword = strings.TrimSpace(k.Keyword)
		if k.Keyword != "" {
			out = append(out, k)
		}
	}
	return out, nil
}

func parseCSV(r io.Reader) ([]Keyword, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header row")
		}
		return nil, err
	}
	cols := map[string]int{}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		cols[name] = i
	}
	if _, ok := cols[colKeyword]; !ok {
		return nil, fmt.Errorf("missing %q column", "Keyword")
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []Keyword
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		k := Keyword{
			Keyword:          field(rec, colKeyword),
			Category:         field(rec, colCategory),
			Priority:         field(rec, colPriority),
			ExpectedArticles: field(rec, colExpected),
		}
		if k.Keyword != "" {
			out = append(out, k)
		}
	}
	return out, nil
}

// Priorities in processing order.
var Priorities = []string{"Critical", "High", "Medium", "Low"}

func priorityRank(p string) int {
	for i, name := range Priorities {
		if strings.EqualFold(p, name) {
			return i
		}
	}
	return len(Priorities)
}

// SortByPriority orders kws Critical, High, Medium, Low, then anything else,
// keeping file order within a priority.
func SortByPriority(kws []Keyword) {
	sort.SliceStable(kws, func(i, j int) bool {
		return priorityRank(kws[i].Priority) < priorityRank(kws[j].Priority)
	})
}

// MaxResults derives the per-keyword result cap from an expected-article
// range such as "20-80": the upper bound is used, def applies when there is
// no usable range, and the result never exceeds limit.
func MaxResults(expected string, def, limit int) int {
	n := def
	if _, upper, ok := strings.Cut(expected, "-"); ok {
		if v, err := strconv.Atoi(strings.TrimSpace(upper)); err == nil && v > 0 {
			n = v
		}
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

// Estimate returns the approximate article count for kws and a rough
// duration range in minutes, two to five per keyword.
func Estimate(kws []Keyword, def, limit int) (articles, minMinutes, maxMinutes int) {
	for _, k := range kws {
		articles += MaxResults(k.ExpectedArticles, def, limit)
	}
	return articles, len(kws) * 2, len(kws) * 5
}

// CountBy tallies kws by the value key returns, for distribution listings.
func CountBy(kws []Keyword, key func(Keyword) string) map[string]int {
	counts := map[string]int{}
	for _, k := range kws {
		counts[key(k)]++
	}
	return counts
}
