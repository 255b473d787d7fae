// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest turns a keyword into a directory of downloaded articles.
// A run searches once, then fetches each identifier either in search order or
// through a bounded worker pool, and tallies every identifier into exactly one
// terminal outcome.
package harvest

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/pmc-harvester/internal/httputil"
	"github.com/pdiddy/pmc-harvester/pkg/types"
)

const (
	DefaultWorkers      = 5
	DefaultMaxResults   = 100
	DefaultRequestDelay = 340 * time.Millisecond

	concurrentProgressEvery = 10
	sequentialProgressEvery = 5
)

// Searcher resolves a keyword to PMC identifiers.
type Searcher interface {
	Search(ctx context.Context, term string, maxResults int) (types.SearchResult, error)
}

// Fetcher downloads one article into dir.
type Fetcher interface {
	Fetch(ctx context.Context, id, dir string, opts types.FetchOptions) (types.FetchStatus, error)
}

// Harvester coordinates a search with the fetches it produces.
type Harvester struct {
	Searcher Searcher
	Fetcher  Fetcher
	Log      *zap.Logger

	// Out receives progress lines, one writer call at a time. Nil discards them.
	Out io.Writer

	// OutputDir is the base directory; each keyword gets Slug(keyword) below it.
	OutputDir string

	// RequestDelay is the pause after each fetch that reached the network.
	RequestDelay time.Duration
}

// Request describes one keyword run.
type Request struct {
	Keyword    string
	MaxResults int
	Format     types.OutputFormat
	Sequential bool
	Workers    int
	SkipText   bool
}

// tally accumulates outcomes from concurrent workers and reports progress
// every `every` completions. Progress lines are written under the lock, so out
// need not be safe for concurrent use.
type tally struct {
	mu    sync.Mutex
	stats *types.DownloadStats
	done  int
	total int
	every int
	out   io.Writer
}

func (t *tally) add(status types.FetchStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch status {
	case types.StatusSuccess:
		t.stats.Successful++
	case types.StatusExists:
		t.stats.Skipped++
	case types.StatusUnavailable:
		t.stats.Unavailable++
	default:
		t.stats.Errors++
	}
	t.done++
	if t.every > 0 && t.done%t.every == 0 {
		fmt.Fprintf(t.out, "progress: %d/%d\n", t.done, t.total)
	}
}

// Run searches for req.Keyword and fetches every identifier found. It never
// fails: search faults yield an empty run and fetch faults, including panics
// inside a fetch, are counted as errors.
func (h *Harvester) Run(ctx context.Context, req Request) types.DownloadStats {
	start := time.Now()
	log := h.logger().With(zap.String("keyword", req.Keyword))
	out := h.Out
	if out == nil {
		out = io.Discard
	}

	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}
	if req.Workers <= 0 {
		req.Workers = DefaultWorkers
	}
	if req.Format == "" {
		req.Format = types.FormatJSON
	}

	stats := types.DownloadStats{Keyword: req.Keyword, OutputDir: h.OutputDir}

	res, err := h.Searcher.Search(ctx, req.Keyword, req.MaxResults)
	if err != nil {
		log.Warn("search failed, nothing to download", zap.Error(err))
	}
	stats.TotalFound = res.TotalAvailable
	if len(res.IDs) == 0 {
		fmt.Fprintf(out, "no articles found for %q\n", req.Keyword)
		stats.Duration = time.Since(start)
		return stats
	}

	dir := filepath.Join(h.OutputDir, Slug(req.Keyword))
	stats.OutputDir = dir
	stats.Requested = len(res.IDs)
	fmt.Fprintf(out, "found %d articles (%d available), downloading to %s\n",
		len(res.IDs), res.TotalAvailable, dir)

	opts := types.FetchOptions{Format: req.Format, SkipText: req.SkipText}
	t := &tally{stats: &stats, total: len(res.IDs), out: out}

	if req.Sequential || len(res.IDs) == 1 {
		t.every = sequentialProgressEvery
		h.runSequential(ctx, res.IDs, dir, opts, t, log)
	} else {
		t.every = concurrentProgressEvery
		h.runConcurrent(ctx, res.IDs, dir, opts, req.Workers, t, log)
	}

	stats.Duration = time.Since(start)
	log.Info("keyword complete",
		zap.Int("requested", stats.Requested),
		zap.Int("successful", stats.Successful),
		zap.Int("skipped", stats.Skipped),
		zap.Int("unavailable", stats.Unavailable),
		zap.Int("errors", stats.Errors),
		zap.Duration("duration", stats.Duration))
	return stats
}

func (h *Harvester) runSequential(ctx context.Context, ids []string, dir string, opts types.FetchOptions, t *tally, log *zap.Logger) {
	for _, id := range ids {
		status := h.fetchOne(ctx, id, dir, opts, log)
		t.add(status)
		h.pause(ctx, status)
	}
}

// runConcurrent runs at most workers fetches at once. Each task holds its
// slot through its own request delay.
func (h *Harvester) runConcurrent(ctx context.Context, ids []string, dir string, opts types.FetchOptions, workers int, t *tally, log *zap.Logger) {
	// Tasks never return errors, so the group's context is never cancelled
	// by a sibling failure.
	var g errgroup.Group
	g.SetLimit(workers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			status := h.fetchOne(ctx, id, dir, opts, log)
			t.add(status)
			h.pause(ctx, status)
			return nil
		})
	}
	_ = g.Wait()
}

// fetchOne runs a single fetch and converts a panic into StatusError.
func (h *Harvester) fetchOne(ctx context.Context, id, dir string, opts types.FetchOptions, log *zap.Logger) (status types.FetchStatus) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("fetch panicked", zap.String("id", id), zap.Any("panic", r))
			status = types.StatusError
		}
	}()

	status, err := h.Fetcher.Fetch(ctx, id, dir, opts)
	if err != nil {
		log.Warn("fetch failed", zap.String("id", id), zap.Error(err))
	}
	if status == "" {
		status = types.StatusError
	}
	return status
}

// pause applies the inter-request delay after fetches that reached the
// network. Files skipped as already present cost no request.
func (h *Harvester) pause(ctx context.Context, status types.FetchStatus) {
	if status == types.StatusExists || h.RequestDelay <= 0 {
		return
	}
	_ = httputil.Wait(ctx, h.RequestDelay)
}

func (h *Harvester) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// FormatSummary writes the end-of-run summary block for stats to w.
func FormatSummary(w io.Writer, stats types.DownloadStats) {
	fmt.Fprintf(w, "\nDownload summary for %q\n", stats.Keyword)
	fmt.Fprintf(w, "  total found:  %d\n", stats.TotalFound)
	fmt.Fprintf(w, "  requested:    %d\n", stats.Requested)
	fmt.Fprintf(w, "  successful:   %d\n", stats.Successful)
	fmt.Fprintf(w, "  skipped:      %d\n", stats.Skipped)
	fmt.Fprintf(w, "  failed:       %d (unavailable %d, errors %d)\n",
		stats.Failed(), stats.Unavailable, stats.Errors)
	fmt.Fprintf(w, "  success rate: %.1f%%\n", stats.SuccessRate())
	fmt.Fprintf(w, "  duration:     %.1fs\n", stats.DurationSeconds())
	fmt.Fprintf(w, "  output:       %s\n", stats.OutputDir)
}
