// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch drives the harvester over a keyword list: it orders keywords
// by priority, runs each under its own deadline, records the outcome in the
// ledger, and reports totals at the end.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/pmc-harvester/internal/harvest"
	"github.com/pdiddy/pmc-harvester/internal/httputil"
	"github.com/pdiddy/pmc-harvester/internal/ledger"
	"github.com/pdiddy/pmc-harvester/pkg/types"
)

const (
	DefaultKeywordTimeout = 10 * time.Minute
	DefaultPause          = 2 * time.Second
	DefaultMaxResults     = 50
	DefaultMaxResultsCap  = 100
)

// KeywordRunner runs one keyword. *harvest.Harvester satisfies it.
type KeywordRunner interface {
	Run(ctx context.Context, req harvest.Request) types.DownloadStats
}

// Recorder persists finished runs. *ledger.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, batchID string, stats types.DownloadStats) (ledger.Run, error)
}

// Result is the outcome of one keyword in a batch.
type Result struct {
	Keyword   Keyword
	Stats     types.DownloadStats
	Error     string
	Timestamp time.Time
}

// Articles returns the number of article files present for the keyword
// after the run, new or previously downloaded.
func (r Result) Articles() int {
	return r.Stats.Successful + r.Stats.Skipped
}

// Report is the outcome of a whole batch.
type Report struct {
	BatchID string
	Started time.Time
	Elapsed time.Duration
	Results []Result
}

// Runner processes keyword lists.
type Runner struct {
	Harvester KeywordRunner
	Ledger    Recorder // optional

	// Request carries the per-run settings shared by every keyword;
	// Keyword and MaxResults are filled in per row.
	Request harvest.Request
	Config  types.BatchConfig

	Out io.Writer
	Log *zap.Logger

	now func() time.Time
}

func (r *Runner) defaults() {
	if r.Config.KeywordTimeout <= 0 {
		r.Config.KeywordTimeout = DefaultKeywordTimeout
	}
	if r.Config.Pause < 0 {
		r.Config.Pause = 0
	}
	if r.Config.DefaultMaxResults <= 0 {
		r.Config.DefaultMaxResults = DefaultMaxResults
	}
	if r.Config.MaxResultsCap <= 0 {
		r.Config.MaxResultsCap = DefaultMaxResultsCap
	}
	if r.Out == nil {
		r.Out = io.Discard
	}
	if r.Log == nil {
		r.Log = zap.NewNop()
	}
	if r.now == nil {
		r.now = time.Now
	}
}

// Run processes kws in priority order. It stops early only when ctx is
// cancelled; a failing keyword is recorded and the batch continues.
func (r *Runner) Run(ctx context.Context, kws []Keyword) Report {
	r.defaults()

	ordered := make([]Keyword, len(kws))
	copy(ordered, kws)
	SortByPriority(ordered)

	report := Report{BatchID: ledger.NewBatchID(), Started: r.now()}
	log := r.Log.With(zap.String("batch_id", report.BatchID))

	for i, kw := range ordered {
		if i > 0 {
			if err := httputil.Wait(ctx, r.Config.Pause); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		res := r.runKeyword(ctx, kw, log)
		report.Results = append(report.Results, res)

		if r.Ledger != nil {
			if _, err := r.Ledger.Record(context.WithoutCancel(ctx), report.BatchID, res.Stats); err != nil {
				log.Warn("could not record run", zap.String("keyword", kw.Keyword), zap.Error(err))
			}
		}
	}

	report.Elapsed = r.now().Sub(report.Started)
	return report
}

func (r *Runner) runKeyword(ctx context.Context, kw Keyword, log *zap.Logger) Result {
	maxResults := MaxResults(kw.ExpectedArticles, r.Config.DefaultMaxResults, r.Config.MaxResultsCap)

	fmt.Fprintf(r.Out, "\n%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(r.Out, "Keyword: %s\n", kw.Keyword)
	fmt.Fprintf(r.Out, "Category: %s | Priority: %s\n", kw.Category, kw.Priority)
	fmt.Fprintf(r.Out, "Max results: %d\n", maxResults)
	fmt.Fprintf(r.Out, "%s\n", strings.Repeat("=", 80))

	req := r.Request
	req.Keyword = kw.Keyword
	req.MaxResults = maxResults

	kctx, cancel := context.WithTimeout(ctx, r.Config.KeywordTimeout)
	defer cancel()

	stats := r.Harvester.Run(kctx, req)
	res := Result{Keyword: kw, Stats: stats, Timestamp: r.now()}

	switch {
	case errors.Is(kctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.Error = fmt.Sprintf("timeout after %s", r.Config.KeywordTimeout)
		fmt.Fprintf(r.Out, "[FAIL] %s\n", res.Error)
	case stats.ExitCode() == types.ExitNoResults:
		res.Error = "no results found"
		fmt.Fprintln(r.Out, "[WARN] no results found for this keyword")
	case stats.ExitCode() != types.ExitOK:
		res.Error = fmt.Sprintf("errors during download (code %d)", stats.ExitCode())
		fmt.Fprintf(r.Out, "[FAIL] %s\n", res.Error)
	default:
		fmt.Fprintf(r.Out, "[OK] %d articles in %s\n", res.Articles(), stats.OutputDir)
	}

	log.Info("keyword finished",
		zap.String("keyword", kw.Keyword),
		zap.String("priority", kw.Priority),
		zap.Int("articles", res.Articles()),
		zap.String("error", res.Error))
	return res
}
