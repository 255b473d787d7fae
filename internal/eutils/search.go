// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package eutils

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/pdiddy/pmc-harvester/internal/httputil"
	"github.com/pdiddy/pmc-harvester/pkg/types"
)

// errMalformed marks responses that arrived but could not be understood.
var errMalformed = errors.New("malformed response")

// Search queries esearch for PMC articles matching term and returns at most
// maxResults identifiers in relevance order together with the total match
// count. Transport failures, non-2xx statuses, and malformed or incomplete
// bodies are retried with linear backoff. After MaxAttempts failures Search
// returns an empty result and the last error; callers treat that as "nothing
// found", never as fatal.
func (c *Client) Search(ctx context.Context, term string, maxResults int) (types.SearchResult, error) {
	params := c.baseParams()
	params.Set("term", term)
	params.Set("retmax", strconv.Itoa(maxResults))
	params.Set("retmode", "json")
	reqURL := eutilsBase + "/esearch.fcgi?" + params.Encode()

	c.Log.Info("searching PMC", zap.String("term", term), zap.Int("max_results", maxResults))

	backoff := httputil.Linear(c.cfg.RetryDelay)
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		res, err := c.searchOnce(ctx, reqURL, maxResults)
		if err == nil {
			c.Log.Info("search complete",
				zap.String("term", term),
				zap.Int("found", len(res.IDs)),
				zap.Int("total_available", res.TotalAvailable))
			return res, nil
		}
		lastErr = err
		c.Log.Warn("search attempt failed",
			zap.String("term", term),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", MaxAttempts),
			zap.Error(err))

		if attempt < MaxAttempts {
			if werr := httputil.Wait(ctx, backoff(attempt)); werr != nil {
				lastErr = werr
				break
			}
		}
	}

	c.Log.Error("all search attempts failed", zap.String("term", term), zap.Error(lastErr))
	return types.SearchResult{}, fmt.Errorf("searching PMC for %q: %w", term, lastErr)
}

// searchOnce performs a single esearch request and validates the body.
func (c *Client) searchOnce(ctx context.Context, reqURL string, maxResults int) (types.SearchResult, error) {
	resp, err := httputil.Get(ctx, c.HTTP, c.Limiter, reqURL, c.cfg.UserAgent)
	if err != nil {
		return types.SearchResult{}, err
	}
	if !resp.OK() {
		return types.SearchResult{}, fmt.Errorf("esearch returned HTTP %d", resp.StatusCode)
	}
	return parseSearch(resp.Body, maxResults)
}

// parseSearch extracts the identifier list and match count from an esearch
// JSON body. The esearchresult object and its idlist are required.
func parseSearch(body []byte, maxResults int) (types.SearchResult, error) {
	if !gjson.ValidBytes(body) {
		return types.SearchResult{}, fmt.Errorf("esearch: %w: invalid JSON", errMalformed)
	}

	result := gjson.GetBytes(body, "esearchresult")
	if !result.Exists() {
		return types.SearchResult{}, fmt.Errorf("esearch: %w: missing esearchresult", errMalformed)
	}
	if msg := result.Get("ERROR"); msg.Exists() {
		return types.SearchResult{}, fmt.Errorf("esearch error: %s", msg.String())
	}

	idList := result.Get("idlist")
	if !idList.IsArray() {
		return types.SearchResult{}, fmt.Errorf("esearch: %w: missing idlist", errMalformed)
	}

	var ids []string
	for _, v := range idList.Array() {
		if id := v.String(); id != "" {
			ids = append(ids, id)
		}
	}
	if maxResults > 0 && len(ids) > maxResults {
		ids = ids[:maxResults]
	}

	total := len(ids)
	if count := result.Get("count"); count.Exists() {
		n, err := strconv.Atoi(count.String())
		if err != nil {
			return types.SearchResult{}, fmt.Errorf("esearch: %w: count %q", errMalformed, count.String())
		}
		total = n
	}

	return types.SearchResult{IDs: ids, TotalAvailable: total}, nil
}
