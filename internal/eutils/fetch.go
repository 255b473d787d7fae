// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package eutils

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/pmc-harvester/internal/article"
	"github.com/pdiddy/pmc-harvester/internal/httputil"
	"github.com/pdiddy/pmc-harvester/pkg/types"
)

// articleSetProbe decodes just enough of an efetch body to find the error
// marker PMC returns for articles without full text:
//
//	<pmc-articleset><error id="123">...</error></pmc-articleset>
type articleSetProbe struct {
	XMLName xml.Name
	Error   *struct {
		Text string `xml:",chardata"`
	} `xml:"error"`
}

// unavailableReason parses body and reports whether it carries the
// not-available marker. A non-nil error means the body is not well-formed.
func unavailableReason(body []byte) (reason string, unavailable bool, err error) {
	var probe articleSetProbe
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Entity = xml.HTMLEntity
	if err := dec.Decode(&probe); err != nil {
		return "", false, fmt.Errorf("efetch: %w: %v", errMalformed, err)
	}
	if probe.XMLName.Local == "pmc-articleset" && probe.Error != nil {
		return strings.TrimSpace(probe.Error.Text), true, nil
	}
	return "", false, nil
}

// Fetch retrieves one article and writes it into dir in opts.Format.
//
// If the output file already exists Fetch returns StatusExists without any
// network call. A well-formed response carrying PMC's not-available marker
// returns StatusUnavailable immediately and is never retried. Transport
// failures, non-2xx statuses, and malformed bodies are retried up to
// MaxAttempts and then reported as StatusError. The returned error is non-nil
// only for StatusError and describes the cause.
func (c *Client) Fetch(ctx context.Context, id, dir string, opts types.FetchOptions) (types.FetchStatus, error) {
	numeric := article.NumericID(id)
	display := article.DisplayID(numeric)
	path := article.OutputPath(dir, numeric, opts.Format)
	log := c.Log.With(zap.String("pmcid", display))

	if article.Exists(path) {
		log.Debug("already exists, skipping", zap.String("file", filepath.Base(path)))
		return types.StatusExists, nil
	}

	params := c.baseParams()
	params.Set("id", numeric)
	params.Set("rettype", "full")
	params.Set("retmode", "xml")
	reqURL := eutilsBase + "/efetch.fcgi?" + params.Encode()

	transportBackoff := httputil.Linear(c.cfg.RetryDelay)
	responseBackoff := httputil.Constant(c.cfg.RetryDelay)

	var lastErr error
	var wait time.Duration
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := httputil.Wait(ctx, wait); err != nil {
				return types.StatusError, fmt.Errorf("fetching %s: %w", display, err)
			}
		}
		log.Debug("downloading", zap.Int("attempt", attempt), zap.Int("max_attempts", MaxAttempts))

		resp, err := httputil.Get(ctx, c.HTTP, c.Limiter, reqURL, c.cfg.UserAgent)
		if err != nil {
			lastErr = err
			wait = transportBackoff(attempt)
			log.Warn("download attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if !resp.OK() {
			lastErr = fmt.Errorf("efetch returned HTTP %d", resp.StatusCode)
			wait = responseBackoff(attempt)
			log.Warn("fetch failed", zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt))
			continue
		}

		reason, unavailable, err := unavailableReason(resp.Body)
		if err != nil {
			lastErr = err
			wait = responseBackoff(attempt)
			log.Warn("malformed XML", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if unavailable {
			log.Info("not available in PMC", zap.String("reason", reason))
			return types.StatusUnavailable, nil
		}

		if err := c.save(path, numeric, resp.Body, opts, log); err != nil {
			log.Error("failed to write article", zap.String("file", path), zap.Error(err))
			return types.StatusError, err
		}
		log.Info("saved", zap.String("file", filepath.Base(path)))
		return types.StatusSuccess, nil
	}

	return types.StatusError, fmt.Errorf("fetching %s after %d attempts: %w", display, MaxAttempts, lastErr)
}

// save renders body in the requested format and writes it to path. A
// structured record lacking both a title and a PMCID is still written.
func (c *Client) save(path, id string, body []byte, opts types.FetchOptions, log *zap.Logger) error {
	data, md, err := article.Render(id, body, opts, c.now())
	if err != nil {
		return err
	}
	if md != nil && !md.Identifiable() {
		log.Warn("extracted metadata is empty or invalid")
	}
	return article.WriteFile(path, data)
}
