// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package eutils talks to the NCBI E-utilities service: esearch resolves a
// keyword to PMC identifiers and efetch retrieves full-text JATS documents.
// Every remote fault is retried within a fixed budget and then resolved to a
// terminal outcome; nothing here panics or aborts the caller.
package eutils

import (
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/pmc-harvester/internal/httputil"
	"github.com/pdiddy/pmc-harvester/pkg/types"
)

// eutilsBase is the E-utilities endpoint root. Declared as a var so tests
// can substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

const (
	// MaxAttempts is the retry budget for every search and fetch.
	MaxAttempts = 3

	DefaultRetryDelay = 2 * time.Second
	DefaultTimeout    = 60 * time.Second
	DefaultUserAgent  = "pmc-harvester/0.1"
	DefaultTool       = "pmc-harvester"

	// NCBI allows 3 requests/second without an API key and 10 with one.
	anonymousRPS = 3
	keyedRPS     = 10

	database = "pmc"
)

// Client issues esearch and efetch requests against PMC.
type Client struct {
	HTTP    *http.Client
	Limiter *rate.Limiter
	Log     *zap.Logger

	cfg types.EutilsConfig
	now func() time.Time
}

// NewClient builds a Client from cfg, filling defaults for the timeout,
// retry delay, User-Agent, tool name, and request-rate ceiling.
func NewClient(cfg types.EutilsConfig, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Tool == "" {
		cfg.Tool = DefaultTool
	}
	rps := cfg.RequestsPerSecond
	if rps == 0 {
		rps = anonymousRPS
		if cfg.APIKey != "" {
			rps = keyedRPS
		}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		HTTP:    &http.Client{Timeout: cfg.Timeout},
		Limiter: httputil.NewLimiter(rps),
		Log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
}

// baseParams returns the query parameters sent with every request.
func (c *Client) baseParams() url.Values {
	params := url.Values{"db": {database}}
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}
	if c.cfg.Tool != "" {
		params.Set("tool", c.cfg.Tool)
	}
	if c.cfg.Email != "" {
		params.Set("email", c.cfg.Email)
	}
	return params
}
