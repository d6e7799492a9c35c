// Package taxon resolves scientific names against the WoRMS taxonomic
// authority. Names are looked up in batches with bounded concurrency, a
// fixed pause after each batch, an explicit retry policy, and a bounded
// cache of successful classifications.
package taxon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/dwcheck/internal/core"
)

// ErrBatchFailed wraps the cause of a batch that could not be classified.
var ErrBatchFailed = errors.New("taxonomy batch failed")

// Defaults for Config.
const (
	DefaultBatchSize   = 50
	DefaultConcurrency = 2
	DefaultPause       = 500 * time.Millisecond
	DefaultTimeout     = 60 * time.Second
)

// Config controls how the client talks to the authority.
type Config struct {
	BaseURL     string
	BatchSize   int
	Concurrency int           // batches in flight
	Pause       time.Duration // held after every batch but the last
	Timeout     time.Duration // per attempt
	MarineOnly  bool
}

// DefaultConfig returns the settings used against the public WoRMS service.
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		BatchSize:   DefaultBatchSize,
		Concurrency: DefaultConcurrency,
		Pause:       DefaultPause,
		Timeout:     DefaultTimeout,
		MarineOnly:  true,
	}
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.Pause < 0 {
		c.Pause = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

var _ core.TaxonResolver = (*Client)(nil)

// Client classifies names. It is safe for concurrent use; the cache is
// shared by every Lookup on the same client.
type Client struct {
	cfg    Config
	http   *http.Client
	retry  RetryPolicy
	cache  Cache
	logger *slog.Logger
	sleep  SleepFunc

	requests atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client. Per-attempt timeouts come from
// Config.Timeout, so the client's own Timeout may be left zero.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) { c.retry = p }
}

// WithCache injects the memoization cache.
func WithCache(cache Cache) ClientOption {
	return func(c *Client) { c.cache = cache }
}

// WithLogger sets the logger for batch progress.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithSleeper replaces the function used for backoff and the pause.
func WithSleeper(s SleepFunc) ClientOption {
	return func(c *Client) { c.sleep = s }
}

// NewClient creates a client. Zero Config fields take their defaults.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	c := &Client{
		cfg:    cfg.withDefaults(),
		http:   http.DefaultClient,
		retry:  DefaultRetryPolicy(),
		logger: slog.Default(),
		sleep:  Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewLRUCache(DefaultCacheSize)
	}
	return c
}

// Requests returns the number of HTTP requests issued so far, retries included.
func (c *Client) Requests() int64 {
	return c.requests.Load()
}

// Cache returns the client's memoization cache.
func (c *Client) Cache() Cache {
	return c.cache
}

// batchOutcome is what one batch produced. Outcomes are merged into the
// result map after every batch has finished.
type batchOutcome struct {
	names   []string
	results []core.TaxonResult
	err     error
}

// Lookup classifies every distinct non-empty name. Cached names are not
// re-queried. A batch that fails is reported as one taxonomy_degraded
// finding and its names come back as degraded not_found results; other
// batches are unaffected.
func (c *Client) Lookup(ctx context.Context, names []string) (map[string]core.TaxonResult, []core.Finding) {
	results := make(map[string]core.TaxonResult, len(names))
	pending := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))

	for _, n := range names {
		if strings.TrimSpace(n) == "" || seen[n] {
			continue
		}
		seen[n] = true
		if r, ok := c.cache.Get(n); ok {
			results[n] = r
			continue
		}
		pending = append(pending, n)
	}

	batches := chunk(pending, c.cfg.BatchSize)
	c.logger.Debug("taxonomy lookup",
		"names", len(seen),
		"cached", len(seen)-len(pending),
		"batches", len(batches),
	)
	if len(batches) == 0 {
		return results, nil
	}

	outcomes := make([]batchOutcome, len(batches))

	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			res, err := c.lookupBatch(ctx, batch)
			outcomes[i] = batchOutcome{names: batch, results: res, err: err}
			if i < len(batches)-1 {
				_ = c.sleep(ctx, c.cfg.Pause)
			}
			return nil
		})
	}
	_ = g.Wait()

	var findings []core.Finding
	for i, out := range outcomes {
		if out.err != nil {
			c.logger.Warn("taxonomy batch degraded", "batch", i+1, "names", len(out.names), "error", out.err)
			findings = append(findings, degradedFinding(i+1, len(outcomes), out))
			for _, n := range out.names {
				results[n] = core.TaxonResult{Name: n, Status: core.TaxonNotFound, Degraded: true}
			}
			continue
		}
		for _, r := range out.results {
			results[r.Name] = r
			c.cache.Add(r.Name, r)
		}
	}

	return results, findings
}

// lookupBatch fetches one batch under the retry policy.
func (c *Client) lookupBatch(ctx context.Context, names []string) ([]core.TaxonResult, error) {
	var lists [][]AphiaRecord
	attempts, err := c.retry.Do(ctx, c.sleep, func(ctx context.Context) error {
		out, err := c.fetch(ctx, names)
		if err != nil {
			c.logger.Debug("taxonomy request failed", "names", len(names), "error", err)
			return err
		}
		lists = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempt(s): %w", ErrBatchFailed, attempts, err)
	}

	results := make([]core.TaxonResult, len(names))
	for i, n := range names {
		results[i] = classify(n, lists[i])
	}
	return results, nil
}

func degradedFinding(batch, total int, out batchOutcome) core.Finding {
	f := core.NewFinding(core.SeverityWarning, core.CodeTaxonomyDegraded, core.ColScientificName,
		fmt.Sprintf("Batch %d of %d (%d names) was not checked: %v.", batch, total, len(out.names), out.err))
	f.Keys = append([]string(nil), out.names...)
	return f
}

// chunk splits names into consecutive batches of at most size.
func chunk(names []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(names); start += size {
		end := min(start+size, len(names))
		out = append(out, names[start:end])
	}
	return out
}
