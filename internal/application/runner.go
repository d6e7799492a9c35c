// Package application wires configuration into validation runs. Both the
// HTTP server and the CLI go through a Runner so limits, taxonomy settings
// and the collision policy are applied the same way everywhere.
package application

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/dwcheck/internal/config"
	"github.com/JonMunkholm/dwcheck/internal/core"
	"github.com/JonMunkholm/dwcheck/internal/loader"
	"github.com/JonMunkholm/dwcheck/internal/taxon"
)

// Runner builds a fresh core.Service per run and bounds concurrent runs.
type Runner struct {
	cfg     *config.Config
	http    *http.Client
	limiter *core.RunLimiter
	logger  *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithHTTPClient sets the client used for taxonomy requests.
func WithHTTPClient(h *http.Client) Option {
	return func(r *Runner) { r.http = h }
}

// WithLogger sets the base logger for runs.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner from cfg.
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		http:    &http.Client{},
		limiter: core.NewRunLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOptions adjust a single run.
type RunOptions struct {
	// SkipTaxonomy disables the taxonomy stage even when configured on.
	SkipTaxonomy bool

	// Logger overrides the runner's logger, e.g. with a request-scoped one.
	Logger *slog.Logger
}

// Config returns the runner's configuration.
func (r *Runner) Config() *config.Config {
	return r.cfg
}

// Limiter returns the run limiter, for health reporting and shutdown.
func (r *Runner) Limiter() *core.RunLimiter {
	return r.limiter
}

// TaxonomyEnabled reports whether runs check names unless told otherwise.
func (r *Runner) TaxonomyEnabled() bool {
	return r.cfg.Taxonomy.Enabled
}

// NewService builds a service for one run. Each run gets its own name
// cache so results never leak between datasets.
func (r *Runner) NewService(opts RunOptions) *core.Service {
	logger := r.loggerFor(opts)
	svcOpts := []core.Option{
		core.WithLogger(logger),
		core.WithCollisionPolicy(r.cfg.Linkage.Policy()),
	}

	if r.cfg.Taxonomy.Enabled && !opts.SkipTaxonomy {
		client := taxon.NewClient(r.cfg.Taxonomy.ClientConfig(),
			taxon.WithHTTPClient(r.http),
			taxon.WithRetryPolicy(r.cfg.Taxonomy.RetryPolicy()),
			taxon.WithCache(taxon.NewLRUCache(r.cfg.Taxonomy.CacheSize)),
			taxon.WithLogger(logger),
		)
		svcOpts = append(svcOpts, core.WithTaxonResolver(client))
	}

	return core.NewService(svcOpts...)
}

// Validate waits for a run slot and validates ds. Returns
// core.ErrTooManyRuns when no slot frees up in time.
func (r *Runner) Validate(ctx context.Context, ds core.Dataset, opts RunOptions) (*core.Report, error) {
	if err := r.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer r.limiter.Release()

	return r.NewService(opts).Validate(ctx, ds)
}

// CSVReader returns a reader honoring the upload size limit.
func (r *Runner) CSVReader(logger *slog.Logger) loader.CSVReader {
	if logger == nil {
		logger = r.logger
	}
	return loader.CSVReader{MaxBytes: r.cfg.Upload.MaxFileSize, Logger: logger}
}

// ReadTable parses one uploaded CSV table.
func (r *Runner) ReadTable(kind core.TableKind, src io.Reader, logger *slog.Logger) (*core.Table, error) {
	return r.CSVReader(logger).Read(string(kind), src)
}

// LoadDir reads the three CSV files from dir.
func (r *Runner) LoadDir(dir string) (core.Dataset, error) {
	return r.CSVReader(nil).LoadDir(dir)
}

// LoadPostgres reads the configured tables from the database. The pool
// lives only for the load.
func (r *Runner) LoadPostgres(ctx context.Context) (core.Dataset, error) {
	pool, err := loader.Connect(ctx, r.cfg.Database.PoolConfig())
	if err != nil {
		return core.Dataset{}, err
	}
	defer pool.Close()

	return loader.NewPostgresSource(pool, r.cfg.Database.TableNames()).Load(ctx)
}

func (r *Runner) loggerFor(opts RunOptions) *slog.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.logger
}
