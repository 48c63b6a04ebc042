package audit

import (
	"context"
	"log/slog"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/logging"
	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/metrics"
)

// Pipeline assembles the full audit stack (resolver, refresher, sink, and
// interceptor) from one Config. It is the convenience entry point for
// boundary layers that do not need to wire the pieces individually.
type Pipeline struct {
	Resolver    *Resolver
	Refresher   *Refresher
	Sink        *Sink
	Interceptor *Interceptor
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*pipelineConfig)

type pipelineConfig struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	identity IdentityProvider
	defaults []StaticDefault
}

// WithPipelineLogger sets the logger shared by all pipeline components.
func WithPipelineLogger(l *slog.Logger) PipelineOption {
	return func(c *pipelineConfig) { c.logger = l }
}

// WithPipelineMetrics sets the metrics collectors shared by all components.
func WithPipelineMetrics(m *metrics.Metrics) PipelineOption {
	return func(c *pipelineConfig) { c.metrics = m }
}

// WithPipelineIdentity sets the identity collaborator.
func WithPipelineIdentity(p IdentityProvider) PipelineOption {
	return func(c *pipelineConfig) { c.identity = p }
}

// WithPipelineDefaults registers static per-operation fallback policies.
func WithPipelineDefaults(defaults ...StaticDefault) PipelineOption {
	return func(c *pipelineConfig) { c.defaults = append(c.defaults, defaults...) }
}

// NewPipeline builds the audit stack. cfg may be nil, in which case
// defaults apply throughout.
func NewPipeline(cfg *Config, source RuleSource, store Store, opts ...PipelineOption) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	norm := cfg.normalized()

	pc := &pipelineConfig{
		logger:   logging.Nop(),
		metrics:  metrics.Nop(),
		identity: AnonymousIdentity{},
	}
	for _, opt := range opts {
		opt(pc)
	}

	resolver := NewResolver(source,
		WithLogger(pc.logger),
		WithMetrics(pc.metrics),
		WithStaticDefaults(pc.defaults...))
	refresher := NewRefresher(resolver, norm.RefreshInterval, WithRefreshLogger(pc.logger))

	sink, err := NewSink(store,
		WithSinkLogger(pc.logger),
		WithSinkMetrics(pc.metrics),
		WithIdentity(pc.identity),
		WithWorkers(norm.Workers),
		WithQueueSize(norm.QueueSize))
	if err != nil {
		return nil, err
	}

	interceptor := NewInterceptor(resolver, sink,
		WithInterceptorLogger(pc.logger),
		WithMaxBodyCapture(norm.MaxBodyCapture))

	return &Pipeline{
		Resolver:    resolver,
		Refresher:   refresher,
		Sink:        sink,
		Interceptor: interceptor,
	}, nil
}

// Start loads the initial rule snapshot and launches the refresh loop.
func (p *Pipeline) Start(ctx context.Context) {
	p.Refresher.Start(ctx)
}

// Close stops the refresh loop and drains the sink. The store is left open
// for its owner to close.
func (p *Pipeline) Close() error {
	p.Refresher.Stop()
	return p.Sink.Close()
}
