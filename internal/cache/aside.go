// Package cache memoizes handler responses in front of a store. Lookups are
// done per query, so one bad entry never fails the rest of a batch.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sevigo/eris/internal/core"
)

// Result is the outcome for a single query of a batch.
type Result[Resp any] struct {
	Value Resp
	Err   error
}

// MetricsRecorder is an optional interface for recording cache metrics.
type MetricsRecorder interface {
	RecordCacheHit(ctx context.Context, name string)
	RecordCacheMiss(ctx context.Context, name string)
	RecordCacheError(ctx context.Context, name string, kind string)
}

// Option configures an Aside wrapper.
type Option func(*options)

type options struct {
	name    string
	codec   Codec
	logger  *slog.Logger
	metrics MetricsRecorder
}

// WithName labels the cache in logs and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithCodec replaces the default CBOR codec.
func WithCodec(c Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics enables metric recording.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) { o.metrics = m }
}

// Aside answers batches of queries from the store and falls back to the inner
// handler on a miss, storing what it returns.
type Aside[Q Query, Resp any] struct {
	inner core.Handler[Q, Resp]
	store Store
	opts  options
}

// NewAside wraps inner with a cache-aside lookup over store.
func NewAside[Q Query, Resp any](inner core.Handler[Q, Resp], store Store, opts ...Option) (*Aside[Q, Resp], error) {
	o := options{name: "cache", logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.codec == nil {
		codec, err := NewCBORCodec()
		if err != nil {
			return nil, fmt.Errorf("failed to create cache codec: %w", err)
		}
		o.codec = codec
	}
	o.logger = o.logger.With("cache", o.name)
	return &Aside[Q, Resp]{inner: inner, store: store, opts: o}, nil
}

// Ready always succeeds. The inner handler is only probed on a miss.
func (a *Aside[Q, Resp]) Ready(context.Context) error {
	return nil
}

// Call resolves every query independently. The returned slice has one Result
// per query, in order, and the call itself never fails.
func (a *Aside[Q, Resp]) Call(ctx context.Context, queries []Q) ([]Result[Resp], error) {
	results := make([]Result[Resp], len(queries))
	for i, q := range queries {
		v, err := a.lookup(ctx, q)
		if err != nil {
			a.recordError(ctx, err)
		}
		results[i] = Result[Resp]{Value: v, Err: err}
	}
	return results, nil
}

func (a *Aside[Q, Resp]) lookup(ctx context.Context, q Q) (Resp, error) {
	var zero Resp

	key, err := Key(q)
	if err != nil {
		return zero, err
	}

	data, found, err := a.store.Get(ctx, key)
	if err != nil {
		return zero, wrap(ErrCache, err)
	}
	if found {
		a.recordHit(ctx)
		var v Resp
		if err := a.opts.codec.Unmarshal(data, &v); err != nil {
			return zero, wrap(ErrDeserialize, err)
		}
		return v, nil
	}
	a.recordMiss(ctx)

	if err := a.inner.Ready(ctx); err != nil {
		return zero, wrap(ErrInner, err)
	}
	v, err := a.inner.Call(ctx, q)
	if err != nil {
		return zero, wrap(ErrInner, err)
	}

	data, err = a.opts.codec.Marshal(v)
	if err != nil {
		return zero, wrap(ErrSerialize, err)
	}
	if err := a.store.Set(ctx, key, data); err != nil {
		a.opts.logger.Warn("failed to store response", "error", err)
		a.recordError(ctx, wrap(ErrCache, err))
	}
	return v, nil
}

func (a *Aside[Q, Resp]) recordHit(ctx context.Context) {
	if a.opts.metrics != nil {
		a.opts.metrics.RecordCacheHit(ctx, a.opts.name)
	}
}

func (a *Aside[Q, Resp]) recordMiss(ctx context.Context) {
	if a.opts.metrics != nil {
		a.opts.metrics.RecordCacheMiss(ctx, a.opts.name)
	}
}

func (a *Aside[Q, Resp]) recordError(ctx context.Context, err error) {
	a.opts.logger.Debug("cache lookup failed", "error", err)
	if a.opts.metrics == nil {
		return
	}
	kind := "unknown"
	var ce *Error
	if errors.As(err, &ce) {
		kind = errorKind(ce.Kind)
	}
	a.opts.metrics.RecordCacheError(ctx, a.opts.name, kind)
}

func errorKind(kind error) string {
	switch kind {
	case ErrSerialize:
		return "serialize"
	case ErrDeserialize:
		return "deserialize"
	case ErrInner:
		return "inner"
	case ErrCache:
		return "cache"
	default:
		return "unknown"
	}
}

// Lookup resolves a single query through a.
func Lookup[Q Query, Resp any](ctx context.Context, a *Aside[Q, Resp], q Q) (Resp, error) {
	results, err := a.Call(ctx, []Q{q})
	if err != nil {
		var zero Resp
		return zero, err
	}
	return results[0].Value, results[0].Err
}
