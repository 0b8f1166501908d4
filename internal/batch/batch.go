// Package batch groups a stream of items into batches bounded by size and by
// the time elapsed since a batch's first item.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrInvalidSize is returned when the maximum batch size is below one.
var ErrInvalidSize = errors.New("batch max size must be at least 1")

// MetricsRecorder is an optional interface for recording batch metrics.
type MetricsRecorder interface {
	RecordBatchEmitted(ctx context.Context, size int, full bool)
	RecordBatchDropped(ctx context.Context, size int)
}

// Option configures Forward.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics MetricsRecorder
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics enables metric recording.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) { o.metrics = m }
}

// Forward reads items from in and writes non-empty batches to out until in is
// closed. A batch is emitted once it holds maxSize items or maxWait has passed
// since its first item, whichever comes first. When in closes, the partial
// batch is emitted before Forward returns nil.
//
// Cancelling ctx means the consumer of out has gone away: the batch being
// collected is dropped and Forward returns ctx.Err() without draining in.
func Forward[T any](ctx context.Context, in <-chan T, out chan<- []T, maxWait time.Duration, maxSize int, opts ...Option) error {
	if maxSize < 1 {
		return ErrInvalidSize
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	f := forwarder[T]{ctx: ctx, out: out, opts: o}

	if maxSize == 1 {
		return f.singles(in)
	}
	return f.batches(in, maxWait, maxSize)
}

type forwarder[T any] struct {
	ctx  context.Context
	out  chan<- []T
	opts options
}

func (f forwarder[T]) singles(in <-chan T) error {
	for {
		select {
		case item, ok := <-in:
			if !ok {
				f.opts.logger.Info("batch input closed, exiting batch forward")
				return nil
			}
			if err := f.emit([]T{item}, true); err != nil {
				return err
			}
		case <-f.ctx.Done():
			return f.ctx.Err()
		}
	}
}

func (f forwarder[T]) batches(in <-chan T, maxWait time.Duration, maxSize int) error {
	for {
		var first T
		select {
		case item, ok := <-in:
			if !ok {
				f.opts.logger.Info("batch input closed, exiting batch forward")
				return nil
			}
			first = item
		case <-f.ctx.Done():
			return f.ctx.Err()
		}

		batch, open, err := f.collect(in, first, maxWait, maxSize)
		if err != nil {
			return err
		}
		if err := f.emit(batch, len(batch) == maxSize); err != nil {
			return err
		}
		if !open {
			f.opts.logger.Info("batch input closed, exiting batch forward")
			return nil
		}
	}
}

// collect fills a batch that starts with first. It reports whether in is still open.
func (f forwarder[T]) collect(in <-chan T, first T, maxWait time.Duration, maxSize int) ([]T, bool, error) {
	batch := make([]T, 1, maxSize)
	batch[0] = first

	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	for len(batch) < maxSize {
		select {
		case item, ok := <-in:
			if !ok {
				return batch, false, nil
			}
			batch = append(batch, item)
		case <-timer.C:
			f.opts.logger.Debug("batch timed out, sending partial batch", "size", len(batch))
			return batch, true, nil
		case <-f.ctx.Done():
			f.dropped(len(batch))
			return nil, false, f.ctx.Err()
		}
	}
	return batch, true, nil
}

func (f forwarder[T]) emit(batch []T, full bool) error {
	if err := f.ctx.Err(); err != nil {
		f.dropped(len(batch))
		return err
	}
	select {
	case f.out <- batch:
		if f.opts.metrics != nil {
			f.opts.metrics.RecordBatchEmitted(f.ctx, len(batch), full)
		}
		return nil
	case <-f.ctx.Done():
		f.dropped(len(batch))
		return f.ctx.Err()
	}
}

func (f forwarder[T]) dropped(size int) {
	f.opts.logger.Warn("batch receiver closed, batch dropped", "size", size)
	if f.opts.metrics != nil {
		f.opts.metrics.RecordBatchDropped(context.Background(), size)
	}
}
