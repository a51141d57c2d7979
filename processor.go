package pgbulk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// WriteHandler writes one batch of records, typically as a single COPY.
type WriteHandler[T any] interface {
	Write(ctx context.Context, records []T) error
}

// WriteHandlerFunc adapts a function to WriteHandler.
type WriteHandlerFunc[T any] func(ctx context.Context, records []T) error

func (f WriteHandlerFunc[T]) Write(ctx context.Context, records []T) error {
	return f(ctx, records)
}

// Flush triggers, as reported in FlushError and metrics.
const (
	TriggerSize   = "size"
	TriggerTimer  = "timer"
	TriggerManual = "manual"
	TriggerClose  = "close"
)

type processorState int

const (
	processorOpen processorState = iota
	processorClosing
	processorClosed
)

// ProcessorOption configures a Processor.
type ProcessorOption func(*processorOptions)

type processorOptions struct {
	logger  zerolog.Logger
	metrics *Metrics
	onError func(error)
}

// WithProcessorLogger sets the logger for flush diagnostics.
func WithProcessorLogger(l zerolog.Logger) ProcessorOption {
	return func(o *processorOptions) {
		o.logger = l
	}
}

// WithMetrics records flush metrics in m.
func WithMetrics(m *Metrics) ProcessorOption {
	return func(o *processorOptions) {
		o.metrics = m
	}
}

// WithErrorHandler receives failures of timer-triggered flushes, which have
// no caller to return them to.
func WithErrorHandler(fn func(error)) ProcessorOption {
	return func(o *processorOptions) {
		o.onError = fn
	}
}

// Processor buffers records and hands them to a WriteHandler in batches, when
// the batch size is reached, on an optional interval, on Flush and on Close.
//
// Processor is safe for concurrent use. Batches are written one at a time and
// in the order their records were added; Add does not wait for a flush it did
// not trigger.
type Processor[T any] struct {
	handler   WriteHandler[T]
	batchSize int
	opts      processorOptions

	mu    sync.Mutex // guards buf and state
	buf   []T
	state processorState

	flushMu sync.Mutex // serializes flushes

	stop chan struct{}
	done chan struct{}
}

// NewProcessor creates a processor writing to h. When cfg.FlushInterval is
// positive a background goroutine flushes pending records at that interval
// until Close.
func NewProcessor[T any](h WriteHandler[T], cfg ProcessorConfig, opts ...ProcessorOption) (*Processor[T], error) {
	if h == nil {
		return nil, fmt.Errorf("write handler is nil")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := processorOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Processor[T]{
		handler:   h,
		batchSize: cfg.BatchSize,
		opts:      o,
		buf:       make([]T, 0, cfg.BatchSize),
	}
	if cfg.FlushInterval > 0 {
		p.stop = make(chan struct{})
		p.done = make(chan struct{})
		go p.run(cfg.FlushInterval)
	}
	return p, nil
}

// Add buffers r. When the buffer reaches the batch size it is flushed before
// Add returns, and a handler failure is returned as *FlushError.
func (p *Processor[T]) Add(ctx context.Context, r T) error {
	p.mu.Lock()
	if p.state != processorOpen {
		p.mu.Unlock()
		return ErrProcessorClosed
	}
	p.buf = append(p.buf, r)
	full := len(p.buf) >= p.batchSize
	p.mu.Unlock()

	if full {
		return p.flush(ctx, TriggerSize)
	}
	return nil
}

// Flush writes all pending records now.
func (p *Processor[T]) Flush(ctx context.Context) error {
	p.mu.Lock()
	open := p.state == processorOpen
	p.mu.Unlock()
	if !open {
		return ErrProcessorClosed
	}
	return p.flush(ctx, TriggerManual)
}

// Pending returns the number of buffered records.
func (p *Processor[T]) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

// Close stops the flush timer, waits for a running timer flush, then flushes
// the remaining records. Calls after the first return nil.
func (p *Processor[T]) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.state != processorOpen {
		p.mu.Unlock()
		return nil
	}
	p.state = processorClosing
	p.mu.Unlock()

	if p.stop != nil {
		close(p.stop)
		<-p.done
	}
	err := p.flush(ctx, TriggerClose)

	p.mu.Lock()
	p.state = processorClosed
	p.mu.Unlock()
	return err
}

// flush swaps the buffer out under mu and writes it outside mu, holding
// flushMu for the whole flush so batches leave in order. A timer flush that
// reaches the swap after Close began writes nothing.
func (p *Processor[T]) flush(ctx context.Context, trigger string) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	if trigger == TriggerTimer && p.state != processorOpen {
		p.mu.Unlock()
		return nil
	}
	batch := p.buf
	if len(batch) > 0 {
		p.buf = make([]T, 0, p.batchSize)
	}
	p.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	err := p.handler.Write(ctx, batch)
	elapsed := time.Since(start)
	p.opts.metrics.observe(trigger, len(batch), elapsed, err)
	if err != nil {
		return &FlushError{Trigger: trigger, Records: len(batch), Err: err}
	}

	p.opts.logger.Debug().
		Str("trigger", trigger).
		Int("records", len(batch)).
		Dur("elapsed", elapsed).
		Msg("batch flushed")
	return nil
}

func (p *Processor[T]) run(interval time.Duration) {
	defer close(p.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Processor[T]) tick() {
	p.mu.Lock()
	skip := p.state != processorOpen || len(p.buf) == 0
	p.mu.Unlock()
	if skip {
		return
	}

	if err := p.flush(context.Background(), TriggerTimer); err != nil {
		p.opts.logger.Error().Err(err).Msg("timer flush failed")
		if p.opts.onError != nil {
			p.opts.onError(err)
		}
	}
}
