package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"CryptoPredict/internal/domain/models"
	domsvc "CryptoPredict/internal/domain/service"
	"CryptoPredict/internal/services/normalize"
	"CryptoPredict/pkg/logger"
	"CryptoPredict/pkg/metrics"

	"github.com/google/uuid"
)

const (
	DefaultAttemptTimeout = 10 * time.Second
	sinkTimeout           = 5 * time.Second
)

// Cascade tries its sources in order and returns the first valid forecast.
// Attempts are sequential and never retried; a failure or panic in one source only moves on to the next.
type Cascade struct {
	sources []domsvc.Source
	timeout time.Duration
	sink    domsvc.ForecastSink
	metrics *metrics.Recorder
	log     *logger.Logger
	now     func() time.Time

	// mu orders emit against Close so no wg.Add happens once Wait has begun
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// CascadeOption configures a Cascade.
type CascadeOption func(*Cascade)

// WithAttemptTimeout bounds each source attempt. Non-positive values keep the default.
func WithAttemptTimeout(d time.Duration) CascadeOption {
	return func(c *Cascade) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithSink records every served forecast in the background.
func WithSink(s domsvc.ForecastSink) CascadeOption {
	return func(c *Cascade) { c.sink = s }
}

// WithMetrics records attempt outcomes and latencies.
func WithMetrics(m *metrics.Recorder) CascadeOption {
	return func(c *Cascade) { c.metrics = m }
}

// WithCascadeLogger sets the logger. nil keeps the no-op logger.
func WithCascadeLogger(l *logger.Logger) CascadeOption {
	return func(c *Cascade) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCascade builds a cascade over sources, tried in the given order.
func NewCascade(sources []domsvc.Source, opts ...CascadeOption) *Cascade {
	c := &Cascade{
		sources: sources,
		timeout: DefaultAttemptTimeout,
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sources returns the source names in try order.
func (c *Cascade) Sources() []string {
	out := make([]string, len(c.sources))
	for i, s := range c.sources {
		out[i] = s.Name()
	}
	return out
}

// Predict runs the cascade for symbol over days.
func (c *Cascade) Predict(ctx context.Context, symbol string, days int) (models.Forecast, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return models.Forecast{}, fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}
	if days < MinDays || days > MaxDays {
		return models.Forecast{}, fmt.Errorf("%w: days must be between %d and %d, got %d", ErrInvalidRequest, MinDays, MaxDays, days)
	}

	start := c.now()
	var failures []string
	for i, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return models.Forecast{}, fmt.Errorf("predict %s: %w", symbol, err)
		}

		began := time.Now()
		f, err := c.attempt(ctx, src, symbol, days)
		elapsed := time.Since(began)
		if err != nil {
			kind := failureKind(err)
			failures = append(failures, src.Name()+":"+string(kind))
			c.recordAttempt(src.Name(), string(kind), elapsed)
			c.log.Warn("forecast source failed",
				logger.String("source", src.Name()),
				logger.String("kind", string(kind)),
				logger.String("symbol", symbol),
				logger.Int("position", i),
				logger.Duration("elapsed_ms", elapsed),
				logger.Error(err),
			)
			continue
		}

		c.recordAttempt(src.Name(), "ok", elapsed)
		if c.metrics != nil {
			c.metrics.RecordServed(f.DataSource)
		}
		c.log.Debug("forecast served",
			logger.String("source", f.DataSource),
			logger.String("symbol", symbol),
			logger.Int("days", days),
			logger.Int("attempts", i+1),
		)
		c.emit(models.ForecastEvent{
			ID:         uuid.NewString(),
			Symbol:     symbol,
			Days:       days,
			DataSource: f.DataSource,
			Attempts:   i + 1,
			Failures:   failures,
			Confidence: f.Confidence,
			Trend:      f.Trend,
			Volatility: f.Volatility,
			Price:      f.CurrentPrice,
			Duration:   c.now().Sub(start),
			ServedAt:   c.now(),
		})
		return f, nil
	}

	if c.metrics != nil {
		c.metrics.RecordExhausted()
	}
	c.log.Error("forecast cascade exhausted",
		logger.String("symbol", symbol),
		logger.Int("days", days),
		logger.Strings("failures", failures),
	)
	return models.Forecast{}, fmt.Errorf("%w: %s", ErrCascadeExhausted, strings.Join(failures, ", "))
}

type attemptResult struct {
	f   models.Forecast
	err error
}

// attempt runs one source under the per-attempt deadline. A source that ignores its context is
// abandoned when the deadline passes; its goroutine finishes on its own.
func (c *Cascade) attempt(ctx context.Context, src domsvc.Source, symbol string, days int) (models.Forecast, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan attemptResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- attemptResult{err: models.NewSourceError(src.Name(), models.FailureDefect, fmt.Errorf("panic: %v", r))}
			}
		}()
		f, err := src.FetchPrediction(ctx, symbol, days)
		done <- attemptResult{f: f, err: err}
	}()

	var res attemptResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return models.Forecast{}, models.NewSourceError(src.Name(), models.FailureTransport, ctx.Err())
	}

	if res.err != nil {
		var se *models.SourceError
		if errors.As(res.err, &se) {
			return models.Forecast{}, res.err
		}
		kind := models.FailureDefect
		if errors.Is(res.err, context.DeadlineExceeded) || errors.Is(res.err, context.Canceled) {
			kind = models.FailureTransport
		}
		return models.Forecast{}, models.NewSourceError(src.Name(), kind, res.err)
	}

	label := res.f.DataSource
	if label == "" {
		label = src.Name()
	}
	f, err := normalize.Forecast(res.f, symbol, days, label)
	if err != nil {
		return models.Forecast{}, models.NewSourceError(src.Name(), models.FailureDefect, err)
	}
	return f, nil
}

func (c *Cascade) recordAttempt(source, result string, d time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordAttempt(source, result, d)
	}
}

// emit hands ev to the sink without delaying the response.
func (c *Cascade) emit(ev models.ForecastEvent) {
	if c.sink == nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.log.Warn("forecast event dropped after shutdown",
			logger.String("event_id", ev.ID),
			logger.String("symbol", ev.Symbol),
		)
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := c.sink.Record(ctx, ev); err != nil {
			c.log.Warn("forecast event not recorded",
				logger.String("event_id", ev.ID),
				logger.String("symbol", ev.Symbol),
				logger.Error(err),
			)
		}
	}()
}

// Close waits for in-flight sink writes. Forecasts served afterwards are still returned,
// but their events are dropped. Close may be called more than once.
func (c *Cascade) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
}

func failureKind(err error) models.FailureKind {
	var se *models.SourceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return models.FailureDefect
}
