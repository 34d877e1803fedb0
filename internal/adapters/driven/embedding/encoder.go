package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
	"github.com/custodia-labs/printdesk/internal/logger"
	"github.com/custodia-labs/printdesk/internal/ratelimit"
)

// Ensure Encoder implements the interface.
var _ driven.EmbeddingService = (*Encoder)(nil)

// Default encoder settings.
const (
	DefaultBatchSize   = 32
	DefaultTimeout     = 30 * time.Second
	DefaultParallelism = 1
	DefaultRetryDelay  = time.Second
	maxRetryDelay      = time.Minute
)

// Encoder applies the model-family prefix, batches texts, calls the backend
// and L2-normalises the result. Splitting a request into batches never
// changes the vectors returned.
type Encoder struct {
	backend     driven.EmbeddingBackend
	family      Family
	batchSize   int
	parallelism int
	timeout     time.Duration
	retries     int
	retryDelay  time.Duration
	limiter     *ratelimit.RateLimiter
	breaker     *gobreaker.CircuitBreaker
	tracer      trace.Tracer

	mu   sync.Mutex
	dims int
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithBatchSize sets the number of texts per backend call.
func WithBatchSize(n int) Option {
	return func(e *Encoder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithParallelism sets how many batches may be in flight at once.
func WithParallelism(n int) Option {
	return func(e *Encoder) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(e *Encoder) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRetries retries retriable failures up to n extra times, starting
// at delay and doubling. A Retry-After from the backend takes precedence.
func WithRetries(n int, delay time.Duration) Option {
	return func(e *Encoder) {
		if n >= 0 {
			e.retries = n
		}
		if delay > 0 {
			e.retryDelay = delay
		}
	}
}

// WithRateLimiter throttles backend calls. The limiter is owned by the caller
// and may be shared between encoders.
func WithRateLimiter(l *ratelimit.RateLimiter) Option {
	return func(e *Encoder) {
		e.limiter = l
	}
}

// WithCircuitBreaker makes the encoder fail fast once the backend has failed
// repeatedly. The breaker half-opens after the timeout.
func WithCircuitBreaker(timeout time.Duration) Option {
	return func(e *Encoder) {
		e.breaker = newBreaker(e.backend.ModelName(), timeout)
	}
}

// NewEncoder wraps a backend. The model family is resolved once here.
func NewEncoder(backend driven.EmbeddingBackend, opts ...Option) *Encoder {
	e := &Encoder{
		backend:     backend,
		family:      FamilyOf(backend.ModelName()),
		batchSize:   DefaultBatchSize,
		parallelism: DefaultParallelism,
		timeout:     DefaultTimeout,
		retryDelay:  DefaultRetryDelay,
		tracer:      otel.Tracer("printdesk/embedding"),
		dims:        backend.Dimensions(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newBreaker(name string, timeout time.Duration) *gobreaker.CircuitBreaker {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding:" + name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !domain.IsRetriable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

// Family returns the model family resolved at construction.
func (e *Encoder) Family() Family {
	return e.family
}

// Embed returns one normalised vector per text, in input order.
func (e *Encoder) Embed(ctx context.Context, texts []string, role driven.Role) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, span := e.tracer.Start(ctx, "embedding.embed")
	defer span.End()
	span.SetAttributes(
		attribute.String("embedding.model", e.backend.ModelName()),
		attribute.String("embedding.role", role.String()),
		attribute.Int("embedding.texts", len(texts)),
	)

	input := e.family.Apply(texts, role)
	out := make([][]float32, len(input))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for start := 0; start < len(input); start += e.batchSize {
		end := min(start+e.batchSize, len(input))
		g.Go(func() error {
			vecs, err := e.embedBatch(gctx, input[start:end], role)
			if err != nil {
				return err
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

// embedBatch runs one backend call with retries.
func (e *Encoder) embedBatch(ctx context.Context, batch []string, role driven.Role) ([][]float32, error) {
	delay := e.retryDelay
	for attempt := 0; ; attempt++ {
		vecs, err := e.call(ctx, batch, role)
		if err == nil {
			return vecs, nil
		}
		if attempt >= e.retries || !domain.IsRetriable(err) {
			return nil, err
		}

		wait := delay
		var se *StatusError
		if errors.As(err, &se) && se.RetryAfter > 0 {
			wait = se.RetryAfter
			if e.limiter != nil {
				e.limiter.RecordRateLimitError(se.RetryAfter)
			}
		}
		logger.Debug("embedding batch failed (attempt %d), retrying in %s: %v", attempt+1, wait, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

// call runs a single backend request under the timeout, limiter and breaker.
func (e *Encoder) call(ctx context.Context, batch []string, role driven.Role) ([][]float32, error) {
	name := e.backend.ModelName()
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	run := func() (interface{}, error) {
		vecs, err := e.backend.EmbedBatch(ctx, batch, role)
		if err != nil {
			return nil, Classify(name, err)
		}
		return vecs, nil
	}

	var (
		res interface{}
		err error
	)
	if e.breaker != nil {
		res, err = e.breaker.Execute(run)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.BackendError{Backend: name, Retriable: true, Err: err}
		}
	} else {
		res, err = run()
	}
	if err != nil {
		return nil, err
	}

	vecs, _ := res.([][]float32)
	if len(vecs) != len(batch) {
		return nil, &domain.BackendError{
			Backend: name,
			Err:     fmt.Errorf("backend returned %d vectors for %d texts", len(vecs), len(batch)),
		}
	}
	for i, v := range vecs {
		if err := e.checkDims(len(v)); err != nil {
			return nil, &domain.BackendError{Backend: name, Err: err}
		}
		if err := Normalise(v); err != nil {
			return nil, &domain.BackendError{Backend: name, Err: fmt.Errorf("text %d: %w", i, err)}
		}
	}
	return vecs, nil
}

// checkDims pins the vector size on first use and rejects any change.
func (e *Encoder) checkDims(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dims == 0 {
		e.dims = n
		return nil
	}
	if n != e.dims {
		return fmt.Errorf("vector has %d dimensions, expected %d", n, e.dims)
	}
	return nil
}

// Dimensions returns the vector size, 0 until known.
func (e *Encoder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dims
}

// ModelName returns the backend model name.
func (e *Encoder) ModelName() string {
	return e.backend.ModelName()
}

// Ping checks the backend is reachable.
func (e *Encoder) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return Classify(e.backend.ModelName(), e.backend.Ping(ctx))
}

// Close releases the backend.
func (e *Encoder) Close() error {
	return e.backend.Close()
}

// ErrZeroVector is returned for vectors with no magnitude.
var ErrZeroVector = errors.New("zero vector")

// Normalise scales v to unit length in place.
func Normalise(v []float32) error {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return ErrZeroVector
	}
	for i, x := range v {
		v[i] = float32(float64(x) / norm)
	}
	return nil
}
