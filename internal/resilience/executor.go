package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// instrumentationName is used for the OpenTelemetry meter.
const instrumentationName = "github.com/mkarlsen/equiploan/internal/resilience"

// Default executor policy values.
const (
	DefaultMaxRetries        = 3
	DefaultBaseDelay         = time.Second
	DefaultMaxDelay          = 30 * time.Second
	DefaultMultiplier        = 2.0
	DefaultBreakerThreshold  = 5
	DefaultBreakerOpenWindow = 60 * time.Second
)

// RetryError is the single terminal failure shape the executor surfaces.
// Callers branch on Classification plus the Exhausted and
// ManualRetryAvailable flags; they never need to inspect the root cause.
type RetryError struct {
	Classification Classification
	AttemptsMade   int
	MaxRetries     int
	Exhausted      bool

	// ManualRetryAvailable is set on the manual-retry path when the
	// classification permits a caller-approved retry.
	ManualRetryAvailable bool

	// Captured operation for the manual-retry path.
	op    func(context.Context) (any, error)
	opctx Context
}

// Error implements the error interface.
func (e *RetryError) Error() string {
	if e.Classification.Err != nil {
		return fmt.Sprintf("%s after %d attempt(s): %v",
			e.Classification.Type, e.AttemptsMade, e.Classification.Err)
	}

	return fmt.Sprintf("%s after %d attempt(s)", e.Classification.Type, e.AttemptsMade)
}

// Unwrap returns the original failure for errors.Is/As support.
func (e *RetryError) Unwrap() error {
	return e.Classification.Err
}

// AsRetryError extracts a RetryError from an error chain.
func AsRetryError(err error) (*RetryError, bool) {
	var rerr *RetryError
	if errors.As(err, &rerr) {
		return rerr, true
	}

	return nil, false
}

// Options holds the executor's retry and breaker policy. Zero fields are
// replaced with defaults at construction.
type Options struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	JitterEnabled     bool

	BreakerThreshold int
	BreakerTimeout   time.Duration
}

// DefaultOptions returns the default executor policy.
func DefaultOptions() Options {
	return Options{
		MaxRetries:        DefaultMaxRetries,
		BaseDelay:         DefaultBaseDelay,
		MaxDelay:          DefaultMaxDelay,
		BackoffMultiplier: DefaultMultiplier,
		JitterEnabled:     true,
		BreakerThreshold:  DefaultBreakerThreshold,
		BreakerTimeout:    DefaultBreakerOpenWindow,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxRetries <= 0 {
		o.MaxRetries = d.MaxRetries
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = d.BaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = d.MaxDelay
	}
	if o.BackoffMultiplier <= 1 {
		o.BackoffMultiplier = d.BackoffMultiplier
	}
	if o.BreakerThreshold <= 0 {
		o.BreakerThreshold = d.BreakerThreshold
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = d.BreakerTimeout
	}

	return o
}

// CallOption overrides executor policy for a single call.
type CallOption func(*Options)

// WithMaxRetries overrides the attempt budget for one call.
func WithMaxRetries(n int) CallOption {
	return func(o *Options) { o.MaxRetries = n }
}

// WithBaseDelay overrides the base backoff delay for one call.
func WithBaseDelay(d time.Duration) CallOption {
	return func(o *Options) { o.BaseDelay = d }
}

// WithMaxDelay overrides the backoff cap for one call.
func WithMaxDelay(d time.Duration) CallOption {
	return func(o *Options) { o.MaxDelay = d }
}

// WithoutJitter disables backoff jitter for one call.
func WithoutJitter() CallOption {
	return func(o *Options) { o.JitterEnabled = false }
}

// Executor wraps arbitrary operations with classification-driven retries
// behind a circuit breaker. Each Executor owns exactly one breaker:
// operations sharing an Executor share trip decisions intentionally, so
// logically distinct backends must use distinct instances. Instances are
// built once at process start and injected, never ambient globals.
type Executor struct {
	name    string
	opts    Options
	breaker *Breaker
	logger  *slog.Logger

	// sleep is overridable for tests.
	sleep func(context.Context, time.Duration) error

	attempts metric.Int64Counter
	failures metric.Int64Counter
}

// NewExecutor creates a named executor with its own circuit breaker.
func NewExecutor(name string, opts Options, logger *slog.Logger) *Executor {
	opts = opts.withDefaults()

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		slog.String("component", "resilience.Executor"),
		slog.String("executor", name),
	)

	breaker := NewBreaker(BreakerConfig{
		FailureThreshold: opts.BreakerThreshold,
		OpenTimeout:      opts.BreakerTimeout,
	})
	breaker.OnStateChange(func(from, to BreakerState) {
		logger.Warn("circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	meter := otel.Meter(instrumentationName)
	attempts, _ := meter.Int64Counter("resilience.attempts",
		metric.WithDescription("Operation attempts made by the executor"))
	failures, _ := meter.Int64Counter("resilience.failures",
		metric.WithDescription("Classified failures observed by the executor"))

	return &Executor{
		name:     name,
		opts:     opts,
		breaker:  breaker,
		logger:   logger,
		sleep:    sleepContext,
		attempts: attempts,
		failures: failures,
	}
}

// Name returns the executor's name.
func (e *Executor) Name() string {
	return e.name
}

// BreakerState returns the current state of the executor's breaker.
func (e *Executor) BreakerState() BreakerState {
	return e.breaker.State()
}

// Run executes op with automatic retries. On terminal failure it returns a
// *RetryError carrying the final classification. Attempts within one call
// are strictly sequential: attempt N+1 never starts before attempt N has
// been classified and the backoff has elapsed.
func Run[T any](ctx context.Context, e *Executor, op func(context.Context) (T, error), opctx Context, opts ...CallOption) (T, error) {
	var zero T

	o := e.opts
	for _, apply := range opts {
		apply(&o)
	}

	if !e.breaker.Allow() {
		c := Classification{
			Type:      TypeCircuitOpen,
			Category:  CategoryGeneral,
			Severity:  SeverityHigh,
			Context:   opctx,
			Timestamp: time.Now(),
		}
		e.failures.Add(ctx, 1, classificationAttrs(c, opctx))
		e.logger.Warn("call rejected by open circuit",
			slog.String("operation", opctx.Operation),
		)

		return zero, &RetryError{Classification: c, MaxRetries: o.MaxRetries}
	}

	for attempt := 1; ; attempt++ {
		result, err := invoke(ctx, op)
		e.attempts.Add(ctx, 1, metric.WithAttributes(
			attribute.String("executor", e.name),
			attribute.String("operation", opctx.Operation),
		))

		if err == nil {
			e.breaker.RecordSuccess()
			return result, nil
		}

		// A caller-initiated cancellation aborts the loop immediately
		// without classification or breaker bookkeeping.
		if ctx.Err() != nil {
			return zero, fmt.Errorf("operation aborted: %w", ctx.Err())
		}

		c := Classify(err, opctx)
		e.failures.Add(ctx, 1, classificationAttrs(c, opctx))

		if attempt >= o.MaxRetries || !ShouldRetry(c, attempt) {
			e.breaker.RecordFailure(c.Severity)

			return zero, &RetryError{
				Classification: c,
				AttemptsMade:   attempt,
				MaxRetries:     o.MaxRetries,
				Exhausted:      attempt >= o.MaxRetries,
			}
		}

		base := c.RetryDelay
		if base <= 0 {
			base = o.BaseDelay
		}
		delay := retryDelay(base, attempt, o.BackoffMultiplier, o.MaxDelay, o.JitterEnabled)

		e.logger.Debug("retrying after classified failure",
			slog.String("operation", opctx.Operation),
			slog.String("type", string(c.Type)),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
		)

		if err := e.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("operation aborted: %w", err)
		}
	}
}

// RunManual executes op exactly once. On failure it returns a *RetryError
// annotated with ManualRetryAvailable and the captured operation, so a UI
// can offer an explicit retry via Retry. The human approves each attempt;
// the executor never backs off on this path.
func RunManual[T any](ctx context.Context, e *Executor, op func(context.Context) (T, error), opctx Context) (T, error) {
	result, err := Run(ctx, e, op, opctx, WithMaxRetries(1))
	if err == nil {
		return result, nil
	}

	var zero T

	rerr, ok := AsRetryError(err)
	if !ok {
		return zero, err
	}

	rerr.ManualRetryAvailable = rerr.Classification.Retryable
	rerr.op = func(ctx context.Context) (any, error) {
		return op(ctx)
	}
	rerr.opctx = opctx

	return zero, rerr
}

// Retry re-invokes the operation captured in a manual-retry failure, with a
// single-attempt budget through the auto-retry path.
func Retry[T any](ctx context.Context, e *Executor, rerr *RetryError) (T, error) {
	var zero T

	if rerr == nil || rerr.op == nil {
		return zero, errors.New("resilience: retry error carries no operation")
	}

	result, err := Run(ctx, e, rerr.op, rerr.opctx, WithMaxRetries(1))
	if err != nil {
		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("resilience: retried operation returned %T", result)
	}

	return typed, nil
}

// invoke runs op, converting panics into classified system failures so a
// misbehaving operation cannot take the caller down.
func invoke[T any](ctx context.Context, op func(context.Context) (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	return op(ctx)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func classificationAttrs(c Classification, opctx Context) metric.AddOption {
	return metric.WithAttributes(
		attribute.String("operation", opctx.Operation),
		attribute.String("category", string(c.Category)),
		attribute.String("type", string(c.Type)),
		attribute.String("severity", c.Severity.String()),
	)
}
